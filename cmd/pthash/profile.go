package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// profile is a build configuration stored as JSON with comments. Unset
// fields keep the flag defaults; flags given on the command line win over
// the profile.
type profile struct {
	Alpha      *float64 `json:"alpha"`
	C          *float64 `json:"c"`
	Partitions *int     `json:"partitions"`
	Threads    *int     `json:"threads"`
	Seed       *uint64  `json:"seed"`
	RAM        *string  `json:"ram"`
	TempDir    *string  `json:"temp_dir"`
	Minimal    *bool    `json:"minimal"`
	Encoder    *string  `json:"encoder"`
	Hasher     *string  `json:"hasher"`
}

func loadProfile(path string) (profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return profile{}, fmt.Errorf("read profile: %w", err)
	}
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return profile{}, fmt.Errorf("profile %s: invalid JSONC: %w", path, err)
	}
	var p profile
	if err := json.Unmarshal(standardized, &p); err != nil {
		return profile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// applyTo copies profile values into opts for every flag the user did not
// set explicitly.
func (p profile) applyTo(o *options, changed func(string) bool) {
	setIf := func(name string, apply func()) {
		if !changed(name) {
			apply()
		}
	}
	if p.Alpha != nil {
		setIf("alpha", func() { o.alpha = *p.Alpha })
	}
	if p.C != nil {
		setIf("c", func() { o.c = *p.C })
	}
	if p.Partitions != nil {
		setIf("partitions", func() { o.partitions = *p.Partitions })
	}
	if p.Threads != nil {
		setIf("threads", func() { o.threads = *p.Threads })
	}
	if p.Seed != nil {
		setIf("seed", func() { o.seed, o.seedSet = *p.Seed, true })
	}
	if p.RAM != nil {
		setIf("ram", func() { o.ram = *p.RAM })
	}
	if p.TempDir != nil {
		setIf("temp-dir", func() { o.tempDir = *p.TempDir })
	}
	if p.Minimal != nil {
		setIf("minimal", func() { o.minimal = *p.Minimal })
	}
	if p.Encoder != nil {
		setIf("encoder", func() { o.encoder = *p.Encoder })
	}
	if p.Hasher != nil {
		setIf("hasher", func() { o.hasher = *p.Hasher })
	}
}
