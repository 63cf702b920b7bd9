// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/MultiTechSystems/protocoler/internal/logging"
	"github.com/MultiTechSystems/protocoler/schema"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "protocoler.toml"

type Config struct {
	Log     LogConfig   `toml:"log"`
	Specs   []SpecEntry `toml:"specs"`
	Default string      `toml:"default"`
}

type LogConfig struct {
	Level     string `toml:"level"`
	Timestamp *bool  `toml:"timestamp"`
	NoColor   *bool  `toml:"no_color"`
}

// SpecEntry names a protocol document on disk.
type SpecEntry struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// Load reads the TOML file at path, fills defaults and validates the result.
// Relative spec paths are resolved against the directory of path.
func Load(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config parse failed (%s): unknown key %s", path, undecoded[0])
	}

	dir := filepath.Dir(path)
	for i := range cfg.Specs {
		cfg.Specs[i].Name = strings.TrimSpace(cfg.Specs[i].Name)
		p := strings.TrimSpace(cfg.Specs[i].Path)
		if p != "" && !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		cfg.Specs[i].Path = p
	}
	if cfg.Default == "" && len(cfg.Specs) == 1 {
		cfg.Default = cfg.Specs[0].Name
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if cfg.Log.Level != "" {
		if _, ok := logging.ParseLevel(cfg.Log.Level); !ok {
			return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
		}
	}
	names := make(map[string]struct{}, len(cfg.Specs))
	for i, entry := range cfg.Specs {
		if err := ValidateSpecEntry(entry); err != nil {
			return fmt.Errorf("specs[%d] invalid: %w", i, err)
		}
		if _, dup := names[entry.Name]; dup {
			return fmt.Errorf("specs[%d] invalid: duplicate name %q", i, entry.Name)
		}
		names[entry.Name] = struct{}{}
	}
	if cfg.Default != "" {
		if _, ok := names[cfg.Default]; !ok {
			return fmt.Errorf("default %q does not name a spec", cfg.Default)
		}
	}
	return nil
}

func ValidateSpecEntry(entry SpecEntry) error {
	if strings.TrimSpace(entry.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(entry.Path) == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// Apply copies the settings present in the file onto opts.
func (c Config) Apply(opts *logging.Options) {
	if lvl, ok := logging.ParseLevel(c.Log.Level); ok {
		opts.Level = lvl
	}
	if c.Log.Timestamp != nil {
		opts.Timestamp = *c.Log.Timestamp
	}
	if c.Log.NoColor != nil {
		opts.NoColor = *c.Log.NoColor
	}
}

// Spec returns the entry called name, or the default entry when name is empty.
func (c Config) Spec(name string) (SpecEntry, bool) {
	if name == "" {
		name = c.Default
	}
	for _, entry := range c.Specs {
		if entry.Name == name {
			return entry, true
		}
	}
	return SpecEntry{}, false
}

// Registry reads and validates every configured spec into a new registry.
func (c Config) Registry() (*schema.Registry, error) {
	reg := schema.NewRegistry()
	for _, entry := range c.Specs {
		data, err := os.ReadFile(entry.Path)
		if err != nil {
			return nil, fmt.Errorf("spec %q: %w", entry.Name, err)
		}
		if _, err := reg.Register(entry.Name, data); err != nil {
			return nil, fmt.Errorf("spec %q (%s): %w", entry.Name, entry.Path, err)
		}
	}
	return reg, nil
}
