package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile parses a YAML config document into a partial key-value map
// suitable for MergeWithDefaults. A missing file is not an error — it
// yields an empty partial, so the caller falls through to the documented
// default profile, per spec §6 ("a missing config yields a documented
// default profile").
func LoadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var partial map[string]any
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if partial == nil {
		partial = map[string]any{}
	}
	return partial, nil
}

// Load is the documented entrypoint used by cmd/server and cmd/hook: it
// loads an optional YAML file, merges it with defaults, then applies
// environment overrides, and validates the result.
func Load(path string) (Config, []string, error) {
	partial, err := LoadFile(path)
	if err != nil {
		return Config{}, nil, err
	}
	cfg, warnings := MergeWithDefaults(partial)
	cfg = EnvOverlay(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, warnings, fmt.Errorf("config validation: %w", err)
	}
	return cfg, warnings, nil
}
