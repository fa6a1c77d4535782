// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/kinoscope/config.yaml",
	"/etc/kinoscope/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "KINOSCOPE_CONFIG"

// envPrefix is stripped from environment variables before mapping to
// config paths: KINOSCOPE_REFRESH_TOTAL_CHANGES_HIGH -> refresh.total_changes_high.
const envPrefix = "KINOSCOPE_"

// Load builds the configuration from three layers: struct defaults, an
// optional YAML file, and environment variables (highest priority).
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps KINOSCOPE_* variable names to dotted config paths.
// Sections are single words, so the first underscore becomes a dot:
// KINOSCOPE_DATABASE_MAX_MEMORY -> database.max_memory. The default weights
// block is the one doubly nested section and needs its second dot placed
// explicitly: KINOSCOPE_SCORING_DEFAULT_WEIGHTS_CRITICAL_ACCLAIM ->
// scoring.default_weights.critical_acclaim.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	key = strings.Replace(key, "_", ".", 1)
	if rest, ok := strings.CutPrefix(key, "scoring.default_weights_"); ok {
		return "scoring.default_weights." + rest
	}
	return key
}
