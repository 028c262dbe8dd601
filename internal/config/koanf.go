// Moodpin - Anonymous Geo-Tagged Emotional Check-Ins
// Copyright 2026 Moodpin Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodpin/moodpin

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

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/moodpin/config.yaml",
	"/etc/moodpin/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load loads configuration with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if present)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := cfg.ensureSalt(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile searches the default paths, honoring CONFIG_PATH.
func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps flat environment variable names to koanf paths.
// Unknown variables are ignored so unrelated environment noise cannot
// leak into the configuration.
var envMappings = map[string]string{
	"http_host":                 "server.host",
	"http_port":                 "server.port",
	"cors_allowed_origins":      "server.cors_allowed_origins",
	"outer_rate_limit_requests": "server.outer_rate_limit_requests",
	"outer_rate_limit_window":   "server.outer_rate_limit_window",
	"shutdown_timeout":          "server.shutdown_timeout",

	"store_path":        "store.path",
	"store_gc_interval": "store.gc_interval",

	"rate_limit_window": "rate_limit.window",

	"token_ttl":  "token.ttl",
	"token_salt": "token.salt",

	"note_max_length": "moderation.note_max_length",
	"banned_words":    "moderation.banned_words",
	"region_pattern":  "moderation.region_pattern",
	"min_latitude":    "moderation.min_latitude",
	"max_latitude":    "moderation.max_latitude",

	"log_level":  "logging.level",
	"log_format": "logging.format",
}

// envTransformFunc maps environment variable names to koanf config
// paths, e.g. RATE_LIMIT_WINDOW -> rate_limit.window.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
