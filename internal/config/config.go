// Moodpin - Anonymous Geo-Tagged Emotional Check-Ins
// Copyright 2026 Moodpin Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodpin/moodpin

// Package config loads Moodpin configuration via Koanf v2 with layered
// sources (highest priority wins): environment variables, optional YAML
// config file, built-in defaults.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"
)

// Config is the root configuration for the Moodpin server.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Store      StoreConfig      `koanf:"store"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	Token      TokenConfig      `koanf:"token"`
	Moderation ModerationConfig `koanf:"moderation"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// CORSAllowedOrigins is empty by default, requiring explicit
	// configuration before browsers are served.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// OuterRateLimitRequests/Window configure the coarse per-IP guard in
	// front of the admission pipeline. This is transport hygiene, not
	// the one-per-day admission window.
	OuterRateLimitRequests int           `koanf:"outer_rate_limit_requests"`
	OuterRateLimitWindow   time.Duration `koanf:"outer_rate_limit_window"`

	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StoreConfig holds ephemeral key-value store settings.
type StoreConfig struct {
	// Path is the BadgerDB directory. Empty selects an in-memory store
	// (single-instance development only; admission state is lost on
	// restart).
	Path string `koanf:"path"`

	// GCInterval is how often badger value-log garbage collection runs.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// RateLimitConfig holds admission window settings.
type RateLimitConfig struct {
	// Window is the rolling period during which one identity may be
	// admitted at most once.
	Window time.Duration `koanf:"window"`
}

// TokenConfig holds ephemeral token settings.
type TokenConfig struct {
	// TTL is the token lifetime in the ephemeral store.
	TTL time.Duration `koanf:"ttl"`

	// Salt is the process-wide secret mixed into token context hashes
	// and identity keys. Generated from the CSPRNG at load when unset.
	// Never logged.
	Salt string `koanf:"salt"`
}

// BoundingBox is a lat/lon rectangle used to reject implausible
// coordinates.
type BoundingBox struct {
	MinLat float64 `koanf:"min_lat"`
	MaxLat float64 `koanf:"max_lat"`
	MinLon float64 `koanf:"min_lon"`
	MaxLon float64 `koanf:"max_lon"`
}

// Contains reports whether the point lies inside the box.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// ModerationConfig holds the content rule inputs. All of these are
// externally supplied; the rule pipeline has no hardcoded lists.
type ModerationConfig struct {
	// NoteMaxLength caps free-text notes.
	NoteMaxLength int `koanf:"note_max_length"`

	// BannedWords are matched case-insensitively as whole words.
	BannedWords []string `koanf:"banned_words"`

	// RegionPattern validates region codes.
	RegionPattern string `koanf:"region_pattern"`

	// BannedBoxes are coordinate rectangles rejected outright, e.g. a
	// broad mid-ocean region no plausible check-in comes from.
	BannedBoxes []BoundingBox `koanf:"banned_boxes"`

	// MinLatitude/MaxLatitude bound plausible check-in latitudes
	// (defaults exclude Antarctica and the high Arctic).
	MinLatitude float64 `koanf:"min_latitude"`
	MaxLatitude float64 `koanf:"max_latitude"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                   "0.0.0.0",
			Port:                   8080,
			CORSAllowedOrigins:     []string{},
			OuterRateLimitRequests: 60,
			OuterRateLimitWindow:   time.Minute,
			ShutdownTimeout:        10 * time.Second,
		},
		Store: StoreConfig{
			Path:       "/data/moodpin-ephemeral",
			GCInterval: 10 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Window: 24 * time.Hour,
		},
		Token: TokenConfig{
			TTL:  24 * time.Hour,
			Salt: "", // generated at load when unset
		},
		Moderation: ModerationConfig{
			NoteMaxLength: 280,
			BannedWords: []string{
				"fuck", "shit", "bitch", "asshole", "bastard",
				"cunt", "dick", "whore", "slut", "nigger", "faggot",
			},
			RegionPattern: `^([A-Z]{2}(-[A-Z0-9]{1,3})?|GLOBAL)$`,
			BannedBoxes: []BoundingBox{
				// Broad mid-Atlantic region: no plausible check-in
				// originates here, but spoofed coordinates often do.
				{MinLat: -45, MaxLat: 5, MinLon: -35, MaxLon: -5},
			},
			MinLatitude: -60,
			MaxLatitude: 80,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive, got %v", c.RateLimit.Window)
	}
	if c.Token.TTL <= 0 {
		return fmt.Errorf("token.ttl must be positive, got %v", c.Token.TTL)
	}
	if c.Moderation.NoteMaxLength <= 0 {
		return fmt.Errorf("moderation.note_max_length must be positive, got %d", c.Moderation.NoteMaxLength)
	}
	if _, err := regexp.Compile(c.Moderation.RegionPattern); err != nil {
		return fmt.Errorf("moderation.region_pattern is not a valid regexp: %w", err)
	}
	if c.Moderation.MinLatitude >= c.Moderation.MaxLatitude {
		return fmt.Errorf("moderation latitude bounds inverted: min %v >= max %v",
			c.Moderation.MinLatitude, c.Moderation.MaxLatitude)
	}
	return nil
}

// ensureSalt fills Token.Salt from the CSPRNG when unset. The generated
// salt is process-local: tokens and identity keys do not survive a
// restart, which matches their ephemeral lifetime.
func (c *Config) ensureSalt() error {
	if c.Token.Salt != "" {
		return nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("generate token salt: %w", err)
	}
	c.Token.Salt = hex.EncodeToString(buf)
	return nil
}
