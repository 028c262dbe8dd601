// Moodpin - Anonymous Geo-Tagged Emotional Check-Ins
// Copyright 2026 Moodpin Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodpin/moodpin

package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.RateLimit.Window != 24*time.Hour {
		t.Errorf("expected 24h rate limit window, got %v", cfg.RateLimit.Window)
	}
	if cfg.Token.TTL != 24*time.Hour {
		t.Errorf("expected 24h token TTL, got %v", cfg.Token.TTL)
	}
	if cfg.Moderation.NoteMaxLength != 280 {
		t.Errorf("expected note max length 280, got %d", cfg.Moderation.NoteMaxLength)
	}
	if len(cfg.Moderation.BannedWords) == 0 {
		t.Error("expected default banned word list")
	}
	if len(cfg.Moderation.BannedBoxes) == 0 {
		t.Error("expected default banned coordinate box")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("RATE_LIMIT_WINDOW", "1h")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.RateLimit.Window != time.Hour {
		t.Errorf("expected 1h window from env, got %v", cfg.RateLimit.Window)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090 from env, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level from env, got %q", cfg.Logging.Level)
	}
}

func TestUnknownEnvIgnored(t *testing.T) {
	t.Setenv("SOME_UNRELATED_VARIABLE", "value")

	if _, err := Load(); err != nil {
		t.Fatalf("Load should ignore unrelated env vars: %v", err)
	}
}

func TestSaltGeneration(t *testing.T) {
	t.Run("generated_when_unset", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(cfg.Token.Salt) != 64 {
			t.Errorf("expected 64 hex chars of generated salt, got %d", len(cfg.Token.Salt))
		}
	})

	t.Run("preserved_when_set", func(t *testing.T) {
		t.Setenv("TOKEN_SALT", "configured-secret")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Token.Salt != "configured-secret" {
			t.Errorf("expected configured salt preserved, got %q", cfg.Token.Salt)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad_port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "zero_window",
			mutate:  func(c *Config) { c.RateLimit.Window = 0 },
			wantErr: "rate_limit.window",
		},
		{
			name:    "zero_token_ttl",
			mutate:  func(c *Config) { c.Token.TTL = 0 },
			wantErr: "token.ttl",
		},
		{
			name:    "bad_region_pattern",
			mutate:  func(c *Config) { c.Moderation.RegionPattern = "[" },
			wantErr: "region_pattern",
		},
		{
			name: "inverted_latitude_bounds",
			mutate: func(c *Config) {
				c.Moderation.MinLatitude = 80
				c.Moderation.MaxLatitude = -60
			},
			wantErr: "latitude bounds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestBoundingBoxContains(t *testing.T) {
	box := BoundingBox{MinLat: -45, MaxLat: 5, MinLon: -35, MaxLon: -5}

	if !box.Contains(-20, -20) {
		t.Error("expected point inside box")
	}
	if box.Contains(40, -20) {
		t.Error("expected latitude outside box")
	}
	if box.Contains(-20, 10) {
		t.Error("expected longitude outside box")
	}
}
