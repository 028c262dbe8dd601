// Moodpin - Anonymous Geo-Tagged Emotional Check-Ins
// Copyright 2026 Moodpin Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodpin/moodpin

// Package main is the entry point for the Moodpin check-in server.
//
// Moodpin accepts anonymous, geo-tagged emotional check-ins. The server
// runs the full admission pipeline for every submission: identity
// resolution from the connection origin, a one-per-window admission
// limit, content moderation rules, optional ephemeral preflight tokens,
// and durable recording of accepted check-ins.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables and optional config file (Koanf v2)
//  2. Ephemeral store: BadgerDB for admission windows, tokens, and records
//  3. Admission service: resolver, limiter, token service, rule pipeline
//  4. HTTP server: Chi router with preflight/submit/health/metrics routes
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (HTTP_PORT, STORE_PATH, TOKEN_SALT, ...)
//   - Config file (CONFIG_PATH, default /etc/moodpin/config.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting new connections, waits for in-flight requests up to the
// configured shutdown timeout, then closes the store.
//
// # Example Usage
//
//	export STORE_PATH=/var/lib/moodpin
//	export TOKEN_SALT=$(openssl rand -hex 32)
//	./moodpin
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/moodpin/moodpin/internal/admission"
	"github.com/moodpin/moodpin/internal/api"
	"github.com/moodpin/moodpin/internal/config"
	"github.com/moodpin/moodpin/internal/logging"
	"github.com/moodpin/moodpin/internal/storage"
	"github.com/moodpin/moodpin/internal/store"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	logging.Info().
		Str("store_path", cfg.Store.Path).
		Dur("rate_limit_window", cfg.RateLimit.Window).
		Dur("token_ttl", cfg.Token.TTL).
		Msg("Starting Moodpin")

	db, err := store.OpenBadger(cfg.Store.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open ephemeral store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing ephemeral store")
		}
	}()
	kv := store.NewBadgerStore(db)
	logging.Info().Msg("Ephemeral store initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Periodic badger value-log GC. Badger never runs this on its own.
	if cfg.Store.Path != "" && cfg.Store.GCInterval > 0 {
		go runStoreGC(ctx, db, cfg.Store.GCInterval)
	}

	rules, err := admission.NewPipeline(cfg.Moderation)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build moderation pipeline")
	}

	service := admission.NewService(
		admission.NewIdentityResolver(cfg.Token.Salt),
		admission.NewLimiter(kv, cfg.RateLimit.Window),
		admission.NewTokenService(kv, cfg.Token.Salt, cfg.Token.TTL),
		rules,
		storage.NewBadgerRecorder(db),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(api.NewHandler(service), &cfg.Server),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Setup signal handling.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server error")
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown failed")
	}
	logging.Info().Msg("Server stopped")
}

// runStoreGC runs badger value-log garbage collection on a fixed
// interval until ctx is canceled.
func runStoreGC(ctx context.Context, db *badger.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			store.RunGC(db)
		}
	}
}
