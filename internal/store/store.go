// Moodpin - Anonymous Geo-Tagged Emotional Check-Ins
// Copyright 2026 Moodpin Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodpin/moodpin

// Package store provides the ephemeral key-value store used for
// rate-limit records and single-use admission tokens.
//
// All durable mutable admission state lives here; no other component
// caches it across requests. The interface deliberately exposes the
// atomic primitives the admission pipeline depends on:
//
//   - SetIfAbsentWithTTL resolves the same-identity admission race:
//     of N concurrent callers, exactly one observes stored=true.
//   - GetAndDelete makes token consumption single-use: of N concurrent
//     redemptions of one token, exactly one observes found=true.
//
// Two implementations are provided: BadgerStore for production and
// MemoryStore for tests.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by all operations after Close.
var ErrClosed = errors.New("ephemeral store is closed")

// Store is the narrow contract the admission pipeline holds on the
// ephemeral key-value collaborator.
type Store interface {
	// Get returns the value for key, or found=false if absent or expired.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// SetWithTTL stores key with the given time-to-live, overwriting any
	// existing value.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// TTL returns the remaining time-to-live for key, or found=false if
	// the key is absent or expired.
	TTL(ctx context.Context, key string) (remaining time.Duration, found bool, err error)

	// SetIfAbsentWithTTL stores key only if it does not already exist.
	// Returns stored=false without modifying the store when the key is
	// present and unexpired. The check and the write are atomic.
	SetIfAbsentWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) (stored bool, err error)

	// GetAndDelete atomically removes key and returns its value, or
	// found=false if the key was absent or expired.
	GetAndDelete(ctx context.Context, key string) (value []byte, found bool, err error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases store resources.
	Close() error
}
