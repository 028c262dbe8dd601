// Moodpin - Anonymous Geo-Tagged Emotional Check-Ins
// Copyright 2026 Moodpin Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodpin/moodpin

package admission

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/moodpin/moodpin/internal/config"
	"github.com/moodpin/moodpin/internal/store"
)

// errStoreDown simulates ephemeral store unavailability.
var errStoreDown = errors.New("ephemeral store down")

// failingStore returns errStoreDown from every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errStoreDown
}

func (failingStore) SetWithTTL(context.Context, string, []byte, time.Duration) error {
	return errStoreDown
}

func (failingStore) TTL(context.Context, string) (time.Duration, bool, error) {
	return 0, false, errStoreDown
}

func (failingStore) SetIfAbsentWithTTL(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, errStoreDown
}

func (failingStore) GetAndDelete(context.Context, string) ([]byte, bool, error) {
	return nil, false, errStoreDown
}

func (failingStore) Delete(context.Context, string) error { return errStoreDown }

func (failingStore) Close() error { return nil }

// countingStore wraps a Store and counts calls, so tests can assert a
// code path never reached the store.
type countingStore struct {
	store.Store
	calls atomic.Int64
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.calls.Add(1)
	return s.Store.Get(ctx, key)
}

func (s *countingStore) GetAndDelete(ctx context.Context, key string) ([]byte, bool, error) {
	s.calls.Add(1)
	return s.Store.GetAndDelete(ctx, key)
}

// testModeration returns the default moderation inputs used across the
// rule tests.
func testModeration() config.ModerationConfig {
	return config.ModerationConfig{
		NoteMaxLength: 280,
		BannedWords:   []string{"fuck", "shit", "bitch", "asshole"},
		RegionPattern: `^([A-Z]{2}(-[A-Z0-9]{1,3})?|GLOBAL)$`,
		BannedBoxes: []config.BoundingBox{
			{MinLat: -45, MaxLat: 5, MinLon: -35, MaxLon: -5},
		},
		MinLatitude: -60,
		MaxLatitude: 80,
	}
}

// testPipeline builds a rule pipeline from testModeration.
func testPipeline(t interface{ Fatalf(string, ...interface{}) }) *Pipeline {
	p, err := NewPipeline(testModeration())
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	return p
}
