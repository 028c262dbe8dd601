// Moodpin - Anonymous Geo-Tagged Emotional Check-Ins
// Copyright 2026 Moodpin Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodpin/moodpin

// Package storage holds the persistent check-in store behind the
// admission pipeline's record contract. The analytics side of the
// product consumes these records elsewhere; admission only appends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/moodpin/moodpin/internal/models"
)

// checkInKeyPrefix namespaces recorded check-ins.
const checkInKeyPrefix = "checkin:"

// Recorder is the storage collaborator contract: invoked only after a
// check-in is admitted, returning the record ID.
type Recorder interface {
	Record(ctx context.Context, c *models.StoredCheckIn) (string, error)
}

// BadgerRecorder appends admitted check-ins to BadgerDB as JSON.
type BadgerRecorder struct {
	db *badger.DB
}

// NewBadgerRecorder creates a recorder on an open BadgerDB instance.
func NewBadgerRecorder(db *badger.DB) *BadgerRecorder {
	return &BadgerRecorder{db: db}
}

// Record assigns the check-in an ID and persists it.
func (r *BadgerRecorder) Record(ctx context.Context, c *models.StoredCheckIn) (string, error) {
	c.ID = uuid.NewString()

	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal check-in: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(checkInKeyPrefix+c.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("store check-in: %w", err)
	}

	return c.ID, nil
}

// MemoryRecorder collects check-ins in memory for tests.
type MemoryRecorder struct {
	mu       sync.Mutex
	recorded []*models.StoredCheckIn

	// FailWith, when set, is returned by Record instead of recording.
	FailWith error
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record stores the check-in in memory.
func (r *MemoryRecorder) Record(ctx context.Context, c *models.StoredCheckIn) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return "", r.FailWith
	}
	c.ID = uuid.NewString()
	r.recorded = append(r.recorded, c)
	return c.ID, nil
}

// Recorded returns the check-ins recorded so far.
func (r *MemoryRecorder) Recorded() []*models.StoredCheckIn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.StoredCheckIn, len(r.recorded))
	copy(out, r.recorded)
	return out
}

// ErrUnavailable is a canned storage failure for tests.
var ErrUnavailable = errors.New("check-in store unavailable")
