// Moodpin - Anonymous Geo-Tagged Emotional Check-Ins
// Copyright 2026 Moodpin Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodpin/moodpin

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/moodpin/moodpin/internal/metrics"
)

// BadgerStore implements Store on BadgerDB. Entries carry a native
// badger TTL, so expired keys vanish without a reaper; expiry is
// enforced at read time and garbage collected during compaction.
type BadgerStore struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// NewBadgerStore wraps an open BadgerDB instance. The instance may be
// shared with other components; Close does not close it.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadger opens a BadgerDB at path, or an in-memory instance when
// path is empty. Badger's own logger is silenced; store activity is
// reported through the metrics package instead.
func OpenBadger(path string) (*badger.DB, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(nil)
	return badger.Open(opts)
}

func (s *BadgerStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func observe(operation string, start time.Time) {
	metrics.StoreOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// update runs fn in a read-write transaction, retrying on badger's
// optimistic-concurrency conflicts. fn must reset any captured state at
// the top since it may run more than once.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	for {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
}

// Get returns the value for key. Badger reports expired entries as
// not found, so no explicit expiry check is needed here.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.checkOpen(); err != nil {
		return nil, false, err
	}
	defer observe("get", time.Now())

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// SetWithTTL stores key with the given time-to-live.
func (s *BadgerStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	defer observe("set", time.Now())

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(ttl))
	})
}

// TTL returns the remaining time-to-live for key.
func (s *BadgerStore) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	if err := s.checkOpen(); err != nil {
		return 0, false, err
	}
	defer observe("ttl", time.Now())

	var expiresAt uint64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		expiresAt = item.ExpiresAt()
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if expiresAt == 0 {
		// No TTL set; treat as non-expiring.
		return 0, true, nil
	}
	remaining := time.Until(time.Unix(int64(expiresAt), 0))
	if remaining <= 0 {
		return 0, false, nil
	}
	return remaining, true, nil
}

// SetIfAbsentWithTTL stores key only if absent. The existence check and
// the write happen inside one badger transaction, so of N concurrent
// callers exactly one observes stored=true.
func (s *BadgerStore) SetIfAbsentWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	defer observe("set_if_absent", time.Now())

	stored := false
	err := s.update(func(txn *badger.Txn) error {
		stored = false
		_, err := txn.Get([]byte(key))
		if err == nil {
			return nil // present and unexpired
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		stored = true
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(ttl))
	})
	if err != nil {
		return false, err
	}
	return stored, nil
}

// GetAndDelete atomically removes key and returns its value.
func (s *BadgerStore) GetAndDelete(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.checkOpen(); err != nil {
		return nil, false, err
	}
	defer observe("get_and_delete", time.Now())

	var value []byte
	found := false
	err := s.update(func(txn *badger.Txn) error {
		value, found = nil, false
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		if err != nil {
			return err
		}
		found = true
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// Delete removes key.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	defer observe("delete", time.Now())

	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// Close marks the store closed. The underlying DB is shared and must be
// closed by its owner.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// RunGC runs badger value-log garbage collection until no progress is
// made. Intended to be called periodically from a background goroutine.
func RunGC(db *badger.DB) {
	for {
		if err := db.RunValueLogGC(0.5); err != nil {
			return
		}
	}
}
