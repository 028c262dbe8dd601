// Moodpin - Anonymous Geo-Tagged Emotional Check-Ins
// Copyright 2026 Moodpin Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodpin/moodpin

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/moodpin/moodpin/internal/models"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBadgerRecorder(t *testing.T) {
	t.Run("record assigns ID and persists JSON", func(t *testing.T) {
		db := openTestDB(t)
		rec := NewBadgerRecorder(db)

		ts := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
		in := &models.StoredCheckIn{
			Emotion:    "calm",
			Intensity:  2,
			Note:       "rainy afternoon",
			Region:     "NO-03",
			Timestamp:  &ts,
			RecordedAt: time.Now().UTC(),
		}

		id, err := rec.Record(context.Background(), in)
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		if id == "" {
			t.Fatal("Record returned empty ID")
		}
		if in.ID != id {
			t.Errorf("check-in ID = %q, want %q", in.ID, id)
		}

		var stored models.StoredCheckIn
		err = db.View(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(checkInKeyPrefix + id))
			if err != nil {
				return err
			}
			return item.Value(func(val []byte) error {
				return json.Unmarshal(val, &stored)
			})
		})
		if err != nil {
			t.Fatalf("read back: %v", err)
		}
		if stored.Emotion != "calm" || stored.Intensity != 2 || stored.Region != "NO-03" {
			t.Errorf("stored = %+v", stored)
		}
		if stored.Timestamp == nil || !stored.Timestamp.Equal(ts) {
			t.Errorf("Timestamp = %v, want %v", stored.Timestamp, ts)
		}
	})

	t.Run("records get distinct IDs", func(t *testing.T) {
		db := openTestDB(t)
		rec := NewBadgerRecorder(db)

		seen := make(map[string]bool)
		for i := 0; i < 10; i++ {
			id, err := rec.Record(context.Background(), &models.StoredCheckIn{Emotion: "joy", Intensity: 4})
			if err != nil {
				t.Fatalf("Record %d: %v", i, err)
			}
			if seen[id] {
				t.Fatalf("duplicate ID %q", id)
			}
			seen[id] = true
		}
	})

	t.Run("closed database surfaces an error", func(t *testing.T) {
		db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
		if err != nil {
			t.Fatalf("open badger: %v", err)
		}
		db.Close()

		rec := NewBadgerRecorder(db)
		if _, err := rec.Record(context.Background(), &models.StoredCheckIn{Emotion: "joy", Intensity: 1}); err == nil {
			t.Fatal("expected error from closed database")
		}
	})
}

func TestMemoryRecorder(t *testing.T) {
	t.Run("collects records", func(t *testing.T) {
		rec := NewMemoryRecorder()
		id, err := rec.Record(context.Background(), &models.StoredCheckIn{Emotion: "anxiety", Intensity: 5})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		got := rec.Recorded()
		if len(got) != 1 || got[0].ID != id {
			t.Fatalf("Recorded = %+v", got)
		}
	})

	t.Run("FailWith short-circuits", func(t *testing.T) {
		rec := NewMemoryRecorder()
		rec.FailWith = ErrUnavailable
		if _, err := rec.Record(context.Background(), &models.StoredCheckIn{Emotion: "joy", Intensity: 1}); err != ErrUnavailable {
			t.Fatalf("err = %v, want ErrUnavailable", err)
		}
		if len(rec.Recorded()) != 0 {
			t.Error("failed record must not be collected")
		}
	})
}
