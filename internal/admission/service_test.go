// Moodpin - Anonymous Geo-Tagged Emotional Check-Ins
// Copyright 2026 Moodpin Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodpin/moodpin

package admission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/moodpin/moodpin/internal/models"
	"github.com/moodpin/moodpin/internal/storage"
	"github.com/moodpin/moodpin/internal/store"
)

func newTestService(t *testing.T, s store.Store, recorder storage.Recorder) *Service {
	t.Helper()
	if s == nil {
		s = store.NewMemoryStore()
	}
	if recorder == nil {
		recorder = storage.NewMemoryRecorder()
	}
	return NewService(
		NewIdentityResolver("test-salt"),
		NewLimiter(s, 24*time.Hour),
		NewTokenService(s, "test-salt", 24*time.Hour),
		testPipeline(t),
		recorder,
	)
}

func validCheckIn() *models.CheckIn {
	return &models.CheckIn{
		Emotion:   "joy",
		Intensity: 4,
		Note:      "sun came out during lunch",
		Region:    "us-ca",
		Coordinates: &models.Coordinates{
			Latitude:  37.77,
			Longitude: -122.41,
		},
	}
}

func TestSubmitAccepted(t *testing.T) {
	recorder := storage.NewMemoryRecorder()
	svc := newTestService(t, nil, recorder)

	dec, err := svc.Submit(context.Background(), "203.0.113.7", validCheckIn(), "")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !dec.Accepted {
		t.Fatalf("expected acceptance, got rejection %+v", dec.Rejection)
	}
	if dec.RecordID == "" {
		t.Error("expected a record ID on acceptance")
	}

	recorded := recorder.Recorded()
	if len(recorded) != 1 {
		t.Fatalf("expected 1 recorded check-in, got %d", len(recorded))
	}
	if recorded[0].Region != "US-CA" {
		t.Errorf("expected region normalized to upper case, got %q", recorded[0].Region)
	}
}

func TestSubmitSecondSameIdentityRateLimited(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, nil)

	if dec, err := svc.Submit(ctx, "203.0.113.7", validCheckIn(), ""); err != nil || !dec.Accepted {
		t.Fatalf("expected first submission accepted, got dec=%+v err=%v", dec, err)
	}

	dec, err := svc.Submit(ctx, "203.0.113.7", validCheckIn(), "")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if dec.Accepted {
		t.Fatal("expected second submission rejected")
	}
	if dec.Rejection.Kind != KindRateLimited {
		t.Errorf("expected rate_limited, got %q", dec.Rejection.Kind)
	}
	if dec.Rejection.RetryAfterSeconds <= 0 {
		t.Errorf("expected positive retry-after, got %d", dec.Rejection.RetryAfterSeconds)
	}
	if dec.Rejection.RetryAfterSeconds > int64((24 * time.Hour).Seconds()) {
		t.Errorf("expected retry-after within the window, got %d", dec.Rejection.RetryAfterSeconds)
	}
}

func TestSubmitDistinctIdentitiesIndependent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, nil)

	if dec, _ := svc.Submit(ctx, "203.0.113.7", validCheckIn(), ""); !dec.Accepted {
		t.Fatal("expected first identity accepted")
	}
	if dec, _ := svc.Submit(ctx, "203.0.113.8", validCheckIn(), ""); !dec.Accepted {
		t.Error("expected second identity accepted")
	}
}

func TestRejectedContentDoesNotConsumeWindow(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, nil)

	profane := validCheckIn()
	profane.Note = "fuck this day"

	dec, err := svc.Submit(ctx, "203.0.113.7", profane, "")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if dec.Accepted || dec.Rejection.Kind != KindProfanity {
		t.Fatalf("expected profanity rejection, got %+v", dec)
	}

	// The slot is still available for a clean retry.
	dec, err = svc.Submit(ctx, "203.0.113.7", validCheckIn(), "")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !dec.Accepted {
		t.Errorf("expected clean retry accepted, got %+v", dec.Rejection)
	}
}

func TestPreflightThenSubmit(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, nil)

	pre, err := svc.Preflight(ctx, "203.0.113.7", validCheckIn())
	if err != nil {
		t.Fatalf("Preflight failed: %v", err)
	}
	if !pre.Accepted || pre.Token == "" {
		t.Fatalf("expected preflight acceptance with token, got %+v", pre)
	}

	// Preflight does not consume the window.
	dec, err := svc.Submit(ctx, "203.0.113.7", validCheckIn(), pre.Token)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !dec.Accepted {
		t.Fatalf("expected submission with token accepted, got %+v", dec.Rejection)
	}
}

func TestSubmitReplayedTokenRejected(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	svc := newTestService(t, s, nil)

	pre, err := svc.Preflight(ctx, "203.0.113.7", validCheckIn())
	if err != nil {
		t.Fatalf("Preflight failed: %v", err)
	}

	if dec, _ := svc.Submit(ctx, "203.0.113.7", validCheckIn(), pre.Token); !dec.Accepted {
		t.Fatal("expected first redemption accepted")
	}

	// Replay from a different identity: the token is gone.
	dec, err := svc.Submit(ctx, "203.0.113.9", validCheckIn(), pre.Token)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if dec.Accepted {
		t.Fatal("expected replayed token rejected")
	}
	if dec.Rejection.Kind != KindInvalidToken {
		t.Errorf("expected invalid_token, got %q", dec.Rejection.Kind)
	}
}

func TestSubmitGarbageTokenRejected(t *testing.T) {
	svc := newTestService(t, nil, nil)

	dec, err := svc.Submit(context.Background(), "203.0.113.7", validCheckIn(), "garbage")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if dec.Accepted || dec.Rejection.Kind != KindInvalidToken {
		t.Errorf("expected invalid_token, got %+v", dec)
	}
}

func TestPreflightRateLimitedAfterAdmission(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, nil)

	if dec, _ := svc.Submit(ctx, "203.0.113.7", validCheckIn(), ""); !dec.Accepted {
		t.Fatal("expected submission accepted")
	}

	pre, err := svc.Preflight(ctx, "203.0.113.7", validCheckIn())
	if err != nil {
		t.Fatalf("Preflight failed: %v", err)
	}
	if pre.Accepted || pre.Rejection.Kind != KindRateLimited {
		t.Errorf("expected rate_limited preflight, got %+v", pre)
	}
}

func TestPreflightSurfacesTokenIssuanceFailure(t *testing.T) {
	// Limiter reads fail open on the broken store, but issuance must
	// surface the failure.
	svc := NewService(
		NewIdentityResolver("test-salt"),
		NewLimiter(failingStore{}, 24*time.Hour),
		NewTokenService(failingStore{}, "test-salt", 24*time.Hour),
		testPipeline(t),
		storage.NewMemoryRecorder(),
	)

	_, err := svc.Preflight(context.Background(), "203.0.113.7", validCheckIn())
	if !errors.Is(err, ErrTokenIssuance) {
		t.Errorf("expected ErrTokenIssuance, got %v", err)
	}
}

func TestSubmitRecorderFailureDistinct(t *testing.T) {
	recorder := storage.NewMemoryRecorder()
	recorder.FailWith = storage.ErrUnavailable
	svc := newTestService(t, nil, recorder)

	_, err := svc.Submit(context.Background(), "203.0.113.7", validCheckIn(), "")
	if !errors.Is(err, ErrRecordFailed) {
		t.Errorf("expected ErrRecordFailed, got %v", err)
	}
	if !errors.Is(err, storage.ErrUnavailable) {
		t.Errorf("expected cause preserved, got %v", err)
	}
}

func TestSubmitStoreOutageFailsOpen(t *testing.T) {
	// With the ephemeral store down entirely, a tokenless submission
	// still goes through: availability over strictness.
	svc := newTestService(t, failingStore{}, nil)

	dec, err := svc.Submit(context.Background(), "203.0.113.7", validCheckIn(), "")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !dec.Accepted {
		t.Errorf("expected fail-open acceptance, got %+v", dec.Rejection)
	}
}

func TestConcurrentSubmissionsSameIdentity(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, nil)

	const n = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, rateLimited := 0, 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec, err := svc.Submit(ctx, "203.0.113.7", validCheckIn(), "")
			if err != nil {
				t.Errorf("Submit failed: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if dec.Accepted {
				accepted++
			} else if dec.Rejection.Kind == KindRateLimited {
				rateLimited++
			}
		}()
	}
	wg.Wait()

	if accepted != 1 {
		t.Errorf("expected exactly 1 acceptance from %d concurrent submissions, got %d", n, accepted)
	}
	if rateLimited != n-1 {
		t.Errorf("expected %d rate_limited rejections, got %d", n-1, rateLimited)
	}
}

func TestSanitizePreservesPayloadFields(t *testing.T) {
	recorder := storage.NewMemoryRecorder()
	svc := newTestService(t, nil, recorder)

	c := validCheckIn()
	c.Note = "  sun came out during lunch  "
	c.Timestamp = time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)

	if dec, err := svc.Submit(context.Background(), "203.0.113.7", c, ""); err != nil || !dec.Accepted {
		t.Fatalf("expected acceptance, got dec=%+v err=%v", dec, err)
	}

	got := recorder.Recorded()[0]
	if got.Note != "sun came out during lunch" {
		t.Errorf("expected note trimmed, got %q", got.Note)
	}
	if got.Emotion != "joy" || got.Intensity != 4 {
		t.Errorf("expected emotion/intensity preserved, got %+v", got)
	}
	if got.Timestamp == nil {
		t.Error("expected parsed timestamp preserved")
	}
	if got.Coordinates == nil || got.Coordinates.Latitude != 37.77 {
		t.Errorf("expected coordinates preserved, got %+v", got.Coordinates)
	}
	if got.RecordedAt.IsZero() {
		t.Error("expected recorded-at set")
	}
}
