// Moodpin - Anonymous Geo-Tagged Emotional Check-Ins
// Copyright 2026 Moodpin Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodpin/moodpin

package admission

import (
	"context"
	"math"
	"time"

	"github.com/moodpin/moodpin/internal/logging"
	"github.com/moodpin/moodpin/internal/metrics"
	"github.com/moodpin/moodpin/internal/store"
)

// limitKeyPrefix namespaces admission records in the ephemeral store.
const limitKeyPrefix = "limit:"

// Limiter enforces at most one admitted check-in per identity per
// rolling window. The record's presence in the ephemeral store IS the
// blocked state; absence is eligibility. A fixed TTL per identity
// suffices because the product rule is one per day, not a general
// quota.
//
// Store failures fail open: infrastructure trouble must never block a
// legitimate submission. Failures are logged and counted, not raised.
type Limiter struct {
	store  store.Store
	window time.Duration
}

// NewLimiter creates a limiter with the given admission window.
func NewLimiter(s store.Store, window time.Duration) *Limiter {
	return &Limiter{store: s, window: window}
}

// SecondsUntilEligible returns the whole seconds until the identity may
// be admitted again. Zero means eligible now, including when the store
// read fails (fail-open).
func (l *Limiter) SecondsUntilEligible(ctx context.Context, identityKey string) int64 {
	remaining, found, err := l.store.TTL(ctx, limitKeyPrefix+identityKey)
	if err != nil {
		metrics.LimiterFailOpenTotal.Inc()
		logging.Warn().Err(err).Msg("limiter TTL read failed, treating identity as eligible")
		return 0
	}
	if !found {
		return 0
	}
	secs := int64(math.Ceil(remaining.Seconds()))
	if secs < 0 {
		return 0
	}
	return secs
}

// MarkAdmitted consumes the identity's admission slot for the window.
// The set-if-absent write is atomic in the store, so of N concurrent
// admissions for one identity exactly one observes admitted=true; the
// rest must be rejected as rate limited by the caller.
//
// A store failure fails open: the slot is reported as consumed by this
// caller so the check-in proceeds, at the cost of the window possibly
// not being recorded.
func (l *Limiter) MarkAdmitted(ctx context.Context, identityKey string) bool {
	stored, err := l.store.SetIfAbsentWithTTL(ctx, limitKeyPrefix+identityKey, []byte("1"), l.window)
	if err != nil {
		metrics.LimiterFailOpenTotal.Inc()
		logging.Warn().Err(err).Msg("limiter admission write failed, admitting anyway")
		return true
	}
	return stored
}

// Window returns the configured admission window.
func (l *Limiter) Window() time.Duration {
	return l.window
}
