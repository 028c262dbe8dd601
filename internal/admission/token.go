// Moodpin - Anonymous Geo-Tagged Emotional Check-Ins
// Copyright 2026 Moodpin Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodpin/moodpin

package admission

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"

	"github.com/moodpin/moodpin/internal/metrics"
	"github.com/moodpin/moodpin/internal/store"
)

const (
	// tokenKeyPrefix namespaces tokens in the ephemeral store.
	tokenKeyPrefix = "token:"

	// tokenRandomBytes is the CSPRNG component length. Hex-encoded it
	// contributes exactly 32 characters to the token.
	tokenRandomBytes = 16
)

// tokenShape gates token strings before any store access: 32 hex chars
// of randomness, a dot, 64 hex chars of context hash.
var tokenShape = regexp.MustCompile(`^[0-9a-f]{32}\.[0-9a-f]{64}$`)

// TokenService issues and redeems single-use, time-boxed admission
// tokens. A token proves an admission decision was made, so a
// pre-flight check and the final submission can be separated across
// request boundaries.
//
// The token's second component binds it to its issuance context
// (region and issue time) through a salted one-way hash. Validation
// checks existence of the full token string in the store, not the
// context hash itself; the binding deters token forgery but is not
// re-derived against request-time claims.
//
// Unlike the limiter, store failures here surface to the caller: a
// missing token breaks the two-phase flow, so issuance must be
// retryable rather than silently degraded.
type TokenService struct {
	store store.Store
	salt  string
	ttl   time.Duration
	now   func() time.Time
}

// NewTokenService creates a token service. salt is the process-wide
// secret; ttl is the token lifetime (and single-use horizon).
func NewTokenService(s store.Store, salt string, ttl time.Duration) *TokenService {
	return &TokenService{
		store: s,
		salt:  salt,
		ttl:   ttl,
		now:   time.Now,
	}
}

// contextHash computes the salted one-way hash binding a token to the
// region and issuance time it was minted for.
func (t *TokenService) contextHash(region string, issuedAtMillis int64) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s:%d:%s", region, issuedAtMillis, t.salt))
	return hex.EncodeToString(h[:])
}

// Issue mints a token for the given region, stores it under the
// configured TTL, and returns it. Store failures wrap
// ErrTokenIssuance and are retryable.
func (t *TokenService) Issue(ctx context.Context, region string) (string, error) {
	raw := make([]byte, tokenRandomBytes)
	if _, err := rand.Read(raw); err != nil {
		metrics.TokenOperationsTotal.WithLabelValues("issue", "failure").Inc()
		return "", wrap(ErrTokenIssuance, err)
	}

	token := hex.EncodeToString(raw) + "." + t.contextHash(region, t.now().UnixMilli())

	if err := t.store.SetWithTTL(ctx, tokenKeyPrefix+token, []byte("1"), t.ttl); err != nil {
		metrics.TokenOperationsTotal.WithLabelValues("issue", "failure").Inc()
		return "", wrap(ErrTokenIssuance, err)
	}

	metrics.TokenOperationsTotal.WithLabelValues("issue", "success").Inc()
	return token, nil
}

// Validate reports whether the token was issued and has not expired.
// Malformed tokens are rejected without a store query. Validate does
// not consume the token; Consume does.
func (t *TokenService) Validate(ctx context.Context, token string) (bool, error) {
	if !tokenShape.MatchString(token) {
		metrics.TokenOperationsTotal.WithLabelValues("validate", "rejected").Inc()
		return false, nil
	}

	_, found, err := t.store.Get(ctx, tokenKeyPrefix+token)
	if err != nil {
		metrics.TokenOperationsTotal.WithLabelValues("validate", "failure").Inc()
		return false, wrap(ErrTokenRedemption, err)
	}
	if !found {
		metrics.TokenOperationsTotal.WithLabelValues("validate", "rejected").Inc()
		return false, nil
	}

	metrics.TokenOperationsTotal.WithLabelValues("validate", "success").Inc()
	return true, nil
}

// Consume atomically redeems the token: of N concurrent redemptions of
// one token, exactly one observes true. Malformed tokens are rejected
// without a store query.
func (t *TokenService) Consume(ctx context.Context, token string) (bool, error) {
	if !tokenShape.MatchString(token) {
		metrics.TokenOperationsTotal.WithLabelValues("consume", "rejected").Inc()
		return false, nil
	}

	_, found, err := t.store.GetAndDelete(ctx, tokenKeyPrefix+token)
	if err != nil {
		metrics.TokenOperationsTotal.WithLabelValues("consume", "failure").Inc()
		return false, wrap(ErrTokenRedemption, err)
	}
	if !found {
		metrics.TokenOperationsTotal.WithLabelValues("consume", "rejected").Inc()
		metrics.TokenReplayTotal.Inc()
		return false, nil
	}

	metrics.TokenOperationsTotal.WithLabelValues("consume", "success").Inc()
	return true, nil
}
