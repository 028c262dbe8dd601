// Moodpin - Anonymous Geo-Tagged Emotional Check-Ins
// Copyright 2026 Moodpin Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodpin/moodpin

// Package admission implements the anonymous check-in admission
// pipeline: identity resolution, the per-identity admission window,
// single-use ephemeral tokens, the content rule pipeline, and the
// orchestrator that composes them into one accept/reject decision.
//
// There are no user accounts. All admission state is keyed by an
// opaque identity hash and lives in the ephemeral key-value store
// under a TTL; once the window expires nothing links two check-ins
// from the same origin.
package admission

import (
	"crypto/sha256"
	"encoding/hex"
)

// sentinelOrigin is the shared bucket for requests whose network
// origin could not be determined. Fail-open: all such requests compete
// for one admission slot rather than being refused.
const sentinelOrigin = "unknown-origin"

// IdentityResolver derives opaque rate-limit keys from raw network
// origins. The raw origin is never stored or logged; only the salted
// hash leaves this type.
type IdentityResolver struct {
	salt string
}

// NewIdentityResolver creates a resolver using the process salt.
func NewIdentityResolver(salt string) *IdentityResolver {
	return &IdentityResolver{salt: salt}
}

// Resolve returns the identity key for a network origin. Deterministic
// within a process lifetime: the same origin always yields the same
// key. An empty origin maps to the fixed sentinel bucket.
func (r *IdentityResolver) Resolve(origin string) string {
	if origin == "" {
		origin = sentinelOrigin
	}
	h := sha256.New()
	h.Write([]byte(r.salt))
	h.Write([]byte{0})
	h.Write([]byte(origin))
	return hex.EncodeToString(h.Sum(nil))
}
