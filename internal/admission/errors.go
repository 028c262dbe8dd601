// Moodpin - Anonymous Geo-Tagged Emotional Check-Ins
// Copyright 2026 Moodpin Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodpin/moodpin

package admission

import (
	"errors"
	"fmt"
)

// Kind identifies why a check-in was rejected.
type Kind string

// Rejection kinds. These are stable API strings used for client
// messaging and metric labels.
const (
	KindRateLimited      Kind = "rate_limited"
	KindNoteTooLong      Kind = "note_too_long"
	KindProfanity        Kind = "profanity"
	KindPII              Kind = "pii"
	KindSpamPattern      Kind = "spam_pattern"
	KindInvalidTimestamp Kind = "invalid_timestamp"
	KindInvalidRegion    Kind = "invalid_region"
	KindInvalidLocation  Kind = "invalid_location"
	KindInvalidToken     Kind = "invalid_token"
)

// Rejection describes a terminal admission refusal. It carries enough
// for client messaging (kind, retry-after) and never includes identity
// keys or salts.
type Rejection struct {
	Kind Kind

	// RetryAfterSeconds is set for KindRateLimited: seconds until the
	// identity's admission window reopens.
	RetryAfterSeconds int64
}

// Reject builds a Rejection for kind.
func Reject(kind Kind) *Rejection {
	return &Rejection{Kind: kind}
}

// Errors surfaced by the pipeline, as opposed to rejections. The
// limiter swallows store failures (fail-open); the token service and
// the recorder surface theirs. The asymmetry is deliberate: an extra
// check-in is low stakes, a broken two-phase flow or a lost accepted
// check-in is not.
var (
	// ErrTokenIssuance wraps ephemeral store failures during token
	// issuance. Retryable by the caller.
	ErrTokenIssuance = errors.New("token issuance failed")

	// ErrTokenRedemption wraps ephemeral store failures while consuming
	// a presented token.
	ErrTokenRedemption = errors.New("token redemption failed")

	// ErrRecordFailed wraps storage collaborator failures after a
	// check-in was admitted. Admission succeeded; persistence did not.
	ErrRecordFailed = errors.New("check-in admitted but not recorded")
)

// wrap attaches cause to a sentinel error.
func wrap(sentinel, cause error) error {
	return fmt.Errorf("%w: %w", sentinel, cause)
}
