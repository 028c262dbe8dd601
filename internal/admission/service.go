// Moodpin - Anonymous Geo-Tagged Emotional Check-Ins
// Copyright 2026 Moodpin Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodpin/moodpin

package admission

import (
	"context"
	"strings"
	"time"

	"github.com/moodpin/moodpin/internal/logging"
	"github.com/moodpin/moodpin/internal/metrics"
	"github.com/moodpin/moodpin/internal/models"
	"github.com/moodpin/moodpin/internal/storage"
)

// Decision is the orchestrator's verdict for one inbound check-in.
// Rejections carry the failure kind and, for rate limiting, the
// seconds until the window reopens. Accepted preflights carry the
// issued token; accepted submissions carry the record ID.
type Decision struct {
	Accepted  bool       `json:"accepted"`
	Rejection *Rejection `json:"-"`
	Token     string     `json:"token,omitempty"`
	RecordID  string     `json:"record_id,omitempty"`
}

// rejected builds a rejected decision.
func rejected(rej *Rejection) *Decision {
	return &Decision{Rejection: rej}
}

// Service composes identity resolution, the admission limiter, the
// content rule pipeline, the token service, and the recorder into one
// decision per inbound check-in.
//
// Content validation runs before the rate-limit window is consumed, so
// a rejected submission never costs the identity its daily slot.
type Service struct {
	resolver *IdentityResolver
	limiter  *Limiter
	tokens   *TokenService
	rules    *Pipeline
	recorder storage.Recorder
	now      func() time.Time
}

// NewService wires the admission pipeline.
func NewService(resolver *IdentityResolver, limiter *Limiter, tokens *TokenService, rules *Pipeline, recorder storage.Recorder) *Service {
	return &Service{
		resolver: resolver,
		limiter:  limiter,
		tokens:   tokens,
		rules:    rules,
		recorder: recorder,
		now:      time.Now,
	}
}

// Preflight runs the admission checks for origin and payload and, when
// they pass, issues an ephemeral token redeemable by a later Submit.
// The admission window is NOT consumed and nothing is recorded.
//
// Token issuance failures surface as errors (retryable); every other
// refusal is a Decision rejection.
func (s *Service) Preflight(ctx context.Context, origin string, c *models.CheckIn) (*Decision, error) {
	identity := s.resolver.Resolve(origin)

	if secs := s.limiter.SecondsUntilEligible(ctx, identity); secs > 0 {
		metrics.AdmissionDecisionsTotal.WithLabelValues("preflight", "rejected").Inc()
		return rejected(&Rejection{Kind: KindRateLimited, RetryAfterSeconds: secs}), nil
	}

	if rej := s.rules.Evaluate(c, s.now()); rej != nil {
		metrics.AdmissionDecisionsTotal.WithLabelValues("preflight", "rejected").Inc()
		return rejected(rej), nil
	}

	token, err := s.tokens.Issue(ctx, c.Region)
	if err != nil {
		metrics.AdmissionDecisionsTotal.WithLabelValues("preflight", "error").Inc()
		return nil, err
	}

	metrics.AdmissionDecisionsTotal.WithLabelValues("preflight", "accepted").Inc()
	return &Decision{Accepted: true, Token: token}, nil
}

// Submit runs the full admission pipeline for origin and payload and,
// when everything passes, consumes the admission window and hands the
// sanitized check-in to the recorder.
//
// token may be empty (single-phase direct submission) or a token from
// a prior Preflight, which is atomically consumed: a second Submit
// presenting the same token is rejected.
func (s *Service) Submit(ctx context.Context, origin string, c *models.CheckIn, token string) (*Decision, error) {
	identity := s.resolver.Resolve(origin)

	if secs := s.limiter.SecondsUntilEligible(ctx, identity); secs > 0 {
		metrics.AdmissionDecisionsTotal.WithLabelValues("submit", "rejected").Inc()
		return rejected(&Rejection{Kind: KindRateLimited, RetryAfterSeconds: secs}), nil
	}

	if rej := s.rules.Evaluate(c, s.now()); rej != nil {
		metrics.AdmissionDecisionsTotal.WithLabelValues("submit", "rejected").Inc()
		return rejected(rej), nil
	}

	if token != "" {
		ok, err := s.tokens.Consume(ctx, token)
		if err != nil {
			metrics.AdmissionDecisionsTotal.WithLabelValues("submit", "error").Inc()
			return nil, err
		}
		if !ok {
			metrics.AdmissionDecisionsTotal.WithLabelValues("submit", "rejected").Inc()
			return rejected(Reject(KindInvalidToken)), nil
		}
	}

	// Consume the window last: of N concurrent submissions for one
	// identity, the store lets exactly one through here.
	if !s.limiter.MarkAdmitted(ctx, identity) {
		metrics.AdmissionDecisionsTotal.WithLabelValues("submit", "rejected").Inc()
		secs := s.limiter.SecondsUntilEligible(ctx, identity)
		if secs == 0 {
			secs = int64(s.limiter.Window().Seconds())
		}
		return rejected(&Rejection{Kind: KindRateLimited, RetryAfterSeconds: secs}), nil
	}

	recordID, err := s.recorder.Record(ctx, s.sanitize(c))
	if err != nil {
		metrics.AdmissionDecisionsTotal.WithLabelValues("submit", "error").Inc()
		metrics.RecordFailuresTotal.Inc()
		logging.Error().Err(err).Msg("check-in admitted but persistence failed")
		return nil, wrap(ErrRecordFailed, err)
	}

	metrics.AdmissionDecisionsTotal.WithLabelValues("submit", "accepted").Inc()
	metrics.RecordedCheckInsTotal.Inc()
	return &Decision{Accepted: true, RecordID: recordID}, nil
}

// sanitize builds the stored record from a validated payload. Region
// codes are normalized to upper case; the timestamp has already parsed
// (rule pipeline) or is absent. No identity material crosses here.
func (s *Service) sanitize(c *models.CheckIn) *models.StoredCheckIn {
	stored := &models.StoredCheckIn{
		Emotion:    c.Emotion,
		Intensity:  c.Intensity,
		Note:       strings.TrimSpace(c.Note),
		Region:     strings.ToUpper(c.Region),
		RecordedAt: s.now().UTC(),
	}
	if ts, ok, err := c.ParsedTimestamp(); ok && err == nil {
		utc := ts.UTC()
		stored.Timestamp = &utc
	}
	if c.Coordinates != nil {
		coords := *c.Coordinates
		stored.Coordinates = &coords
	}
	return stored
}
