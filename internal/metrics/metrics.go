// Moodpin - Anonymous Geo-Tagged Emotional Check-Ins
// Copyright 2026 Moodpin Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodpin/moodpin

// Package metrics provides Prometheus instrumentation for the admission
// pipeline: decisions, per-rule rejections, limiter degradation, token
// operations, and ephemeral store latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AdmissionDecisionsTotal counts orchestrator outcomes.
	AdmissionDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_decisions_total",
			Help: "Total number of admission decisions",
		},
		[]string{"operation", "outcome"}, // operation: preflight, submit; outcome: accepted, rejected, error
	)

	// RejectionsTotal counts rejections by failure kind.
	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_rejections_total",
			Help: "Total number of rejected check-ins by failure kind",
		},
		[]string{"kind"},
	)

	// LimiterFailOpenTotal counts limiter store failures handled as eligible.
	// A sustained rate indicates a degraded ephemeral store.
	LimiterFailOpenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "admission_limiter_fail_open_total",
			Help: "Total number of limiter store failures treated as eligible (fail-open)",
		},
	)

	// TokenOperationsTotal counts ephemeral token operations.
	TokenOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_token_operations_total",
			Help: "Total number of ephemeral token operations",
		},
		[]string{"operation", "outcome"}, // operation: issue, validate, consume; outcome: success, failure, rejected
	)

	// TokenReplayTotal counts consume attempts on already-used tokens.
	TokenReplayTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "admission_token_replay_total",
			Help: "Total number of token redemptions that found the token already consumed or expired",
		},
	)

	// StoreOperationDuration observes ephemeral store call latency.
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ephemeral_store_operation_duration_seconds",
			Help:    "Duration of ephemeral key-value store operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
		[]string{"operation"},
	)

	// RecordedCheckInsTotal counts check-ins handed to the recorder.
	RecordedCheckInsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkins_recorded_total",
			Help: "Total number of check-ins accepted and recorded",
		},
	)

	// RecordFailuresTotal counts persistence failures after admission.
	RecordFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkins_record_failures_total",
			Help: "Total number of check-ins admitted but not recorded due to storage failure",
		},
	)
)
