// Moodpin - Anonymous Geo-Tagged Emotional Check-Ins
// Copyright 2026 Moodpin Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodpin/moodpin

// Package api exposes the admission pipeline over HTTP: a preflight
// endpoint that issues ephemeral tokens, a submit endpoint that admits
// and records check-ins, and the usual health and metrics surfaces.
package api

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/moodpin/moodpin/internal/admission"
	"github.com/moodpin/moodpin/internal/logging"
	"github.com/moodpin/moodpin/internal/models"
	"github.com/moodpin/moodpin/internal/validation"
)

// maxBodyBytes bounds request bodies. A check-in with a full note and
// coordinates is well under 1 KiB; 16 KiB leaves generous headroom.
const maxBodyBytes = 16 << 10

// Handler serves the check-in admission endpoints.
type Handler struct {
	service *admission.Service
	started time.Time
}

// NewHandler creates a Handler backed by the given admission service.
func NewHandler(service *admission.Service) *Handler {
	return &Handler{
		service: service,
		started: time.Now(),
	}
}

// submitRequest is a check-in payload plus an optional preflight token.
type submitRequest struct {
	models.CheckIn
	Token string `json:"token,omitempty"`
}

// Preflight handles POST /api/v1/checkins/preflight. It runs the
// admission checks without consuming the caller's window and, on
// success, returns a single-use token for a later submit.
func (h *Handler) Preflight(w http.ResponseWriter, r *http.Request) {
	var payload models.CheckIn
	if !decodeBody(w, r, &payload) {
		return
	}

	decision, err := h.service.Preflight(r.Context(), clientOrigin(r), &payload)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !decision.Accepted {
		respondRejection(w, decision.Rejection)
		return
	}

	respondJSON(w, http.StatusOK, decision)
}

// Submit handles POST /api/v1/checkins. It runs the full admission
// pipeline, consumes the caller's window, and records the check-in.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var payload submitRequest
	if !decodeBody(w, r, &payload) {
		return
	}

	decision, err := h.service.Submit(r.Context(), clientOrigin(r), &payload.CheckIn, payload.Token)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !decision.Accepted {
		respondRejection(w, decision.Rejection)
		return
	}

	respondJSON(w, http.StatusCreated, decision)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

// decodeBody decodes, structurally validates, and reports errors for a
// JSON request body. It returns false when a response has already been
// written.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", err)
		return false
	}

	if verr := validation.ValidateStruct(dst); verr != nil {
		apiErr := verr.ToAPIError()
		respondJSON(w, http.StatusBadRequest, apiErr)
		return false
	}
	return true
}

// clientOrigin derives the caller's origin signal from the connection.
// RealIP middleware has already folded X-Forwarded-For into RemoteAddr
// where configured. The port is stripped so an origin stays stable
// across connections.
func clientOrigin(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// respondRejection maps an admission rejection onto an HTTP status and
// error envelope. Rejection kinds are stable API strings.
func respondRejection(w http.ResponseWriter, rej *admission.Rejection) {
	status := http.StatusUnprocessableEntity
	var details map[string]interface{}

	switch rej.Kind {
	case admission.KindRateLimited:
		status = http.StatusTooManyRequests
		if rej.RetryAfterSeconds > 0 {
			w.Header().Set("Retry-After", strconv.FormatInt(rej.RetryAfterSeconds, 10))
			details = map[string]interface{}{"retry_after_seconds": rej.RetryAfterSeconds}
		}
	case admission.KindInvalidToken:
		status = http.StatusUnauthorized
	}

	respondJSON(w, status, &models.APIError{
		Code:    string(rej.Kind),
		Message: rejectionMessage(rej.Kind),
		Details: details,
	})
}

// rejectionMessage returns the client-facing explanation for a kind.
func rejectionMessage(kind admission.Kind) string {
	switch kind {
	case admission.KindRateLimited:
		return "You have already checked in during the current window"
	case admission.KindNoteTooLong:
		return "Note exceeds the maximum allowed length"
	case admission.KindProfanity:
		return "Note contains language that is not allowed"
	case admission.KindPII:
		return "Note appears to contain personal information"
	case admission.KindSpamPattern:
		return "Note matches a spam pattern"
	case admission.KindInvalidTimestamp:
		return "Timestamp is missing, malformed, or outside the accepted range"
	case admission.KindInvalidRegion:
		return "Region code is not recognized"
	case admission.KindInvalidLocation:
		return "Coordinates are outside the serviced area"
	case admission.KindInvalidToken:
		return "Check-in token is missing, expired, or already used"
	default:
		return "Check-in was not accepted"
	}
}

// respondServiceError maps pipeline infrastructure failures onto HTTP
// statuses. Dependency outages are 503 so clients retry; anything else
// is a plain 500.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, admission.ErrTokenIssuance),
		errors.Is(err, admission.ErrTokenRedemption),
		errors.Is(err, admission.ErrRecordFailed):
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Check-in service is temporarily unavailable", err)
	default:
		logging.Error().Err(err).Msg("Unhandled admission error")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
