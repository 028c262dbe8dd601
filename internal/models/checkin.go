// Moodpin - Anonymous Geo-Tagged Emotional Check-Ins
// Copyright 2026 Moodpin Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodpin/moodpin

// Package models defines the data types that cross Moodpin component
// boundaries: the inbound check-in payload, admission decisions, and
// API error envelopes.
package models

import (
	"time"
)

// Emotions is the closed set of check-in emotions. The validation
// package registers the "emotion" tag from this list.
var Emotions = []string{"joy", "calm", "sadness", "anger", "anxiety"}

// Coordinates is an optional check-in location.
type Coordinates struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// CheckIn is the inbound payload as received from the transport layer.
// Structural shape is enforced by validator tags; semantic admission
// rules (profanity, PII, spam, timestamp, region, location) run in the
// admission package afterwards.
//
// Timestamp stays a string here: whether it parses is itself an
// admission rule, not a decode error. The note length cap is likewise
// a configured moderation input, not a struct tag.
type CheckIn struct {
	Emotion     string       `json:"emotion" validate:"required,emotion"`
	Intensity   int          `json:"intensity" validate:"required,min=1,max=5"`
	Note        string       `json:"note,omitempty"`
	Region      string       `json:"region,omitempty" validate:"omitempty,max=16"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// ParsedTimestamp returns the payload timestamp parsed as RFC 3339.
// ok is false when no timestamp was provided.
func (c *CheckIn) ParsedTimestamp() (t time.Time, ok bool, err error) {
	if c.Timestamp == "" {
		return time.Time{}, false, nil
	}
	t, err = time.Parse(time.RFC3339, c.Timestamp)
	if err != nil {
		return time.Time{}, true, err
	}
	return t, true, nil
}

// StoredCheckIn is the sanitized record handed to the storage
// collaborator after admission. It carries no identity material.
type StoredCheckIn struct {
	ID          string       `json:"id"`
	Emotion     string       `json:"emotion"`
	Intensity   int          `json:"intensity"`
	Note        string       `json:"note,omitempty"`
	Region      string       `json:"region,omitempty"`
	Timestamp   *time.Time   `json:"timestamp,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	RecordedAt  time.Time    `json:"recorded_at"`
}

// APIError is the error envelope returned by the HTTP layer.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
