// Moodpin - Anonymous Geo-Tagged Emotional Check-Ins
// Copyright 2026 Moodpin Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodpin/moodpin

package admission

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/moodpin/moodpin/internal/config"
	"github.com/moodpin/moodpin/internal/metrics"
	"github.com/moodpin/moodpin/internal/models"
)

// Rule is a single content check. Rules are pure predicates over the
// payload and the clock; a nil result means the rule passed.
type Rule interface {
	Name() string
	Evaluate(c *models.CheckIn, now time.Time) *Rejection
}

// Pipeline runs rules in a fixed order with early exit on the first
// failure. Its only side effect is the per-kind rejection counter.
type Pipeline struct {
	rules []Rule
}

// NewPipeline builds the standard rule order from configuration: note
// length, profanity, PII, spam heuristics, timestamp sanity, region
// sanity, coordinate sanity.
func NewPipeline(cfg config.ModerationConfig) (*Pipeline, error) {
	profanity, err := newProfanityRule(cfg.BannedWords)
	if err != nil {
		return nil, fmt.Errorf("compile profanity rule: %w", err)
	}
	region, err := newRegionRule(cfg.RegionPattern)
	if err != nil {
		return nil, fmt.Errorf("compile region rule: %w", err)
	}

	return &Pipeline{
		rules: []Rule{
			noteLengthRule{max: cfg.NoteMaxLength},
			profanity,
			newPIIRule(),
			spamRule{},
			timestampRule{},
			region,
			coordinateRule{
				boxes:  cfg.BannedBoxes,
				minLat: cfg.MinLatitude,
				maxLat: cfg.MaxLatitude,
			},
		},
	}, nil
}

// Evaluate runs the pipeline. Returns nil when every rule passes.
func (p *Pipeline) Evaluate(c *models.CheckIn, now time.Time) *Rejection {
	for _, rule := range p.rules {
		if rej := rule.Evaluate(c, now); rej != nil {
			metrics.RejectionsTotal.WithLabelValues(string(rej.Kind)).Inc()
			return rej
		}
	}
	return nil
}

// noteLengthRule caps free-text notes at the configured maximum,
// counted in runes. The cap is moderation policy, so it lives here
// with the other configured inputs rather than in a struct tag. A
// non-positive max disables the rule.
type noteLengthRule struct {
	max int
}

func (noteLengthRule) Name() string { return "note_length" }

func (r noteLengthRule) Evaluate(c *models.CheckIn, _ time.Time) *Rejection {
	if r.max <= 0 || c.Note == "" {
		return nil
	}
	if utf8.RuneCountInString(c.Note) > r.max {
		return Reject(KindNoteTooLong)
	}
	return nil
}

// profanityRule rejects notes matching any banned word, matched
// case-insensitively as a whole word.
type profanityRule struct {
	pattern *regexp.Regexp
}

func newProfanityRule(words []string) (*profanityRule, error) {
	if len(words) == 0 {
		return &profanityRule{}, nil
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	pattern, err := regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	if err != nil {
		return nil, err
	}
	return &profanityRule{pattern: pattern}, nil
}

func (r *profanityRule) Name() string { return "profanity" }

func (r *profanityRule) Evaluate(c *models.CheckIn, _ time.Time) *Rejection {
	if c.Note == "" || r.pattern == nil {
		return nil
	}
	if r.pattern.MatchString(c.Note) {
		return Reject(KindProfanity)
	}
	return nil
}

// piiPatterns match personally identifiable information that must not
// reach storage: phone numbers, email addresses, government-ID-like
// and payment-card-like digit groups, and URLs.
var piiPatterns = []*regexp.Regexp{
	// Phone numbers, with optional country code and common separators.
	regexp.MustCompile(`\+?\d{0,3}[-. (]*\d{3}[-. )]*\d{3}[-. ]*\d{4}\b`),
	// Email addresses.
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	// Government-ID-like digit groups (SSN shape).
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	// Payment-card-like digit runs (13-16 digits, optional separators).
	regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`),
	// URLs.
	regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`),
}

// piiRule rejects notes leaking personally identifiable information.
type piiRule struct {
	patterns []*regexp.Regexp
}

func newPIIRule() *piiRule {
	return &piiRule{patterns: piiPatterns}
}

func (r *piiRule) Name() string { return "pii" }

func (r *piiRule) Evaluate(c *models.CheckIn, _ time.Time) *Rejection {
	if c.Note == "" {
		return nil
	}
	for _, pattern := range r.patterns {
		if pattern.MatchString(c.Note) {
			return Reject(KindPII)
		}
	}
	return nil
}

// spamShortThreshold is the note length below which spam heuristics do
// not apply: short notes trip the heuristics too easily.
const spamShortThreshold = 12

var wordPattern = regexp.MustCompile(`[a-zA-Z']+`)

// hasRepeatedRun reports whether s contains n or more identical
// consecutive runes.
func hasRepeatedRun(s string, n int) bool {
	run := 0
	var prev rune
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		prev = r
		if run >= n {
			return true
		}
	}
	return false
}

// spamRule rejects notes showing mechanical repetition: all upper-case
// text, runs of 5+ identical characters, or the same word 4+ times.
type spamRule struct{}

func (spamRule) Name() string { return "spam" }

func (spamRule) Evaluate(c *models.CheckIn, _ time.Time) *Rejection {
	note := c.Note
	if len(note) <= spamShortThreshold {
		return nil
	}

	if note == strings.ToUpper(note) && note != strings.ToLower(note) {
		return Reject(KindSpamPattern)
	}

	if hasRepeatedRun(note, 5) {
		return Reject(KindSpamPattern)
	}

	counts := make(map[string]int)
	for _, word := range wordPattern.FindAllString(strings.ToLower(note), -1) {
		counts[word]++
		if counts[word] >= 4 {
			return Reject(KindSpamPattern)
		}
	}
	return nil
}

const (
	// maxFutureSkew allows for client clock skew.
	maxFutureSkew = 5 * time.Minute

	// maxBackdate bounds how old a backfilled check-in may be.
	maxBackdate = 7 * 24 * time.Hour
)

// timestampRule rejects timestamps that do not parse, sit more than
// five minutes in the future, or more than seven days in the past.
type timestampRule struct{}

func (timestampRule) Name() string { return "timestamp" }

func (timestampRule) Evaluate(c *models.CheckIn, now time.Time) *Rejection {
	ts, provided, err := c.ParsedTimestamp()
	if !provided {
		return nil
	}
	if err != nil {
		return Reject(KindInvalidTimestamp)
	}
	if ts.After(now.Add(maxFutureSkew)) {
		return Reject(KindInvalidTimestamp)
	}
	if ts.Before(now.Add(-maxBackdate)) {
		return Reject(KindInvalidTimestamp)
	}
	return nil
}

// regionRule validates region codes against the configured pattern,
// case-insensitively.
type regionRule struct {
	pattern *regexp.Regexp
}

func newRegionRule(pattern string) (*regionRule, error) {
	compiled, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return nil, err
	}
	return &regionRule{pattern: compiled}, nil
}

func (r *regionRule) Name() string { return "region" }

func (r *regionRule) Evaluate(c *models.CheckIn, _ time.Time) *Rejection {
	if c.Region == "" {
		return nil
	}
	if !r.pattern.MatchString(c.Region) {
		return Reject(KindInvalidRegion)
	}
	return nil
}

// coordinateRule rejects implausible coordinates: exact (0,0) ("null
// island"), configured mid-ocean boxes, and latitudes outside the
// plausible band.
type coordinateRule struct {
	boxes  []config.BoundingBox
	minLat float64
	maxLat float64
}

func (coordinateRule) Name() string { return "coordinates" }

func (r coordinateRule) Evaluate(c *models.CheckIn, _ time.Time) *Rejection {
	coords := c.Coordinates
	if coords == nil {
		return nil
	}
	if coords.Latitude == 0 && coords.Longitude == 0 {
		return Reject(KindInvalidLocation)
	}
	if coords.Latitude < r.minLat || coords.Latitude > r.maxLat {
		return Reject(KindInvalidLocation)
	}
	for _, box := range r.boxes {
		if box.Contains(coords.Latitude, coords.Longitude) {
			return Reject(KindInvalidLocation)
		}
	}
	return nil
}
