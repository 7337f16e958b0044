// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// ============================================================================
// Module Output
// ============================================================================

// Soft validation flags appended by the normalizer. They never block synthesis.
const (
	FlagNormalizationError       = "normalization_error"
	FlagScoreClamped             = "score_clamped"
	FlagConfidenceClamped        = "confidence_clamped"
	FlagInvalidRecommendedAction = "invalid_recommended_action"
	FlagInvalidTimestamp         = "invalid_timestamp"
	FlagInvalidFlagEntry         = "invalid_flag_entry"
	FlagInvalidEvidenceEntry     = "invalid_evidence_entry"
)

// SoftFlags lists every normalizer flag, for metrics pre-registration.
var SoftFlags = []string{
	FlagNormalizationError,
	FlagScoreClamped,
	FlagConfidenceClamped,
	FlagInvalidRecommendedAction,
	FlagInvalidTimestamp,
	FlagInvalidFlagEntry,
	FlagInvalidEvidenceEntry,
}

// CurrentSchemaVersion is assumed when the producer omits schema_version.
const CurrentSchemaVersion = 1

// Evidence is one {type, data} pair. Data is kept as raw JSON so stored
// events stay immutable while remaining arbitrarily structured.
type Evidence struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ModuleOutput is one module's normalized verdict on one turn.
// Score and Confidence are always within [0,1].
type ModuleOutput struct {
	ModuleID          string          `json:"module_id"`            // Canonical identifier, e.g. "TDC-AI4"
	Kind              ModuleKind      `json:"-"`                    // Decoded once by the normalizer
	ModuleName        string          `json:"module_name"`          // Producer-supplied or display name
	Score             float64         `json:"score"`                // Clamped to [0,1]
	Confidence        float64         `json:"confidence"`           // Clamped to [0,1]
	HasScore          bool            `json:"has_score"`            // False when the producer sent no score
	ThreatCount       int             `json:"threat_count"`         // From the compact "threats" field
	Flags             []string        `json:"flags"`                // Producer flags then soft flags, detection order
	Notes             string          `json:"notes"`                // Free text
	Evidence          []Evidence      `json:"evidence"`             // Ordered
	RecommendedAction Action          `json:"recommended_action"`   // Closed enumeration
	Timestamp         time.Time       `json:"timestamp"`            // Producer time, zero when absent
	SchemaVersion     int             `json:"schema_version"`       // Forward-compatible decoding
	Extra             json.RawMessage `json:"extra,omitempty"`      // Opaque producer extension
	Processing        bool            `json:"processing,omitempty"` // Producer reported work in progress without a result
}

// HasFlag reports whether flag is present.
func (o *ModuleOutput) HasFlag(flag string) bool {
	for _, f := range o.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Detail returns a short human-readable summary for status displays.
func (o *ModuleOutput) Detail() string {
	if o.Notes != "" {
		return o.Notes
	}
	if len(o.Flags) > 0 {
		return o.Flags[0]
	}
	return ""
}
