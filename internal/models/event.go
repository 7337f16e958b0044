// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package models

import (
	"time"
)

// ============================================================================
// Synthesized Threat Events
// ============================================================================

// UnknownThreatType labels events whose producer did not name a vector.
const UnknownThreatType = "Unknown"

// Event annotations recorded by the synthesizer.
const (
	AnnotationInvalidSeverity  = "invalid_severity"
	AnnotationInvalidScore     = "invalid_score"
	AnnotationInvalidTimestamp = "invalid_timestamp"
	AnnotationNoModuleOutputs  = "no_module_outputs"

	AnnotationAmbiguousScoreScale   = "ambiguous_score_scale"
	AnnotationDuplicateModuleOutput = "duplicate_module_output"
)

// ThreatEvent is the combined verdict for one turn. It is never mutated after
// being appended to the state store; corrections arrive as new events.
type ThreatEvent struct {
	Seq               uint64         `json:"seq"`                   // Arrival order, assigned at append
	ID                string         `json:"id"`                    // "evt-<seq>", assigned at append
	SessionID         string         `json:"session_id"`            // Conversation identifier
	Timestamp         time.Time      `json:"timestamp"`             // Producer time, or receipt time
	ReceivedAt        time.Time      `json:"received_at"`           // Local receipt time
	Severity          Severity       `json:"severity"`              // Low..Critical
	SeverityDerived   bool           `json:"severity_derived"`      // False when the producer asserted it
	AggregateScore    float64        `json:"aggregate_score"`       // Producer score verbatim, or max module score
	NormalizedScore   float64        `json:"normalized_score"`      // AggregateScore on the [0,1] scale
	ThreatType        string         `json:"threat_type"`           // Free-form vector label
	Source            string         `json:"source"`                // Origin label
	Modules           []ModuleOutput `json:"modules"`               // At most one per module, enumeration order
	RecommendedAction Action         `json:"recommended_action"`    // Most severe contributing action
	Message           string         `json:"message,omitempty"`     // Producer summary line
	RawUser           string         `json:"raw_user,omitempty"`    // User turn text
	RawAI             string         `json:"raw_ai,omitempty"`      // Assistant turn text
	Annotations       []string       `json:"annotations,omitempty"` // Data faults recovered during synthesis
}

// Module returns the contributing output for id, if any.
func (e *ThreatEvent) Module(id string) (ModuleOutput, bool) {
	_, canonical := ParseModuleKind(id)
	for i := range e.Modules {
		if e.Modules[i].ModuleID == canonical {
			return e.Modules[i], true
		}
	}
	return ModuleOutput{}, false
}

// HasEvidence reports whether any contributing module supplied evidence.
func (e *ThreatEvent) HasEvidence() bool {
	for i := range e.Modules {
		if len(e.Modules[i].Evidence) > 0 {
			return true
		}
	}
	return false
}

// ThreatCount sums the threat counts of all contributing modules.
func (e *ThreatEvent) ThreatCount() int {
	total := 0
	for i := range e.Modules {
		total += e.Modules[i].ThreatCount
	}
	return total
}

// ============================================================================
// Module Status and Sessions
// ============================================================================

// StatusState is a module's inferred liveness.
type StatusState string

const (
	StatusOffline    StatusState = "offline"
	StatusProcessing StatusState = "processing"
	StatusOnline     StatusState = "online"
)

// ModuleStatus is the registry's view of one module. It is derived from
// observed outputs only.
type ModuleStatus struct {
	ModuleID        string      `json:"module_id"`
	Kind            ModuleKind  `json:"-"`
	Name            string      `json:"name"`
	Status          StatusState `json:"status"`
	LastScore       float64     `json:"last_score"`
	LastThreatCount int         `json:"last_threat_count"`
	LastDetail      string      `json:"last_detail"`
	LastUpdate      time.Time   `json:"last_update"`
	Updates         uint64      `json:"updates"`
}

// Session is derived from the distinct session identifiers seen in events.
type Session struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	EventCount   int       `json:"event_count"`
	MaxSeverity  Severity  `json:"max_severity"`
}
