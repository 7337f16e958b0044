// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package models

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Severity is the ordered risk bucket of a synthesized event.
// The integer order is significant: Low < Medium < High < Critical.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = [...]string{"Low", "Medium", "High", "Critical"}

// AllSeverities returns the buckets from least to most severe.
func AllSeverities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

func (s Severity) String() string {
	if s < SeverityLow || s > SeverityCritical {
		return "Unknown"
	}
	return severityNames[s]
}

// ParseSeverity parses a severity label case-insensitively.
func ParseSeverity(raw string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return SeverityLow, true
	case "medium", "med", "moderate":
		return SeverityMedium, true
	case "high":
		return SeverityHigh, true
	case "critical":
		return SeverityCritical, true
	default:
		return SeverityLow, false
	}
}

// MarshalJSON encodes the severity as its label.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity label.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return fmt.Errorf("severity must be a string: %w", err)
	}
	parsed, ok := ParseSeverity(label)
	if !ok {
		return fmt.Errorf("unknown severity %q", label)
	}
	*s = parsed
	return nil
}

// Action is a module's recommended response. Review is the fallback used when
// nothing else is present or the producer sent an unrecognized value.
type Action string

const (
	ActionReview                Action = "Review"
	ActionMonitor               Action = "Monitor"
	ActionEscalate              Action = "Escalate"
	ActionBlock                 Action = "Block"
	ActionImmediateIntervention Action = "Immediate_Intervention"
)

// Rank orders actions by severity of response. Review ranks lowest so any
// concrete recommendation wins over the fallback.
func (a Action) Rank() int {
	switch a {
	case ActionMonitor:
		return 1
	case ActionEscalate:
		return 2
	case ActionBlock:
		return 3
	case ActionImmediateIntervention:
		return 4
	default:
		return 0
	}
}

// ParseAction parses a recommended action case-insensitively. Spaces and
// hyphens are accepted in place of the underscore.
func ParseAction(raw string) (Action, bool) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch norm {
	case "review":
		return ActionReview, true
	case "monitor":
		return ActionMonitor, true
	case "escalate":
		return ActionEscalate, true
	case "block":
		return ActionBlock, true
	case "immediate_intervention":
		return ActionImmediateIntervention, true
	default:
		return ActionReview, false
	}
}

// MaxAction returns the higher-ranked of a and b, preferring a on ties.
func MaxAction(a, b Action) Action {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}
