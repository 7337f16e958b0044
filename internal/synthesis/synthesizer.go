// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package synthesis

import (
	"sort"
	"time"

	"github.com/tomtom215/threatlens/internal/models"
)

// DefaultSource labels events whose producer did not name an origin.
const DefaultSource = "stream"

// Config configures the synthesizer.
type Config struct {
	Thresholds    Thresholds
	DefaultSource string
}

// DefaultConfig returns the default synthesizer configuration.
func DefaultConfig() Config {
	return Config{
		Thresholds:    DefaultThresholds(),
		DefaultSource: DefaultSource,
	}
}

// Synthesizer combines the module outputs of one trigger frame into exactly
// one ThreatEvent. It is pure: identical inputs yield identical events.
// Seq and ID are left zero for the state store to assign.
type Synthesizer struct {
	cfg Config
}

// New creates a synthesizer. Invalid thresholds fall back to the defaults.
func New(cfg Config) *Synthesizer {
	if cfg.Thresholds.Validate() != nil {
		cfg.Thresholds = DefaultThresholds()
	}
	if cfg.DefaultSource == "" {
		cfg.DefaultSource = DefaultSource
	}
	return &Synthesizer{cfg: cfg}
}

// Thresholds returns the active severity boundaries.
func (s *Synthesizer) Thresholds() Thresholds {
	return s.cfg.Thresholds
}

// Synthesize builds the event for msg from its normalized outputs.
func (s *Synthesizer) Synthesize(msg *models.StreamMessage, outputs []models.ModuleOutput, receivedAt time.Time) models.ThreatEvent {
	modules := canonicalOutputs(outputs)

	evt := models.ThreatEvent{
		SessionID:         msg.SessionID,
		Timestamp:         receivedAt,
		ReceivedAt:        receivedAt,
		ThreatType:        msg.ThreatType,
		Source:            msg.Source,
		Modules:           modules,
		RecommendedAction: recommendedAction(modules),
		Message:           msg.Message,
		RawUser:           msg.RawUser,
		RawAI:             msg.RawAI,
	}

	if msg.HasTimestamp {
		evt.Timestamp = msg.Timestamp
	}
	if evt.ThreatType == "" {
		evt.ThreatType = models.UnknownThreatType
	}
	if evt.Source == "" {
		evt.Source = s.cfg.DefaultSource
	}

	// Step 1: aggregate score. A producer score is authoritative.
	if msg.Score != nil {
		evt.AggregateScore = *msg.Score
		evt.NormalizedScore = NormalizeScale(*msg.Score)
		if AmbiguousScale(*msg.Score) {
			evt.Annotations = append(evt.Annotations, models.AnnotationAmbiguousScoreScale)
		}
	} else if best, ok := strongest(modules); ok {
		evt.AggregateScore = best.Score
		evt.NormalizedScore = best.Score
	}

	// Step 2: severity. A recognized producer severity is authoritative.
	evt.Severity = s.cfg.Thresholds.Bucket(evt.NormalizedScore)
	evt.SeverityDerived = true
	if msg.Severity != "" {
		if sev, ok := models.ParseSeverity(msg.Severity); ok {
			evt.Severity = sev
			evt.SeverityDerived = false
		} else {
			evt.Annotations = append(evt.Annotations, models.AnnotationInvalidSeverity)
		}
	}

	if msg.InvalidScore {
		evt.Annotations = append(evt.Annotations, models.AnnotationInvalidScore)
	}
	if msg.InvalidTimestamp {
		evt.Annotations = append(evt.Annotations, models.AnnotationInvalidTimestamp)
	}
	if len(modules) == 0 && msg.Score == nil && msg.Severity == "" {
		evt.Annotations = append(evt.Annotations, models.AnnotationNoModuleOutputs)
	}

	return evt
}

// canonicalOutputs returns a copy holding at most one output per module, in
// enumeration order. When a module appears twice the later output wins.
func canonicalOutputs(outputs []models.ModuleOutput) []models.ModuleOutput {
	byID := make(map[string]int, len(outputs))
	modules := make([]models.ModuleOutput, 0, len(outputs))
	for i := range outputs {
		out := outputs[i]
		if j, seen := byID[out.ModuleID]; seen {
			modules[j] = out
			continue
		}
		byID[out.ModuleID] = len(modules)
		modules = append(modules, out)
	}
	sort.SliceStable(modules, func(i, j int) bool {
		return models.CompareModules(modules[i].ModuleID, modules[j].ModuleID) < 0
	})
	return modules
}

// strongest picks the maximum score, tie-broken by higher confidence and then
// by enumeration order. modules must already be in enumeration order.
func strongest(modules []models.ModuleOutput) (models.ModuleOutput, bool) {
	if len(modules) == 0 {
		return models.ModuleOutput{}, false
	}
	best := modules[0]
	for _, m := range modules[1:] {
		if m.Score > best.Score || (m.Score == best.Score && m.Confidence > best.Confidence) {
			best = m
		}
	}
	return best, true
}

// recommendedAction returns the most severe contributing action, or Review
// when nothing else is present.
func recommendedAction(modules []models.ModuleOutput) models.Action {
	action := models.ActionReview
	for i := range modules {
		action = models.MaxAction(action, modules[i].RecommendedAction)
	}
	return action
}
