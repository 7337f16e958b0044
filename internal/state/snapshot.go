// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package state

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/threatlens/internal/models"
)

// TimelinePoint is one entry of the bounded timeline view.
type TimelinePoint struct {
	Seq             uint64          `json:"seq"`
	EventID         string          `json:"event_id"`
	SessionID       string          `json:"session_id"`
	Timestamp       time.Time       `json:"timestamp"`
	Severity        models.Severity `json:"severity"`
	AggregateScore  float64         `json:"aggregate_score"`
	NormalizedScore float64         `json:"normalized_score"`
	ThreatType      string          `json:"threat_type"`
	ThreatCount     int             `json:"threat_count"`
}

// EvidenceItem is one piece of evidence attributed to its module.
type EvidenceItem struct {
	ModuleID string          `json:"module_id"`
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// EvidenceEntry is one entry of the bounded evidence view: an event that
// carried evidence, with every contributing item.
type EvidenceEntry struct {
	Seq        uint64          `json:"seq"`
	EventID    string          `json:"event_id"`
	SessionID  string          `json:"session_id"`
	Timestamp  time.Time       `json:"timestamp"`
	Severity   models.Severity `json:"severity"`
	ThreatType string          `json:"threat_type"`
	Items      []EvidenceItem  `json:"items"`
}

// SeverityCounts holds per-bucket event counts over the retained log.
type SeverityCounts struct {
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

// Get returns the count for one bucket.
func (c SeverityCounts) Get(s models.Severity) int {
	switch s {
	case models.SeverityCritical:
		return c.Critical
	case models.SeverityHigh:
		return c.High
	case models.SeverityMedium:
		return c.Medium
	default:
		return c.Low
	}
}

func (c *SeverityCounts) add(s models.Severity) {
	switch s {
	case models.SeverityCritical:
		c.Critical++
	case models.SeverityHigh:
		c.High++
	case models.SeverityMedium:
		c.Medium++
	default:
		c.Low++
	}
}

// Summary holds the aggregate counters shown on the dashboard.
type Summary struct {
	TotalEvents      uint64         `json:"total_events"`       // Cumulative, including evicted events
	RetainedEvents   int            `json:"retained_events"`    // Current event log length
	SessionCount     int            `json:"session_count"`      // Distinct sessions ever seen
	SeverityCounts   SeverityCounts `json:"severity_counts"`    // Over the retained log
	AverageScore     float64        `json:"average_score"`      // Mean normalized score over the retained log
	ThreatsDetected  int            `json:"threats_detected"`   // Sum of module threat counts over the retained log
	ModulesOnline    int            `json:"modules_online"`     // Registry modules currently online
	EventsLastMinute int64          `json:"events_last_minute"` // Trailing activity window
	LastEventAt      time.Time      `json:"last_event_at"`      // Receipt time of the newest event
}

// Snapshot is an immutable view of the store. Readers may hold and iterate a
// snapshot for as long as they like; writers publish a new one instead of
// modifying it.
type Snapshot struct {
	Version  uint64                `json:"version"`
	TakenAt  time.Time             `json:"taken_at"`
	Events   []models.ThreatEvent  `json:"events"`   // Oldest to newest
	Timeline []TimelinePoint       `json:"timeline"` // Oldest to newest
	Evidence []EvidenceEntry       `json:"evidence"` // Oldest to newest
	Modules  []models.ModuleStatus `json:"modules"`  // Enumeration order
	Sessions []models.Session      `json:"sessions"` // Most recently active first
	Summary  Summary               `json:"summary"`
}

// Module returns the status of one module.
func (s *Snapshot) Module(id string) (models.ModuleStatus, bool) {
	_, canonical := models.ParseModuleKind(id)
	for i := range s.Modules {
		if s.Modules[i].ModuleID == canonical {
			return s.Modules[i], true
		}
	}
	return models.ModuleStatus{}, false
}

// Event returns the retained event with the given ID.
func (s *Snapshot) Event(id string) (models.ThreatEvent, bool) {
	for i := range s.Events {
		if s.Events[i].ID == id {
			return s.Events[i], true
		}
	}
	return models.ThreatEvent{}, false
}

// Latest returns the newest retained event.
func (s *Snapshot) Latest() (models.ThreatEvent, bool) {
	if len(s.Events) == 0 {
		return models.ThreatEvent{}, false
	}
	return s.Events[len(s.Events)-1], true
}
