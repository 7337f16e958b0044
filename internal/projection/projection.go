// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package projection

import (
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/threatlens/internal/models"
	"github.com/tomtom215/threatlens/internal/registry"
	"github.com/tomtom215/threatlens/internal/state"
)

// SortCriterion names an event ordering.
type SortCriterion string

const (
	SortNewest    SortCriterion = "time"      // Arrival order, newest first (table default)
	SortOldest    SortCriterion = "time_asc"  // Arrival order, oldest first
	SortTimestamp SortCriterion = "timestamp" // Producer timestamp, newest first
	SortSeverity  SortCriterion = "severity"  // Most severe first
	SortScore     SortCriterion = "score"     // Highest normalized score first
	SortSession   SortCriterion = "session"   // Session ID ascending
	SortType      SortCriterion = "type"      // Threat type ascending, case-insensitive
)

// SortCriteria lists every accepted criterion.
var SortCriteria = []SortCriterion{
	SortNewest, SortOldest, SortTimestamp, SortSeverity, SortScore, SortSession, SortType,
}

// ParseSort parses a criterion. The empty string selects SortNewest.
func ParseSort(raw string) (SortCriterion, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "", "newest", "time_desc":
		return SortNewest, true
	case "oldest":
		return SortOldest, true
	}
	for _, c := range SortCriteria {
		if string(c) == s {
			return c, true
		}
	}
	return SortNewest, false
}

// Filter selects events. Zero-valued fields match everything; multiple values
// within one field are alternatives.
type Filter struct {
	ThreatTypes []string          // Case-insensitive exact match
	Severities  []models.Severity // Bucket membership
	Modules     []string          // Event has an output from any of these modules
	From        *time.Time        // Inclusive lower bound on Timestamp
	To          *time.Time        // Inclusive upper bound on Timestamp
}

// Query is a complete read of the event log: filter, then search, then sort,
// then limit.
type Query struct {
	Filter
	Search string
	Sort   SortCriterion
	Limit  int // 0 means no limit
}

// Events answers a query against one snapshot. The snapshot is never
// modified; the returned slice is freshly allocated.
func Events(snap *state.Snapshot, q Query) []models.ThreatEvent {
	if snap == nil {
		return []models.ThreatEvent{}
	}
	out := FilterEvents(snap.Events, q.Filter)
	out = Search(out, q.Search)
	out = Sort(out, q.Sort)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// FilterEvents returns the events matching f, preserving input order.
func FilterEvents(events []models.ThreatEvent, f Filter) []models.ThreatEvent {
	modules := canonicalModules(f.Modules)

	out := make([]models.ThreatEvent, 0, len(events))
	for i := range events {
		e := &events[i]
		if len(f.ThreatTypes) > 0 && !matchesType(e.ThreatType, f.ThreatTypes) {
			continue
		}
		if len(f.Severities) > 0 && !matchesSeverity(e.Severity, f.Severities) {
			continue
		}
		if len(modules) > 0 && !matchesModule(e, modules) {
			continue
		}
		if f.From != nil && e.Timestamp.Before(*f.From) {
			continue
		}
		if f.To != nil && e.Timestamp.After(*f.To) {
			continue
		}
		out = append(out, *e)
	}
	return out
}

// Search returns the events whose text fields contain term, ignoring case.
// An empty term matches everything.
func Search(events []models.ThreatEvent, term string) []models.ThreatEvent {
	needle := strings.ToLower(strings.TrimSpace(term))

	out := make([]models.ThreatEvent, 0, len(events))
	for i := range events {
		if needle == "" || eventContains(&events[i], needle) {
			out = append(out, events[i])
		}
	}
	return out
}

// Sort returns a sorted copy of events. Ties are broken by arrival order so
// the result is fully deterministic.
func Sort(events []models.ThreatEvent, criterion SortCriterion) []models.ThreatEvent {
	out := make([]models.ThreatEvent, len(events))
	copy(out, events)

	newer := func(a, b *models.ThreatEvent) bool { return a.Seq > b.Seq }

	var less func(a, b *models.ThreatEvent) bool
	switch criterion {
	case SortOldest:
		less = func(a, b *models.ThreatEvent) bool { return a.Seq < b.Seq }
	case SortTimestamp:
		less = func(a, b *models.ThreatEvent) bool {
			if !a.Timestamp.Equal(b.Timestamp) {
				return a.Timestamp.After(b.Timestamp)
			}
			return newer(a, b)
		}
	case SortSeverity:
		less = func(a, b *models.ThreatEvent) bool {
			if a.Severity != b.Severity {
				return a.Severity > b.Severity
			}
			return newer(a, b)
		}
	case SortScore:
		less = func(a, b *models.ThreatEvent) bool {
			if a.NormalizedScore != b.NormalizedScore {
				return a.NormalizedScore > b.NormalizedScore
			}
			return newer(a, b)
		}
	case SortSession:
		less = func(a, b *models.ThreatEvent) bool {
			if a.SessionID != b.SessionID {
				return a.SessionID < b.SessionID
			}
			return newer(a, b)
		}
	case SortType:
		less = func(a, b *models.ThreatEvent) bool {
			ta, tb := strings.ToLower(a.ThreatType), strings.ToLower(b.ThreatType)
			if ta != tb {
				return ta < tb
			}
			return newer(a, b)
		}
	default:
		less = newer
	}

	sort.SliceStable(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	return out
}

// Summary returns the snapshot's summary counters.
func Summary(snap *state.Snapshot) state.Summary {
	if snap == nil {
		return state.Summary{}
	}
	return snap.Summary
}

// ModuleStatus returns one module's status from the snapshot.
func ModuleStatus(snap *state.Snapshot, moduleID string) (models.ModuleStatus, error) {
	if snap != nil {
		if st, ok := snap.Module(moduleID); ok {
			return st, nil
		}
	}
	return models.ModuleStatus{}, registry.ErrModuleNotFound
}

func canonicalModules(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, canonical := models.ParseModuleKind(id); canonical != "" {
			set[canonical] = struct{}{}
		}
	}
	return set
}

func matchesType(threatType string, types []string) bool {
	for _, t := range types {
		if strings.EqualFold(strings.TrimSpace(t), threatType) {
			return true
		}
	}
	return false
}

func matchesSeverity(s models.Severity, severities []models.Severity) bool {
	for _, want := range severities {
		if s == want {
			return true
		}
	}
	return false
}

func matchesModule(e *models.ThreatEvent, modules map[string]struct{}) bool {
	for i := range e.Modules {
		if _, ok := modules[e.Modules[i].ModuleID]; ok {
			return true
		}
	}
	return false
}

// eventContains scans the event's and its modules' text fields. needle must
// already be lower-cased.
func eventContains(e *models.ThreatEvent, needle string) bool {
	fields := [...]string{
		e.ID, e.SessionID, e.ThreatType, e.Source, e.Message, e.RawUser, e.RawAI,
		e.Severity.String(), string(e.RecommendedAction),
	}
	for _, f := range fields {
		if containsFold(f, needle) {
			return true
		}
	}
	for i := range e.Modules {
		m := &e.Modules[i]
		if containsFold(m.ModuleID, needle) || containsFold(m.ModuleName, needle) || containsFold(m.Notes, needle) {
			return true
		}
		for _, flag := range m.Flags {
			if containsFold(flag, needle) {
				return true
			}
		}
		for _, ev := range m.Evidence {
			if containsFold(ev.Type, needle) {
				return true
			}
		}
	}
	return false
}

func containsFold(s, needle string) bool {
	return s != "" && strings.Contains(strings.ToLower(s), needle)
}
