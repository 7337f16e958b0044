// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package registry

import (
	"errors"
	"sort"
	"time"

	"github.com/tomtom215/threatlens/internal/models"
)

// ErrModuleNotFound is returned for identifiers the registry has never tracked.
var ErrModuleNotFound = errors.New("module not found")

// DefaultStalenessThreshold is three missed 30s heartbeats.
const DefaultStalenessThreshold = 90 * time.Second

// Config configures the registry.
type Config struct {
	// StalenessThreshold is how long a module may go without output before it
	// is considered offline.
	StalenessThreshold time.Duration
}

// DefaultConfig returns the default registry configuration.
func DefaultConfig() Config {
	return Config{StalenessThreshold: DefaultStalenessThreshold}
}

// Transition describes a status change caused by Record, MarkProcessing or Tick.
type Transition struct {
	ModuleID string
	From     models.StatusState
	To       models.StatusState
}

// Registry tracks per-module liveness inferred from observed outputs. Status
// is never asserted externally: the only way to bring a module online is to
// Record an output for it.
//
// Registry is not safe for concurrent use. It has a single owner (the state
// store), which publishes immutable copies for readers via Statuses.
type Registry struct {
	cfg      Config
	statuses map[string]*models.ModuleStatus
}

// New creates a registry with every known module offline.
func New(cfg Config) *Registry {
	if cfg.StalenessThreshold <= 0 {
		cfg.StalenessThreshold = DefaultStalenessThreshold
	}

	r := &Registry{
		cfg:      cfg,
		statuses: make(map[string]*models.ModuleStatus, models.KnownModuleCount),
	}
	for _, k := range models.AllModuleKinds() {
		r.statuses[k.ID()] = &models.ModuleStatus{
			ModuleID: k.ID(),
			Kind:     k,
			Name:     k.Name(),
			Status:   models.StatusOffline,
		}
	}
	return r
}

// StalenessThreshold returns the configured threshold.
func (r *Registry) StalenessThreshold() time.Duration {
	return r.cfg.StalenessThreshold
}

// Record marks the module online and stores the latest verdict.
//
//nolint:gocritic // ModuleOutput is passed by value to keep the registry free of caller aliases
func (r *Registry) Record(out models.ModuleOutput, at time.Time) Transition {
	st := r.lookupOrCreate(out.ModuleID, out.Kind, out.ModuleName)
	from := st.Status

	st.Status = models.StatusOnline
	st.LastScore = out.Score
	st.LastThreatCount = out.ThreatCount
	st.LastDetail = out.Detail()
	st.LastUpdate = at
	st.Updates++

	return Transition{ModuleID: st.ModuleID, From: from, To: st.Status}
}

// MarkProcessing records that the producer reported work in progress for a
// module. It counts as observed traffic, so it also refreshes the staleness
// clock, but it never reports a verdict.
func (r *Registry) MarkProcessing(moduleID string, at time.Time) Transition {
	kind, canonical := models.ParseModuleKind(moduleID)
	st := r.lookupOrCreate(canonical, kind, "")
	from := st.Status

	st.Status = models.StatusProcessing
	st.LastUpdate = at
	st.Updates++

	return Transition{ModuleID: st.ModuleID, From: from, To: st.Status}
}

// Tick moves every module whose last update is older than the staleness
// threshold to offline and returns the transitions it made, in enumeration
// order.
func (r *Registry) Tick(now time.Time) []Transition {
	var changed []Transition
	for _, id := range r.sortedIDs() {
		st := r.statuses[id]
		if st.Status == models.StatusOffline {
			continue
		}
		if now.Sub(st.LastUpdate) > r.cfg.StalenessThreshold {
			changed = append(changed, Transition{ModuleID: id, From: st.Status, To: models.StatusOffline})
			st.Status = models.StatusOffline
		}
	}
	return changed
}

// Get returns a copy of one module's status.
func (r *Registry) Get(moduleID string) (models.ModuleStatus, error) {
	_, canonical := models.ParseModuleKind(moduleID)
	st, ok := r.statuses[canonical]
	if !ok {
		return models.ModuleStatus{}, ErrModuleNotFound
	}
	return *st, nil
}

// Statuses returns copies of every tracked status in enumeration order.
func (r *Registry) Statuses() []models.ModuleStatus {
	ids := r.sortedIDs()
	out := make([]models.ModuleStatus, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.statuses[id])
	}
	return out
}

// OnlineCount returns the number of modules currently online.
func (r *Registry) OnlineCount() int {
	n := 0
	for _, st := range r.statuses {
		if st.Status == models.StatusOnline {
			n++
		}
	}
	return n
}

func (r *Registry) lookupOrCreate(id string, kind models.ModuleKind, name string) *models.ModuleStatus {
	if st, ok := r.statuses[id]; ok {
		return st
	}
	if name == "" {
		name = id
	}
	st := &models.ModuleStatus{ModuleID: id, Kind: kind, Name: name, Status: models.StatusOffline}
	r.statuses[id] = st
	return st
}

func (r *Registry) sortedIDs() []string {
	ids := make([]string, 0, len(r.statuses))
	for id := range r.statuses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return models.CompareModules(ids[i], ids[j]) < 0
	})
	return ids
}
