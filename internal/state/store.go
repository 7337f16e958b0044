// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package state

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/tomtom215/threatlens/internal/cache"
	"github.com/tomtom215/threatlens/internal/models"
	"github.com/tomtom215/threatlens/internal/registry"
)

// Config configures the bounded collections.
type Config struct {
	EventCapacity    int
	TimelineCapacity int
	EvidenceCapacity int
	SessionCapacity  int
	ActivityWindow   time.Duration
	Registry         registry.Config

	// SeenCapacity bounds the distinct-session set behind
	// Summary.SessionCount. Past it, a session idle long enough to be
	// evicted is counted again when it returns.
	SeenCapacity int
}

// DefaultConfig returns the default capacities.
func DefaultConfig() Config {
	return Config{
		EventCapacity:    100,
		TimelineCapacity: 50,
		EvidenceCapacity: 20,
		SessionCapacity:  1000,
		SeenCapacity:     100_000,
		ActivityWindow:   time.Minute,
		Registry:         registry.DefaultConfig(),
	}
}

// Commit is one frame's worth of mutations, applied and published together so
// no reader can observe the registry updated without the matching event.
type Commit struct {
	Outputs    []models.ModuleOutput // Verdicts to record in the registry
	Processing []models.ModuleOutput // Modules reporting work in progress
	Event      models.ThreatEvent    // Synthesized event to append
	At         time.Time             // Local receipt time
}

// Result reports what a Commit changed.
type Result struct {
	Event       models.ThreatEvent    // Stored event with Seq and ID assigned
	Transitions []registry.Transition // Registry status changes
	Evicted     bool                  // The event log evicted its oldest event
	NewSession  bool                  // First event for this session ID
}

// Store exclusively owns every ThreatEvent, ModuleStatus and summary counter.
//
// Writes (Apply, Tick) must come from a single goroutine: the ingestion
// path. Reads go through Snapshot, which returns an immutable copy published
// with an atomic pointer, so readers never lock and never observe a
// partially applied write.
type Store struct {
	cfg Config

	reg      *registry.Registry
	events   *cache.Ring[models.ThreatEvent]
	timeline *cache.Ring[TimelinePoint]
	evidence *cache.Ring[EvidenceEntry]
	sessions *cache.LRU[string, models.Session]
	seen     *cache.LRU[string, struct{}]
	activity *cache.SlidingWindowCounter

	sessionCount int
	seq          uint64
	total       uint64
	version     uint64
	lastEventAt time.Time

	snap atomic.Pointer[Snapshot]
}

// New creates an empty store with every known module offline.
func New(cfg Config) *Store {
	def := DefaultConfig()
	if cfg.EventCapacity <= 0 {
		cfg.EventCapacity = def.EventCapacity
	}
	if cfg.TimelineCapacity <= 0 {
		cfg.TimelineCapacity = def.TimelineCapacity
	}
	if cfg.EvidenceCapacity <= 0 {
		cfg.EvidenceCapacity = def.EvidenceCapacity
	}
	if cfg.SessionCapacity <= 0 {
		cfg.SessionCapacity = def.SessionCapacity
	}
	if cfg.SeenCapacity < cfg.SessionCapacity {
		cfg.SeenCapacity = max(def.SeenCapacity, cfg.SessionCapacity)
	}
	if cfg.ActivityWindow <= 0 {
		cfg.ActivityWindow = def.ActivityWindow
	}

	s := &Store{
		cfg:      cfg,
		reg:      registry.New(cfg.Registry),
		events:   cache.NewRing[models.ThreatEvent](cfg.EventCapacity),
		timeline: cache.NewRing[TimelinePoint](cfg.TimelineCapacity),
		evidence: cache.NewRing[EvidenceEntry](cfg.EvidenceCapacity),
		sessions: cache.NewLRU[string, models.Session](cfg.SessionCapacity, 0),
		seen:     cache.NewLRU[string, struct{}](cfg.SeenCapacity, 0),
		activity: cache.NewSlidingWindowCounter(cfg.ActivityWindow, 12),
	}
	s.publish(time.Time{})
	return s
}

// Snapshot returns the latest published view. It never blocks.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// StalenessThreshold returns the registry's staleness threshold.
func (s *Store) StalenessThreshold() time.Duration {
	return s.reg.StalenessThreshold()
}

// Apply records module verdicts, appends the event and publishes a new snapshot.
//
//nolint:gocritic // Commit is passed by value so callers cannot alias stored state
func (s *Store) Apply(c Commit) Result {
	var res Result

	for i := range c.Processing {
		if tr := s.reg.MarkProcessing(c.Processing[i].ModuleID, c.At); tr.From != tr.To {
			res.Transitions = append(res.Transitions, tr)
		}
	}
	for i := range c.Outputs {
		if tr := s.reg.Record(c.Outputs[i], c.At); tr.From != tr.To {
			res.Transitions = append(res.Transitions, tr)
		}
	}

	evt := c.Event
	s.seq++
	evt.Seq = s.seq
	evt.ID = "evt-" + strconv.FormatUint(s.seq, 10)
	if evt.ReceivedAt.IsZero() {
		evt.ReceivedAt = c.At
	}

	_, res.Evicted = s.events.Push(evt)
	s.timeline.Push(timelinePoint(&evt))
	if entry, ok := evidenceEntry(&evt); ok {
		s.evidence.Push(entry)
	}
	res.NewSession = s.touchSession(&evt)

	s.total++
	s.lastEventAt = evt.ReceivedAt
	s.activity.AddAt(evt.ReceivedAt, 1)

	s.publish(c.At)
	res.Event = evt
	return res
}

// Tick ages module statuses and republishes the snapshot so time-derived
// figures stay current.
func (s *Store) Tick(now time.Time) []registry.Transition {
	transitions := s.reg.Tick(now)
	s.publish(now)
	return transitions
}

// summary recomputes the counters from the retained log.
func (s *Store) summary(events []models.ThreatEvent, now time.Time) Summary {
	sum := Summary{
		TotalEvents:    s.total,
		RetainedEvents: len(events),
		SessionCount:   s.sessionCount,
		ModulesOnline:  s.reg.OnlineCount(),
		LastEventAt:    s.lastEventAt,
	}

	var scoreTotal float64
	for i := range events {
		sum.SeverityCounts.add(events[i].Severity)
		scoreTotal += events[i].NormalizedScore
		sum.ThreatsDetected += events[i].ThreatCount()
	}
	if len(events) > 0 {
		sum.AverageScore = scoreTotal / float64(len(events))
	}
	if !now.IsZero() {
		sum.EventsLastMinute = s.activity.CountAt(now)
	}
	return sum
}

func (s *Store) publish(now time.Time) {
	s.version++
	events := s.events.Items()
	snap := &Snapshot{
		Version:  s.version,
		TakenAt:  now,
		Events:   events,
		Timeline: s.timeline.Items(),
		Evidence: s.evidence.Items(),
		Modules:  s.reg.Statuses(),
		Sessions: s.sessions.Values(),
		Summary:  s.summary(events, now),
	}
	s.snap.Store(snap)
}

// touchSession updates the session table and reports whether the session
// was seen for the first time.
func (s *Store) touchSession(evt *models.ThreatEvent) bool {
	if evt.SessionID == "" {
		return false
	}
	known := s.seen.SeenBefore(evt.SessionID, struct{}{})
	if !known {
		s.sessionCount++
	}

	sess, ok := s.sessions.Peek(evt.SessionID)
	if !ok {
		sess = models.Session{ID: evt.SessionID, CreatedAt: evt.ReceivedAt, MaxSeverity: evt.Severity}
	}
	sess.LastActivity = evt.ReceivedAt
	sess.EventCount++
	if evt.Severity > sess.MaxSeverity {
		sess.MaxSeverity = evt.Severity
	}
	s.sessions.Add(evt.SessionID, sess)

	return !known
}

func timelinePoint(evt *models.ThreatEvent) TimelinePoint {
	return TimelinePoint{
		Seq:             evt.Seq,
		EventID:         evt.ID,
		SessionID:       evt.SessionID,
		Timestamp:       evt.Timestamp,
		Severity:        evt.Severity,
		AggregateScore:  evt.AggregateScore,
		NormalizedScore: evt.NormalizedScore,
		ThreatType:      evt.ThreatType,
		ThreatCount:     evt.ThreatCount(),
	}
}

func evidenceEntry(evt *models.ThreatEvent) (EvidenceEntry, bool) {
	if !evt.HasEvidence() {
		return EvidenceEntry{}, false
	}
	entry := EvidenceEntry{
		Seq:        evt.Seq,
		EventID:    evt.ID,
		SessionID:  evt.SessionID,
		Timestamp:  evt.Timestamp,
		Severity:   evt.Severity,
		ThreatType: evt.ThreatType,
	}
	for i := range evt.Modules {
		for _, ev := range evt.Modules[i].Evidence {
			entry.Items = append(entry.Items, EvidenceItem{ModuleID: evt.Modules[i].ModuleID, Type: ev.Type, Data: ev.Data})
		}
	}
	return entry, true
}
