// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package detection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/threatlens/internal/cache"
	"github.com/tomtom215/threatlens/internal/logging"
	"github.com/tomtom215/threatlens/internal/metrics"
	"github.com/tomtom215/threatlens/internal/models"
	"github.com/tomtom215/threatlens/internal/normalize"
	"github.com/tomtom215/threatlens/internal/registry"
	"github.com/tomtom215/threatlens/internal/state"
	"github.com/tomtom215/threatlens/internal/synthesis"
)

// EngineConfig configures the engine.
type EngineConfig struct {
	// DedupeCapacity bounds the replay fingerprint table. Zero disables
	// replay deduplication.
	DedupeCapacity int `json:"dedupe_capacity"`

	// DedupeTTL is how long a fingerprint is remembered. Zero means until
	// evicted by capacity.
	DedupeTTL time.Duration `json:"dedupe_ttl"`

	// PublishErrorLogRate and PublishErrorLogBurst bound how often a failed
	// bus publish is logged. A full queue fails every event until it drains.
	PublishErrorLogRate  rate.Limit `json:"publish_error_log_rate"`
	PublishErrorLogBurst int        `json:"publish_error_log_burst"`
}

// DefaultEngineConfig returns sensible defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DedupeCapacity: 1024,
		DedupeTTL:      10 * time.Minute,

		PublishErrorLogRate:  rate.Every(time.Second),
		PublishErrorLogBurst: 5,
	}
}

// Engine routes decoded frames through normalizer, registry, synthesizer and
// store, then fans the result out to operator clients and the message bus.
//
// All mutations are serialized by mu, so the store sees exactly one writer in
// delivery order even if replay and live ingestion share an engine.
type Engine struct {
	store       *state.Store
	synth       *synthesis.Synthesizer
	dedupe      *cache.LRU[string, struct{}]
	broadcaster Broadcaster
	publisher   Publisher
	publishLog  *rate.Limiter
	now         func() time.Time

	mu            sync.Mutex
	lastMessageAt time.Time
	stale         bool
	metricsStore  EngineMetrics
}

// NewEngine creates a new engine writing to store.
func NewEngine(cfg EngineConfig, store *state.Store, synth *synthesis.Synthesizer) *Engine {
	def := DefaultEngineConfig()
	if cfg.PublishErrorLogRate <= 0 {
		cfg.PublishErrorLogRate = def.PublishErrorLogRate
	}
	if cfg.PublishErrorLogBurst <= 0 {
		cfg.PublishErrorLogBurst = def.PublishErrorLogBurst
	}
	e := &Engine{
		store:      store,
		synth:      synth,
		publishLog: rate.NewLimiter(cfg.PublishErrorLogRate, cfg.PublishErrorLogBurst),
		now:        time.Now,
	}
	if cfg.DedupeCapacity > 0 {
		e.dedupe = cache.NewLRU[string, struct{}](cfg.DedupeCapacity, cfg.DedupeTTL)
	}
	return e
}

// SetBroadcaster sets the operator push target.
func (e *Engine) SetBroadcaster(b Broadcaster) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.broadcaster = b
}

// SetPublisher sets the message bus target.
func (e *Engine) SetPublisher(p Publisher) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.publisher = p
}

// Store returns the state store the engine writes to.
func (e *Engine) Store() *state.Store {
	return e.store
}

// Snapshot returns the latest published state.
func (e *Engine) Snapshot() *state.Snapshot {
	return e.store.Snapshot()
}

// Handle decodes one transport frame and processes it. It returns an error
// only for undecodable frames; callers log and drop those.
func (e *Engine) Handle(ctx context.Context, frame []byte, receivedAt time.Time) (Result, error) {
	msg, err := models.DecodeStreamMessage(frame)
	if err != nil {
		e.mu.Lock()
		e.metricsStore.FramesHandled++
		e.metricsStore.Malformed++
		e.mu.Unlock()
		metrics.RecordDrop(metrics.DropMalformed)
		return Result{Outcome: OutcomeMalformed}, fmt.Errorf("decode frame: %w", err)
	}
	return e.Process(ctx, msg, receivedAt), nil
}

// Process runs a decoded message through the pipeline.
func (e *Engine) Process(ctx context.Context, msg *models.StreamMessage, receivedAt time.Time) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.metricsStore.FramesHandled++
	e.touch(receivedAt)

	if msg.IsControl() {
		e.metricsStore.ControlFrames++
		metrics.RecordDrop(metrics.DropControl)
		logging.CtxDebug(ctx).Str("type", msg.Type).Msg("control frame discarded")
		return Result{Outcome: OutcomeControl, Control: msg.Type}
	}

	if fp := msg.Fingerprint(); fp != "" && e.dedupe != nil && e.dedupe.SeenBefore(fp, struct{}{}) {
		e.metricsStore.Duplicates++
		metrics.RecordDrop(metrics.DropDuplicate)
		logging.CtxDebug(ctx).Str("session_id", msg.SessionID).Msg("replayed frame discarded")
		return Result{Outcome: OutcomeDuplicate}
	}

	start := time.Now()

	norm := normalize.Message(msg)
	if norm.Rejected > 0 {
		logging.CtxWarn(ctx).Int("rejected", norm.Rejected).Str("session_id", msg.SessionID).Msg("module sub-objects could not be attributed")
	}

	evt := e.synth.Synthesize(msg, norm.Outputs, receivedAt)
	if len(norm.Duplicates) > 0 {
		evt.Annotations = append(evt.Annotations, models.AnnotationDuplicateModuleOutput)
	}
	res := e.store.Apply(state.Commit{
		Outputs:    norm.Outputs,
		Processing: norm.Processing,
		Event:      evt,
		At:         receivedAt,
	})

	e.metricsStore.EventsStored++
	e.metricsStore.LastProcessedAt = receivedAt
	metrics.RecordSynthesis(res.Event.Severity.String(), softFlags(norm.Outputs), time.Since(start))
	metrics.RetainedEvents.Set(float64(e.store.Snapshot().Summary.RetainedEvents))

	if res.Event.Severity >= models.SeverityHigh {
		logging.CtxInfo(ctx).
			Str("event_id", res.Event.ID).
			Str("session_id", res.Event.SessionID).
			Str("severity", res.Event.Severity.String()).
			Str("threat_type", res.Event.ThreatType).
			Float64("score", res.Event.AggregateScore).
			Msg("threat event")
	}

	e.recordTransitions(res.Transitions)
	e.fanOut(ctx, &res.Event, res.Transitions)

	return Result{Outcome: OutcomeEvent, Event: res.Event}
}

// Tick ages module statuses and refreshes the stale indicator. The ingestion
// controller calls it periodically from its loop.
func (e *Engine) Tick(ctx context.Context, now time.Time) []registry.Transition {
	e.mu.Lock()
	defer e.mu.Unlock()

	transitions := e.store.Tick(now)
	for _, tr := range transitions {
		logging.CtxInfo(ctx).Str("module", tr.ModuleID).Str("from", string(tr.From)).Msg("module went offline")
	}
	e.recordTransitions(transitions)

	stale := e.isStale(now)
	if stale != e.stale {
		e.stale = stale
		metrics.SetStale(stale)
		if stale {
			logging.CtxWarn(ctx).Time("last_message_at", e.lastMessageAt).Msg("stream is stale")
		}
	}

	if e.dedupe != nil {
		e.dedupe.CleanupExpired()
	}

	if e.broadcaster != nil {
		if len(transitions) > 0 {
			e.broadcaster.BroadcastJSON(MessageModuleStatus, e.statusUpdate(transitions))
		}
		e.broadcaster.BroadcastJSON(MessageSummaryUpdate, e.store.Snapshot().Summary)
	}
	return transitions
}

// Stale reports whether no message has arrived within the registry's
// staleness threshold.
func (e *Engine) Stale() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isStale(e.now())
}

// StalenessThreshold returns how long the stream may be silent before it is
// considered stale.
func (e *Engine) StalenessThreshold() time.Duration {
	return e.store.StalenessThreshold()
}

// LastMessageAt returns the receipt time of the most recent frame of any kind.
func (e *Engine) LastMessageAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastMessageAt
}

// Metrics returns a copy of the engine metrics.
func (e *Engine) Metrics() EngineMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metricsStore
}

func (e *Engine) touch(at time.Time) {
	e.lastMessageAt = at
	if e.stale {
		e.stale = false
		metrics.SetStale(false)
	}
}

func (e *Engine) isStale(now time.Time) bool {
	if e.lastMessageAt.IsZero() {
		return true
	}
	return now.Sub(e.lastMessageAt) > e.store.StalenessThreshold()
}

func (e *Engine) recordTransitions(transitions []registry.Transition) {
	for _, tr := range transitions {
		metrics.SetModuleStatus(tr.ModuleID, string(tr.To))
	}
}

// fanOut pushes the event to operator clients and the message bus. Neither
// target can fail ingestion.
func (e *Engine) fanOut(ctx context.Context, evt *models.ThreatEvent, transitions []registry.Transition) {
	if e.broadcaster != nil {
		e.broadcaster.BroadcastJSON(MessageThreatEvent, evt)
		if len(transitions) > 0 {
			e.broadcaster.BroadcastJSON(MessageModuleStatus, e.statusUpdate(transitions))
		}
		e.broadcaster.BroadcastJSON(MessageSummaryUpdate, e.store.Snapshot().Summary)
	}

	if e.publisher != nil {
		if err := e.publisher.PublishEvent(ctx, evt); err != nil {
			e.metricsStore.PublishErrors++
			if e.publishLog.Allow() {
				logging.CtxWarn(ctx).Err(err).
					Str("event_id", evt.ID).
					Int64("publish_errors", e.metricsStore.PublishErrors).
					Msg("failed to publish event")
			} else {
				metrics.PublishLogsSuppressed.Inc()
			}
		}
	}
}

func (e *Engine) statusUpdate(transitions []registry.Transition) ModuleStatusUpdate {
	snap := e.store.Snapshot()
	update := ModuleStatusUpdate{Modules: make([]models.ModuleStatus, 0, len(transitions))}
	for _, tr := range transitions {
		if st, ok := snap.Module(tr.ModuleID); ok {
			update.Modules = append(update.Modules, st)
		}
	}
	return update
}

// softFlags collects the soft validation flags raised across outputs.
func softFlags(outputs []models.ModuleOutput) []string {
	var flags []string
	for i := range outputs {
		for _, f := range models.SoftFlags {
			if outputs[i].HasFlag(f) {
				flags = append(flags, f)
			}
		}
	}
	return flags
}
