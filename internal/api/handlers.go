// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package api

import (
	"time"

	"github.com/tomtom215/threatlens/internal/eventprocessor"
	"github.com/tomtom215/threatlens/internal/ingest"
	"github.com/tomtom215/threatlens/internal/state"
	ws "github.com/tomtom215/threatlens/internal/websocket"
)

// StateSource is the read side of the detection engine.
type StateSource interface {
	Snapshot() *state.Snapshot
	Stale() bool
	LastMessageAt() time.Time
	StalenessThreshold() time.Duration
}

// ConnectionSource reports the ingestion controller's connectivity.
type ConnectionSource interface {
	Status() ingest.Status
}

// PublisherSource reports event bus publisher counters.
type PublisherSource interface {
	Stats() eventprocessor.PublisherStats
}

// Handler contains dependencies for API handlers. Every handler reads one
// snapshot and answers from it, so a response is always internally
// consistent even while ingestion continues.
type Handler struct {
	state     StateSource
	conn      ConnectionSource // nil when no live stream is configured
	publisher PublisherSource  // nil when publishing is disabled
	wsHub     *ws.Hub          // nil disables /ws
	origins   func(string) bool
	version   string
	startTime time.Time
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithConnection reports controller status at /connection and in readiness.
func WithConnection(c ConnectionSource) HandlerOption {
	return func(h *Handler) { h.conn = c }
}

// WithPublisher reports publisher counters at /connection.
func WithPublisher(p PublisherSource) HandlerOption {
	return func(h *Handler) { h.publisher = p }
}

// WithHub enables the operator websocket.
func WithHub(hub *ws.Hub) HandlerOption {
	return func(h *Handler) { h.wsHub = hub }
}

// WithVersion sets the version reported by health endpoints.
func WithVersion(v string) HandlerOption {
	return func(h *Handler) { h.version = v }
}

// NewHandler creates a handler reading from src.
func NewHandler(src StateSource, opts ...HandlerOption) *Handler {
	h := &Handler{
		state:     src,
		version:   "dev",
		startTime: time.Now(),
		origins:   func(string) bool { return true },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ConnectionView is the connectivity indicator: controller state plus the
// engine's staleness verdict.
type ConnectionView struct {
	Stream             *ingest.Status                 `json:"stream,omitempty"`
	Stale              bool                           `json:"stale"`
	LastMessageAt      time.Time                      `json:"last_message_at,omitempty"`
	StalenessThreshold string                         `json:"staleness_threshold"`
	Publisher          *eventprocessor.PublisherStats `json:"publisher,omitempty"`
}

func (h *Handler) connectionView() ConnectionView {
	view := ConnectionView{
		Stale:              h.state.Stale(),
		LastMessageAt:      h.state.LastMessageAt(),
		StalenessThreshold: h.state.StalenessThreshold().String(),
	}
	if h.conn != nil {
		st := h.conn.Status()
		view.Stream = &st
	}
	if h.publisher != nil {
		stats := h.publisher.Stats()
		view.Publisher = &stats
	}
	return view
}
