// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/threatlens/internal/projection"
	"github.com/tomtom215/threatlens/internal/registry"
	"github.com/tomtom215/threatlens/internal/validation"
)

// Events handles GET /api/v1/events: filter, then search, then sort
// (newest arrival first by default), then limit.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req, err := parseEventsRequest(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}
	q, err := req.ToQuery()
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	snap := h.state.Snapshot()
	limit := q.Limit
	q.Limit = 0
	matched := projection.Events(snap, q)
	page := firstN(matched, limit)

	total, count := len(matched), len(page)
	rw.SuccessWithMeta(page, &APIMeta{
		SnapshotVersion: snap.Version,
		Count:           &count,
		Total:           &total,
	})
}

// Event handles GET /api/v1/events/{id}.
func (h *Handler) Event(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")

	snap := h.state.Snapshot()
	evt, ok := snap.Event(id)
	if !ok {
		rw.NotFound("event not retained: " + id)
		return
	}
	rw.SuccessWithMeta(evt, &APIMeta{SnapshotVersion: snap.Version})
}

// Summary handles GET /api/v1/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	snap := h.state.Snapshot()
	NewResponseWriter(w, r).SuccessWithMeta(projection.Summary(snap), &APIMeta{SnapshotVersion: snap.Version})
}

// Modules handles GET /api/v1/modules in enumeration order.
func (h *Handler) Modules(w http.ResponseWriter, r *http.Request) {
	snap := h.state.Snapshot()
	count := len(snap.Modules)
	NewResponseWriter(w, r).SuccessWithMeta(snap.Modules, &APIMeta{SnapshotVersion: snap.Version, Count: &count})
}

// Module handles GET /api/v1/modules/{id}. The identifier may use any
// transport spelling (TDC-AI4, tdc_ai4, tdc_ai4_prompt_injection).
func (h *Handler) Module(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")

	snap := h.state.Snapshot()
	status, err := projection.ModuleStatus(snap, id)
	if errors.Is(err, registry.ErrModuleNotFound) {
		rw.NotFound("module has never reported: " + id)
		return
	}
	if err != nil {
		rw.InternalError(err.Error())
		return
	}
	rw.SuccessWithMeta(status, &APIMeta{SnapshotVersion: snap.Version})
}

// Timeline handles GET /api/v1/timeline, oldest to newest.
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	h.boundedView(w, r, func(limit int) (interface{}, int, uint64) {
		snap := h.state.Snapshot()
		items := lastN(snap.Timeline, limit)
		return items, len(items), snap.Version
	})
}

// Evidence handles GET /api/v1/evidence, oldest to newest.
func (h *Handler) Evidence(w http.ResponseWriter, r *http.Request) {
	h.boundedView(w, r, func(limit int) (interface{}, int, uint64) {
		snap := h.state.Snapshot()
		items := lastN(snap.Evidence, limit)
		return items, len(items), snap.Version
	})
}

// Sessions handles GET /api/v1/sessions, most recently active first.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	h.boundedView(w, r, func(limit int) (interface{}, int, uint64) {
		snap := h.state.Snapshot()
		items := firstN(snap.Sessions, limit)
		return items, len(items), snap.Version
	})
}

func (h *Handler) boundedView(w http.ResponseWriter, r *http.Request, read func(limit int) (interface{}, int, uint64)) {
	rw := NewResponseWriter(w, r)

	req, err := parseLimitRequest(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	items, count, version := read(req.Limit)
	rw.SuccessWithMeta(items, &APIMeta{SnapshotVersion: version, Count: &count})
}

// Connection handles GET /api/v1/connection.
func (h *Handler) Connection(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.connectionView())
}
