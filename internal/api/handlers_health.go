// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/threatlens/internal/ingest"
)

// LiveStatus is the liveness probe payload.
type LiveStatus struct {
	Alive   bool    `json:"alive"`
	Version string  `json:"version"`
	Uptime  float64 `json:"uptime_seconds"`
}

// ReadyStatus is the readiness probe payload.
type ReadyStatus struct {
	Ready         bool   `json:"ready"`
	Reason        string `json:"reason,omitempty"`
	Stream        string `json:"stream"`
	Stale         bool   `json:"stale"`
	ModulesOnline int    `json:"modules_online"`
}

// HealthLive handles GET /api/v1/health/live. It reports 200 whenever the
// process can serve HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, LiveStatus{
		Alive:   true,
		Version: h.version,
		Uptime:  time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles GET /api/v1/health/ready. With a live stream
// configured, the service is ready only while connected and not stale.
// Without one (replay mode) it is always ready.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	snap := h.state.Snapshot()
	status := ReadyStatus{
		Ready:         true,
		Stream:        "none",
		ModulesOnline: snap.Summary.ModulesOnline,
	}

	if h.conn != nil {
		st := h.conn.Status()
		status.Stream = st.State.String()
		status.Stale = h.state.Stale()
		switch {
		case st.State != ingest.StateConnected:
			status.Ready = false
			status.Reason = "stream not connected"
		case status.Stale:
			status.Ready = false
			status.Reason = "stream stale"
		}
	}

	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	NewResponseWriter(w, r).Status(code, status)
}
