// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/threatlens/internal/logging"
	"github.com/tomtom215/threatlens/internal/models"
	"github.com/tomtom215/threatlens/internal/projection"
	"github.com/tomtom215/threatlens/internal/state"
	ws "github.com/tomtom215/threatlens/internal/websocket"
)

// snapshotEvents bounds the events included in the initial websocket frame.
const snapshotEvents = 100

// SnapshotFrame is the first frame every operator client receives.
type SnapshotFrame struct {
	Version    uint64                `json:"version"`
	Summary    state.Summary         `json:"summary"`
	Modules    []models.ModuleStatus `json:"modules"`
	Events     []models.ThreatEvent  `json:"events"` // Newest first
	Connection ConnectionView        `json:"connection"`
}

func (h *Handler) snapshotFrame() SnapshotFrame {
	snap := h.state.Snapshot()
	return SnapshotFrame{
		Version:    snap.Version,
		Summary:    snap.Summary,
		Modules:    snap.Modules,
		Events:     projection.Events(snap, projection.Query{Sort: projection.SortNewest, Limit: snapshotEvents}),
		Connection: h.connectionView(),
	}
}

func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  4096,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin allows non-browser clients (no Origin header) and
// browsers from a configured CORS origin.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if h.origins(origin) {
		return true
	}
	logging.CtxWarn(r.Context()).Str("origin", origin).Msg("websocket connection rejected from unauthorized origin")
	return false
}

// WebSocket handles GET /api/v1/ws. The client receives a snapshot frame,
// then every broadcast frame in order.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		NewResponseWriter(w, r).ServiceUnavailable("websocket service unavailable")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.CtxDebug(r.Context()).Err(err).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Enqueue(ws.Message{Type: ws.MessageTypeSnapshot, Data: h.snapshotFrame()})
	if !h.wsHub.Register(client) {
		logging.CtxWarn(r.Context()).Msg("websocket hub stopped, closing connection")
		_ = conn.Close()
		return
	}
	client.Start()
}
