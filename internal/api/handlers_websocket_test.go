// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	ws "github.com/tomtom215/threatlens/internal/websocket"
)

func TestWebSocket_SnapshotThenBroadcast(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := ws.NewHub(ws.DefaultHubConfig())
	go func() { _ = hub.RunWithContext(ctx) }()

	srv := httptest.NewServer(newTestRouter(t, newTestState(t), WithHub(hub)))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.Body != nil {
		resp.Body.Close()
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first struct {
		Type string        `json:"type"`
		Data SnapshotFrame `json:"data"`
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if err := json.Unmarshal(raw, &first); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if first.Type != ws.MessageTypeSnapshot {
		t.Fatalf("first frame type = %q", first.Type)
	}
	if len(first.Data.Events) != 4 || first.Data.Events[0].ID != "evt-4" {
		t.Errorf("snapshot events = %d, first %q", len(first.Data.Events), first.Data.Events[0].ID)
	}
	if first.Data.Summary.TotalEvents != 4 {
		t.Errorf("snapshot summary = %+v", first.Data.Summary)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	hub.BroadcastJSON("summary_update", map[string]int{"total_events": 5})

	var next ws.Message
	_, raw, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if err := json.Unmarshal(raw, &next); err != nil {
		t.Fatal(err)
	}
	if next.Type != "summary_update" {
		t.Errorf("second frame type = %q", next.Type)
	}
}

func TestWebSocket_Origin(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub(ws.DefaultHubConfig())
	cfg := DefaultChiMiddlewareConfig()
	cfg.CORSAllowedOrigins = []string{"https://soc.example"}
	h := NewHandler(newTestState(t), WithHub(hub))
	NewRouter(h, cfg)

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://soc.example", true},
		{"https://evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := h.checkWebSocketOrigin(req); got != tt.want {
				t.Errorf("checkWebSocketOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestWebSocket_NoHub(t *testing.T) {
	t.Parallel()

	code, env := get(t, newTestRouter(t, newTestState(t)), "/api/v1/ws")
	if code != http.StatusServiceUnavailable || env.Error == nil {
		t.Errorf("status = %d, error = %+v", code, env.Error)
	}
}
