// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/threatlens/internal/detection"
	"github.com/tomtom215/threatlens/internal/eventprocessor"
	"github.com/tomtom215/threatlens/internal/ingest"
	"github.com/tomtom215/threatlens/internal/models"
	"github.com/tomtom215/threatlens/internal/state"
	"github.com/tomtom215/threatlens/internal/synthesis"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testState wraps a real engine so staleness can be forced.
type testState struct {
	*detection.Engine
	stale bool
}

func (s *testState) Stale() bool { return s.stale }

type fixedConn struct{ status ingest.Status }

func (c fixedConn) Status() ingest.Status { return c.status }

type fixedPublisher struct{ stats eventprocessor.PublisherStats }

func (p fixedPublisher) Stats() eventprocessor.PublisherStats { return p.stats }

var testFrames = []string{
	`{"session_id":"s1","severity":"Low","threat_type":"Recon","score":20,"timestamp":"2026-03-01T12:00:00Z"}`,
	`{"session_id":"s2","severity":"Critical","threat_type":"Prompt_Injection","score":95,"message":"ignore previous instructions","tdc_ai4_prompt_injection":{"score":0.95,"threats":3,"evidence":["override phrase"]}}`,
	`{"session_id":"s1","severity":"Medium","threat_type":"Recon","score":40}`,
	`{"session_id":"s3","tdc_ai2_ai_manipulation_tactics":{"score":0.85,"threats":1,"evidence":[{"type":"pattern","data":"urgency"}]}}`,
}

func newTestState(t *testing.T) *testState {
	t.Helper()
	e := detection.NewEngine(detection.DefaultEngineConfig(), state.New(state.DefaultConfig()), synthesis.New(synthesis.DefaultConfig()))
	for i, f := range testFrames {
		if _, err := e.Handle(context.Background(), []byte(f), t0.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("Handle(%d): %v", i, err)
		}
	}
	return &testState{Engine: e}
}

func newTestRouter(t *testing.T, st StateSource, opts ...HandlerOption) http.Handler {
	t.Helper()
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	return NewRouter(NewHandler(st, opts...), cfg).SetupChi()
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func get(t *testing.T, h http.Handler, target string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&env); err != nil {
		t.Fatalf("GET %s: decode %q: %v", target, rec.Body.String(), err)
	}
	return rec.Code, env
}

func eventIDs(t *testing.T, raw json.RawMessage) []string {
	t.Helper()
	var events []models.ThreatEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	ids := make([]string, 0, len(events))
	for i := range events {
		ids = append(ids, events[i].ID)
	}
	return ids
}

func TestEvents_Queries(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, newTestState(t))

	tests := []struct {
		name      string
		target    string
		wantIDs   []string
		wantTotal int
	}{
		{"default newest first", "/api/v1/events", []string{"evt-4", "evt-3", "evt-2", "evt-1"}, 4},
		{"oldest first", "/api/v1/events?sort=time_asc", []string{"evt-1", "evt-2", "evt-3", "evt-4"}, 4},
		{"limit keeps total", "/api/v1/events?limit=2", []string{"evt-4", "evt-3"}, 4},
		{"by type", "/api/v1/events?type=recon", []string{"evt-3", "evt-1"}, 2},
		{"by severity list", "/api/v1/events?severity=critical,high", []string{"evt-4", "evt-2"}, 2},
		{"by module spelling", "/api/v1/events?module=tdc_ai4", []string{"evt-2"}, 1},
		{"search message", "/api/v1/events?q=IGNORE", []string{"evt-2"}, 1},
		{"severity sort", "/api/v1/events?sort=severity", []string{"evt-4", "evt-2", "evt-3", "evt-1"}, 4},
		{"no matches", "/api/v1/events?type=nothing", []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, env := get(t, router, tt.target)
			if code != http.StatusOK || !env.Success {
				t.Fatalf("status = %d, error = %+v", code, env.Error)
			}
			if diff := cmp.Diff(tt.wantIDs, eventIDs(t, env.Data)); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
			if env.Meta == nil || env.Meta.Total == nil || *env.Meta.Total != tt.wantTotal {
				t.Errorf("meta = %+v, want total %d", env.Meta, tt.wantTotal)
			}
			if env.Meta.SnapshotVersion == 0 {
				t.Error("snapshot version missing")
			}
		})
	}
}

func TestEvents_RejectsBadQueries(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, newTestState(t))

	tests := []struct {
		name     string
		target   string
		wantCode string
	}{
		{"non-integer limit", "/api/v1/events?limit=ten", ErrCodeBadRequest},
		{"limit too large", "/api/v1/events?limit=5000", ErrCodeValidationFailed},
		{"unknown severity", "/api/v1/events?severity=extreme", ErrCodeValidationFailed},
		{"unknown module", "/api/v1/events?module=firewall", ErrCodeValidationFailed},
		{"unknown sort", "/api/v1/events?sort=random", ErrCodeValidationFailed},
		{"bad time", "/api/v1/events?from=yesterday", ErrCodeValidationFailed},
		{"inverted range", "/api/v1/events?from=2026-03-02T00:00:00Z&to=2026-03-01T00:00:00Z", ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, env := get(t, router, tt.target)
			if code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", code)
			}
			if env.Success || env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
			}
		})
	}
}

func TestEvent_ByID(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, newTestState(t))

	code, env := get(t, router, "/api/v1/events/evt-2")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var evt models.ThreatEvent
	if err := json.Unmarshal(env.Data, &evt); err != nil {
		t.Fatal(err)
	}
	if evt.SessionID != "s2" || evt.Severity != models.SeverityCritical {
		t.Errorf("event = %+v", evt)
	}

	if code, _ := get(t, router, "/api/v1/events/evt-99"); code != http.StatusNotFound {
		t.Errorf("missing event status = %d, want 404", code)
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, newTestState(t))

	code, env := get(t, router, "/api/v1/summary")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var sum state.Summary
	if err := json.Unmarshal(env.Data, &sum); err != nil {
		t.Fatal(err)
	}
	if sum.TotalEvents != 4 || sum.SessionCount != 3 {
		t.Errorf("summary = %+v", sum)
	}
	// The TDC-AI2 verdict of 0.85 is above the 0.8 Critical boundary.
	if sum.SeverityCounts.Get(models.SeverityCritical) != 2 {
		t.Errorf("critical count = %d, want 2", sum.SeverityCounts.Get(models.SeverityCritical))
	}
}

func TestModules(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, newTestState(t))

	code, env := get(t, router, "/api/v1/modules")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var all []models.ModuleStatus
	if err := json.Unmarshal(env.Data, &all); err != nil {
		t.Fatal(err)
	}
	if len(all) == 0 || *env.Meta.Count != len(all) {
		t.Errorf("modules = %d, meta count = %v", len(all), env.Meta.Count)
	}

	for _, id := range []string{"TDC-AI4", "tdc_ai4", "tdc-ai4_prompt_injection"} {
		t.Run(id, func(t *testing.T) {
			code, env := get(t, router, "/api/v1/modules/"+id)
			if code != http.StatusOK {
				t.Fatalf("status = %d", code)
			}
			var st models.ModuleStatus
			if err := json.Unmarshal(env.Data, &st); err != nil {
				t.Fatal(err)
			}
			if st.ModuleID != "TDC-AI4" || st.LastThreatCount != 3 {
				t.Errorf("status = %+v", st)
			}
		})
	}

	if code, env := get(t, router, "/api/v1/modules/firewall"); code != http.StatusNotFound {
		t.Errorf("unknown module status = %d, error = %+v", code, env.Error)
	}
}

func TestBoundedViews(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, newTestState(t))

	tests := []struct {
		target    string
		wantCount int
	}{
		{"/api/v1/timeline", 4},
		{"/api/v1/timeline?limit=1", 1},
		{"/api/v1/evidence", 2},
		{"/api/v1/sessions", 3},
		{"/api/v1/sessions?limit=2", 2},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			t.Parallel()

			code, env := get(t, router, tt.target)
			if code != http.StatusOK {
				t.Fatalf("status = %d, error = %+v", code, env.Error)
			}
			if env.Meta == nil || env.Meta.Count == nil || *env.Meta.Count != tt.wantCount {
				t.Errorf("meta = %+v, want count %d", env.Meta, tt.wantCount)
			}
		})
	}

	if code, _ := get(t, router, "/api/v1/timeline?limit=-1"); code != http.StatusBadRequest {
		t.Errorf("negative limit status = %d, want 400", code)
	}
}

func TestSessions_MostRecentFirst(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, newTestState(t))

	_, env := get(t, router, "/api/v1/sessions")
	var sessions []models.Session
	if err := json.Unmarshal(env.Data, &sessions); err != nil {
		t.Fatal(err)
	}
	got := make([]string, 0, len(sessions))
	for _, s := range sessions {
		got = append(got, s.ID)
	}
	if diff := cmp.Diff([]string{"s3", "s1", "s2"}, got); diff != "" {
		t.Errorf("session order mismatch (-want +got):\n%s", diff)
	}
}

func TestConnection(t *testing.T) {
	t.Parallel()

	st := newTestState(t)
	st.stale = true
	router := newTestRouter(t, st,
		WithConnection(fixedConn{status: ingest.Status{State: ingest.StateConnecting, Source: "websocket", Attempts: 3}}),
		WithPublisher(fixedPublisher{stats: eventprocessor.PublisherStats{Published: 7}}),
	)

	code, env := get(t, router, "/api/v1/connection")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var view struct {
		Stream struct {
			State    string `json:"state"`
			Source   string `json:"source"`
			Attempts uint64 `json:"attempts"`
		} `json:"stream"`
		Stale              bool                          `json:"stale"`
		StalenessThreshold string                        `json:"staleness_threshold"`
		Publisher          eventprocessor.PublisherStats `json:"publisher"`
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatal(err)
	}
	if view.Stream.State != "connecting" || view.Stream.Attempts != 3 || !view.Stale {
		t.Errorf("view = %+v", view)
	}
	if view.StalenessThreshold != "1m30s" || view.Publisher.Published != 7 {
		t.Errorf("view = %+v", view)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	connected := fixedConn{status: ingest.Status{State: ingest.StateConnected}}
	disconnected := fixedConn{status: ingest.Status{State: ingest.StateDisconnected}}

	tests := []struct {
		name       string
		stale      bool
		conn       ConnectionSource
		wantStatus int
		wantReason string
	}{
		{"replay mode", true, nil, http.StatusOK, ""},
		{"connected and fresh", false, connected, http.StatusOK, ""},
		{"connected but stale", true, connected, http.StatusServiceUnavailable, "stream stale"},
		{"disconnected", false, disconnected, http.StatusServiceUnavailable, "stream not connected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st := newTestState(t)
			st.stale = tt.stale
			var opts []HandlerOption
			if tt.conn != nil {
				opts = append(opts, WithConnection(tt.conn))
			}
			router := newTestRouter(t, st, opts...)

			if code, _ := get(t, router, "/api/v1/health/live"); code != http.StatusOK {
				t.Errorf("live status = %d", code)
			}

			code, env := get(t, router, "/api/v1/health/ready")
			if code != tt.wantStatus {
				t.Fatalf("ready status = %d, want %d", code, tt.wantStatus)
			}
			var ready ReadyStatus
			if err := json.Unmarshal(env.Data, &ready); err != nil {
				t.Fatal(err)
			}
			if ready.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", ready.Reason, tt.wantReason)
			}
		})
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, newTestState(t))

	code, env := get(t, router, "/api/v1/nope")
	if code != http.StatusNotFound || env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("status = %d, error = %+v", code, env.Error)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}
}

func TestRouter_RequestIDEchoed(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, newTestState(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/summary", nil)
	req.Header.Set("X-Request-ID", "req-abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-abc" {
		t.Errorf("X-Request-ID = %q", got)
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Meta == nil || env.Meta.RequestID != "req-abc" {
		t.Errorf("meta = %+v", env.Meta)
	}
}
