// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/threatlens/internal/logging"
	"github.com/tomtom215/threatlens/internal/metrics"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{"generates", ""},
		{"preserves upstream", "upstream-id-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fromLogging, fromChi, correlation string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fromLogging = GetRequestID(r)
				fromChi = chimiddleware.GetReqID(r.Context())
				correlation = logging.CorrelationIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/summary", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if tt.incoming != "" && got != tt.incoming {
				t.Errorf("header = %q, want %q", got, tt.incoming)
			}
			if tt.incoming == "" {
				if _, err := uuid.Parse(got); err != nil {
					t.Errorf("generated ID %q is not a UUID: %v", got, err)
				}
			}
			if fromLogging != got || fromChi != got {
				t.Errorf("context IDs = %q / %q, want %q", fromLogging, fromChi, got)
			}
			if correlation == "" {
				t.Error("correlation ID not set")
			}
		})
	}
}

func TestPrometheusMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/api/v1/modules/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/api/v1/summary", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})

	tests := []struct {
		path    string
		pattern string
		status  string
	}{
		{"/api/v1/modules/TDC-AI99", "/api/v1/modules/{id}", "404"},
		{"/api/v1/summary", "/api/v1/summary", "200"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, tt.pattern, tt.status)
			before := testutil.ToFloat64(counter)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if got := testutil.ToFloat64(counter); got != before+1 {
				t.Errorf("api_requests_total{endpoint=%q,status=%q} = %v, want %v", tt.pattern, tt.status, got, before+1)
			}
		})
	}

	if got := testutil.ToFloat64(metrics.APIActiveRequests); got != 0 {
		t.Errorf("active requests = %v after completion", got)
	}
}

func TestAccessLog_PassesThrough(t *testing.T) {
	handler := AccessLog(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
}
