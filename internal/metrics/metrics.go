// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons for MessagesDropped.
const (
	DropMalformed = "malformed"
	DropDuplicate = "duplicate"
	DropControl   = "control"
)

// Connection state gauge values.
const (
	ConnDisconnected = 0
	ConnConnecting   = 1
	ConnConnected    = 2
)

var (
	// Ingestion Metrics
	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatlens_messages_received_total",
			Help: "Total number of transport frames received",
		},
		[]string{"source"}, // websocket, nats, replay
	)

	MessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatlens_messages_dropped_total",
			Help: "Total number of frames dropped before synthesis",
		},
		[]string{"reason"},
	)

	MalformedLogsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threatlens_malformed_logs_suppressed_total",
			Help: "Malformed-frame warnings skipped by the log rate limiter",
		},
	)

	PublishLogsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threatlens_publish_error_logs_suppressed_total",
			Help: "Publish failure warnings skipped by the log rate limiter",
		},
	)

	HeartbeatsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threatlens_heartbeats_sent_total",
			Help: "Total number of heartbeat frames sent to the producer",
		},
	)

	ConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "threatlens_connection_state",
			Help: "Stream connection state (0=disconnected, 1=connecting, 2=connected)",
		},
	)

	ReconnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threatlens_reconnect_attempts_total",
			Help: "Total number of connection attempts after the first",
		},
	)

	StreamStale = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "threatlens_stream_stale",
			Help: "1 when no message has arrived within the staleness threshold",
		},
	)

	// Synthesis Metrics
	EventsSynthesized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatlens_events_synthesized_total",
			Help: "Total number of synthesized threat events",
		},
		[]string{"severity"},
	)

	NormalizationFlags = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatlens_normalization_flags_total",
			Help: "Soft validation flags raised while normalizing module outputs",
		},
		[]string{"flag"},
	)

	SynthesisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "threatlens_synthesis_duration_seconds",
			Help:    "Time from decoded frame to published snapshot",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
	)

	ModuleStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "threatlens_module_status",
			Help: "Module status (0=offline, 1=processing, 2=online)",
		},
		[]string{"module"},
	)

	RetainedEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "threatlens_retained_events",
			Help: "Current length of the bounded event log",
		},
	)

	// Fan-out Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatlens_events_published_total",
			Help: "Synthesized events handed to the message bus",
		},
		[]string{"result"}, // success, failure
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of operator WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordMessage records a received frame
func RecordMessage(source string) {
	MessagesReceived.WithLabelValues(source).Inc()
}

// RecordDrop records a frame dropped before synthesis
func RecordDrop(reason string) {
	MessagesDropped.WithLabelValues(reason).Inc()
}

// RecordSynthesis records one synthesized event
func RecordSynthesis(severity string, flags []string, duration time.Duration) {
	EventsSynthesized.WithLabelValues(severity).Inc()
	for _, f := range flags {
		NormalizationFlags.WithLabelValues(f).Inc()
	}
	SynthesisDuration.Observe(duration.Seconds())
}

// SetModuleStatus records a module status transition
func SetModuleStatus(module string, status string) {
	v := 0.0
	switch status {
	case "processing":
		v = 1
	case "online":
		v = 2
	}
	ModuleStatus.WithLabelValues(module).Set(v)
}

// SetConnectionState records the controller state
func SetConnectionState(state int) {
	ConnectionState.Set(float64(state))
}

// SetStale records the stream staleness indicator
func SetStale(stale bool) {
	if stale {
		StreamStale.Set(1)
		return
	}
	StreamStale.Set(0)
}

// Publish results
const (
	PublishSuccess = "success"
	PublishFailure = "failure"
	PublishDropped = "dropped"
)

// RecordPublish records a bus publish outcome
func RecordPublish(result string) {
	EventsPublished.WithLabelValues(result).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordBreakerTransition records a circuit breaker state change
func RecordBreakerTransition(name, from, to string, state int) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
