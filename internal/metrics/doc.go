// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto at
package initialization and exposed at /metrics by the API router:

	curl http://localhost:8088/metrics

# Available Metrics

Ingestion:
  - threatlens_messages_received_total{source}
  - threatlens_messages_dropped_total{reason}: malformed, duplicate, control
  - threatlens_malformed_logs_suppressed_total
  - threatlens_heartbeats_sent_total
  - threatlens_connection_state: 0=disconnected, 1=connecting, 2=connected
  - threatlens_reconnect_attempts_total
  - threatlens_stream_stale

Synthesis:
  - threatlens_events_synthesized_total{severity}
  - threatlens_normalization_flags_total{flag}
  - threatlens_synthesis_duration_seconds
  - threatlens_module_status{module}: 0=offline, 1=processing, 2=online
  - threatlens_retained_events
  - threatlens_events_published_total{result}

API and WebSocket:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests
  - websocket_connections, websocket_messages_sent_total, websocket_errors_total{error_type}

Circuit Breaker:
  - circuit_breaker_state{name}: 0=closed, 1=half-open, 2=open
  - circuit_breaker_state_transitions_total{name,from_state,to_state}

# Usage

	metrics.RecordMessage("websocket")
	metrics.RecordSynthesis(evt.Severity.String(), flags, time.Since(start))
	metrics.SetConnectionState(metrics.ConnConnected)

# Testing

Use prometheus/testutil to read counter values:

	before := testutil.ToFloat64(metrics.MessagesDropped.WithLabelValues("malformed"))
*/
package metrics
