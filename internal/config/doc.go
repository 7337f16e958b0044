// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

/*
Package config provides centralized configuration management for ThreatLens.

Configuration is loaded with Koanf v2 from three layers, later layers
overriding earlier ones:

 1. Built-in defaults
 2. Optional YAML file (CONFIG_PATH, config.yaml, /etc/threatlens/config.yaml)
 3. Environment variables, through an explicit mapping table

Unmapped environment variables are ignored.

Example config.yaml:

	ingest:
	  source: websocket
	  url: wss://analysis.internal/stream
	  heartbeat_interval: 30s
	  backoff_base: 1s
	  backoff_cap: 30s
	registry:
	  staleness_threshold: 90s
	synthesis:
	  thresholds:
	    medium: 0.25
	    high: 0.5
	    critical: 0.8
	store:
	  event_capacity: 100
	publish:
	  enabled: true
	  backend: nats
	  nats_url: nats://bus.internal:4222
	server:
	  port: 8080
	  cors_origins: [https://soc.example.com]
	logging:
	  level: info
	  format: json

Common environment variables:

	INGEST_SOURCE               websocket, nats or none
	STREAM_URL                  producer WebSocket endpoint (ws:// or wss://)
	NATS_URL, NATS_SUBJECT      producer NATS subscription
	HEARTBEAT_INTERVAL          outbound heartbeat cadence (0 disables)
	RECONNECT_BACKOFF_BASE/CAP  reconnect delay bounds
	MODULE_STALENESS_THRESHOLD  module offline threshold (0 derives 3x heartbeat)
	SEVERITY_MEDIUM/HIGH/CRITICAL
	PUBLISH_ENABLED, PUBLISH_BACKEND, PUBLISH_TOPIC
	HTTP_HOST, HTTP_PORT, CORS_ORIGINS
	LOG_LEVEL, LOG_FORMAT, LOG_CALLER

Validation runs go-playground/validator struct tags, then cross-field rules:
severity thresholds strictly increasing inside (0,1), backoff cap at least the
base, and an endpoint whose scheme matches the selected source kind.

The Config type converts itself into each component's own configuration
(ControllerConfig, StateConfig, SynthesizerConfig, PublisherConfig and so on)
so components never import this package.
*/
package config
