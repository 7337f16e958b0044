// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

/*
Package main is the entry point for the ThreatLens server.

ThreatLens consumes the analysis stream of a multi-module threat detector
(the TDC-AI modules), normalizes each module's output, synthesizes a
ThreatEvent per message and keeps a bounded live picture: recent events,
a score timeline, an evidence log, module availability and session
activity. The picture is served over a REST API and pushed to operator
dashboards over WebSocket.

# Commands

	threatlens [serve]            ingest the live stream and serve the API
	threatlens replay <file>      feed recorded frames through the engine
	threatlens --config path.yaml use an explicit config file

# Application Architecture

The serve command runs a Suture v4 supervisor tree:

	RootSupervisor ("threatlens")
	├── IngestSupervisor ("ingest-layer")
	│   └── Ingestion controller (websocket or nats source)
	│       or engine ticker when INGEST_SOURCE=none
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket hub (operator dashboards)
	│   └── Event publisher (optional, PUBLISH_ENABLED=true)
	└── APISupervisor ("api-layer")
	    └── HTTP server

Component initialization order:

 1. Configuration: Koanf v2 defaults, optional YAML file, environment
 2. Logging: zerolog, with slog and watermill adapters
 3. Engine: state store, synthesizer, detection engine
 4. Fan-out: websocket hub, optional watermill publisher
 5. Ingestion: source plus controller with backoff and circuit breaker
 6. HTTP: chi router with CORS, rate limiting and Prometheus metrics

A failing ingestion source is restarted inside the ingest layer; the API
keeps answering from the last snapshot and readiness reports the stream
as disconnected or stale until it recovers.

# Replay

Replay reads one transport frame per line (JSONL) and routes each through
the same engine path as live ingestion, so duplicate, control and
malformed frames are handled exactly as on the wire. The resulting
report is printed as JSON:

	threatlens replay session.jsonl
	cat session.jsonl | threatlens replay -

# Configuration

See internal/config for every setting. The most common:

	STREAM_URL=ws://detector:8765/stream
	INGEST_SOURCE=websocket|nats|none
	HEARTBEAT_INTERVAL=30s
	HTTP_PORT=8080
	CORS_ORIGINS=https://dashboard.example.com
	LOG_LEVEL=info
	LOG_FORMAT=json
*/
package main
