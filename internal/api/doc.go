// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

/*
Package api provides the operator-facing HTTP and WebSocket surface.

Every endpoint is read-only. A handler takes one state snapshot and answers
entirely from it, so counters, lists, and metadata in a single response always
agree with each other.

Routes:

	GET /api/v1/health/live     liveness
	GET /api/v1/health/ready    readiness (503 while the stream is down or stale)
	GET /api/v1/events          filter, search, sort, limit
	GET /api/v1/events/{id}     one retained event
	GET /api/v1/events/export   same query as /events, as JSON Lines or CEF (?format=)
	GET /api/v1/summary         aggregate counters
	GET /api/v1/modules         all module statuses in enumeration order
	GET /api/v1/modules/{id}    one module, any identifier spelling
	GET /api/v1/timeline        recent severity timeline
	GET /api/v1/evidence        recent module evidence
	GET /api/v1/sessions        recently active sessions
	GET /api/v1/connection      stream connectivity and staleness
	GET /api/v1/ws              live operator feed
	GET /metrics                Prometheus exposition

Responses use the APIResponse envelope:

	{"success": true, "data": [...], "meta": {"snapshot_version": 42, "count": 10, "total": 57}}

The /events query accepts type, severity, and module (repeated or
comma-separated), from and to (RFC 3339), q (case-insensitive search), sort
(time, time_asc, timestamp, severity, score, session, type), and limit.

The websocket feed starts with a snapshot frame, then relays threat_event,
summary_update, module_status, and connection_state frames as the engine
produces them.
*/
package api
