// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

/*
Package middleware provides chi-compatible HTTP middleware for the read API.

  - RequestID: X-Request-ID propagation into the logging context (plus a
    correlation ID) and chi's request ID key
  - PrometheusMetrics: request count, latency and in-flight gauge labelled by
    chi route pattern
  - AccessLog: one structured log line per request

All response wrappers use chi's WrapResponseWriter so the websocket upgrade
at /api/v1/ws can still hijack the connection.

Typical stack:

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(middleware.PrometheusMetrics)
	    ...
	})
*/
package middleware
