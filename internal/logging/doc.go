// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

// Package logging provides centralized zerolog-based structured logging for ThreatLens.
//
// Every component logs through the package-level facade so that the stream
// controller, the synthesis engine, the HTTP API and the supervisor tree
// all write to one JSON stream.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("source", "websocket").Msg("connected")
//	logging.Error().Err(err).Int("attempt", n).Msg("dial failed")
//
// # Context Fields
//
// The ingestion controller tags each connection with a correlation ID and
// each frame with the analyzed session ID. Ctx picks both up:
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	ctx = logging.ContextWithSessionID(ctx, msg.SessionID)
//	logging.Ctx(ctx).Debug().Msg("frame applied")
//
// # Adapters
//
// Two adapters route third-party loggers into zerolog:
//
//	slogger := logging.NewSlogLogger()          // suture supervisor events
//	wmLogger := logging.NewWatermillLogger()    // event bus publisher
//
// # Configuration
//
// The config package maps LOG_LEVEL, LOG_FORMAT and LOG_CALLER onto Config.
// THREATLENS_QUIET_TESTS=1 disables output before Init is called.
package logging
