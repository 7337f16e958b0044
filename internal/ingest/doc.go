// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

/*
Package ingest owns the connection to the threat-analysis producer.

# State Machine

	         +-------------------------------------------+
	         v                                           |
	Disconnected --> Connecting --> Connected --> Disconnected
	                     |                               ^
	                     +----------- dial error --------+

There is no terminal state. After every failure the controller waits
Backoff.Delay(consecutiveFailures) (1s doubling to a 30s cap by default) and
tries again, for as long as its context lives. A circuit breaker
(sony/gobreaker) wraps the dial step so a producer that is hard down is not
hammered with handshakes; while open, attempts fail fast and are backed off
like any other failure.

# Message Handling

A reader goroutine pulls frames off the connection; the Run goroutine
delivers them to the Sink (detection.Engine) one at a time, interleaved with
registry ticks and outbound heartbeats:

	{"type":"heartbeat"}   sent every HeartbeatInterval while connected

Malformed frames are logged through a token-bucket limiter
(golang.org/x/time/rate) and dropped; they never end the session. Every
connection attempt gets its own correlation ID, attached to all log lines for
frames received on it.

# Sources

  - WebSocketSource: gorilla/websocket client with read deadline
  - NATSSource: core NATS subject subscription (nats.go) with the client's
    own reconnect disabled so the controller's backoff stays authoritative
*/
package ingest
