// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

/*
Package websocket pushes live state changes to operator dashboards.

It uses gorilla/websocket with a hub-client architecture: the Hub owns the
client set and fans every broadcast out to each client's buffered send
channel; each Client runs a readPump and a writePump goroutine.

	┌──────────┐
	│   Hub    │ ← detection.Engine, ingest.Controller (BroadcastJSON)
	└────┬─────┘
	     │
	┌────┴─────┬─────────┬─────────┐
	│ Client1  │ Client2 │ Client3 │
	└──────────┴─────────┴─────────┘

Frames are JSON objects {"type": ..., "data": ...}:

  - snapshot: full summary, modules and recent events, sent once on connect
  - threat_event: one synthesized ThreatEvent
  - summary_update: recomputed summary after every mutation and tick
  - module_status: modules whose status changed
  - connection_state: ingestion controller status
  - pong: reply to a client {"type":"ping"}

Broadcasting never blocks the caller. A full hub buffer drops the frame; a
client whose own buffer is full is disconnected and expected to reconnect and
reload the snapshot.

The hub runs as a suture service (Serve) and closes every client when its
context ends.
*/
package websocket
