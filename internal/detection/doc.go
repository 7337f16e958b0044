// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

// Package detection wires the synthesis pipeline together.
//
// Pipeline:
//
//	frame -> decode -> control? -> replay? -> normalize -> synthesize -> store.Apply
//	                                                                        |
//	                                                     +------------------+-----------+
//	                                                     v                              v
//	                                          WebSocket broadcast           message bus publish
//
// The Engine is the only writer to the state store. Control frames
// (heartbeat, heartbeat_response, ping, pong) and replayed frames are counted
// and discarded without touching the store. Undecodable frames are the only
// error Handle returns; the ingestion controller logs and drops them.
//
// Data faults never fail a frame: the normalizer clamps and flags, and the
// synthesizer annotates the event instead.
package detection
