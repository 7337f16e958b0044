// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

// Package state is the aggregate state store: the single owner of every
// synthesized event, module status and summary counter.
//
// # Bounded Views
//
//	event log   100  every event
//	timeline     50  every event, reduced to a plot point
//	evidence     20  only events that carried evidence
//
// Each view is a FIFO ring evicted independently and strictly by arrival
// order. Summary counters (severity counts, average score, threats detected)
// are recomputed from the retained log on every mutation; TotalEvents and
// SessionCount are cumulative. SessionCount is exact up to SeenCapacity
// distinct sessions (100000 by default); past that the least recently active
// are forgotten and counted again if they return.
//
// # Concurrency
//
// There is exactly one writer (the ingestion path). Every mutation publishes
// a fresh immutable Snapshot through an atomic pointer:
//
//	snap := store.Snapshot()   // lock-free, never blocks the writer
//	for _, evt := range snap.Events { ... }
package state
