// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

/*
Package cache provides the bounded in-memory structures behind the state
store and the ingestion controller.

# Structures

  - Ring: fixed-capacity FIFO. Backs the event log, timeline and evidence
    views. Eviction is strictly by arrival order.
  - LRU: generic least-recently-used map with optional TTL and an injectable
    clock. Backs the session table and the replay-dedupe fingerprint set.
  - SlidingWindowCounter: bucketed trailing-window counter. Backs the
    events-per-minute summary figure.

# Concurrency

LRU and SlidingWindowCounter are safe for concurrent use. Ring is not: it is
owned by the single writer that mutates the state store, which copies its
contents into each published snapshot.

# Usage Example

	seen := cache.NewLRU[string, time.Time](10000, 10*time.Minute)
	if seen.SeenBefore(msg.Fingerprint(), now) {
	    return // replayed frame
	}
*/
package cache
