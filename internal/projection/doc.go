// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

// Package projection is the read-side query layer over state snapshots.
//
// Every function is pure: it holds no state, never mutates its input and
// returns freshly allocated slices, so the same snapshot and query always
// produce the same result.
//
//	snap := store.Snapshot()
//	events := projection.Events(snap, projection.Query{
//	    Filter: projection.Filter{Severities: []models.Severity{models.SeverityCritical}},
//	    Search: "manipulation",
//	    Sort:   projection.SortScore,
//	    Limit:  25,
//	})
package projection
