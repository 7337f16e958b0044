// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

// Package synthesis combines the module outputs of one turn into a ThreatEvent.
//
// # Algorithm
//
//  1. Aggregate score: a top-level producer score is passed through verbatim;
//     otherwise the maximum module score, tie-broken by higher confidence and
//     then by module enumeration order.
//  2. Severity: a recognized top-level severity is passed through; otherwise
//     the normalized score is bucketed with the configured Thresholds
//     (exclusive lower bounds, default 0.25 / 0.5 / 0.8).
//  3. Recommended action: the highest-ranked contributing action, with
//     Review as the fallback.
//  4. A frame without module outputs still yields a (Low) event so session
//     activity stays accurate.
//
// Synthesis is pure and performs no I/O. Sequence numbers are assigned by the
// state store at append time so re-running synthesis on identical input
// yields an identical event.
package synthesis
