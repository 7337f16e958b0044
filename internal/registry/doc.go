// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

// Package registry tracks detection-module liveness.
//
// Status is derived from observed outputs only:
//
//	offline ──Record──▶ online ──Tick(stale)──▶ offline
//	   │                  ▲
//	   └─MarkProcessing─▶ processing
//
// Every known module starts offline and stays offline until an output is
// recorded for it. There is no API that sets a module online directly.
package registry
