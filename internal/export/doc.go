// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

/*
Package export renders retained threat events for SIEM and log pipelines.

Two formats are supported:

  - JSON Lines (json, jsonl, ndjson): one ThreatEvent object per line,
    the same shape the REST API returns.
  - CEF (cef): ArcSight Common Event Format, one line per event.

CEF mapping:

	Signature ID   threat_type (or "threat_event")
	Name           message (or "<severity> <threat_type>")
	Severity       Low=3 Medium=5 High=8 Critical=10
	rt / start     receipt time / producer time (epoch millis)
	externalId     event ID
	act            recommended action
	cs1            session ID
	cs2            contributing module IDs
	cs3            source label
	cs4            synthesis annotations
	cfp1           normalized score

Usage:

	exp, err := export.ForFormat(r.URL.Query().Get("format"), version)
	if err != nil {
	    // 400
	}
	body, _ := exp.Export(events)
	w.Header().Set("Content-Type", exp.ContentType())
*/
package export
