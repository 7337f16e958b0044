// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

// Package models defines the data model shared by every ThreatLens component.
//
// # Types
//
//   - ModuleKind: closed variant over the eleven detection modules (TDC-AI1..TDC-AI11)
//     plus ModuleUnknown for identifiers outside the bank
//   - ModuleOutput: one module's normalized verdict on one turn
//   - ThreatEvent: the synthesized, immutable verdict for one turn
//   - ModuleStatus: inferred module liveness (offline, processing, online)
//   - Session: derived from session identifiers seen in events
//   - StreamMessage: one decoded inbound frame
//
// Severity is an ordered integer enumeration (Low < Medium < High < Critical)
// that encodes to and from its label in JSON. Action is the closed set of
// recommended responses with Review as the fallback.
//
// # Decoding
//
// DecodeStreamMessage only fails when the frame is not a JSON object.
// Every other fault (bad timestamp, non-numeric score, unknown severity)
// is carried on the message so the synthesizer can annotate the event.
package models
