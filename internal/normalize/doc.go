// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

// Package normalize canonicalizes a single module's result into a ModuleOutput.
//
// The normalizer favors availability over strictness. Apart from an empty
// module identifier (ErrEmptyModuleID) it always returns a best-effort record:
//
//   - score and confidence are coerced to numbers and clamped to [0,1]
//   - missing numeric fields default to 0; non-numeric ones add normalization_error
//   - flags and evidence default to empty sequences
//   - an unrecognized recommended_action becomes Review plus invalid_recommended_action
//
// Both the compact transport shape ({score, threats, analysis, status}) and
// the full producer schema (module_name, score, flags, notes, timestamp,
// confidence, recommended_action, evidence, schema_version, extra) are read.
package normalize
