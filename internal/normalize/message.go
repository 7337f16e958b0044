// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package normalize

import (
	"slices"

	"github.com/tomtom215/threatlens/internal/models"
)

// Result is the normalized content of one stream frame.
type Result struct {
	// Outputs holds at most one verdict per module, in enumeration order.
	Outputs []models.ModuleOutput

	// Processing lists modules that reported work in progress without a score.
	// They update the registry but do not contribute to synthesis.
	Processing []models.ModuleOutput

	// Rejected counts sub-objects that could not be attributed to a module.
	Rejected int

	// Duplicates lists modules addressed by more than one transport key, in
	// enumeration order.
	Duplicates []string
}

// Message normalizes every module sub-object of a frame. When two transport
// keys address the same module the stronger verdict wins; on equal scores the
// key with a descriptive suffix wins.
func Message(msg *models.StreamMessage) Result {
	var res Result
	index := make(map[string]int, len(msg.Modules))
	keys := make([]string, 0, len(msg.Modules))

	for _, f := range msg.Modules {
		out, err := Field(f)
		if err != nil {
			res.Rejected++
			continue
		}
		if out.Processing {
			res.Processing = append(res.Processing, out)
			continue
		}
		if i, seen := index[out.ModuleID]; seen {
			if !slices.Contains(res.Duplicates, out.ModuleID) {
				res.Duplicates = append(res.Duplicates, out.ModuleID)
			}
			if prefer(out, f.Key, res.Outputs[i], keys[i]) {
				res.Outputs[i], keys[i] = out, f.Key
			}
			continue
		}
		index[out.ModuleID] = len(res.Outputs)
		res.Outputs = append(res.Outputs, out)
		keys = append(keys, f.Key)
	}

	return res
}

// prefer reports whether candidate a replaces the current output b.
func prefer(a models.ModuleOutput, aKey string, b models.ModuleOutput, bKey string) bool {
	if a.HasScore != b.HasScore {
		return a.HasScore
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if len(aKey) != len(bKey) {
		return len(aKey) > len(bKey)
	}
	return aKey > bKey
}
