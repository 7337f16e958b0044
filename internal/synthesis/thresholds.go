// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package synthesis

import (
	"fmt"

	"github.com/tomtom215/threatlens/internal/models"
)

// Thresholds are exclusive lower bounds on the [0,1] score scale: a score
// must exceed Medium to be Medium, exceed High to be High and exceed Critical
// to be Critical.
type Thresholds struct {
	Medium   float64 `koanf:"medium" json:"medium"`
	High     float64 `koanf:"high" json:"high"`
	Critical float64 `koanf:"critical" json:"critical"`
}

// DefaultThresholds returns the documented boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 0.25, High: 0.5, Critical: 0.8}
}

// Validate checks that the boundaries are strictly increasing inside (0,1).
func (t Thresholds) Validate() error {
	if t.Medium <= 0 || t.Critical >= 1 {
		return fmt.Errorf("severity thresholds must lie in (0,1): medium=%v critical=%v", t.Medium, t.Critical)
	}
	if t.Medium >= t.High || t.High >= t.Critical {
		return fmt.Errorf("severity thresholds must be strictly increasing: %v < %v < %v", t.Medium, t.High, t.Critical)
	}
	return nil
}

// Bucket maps a [0,1] score to a severity.
func (t Thresholds) Bucket(score float64) models.Severity {
	switch {
	case score > t.Critical:
		return models.SeverityCritical
	case score > t.High:
		return models.SeverityHigh
	case score > t.Medium:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// AmbiguousScale reports whether a producer score could be either a
// percentage or a 0-10 rating. NormalizeScale reads it as a percentage.
func AmbiguousScale(score float64) bool {
	return score > 1 && score <= 10
}

// NormalizeScale maps a producer score onto [0,1]. Values above 1 are read
// as percentages.
func NormalizeScale(score float64) float64 {
	if score > 1 {
		score /= 100
	}
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
