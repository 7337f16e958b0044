// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package ingest

import "time"

// Backoff computes the delay before a reconnect attempt.
type Backoff interface {
	// Delay returns the wait before retrying after the given number of
	// consecutive failures (1 for the first failure).
	Delay(failures int) time.Duration
}

// ExponentialBackoff doubles Base per consecutive failure up to Cap.
type ExponentialBackoff struct {
	Base time.Duration
	Cap  time.Duration
}

// DefaultBackoff starts at one second and caps at thirty.
func DefaultBackoff() ExponentialBackoff {
	return ExponentialBackoff{Base: time.Second, Cap: 30 * time.Second}
}

// Delay implements Backoff. A zero Cap uses the default cap.
func (b ExponentialBackoff) Delay(failures int) time.Duration {
	if b.Base <= 0 {
		return 0
	}
	limit := b.Cap
	if limit <= 0 {
		limit = DefaultBackoff().Cap
	}

	d := b.Base
	for i := 1; i < failures && d < limit; i++ {
		d *= 2
	}
	if d > limit {
		return limit
	}
	return d
}
