// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package cache

import (
	"testing"
	"time"
)

func TestSlidingWindowCounter(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sw := NewSlidingWindowCounter(time.Minute, 12)

	sw.AddAt(base, 1)
	sw.AddAt(base.Add(10*time.Second), 2)
	sw.AddAt(base.Add(30*time.Second), 3)

	if got := sw.CountAt(base.Add(30 * time.Second)); got != 6 {
		t.Errorf("count = %d, want 6", got)
	}

	// The first bucket ages out after a full window.
	if got := sw.CountAt(base.Add(61 * time.Second)); got != 5 {
		t.Errorf("count after 61s = %d, want 5", got)
	}

	if got := sw.CountAt(base.Add(5 * time.Minute)); got != 0 {
		t.Errorf("count after idle window = %d, want 0", got)
	}
}

func TestSlidingWindowCounter_PastTimesLandInCurrentBucket(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sw := NewSlidingWindowCounter(time.Minute, 6)

	sw.AddAt(base.Add(30*time.Second), 1)
	sw.AddAt(base, 1)

	if got := sw.CountAt(base.Add(30 * time.Second)); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
}

func TestSlidingWindowCounter_Reset(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sw := NewSlidingWindowCounter(time.Minute, 6)
	sw.AddAt(base, 4)
	sw.Reset()

	if got := sw.CountAt(base); got != 0 {
		t.Errorf("count after reset = %d", got)
	}
}
