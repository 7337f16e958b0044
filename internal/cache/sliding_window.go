// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package cache

import (
	"sync"
	"time"
)

// SlidingWindowCounter counts events within a trailing time window by
// dividing it into buckets.
//
//   - AddAt: O(1)
//   - CountAt: O(k) where k = number of buckets
//
// Time is always passed in so callers with an injected clock (the state
// store) stay deterministic. Times earlier than the last observed one are
// treated as the last observed time.
type SlidingWindowCounter struct {
	mu         sync.Mutex
	buckets    []int64
	bucketSize time.Duration
	numBuckets int
	current    int
	lastUpdate time.Time
}

// NewSlidingWindowCounter creates a counter over windowSize split into
// numBuckets buckets. NewSlidingWindowCounter(time.Minute, 12) counts the
// last minute in 5s steps.
func NewSlidingWindowCounter(windowSize time.Duration, numBuckets int) *SlidingWindowCounter {
	if numBuckets <= 0 {
		numBuckets = 12
	}
	if windowSize <= 0 {
		windowSize = time.Minute
	}
	bucketSize := windowSize / time.Duration(numBuckets)
	if bucketSize <= 0 {
		bucketSize = time.Nanosecond
	}

	return &SlidingWindowCounter{
		buckets:    make([]int64, numBuckets),
		bucketSize: bucketSize,
		numBuckets: numBuckets,
	}
}

// AddAt adds delta to the bucket covering now.
func (sw *SlidingWindowCounter) AddAt(now time.Time, delta int64) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.advance(now)
	sw.buckets[sw.current] += delta
}

// CountAt returns the total within the window ending at now.
func (sw *SlidingWindowCounter) CountAt(now time.Time) int64 {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.advance(now)

	var total int64
	for _, count := range sw.buckets {
		total += count
	}
	return total
}

// Reset clears all buckets.
func (sw *SlidingWindowCounter) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	for i := range sw.buckets {
		sw.buckets[i] = 0
	}
	sw.current = 0
	sw.lastUpdate = time.Time{}
}

// advance rotates the window forward to now. Must be called with lock held.
func (sw *SlidingWindowCounter) advance(now time.Time) {
	if sw.lastUpdate.IsZero() {
		sw.lastUpdate = now.Truncate(sw.bucketSize)
		return
	}

	elapsed := int(now.Sub(sw.lastUpdate) / sw.bucketSize)
	if elapsed <= 0 {
		return
	}

	if elapsed >= sw.numBuckets {
		for i := range sw.buckets {
			sw.buckets[i] = 0
		}
		sw.current = 0
	} else {
		for i := 0; i < elapsed; i++ {
			sw.current = (sw.current + 1) % sw.numBuckets
			sw.buckets[sw.current] = 0
		}
	}
	sw.lastUpdate = sw.lastUpdate.Add(time.Duration(elapsed) * sw.bucketSize)
}
