// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package cache

// Ring is a bounded FIFO collection. Pushing onto a full ring evicts the
// oldest element, strictly by arrival order.
//
// Ring is not safe for concurrent use; the state store owns its rings and
// publishes copies via Items.
type Ring[T any] struct {
	buf   []T
	start int
	size  int
}

// NewRing creates a ring holding at most capacity elements.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v. When the ring is full the oldest element is evicted and
// returned with true.
func (r *Ring[T]) Push(v T) (T, bool) {
	var evicted T
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return evicted, false
	}
	evicted = r.buf[r.start]
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
	return evicted, true
}

// Items returns a copy of the contents from oldest to newest.
func (r *Ring[T]) Items() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Len returns the number of elements held.
func (r *Ring[T]) Len() int {
	return r.size
}

// Cap returns the ring's capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Reset empties the ring.
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.start, r.size = 0, 0
}
