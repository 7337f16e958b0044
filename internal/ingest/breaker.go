// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package ingest

import (
	"context"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/threatlens/internal/logging"
	"github.com/tomtom215/threatlens/internal/metrics"
)

// breakerSource wraps a Source's dial step with a circuit breaker. While the
// circuit is open, Connect fails fast with gobreaker.ErrOpenState and the
// controller simply backs off again.
type breakerSource struct {
	Source
	cb *gobreaker.CircuitBreaker[Conn]
}

func newBreakerSource(src Source, threshold uint32, timeout time.Duration) *breakerSource {
	name := "stream-dial-" + src.Name()
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[Conn](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,       // One probe dial in half-open state
		Timeout:     timeout, // Open to half-open
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("dial circuit breaker state transition")
			metrics.RecordBreakerTransition(name, from.String(), to.String(), stateToGauge(to))
		},
	})

	return &breakerSource{Source: src, cb: cb}
}

func (b *breakerSource) Connect(ctx context.Context) (Conn, error) {
	conn, err := b.cb.Execute(func() (Conn, error) {
		return b.Source.Connect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.cb.Name(), err)
	}
	return conn, nil
}

func stateToGauge(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
