// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package services

import (
	"context"
	"time"

	"github.com/tomtom215/threatlens/internal/registry"
)

// Ticker is the aging side of the detection engine.
type Ticker interface {
	Tick(ctx context.Context, now time.Time) []registry.Transition
}

// TickerService ages module statuses and stream staleness on a fixed
// cadence. The ingestion controller already ticks while it runs; this
// service covers deployments without a live stream so modules still fall
// offline.
type TickerService struct {
	ticker   Ticker
	interval time.Duration
	name     string
}

// NewTickerService creates a ticker service. A non-positive interval uses
// five seconds.
func NewTickerService(ticker Ticker, interval time.Duration) *TickerService {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &TickerService{
		ticker:   ticker,
		interval: interval,
		name:     "engine-ticker",
	}
}

// Serve implements suture.Service.
func (s *TickerService) Serve(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-t.C:
			s.ticker.Tick(ctx, now)
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *TickerService) String() string {
	return s.name
}
