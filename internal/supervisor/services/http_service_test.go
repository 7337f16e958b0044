// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/threatlens/internal/registry"
)

// fakeHTTPServer blocks in ListenAndServe until Shutdown unless failWith is set.
type fakeHTTPServer struct {
	failWith    error
	shutdownErr error
	listening   chan struct{}
	stop        chan struct{}
	shutdowns   atomic.Int32
}

func newFakeHTTPServer() *fakeHTTPServer {
	return &fakeHTTPServer{
		listening: make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	select {
	case f.listening <- struct{}{}:
	default:
	}
	if f.failWith != nil {
		return f.failWith
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	if f.shutdowns.Add(1) == 1 {
		close(f.stop)
	}
	return f.shutdownErr
}

func TestNewHTTPServerService(t *testing.T) {
	t.Parallel()

	var _ suture.Service = (*HTTPServerService)(nil)

	tests := []struct {
		timeout time.Duration
		want    time.Duration
	}{
		{5 * time.Second, 5 * time.Second},
		{0, 10 * time.Second},
		{-time.Second, 10 * time.Second},
	}
	for _, tt := range tests {
		svc := NewHTTPServerService(newFakeHTTPServer(), tt.timeout)
		if svc.shutdownTimeout != tt.want {
			t.Errorf("NewHTTPServerService(%v).shutdownTimeout = %v, want %v", tt.timeout, svc.shutdownTimeout, tt.want)
		}
		if svc.String() != "api-server" {
			t.Errorf("String() = %q", svc.String())
		}
	}
}

func TestHTTPServerService_Serve(t *testing.T) {
	t.Parallel()

	bindErr := errors.New("bind: address already in use")
	shutdownErr := errors.New("shutdown timeout")

	tests := []struct {
		name        string
		failWith    error
		shutdownErr error
		cancel      bool
		want        error
	}{
		{"graceful shutdown", nil, nil, true, context.Canceled},
		{"startup failure", bindErr, nil, false, bindErr},
		{"shutdown failure", nil, shutdownErr, true, shutdownErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newFakeHTTPServer()
			server.failWith = tt.failWith
			server.shutdownErr = tt.shutdownErr
			svc := NewHTTPServerService(server, time.Second)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			errCh := make(chan error, 1)
			go func() { errCh <- svc.Serve(ctx) }()

			select {
			case <-server.listening:
			case <-time.After(time.Second):
				t.Fatal("server did not start")
			}
			if tt.cancel {
				cancel()
			}

			select {
			case err := <-errCh:
				if !errors.Is(err, tt.want) {
					t.Errorf("Serve() = %v, want %v", err, tt.want)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("Serve did not return")
			}
		})
	}
}

type countingTicker struct{ ticks atomic.Int32 }

func (c *countingTicker) Tick(context.Context, time.Time) []registry.Transition {
	c.ticks.Add(1)
	return nil
}

func TestTickerService(t *testing.T) {
	t.Parallel()

	ticker := &countingTicker{}
	svc := NewTickerService(ticker, 5*time.Millisecond)
	if svc.String() != "engine-ticker" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for ticker.ticks.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if ticker.ticks.Load() < 3 {
		t.Errorf("ticks = %d, want at least 3", ticker.ticks.Load())
	}

	if d := NewTickerService(ticker, 0).interval; d != 5*time.Second {
		t.Errorf("default interval = %v", d)
	}
}
