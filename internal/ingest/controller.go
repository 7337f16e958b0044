// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/threatlens/internal/detection"
	"github.com/tomtom215/threatlens/internal/logging"
	"github.com/tomtom215/threatlens/internal/metrics"
	"github.com/tomtom215/threatlens/internal/registry"
)

// heartbeatFrame is sent to the producer on every heartbeat interval.
var heartbeatFrame = []byte(`{"type":"heartbeat"}`)

// Sink receives frames in delivery order. detection.Engine implements it.
type Sink interface {
	Handle(ctx context.Context, frame []byte, receivedAt time.Time) (detection.Result, error)
	Tick(ctx context.Context, now time.Time) []registry.Transition
}

// Config configures the controller.
type Config struct {
	Backoff           Backoff
	HeartbeatInterval time.Duration // Zero disables outbound heartbeats
	TickInterval      time.Duration // Registry aging cadence

	BreakerThreshold uint32        // Consecutive dial failures that open the circuit
	BreakerTimeout   time.Duration // Open to half-open

	MalformedLogRate  rate.Limit // Malformed-frame warnings per second
	MalformedLogBurst int
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		Backoff:           DefaultBackoff(),
		HeartbeatInterval: 30 * time.Second,
		TickInterval:      5 * time.Second,
		BreakerThreshold:  5,
		BreakerTimeout:    30 * time.Second,
		MalformedLogRate:  rate.Every(time.Second),
		MalformedLogBurst: 5,
	}
}

type frame struct {
	data []byte
	at   time.Time
}

// Controller owns the producer connection. It runs the state machine
//
//	Disconnected -> Connecting -> Connected -> Disconnected -> Connecting ...
//
// forever, backing off exponentially between attempts, until its context is
// canceled. Every frame and every registry tick is delivered to the sink from
// the Run goroutine, so the sink sees a single ordered stream of mutations.
type Controller struct {
	cfg         Config
	source      Source
	sink        Sink
	broadcaster detection.Broadcaster
	limiter     *rate.Limiter
	now         func() time.Time

	mu     sync.RWMutex
	status Status
}

// NewController creates a controller reading from src into sink.
func NewController(cfg Config, src Source, sink Sink) *Controller {
	def := DefaultConfig()
	if cfg.Backoff == nil {
		cfg.Backoff = def.Backoff
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.MalformedLogRate <= 0 {
		cfg.MalformedLogRate = def.MalformedLogRate
	}
	if cfg.MalformedLogBurst <= 0 {
		cfg.MalformedLogBurst = def.MalformedLogBurst
	}

	name := src.Name()
	if cfg.BreakerThreshold > 0 {
		src = newBreakerSource(src, cfg.BreakerThreshold, cfg.BreakerTimeout)
	}

	return &Controller{
		cfg:     cfg,
		source:  src,
		sink:    sink,
		limiter: rate.NewLimiter(cfg.MalformedLogRate, cfg.MalformedLogBurst),
		now:     time.Now,
		status:  Status{State: StateDisconnected, Source: name},
	}
}

// SetBroadcaster sets the target for connection_state frames.
func (c *Controller) SetBroadcaster(b detection.Broadcaster) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcaster = b
}

// State returns the current connection state.
func (c *Controller) State() ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status.State
}

// Status returns a copy of the connectivity indicator.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// String implements fmt.Stringer for suture logging.
func (c *Controller) String() string {
	return "ingest-controller"
}

// Serve implements suture.Service.
func (c *Controller) Serve(ctx context.Context) error {
	return c.Run(ctx)
}

// Run drives the state machine until ctx is canceled. It never returns for
// any other reason.
func (c *Controller) Run(ctx context.Context) error {
	logging.Info().Str("source", c.Status().Source).Msg("ingest controller started")
	defer logging.Info().Msg("ingest controller stopped")

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	failures := 0
	for {
		attempt := c.beginAttempt()
		connCtx := logging.ContextWithNewCorrelationID(ctx)
		c.setCorrelationID(logging.CorrelationIDFromContext(connCtx))

		conn, err := c.source.Connect(connCtx)
		if err != nil {
			if ctx.Err() != nil {
				c.transition(StateDisconnected, nil)
				return ctx.Err()
			}
			failures++
			logging.CtxWarn(connCtx).Err(err).Uint64("attempt", attempt).Int("failures", failures).Msg("stream connect failed")
			c.transition(StateDisconnected, err)
		} else {
			failures = 0
			c.connected()
			logging.CtxInfo(connCtx).Uint64("attempt", attempt).Msg("stream connected")

			err = c.session(connCtx, conn, ticker.C)
			if cerr := conn.Close(); cerr != nil {
				logging.CtxDebug(connCtx).Err(cerr).Msg("failed to close stream connection")
			}
			if ctx.Err() != nil {
				c.transition(StateDisconnected, nil)
				return ctx.Err()
			}
			failures = 1
			logging.CtxWarn(connCtx).Err(err).Msg("stream disconnected")
			c.transition(StateDisconnected, err)
		}

		delay := c.cfg.Backoff.Delay(failures)
		c.setNextRetry(delay)
		if err := c.wait(ctx, delay, ticker.C); err != nil {
			return err
		}
	}
}

// session pumps one connection until it fails or ctx is canceled.
func (c *Controller) session(ctx context.Context, conn Conn, tick <-chan time.Time) error {
	frames := make(chan frame)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			data, err := conn.Receive()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- frame{data: data, at: c.now()}:
			case <-done:
				return
			}
		}
	}()

	var heartbeat <-chan time.Time
	if c.cfg.HeartbeatInterval > 0 {
		t := time.NewTicker(c.cfg.HeartbeatInterval)
		defer t.Stop()
		heartbeat = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return fmt.Errorf("receive: %w", err)
		case f := <-frames:
			c.dispatch(ctx, f)
		case <-heartbeat:
			if err := conn.Send(heartbeatFrame); err != nil {
				return fmt.Errorf("send heartbeat: %w", err)
			}
			metrics.HeartbeatsSent.Inc()
		case now := <-tick:
			c.sink.Tick(ctx, now)
		}
	}
}

// dispatch hands one frame to the sink. Malformed frames are logged (rate
// limited) and dropped; they never end the session.
func (c *Controller) dispatch(ctx context.Context, f frame) {
	metrics.RecordMessage(c.Status().Source)
	c.mu.Lock()
	c.status.LastMessage = f.at
	c.mu.Unlock()

	res, err := c.sink.Handle(ctx, f.data, f.at)
	if err != nil {
		if c.limiter.Allow() {
			logging.CtxWarn(ctx).Err(err).Int("bytes", len(f.data)).Msg("dropping malformed frame")
		} else {
			metrics.MalformedLogsSuppressed.Inc()
		}
		return
	}
	if res.Outcome == detection.OutcomeEvent {
		logging.CtxDebug(ctx).Str("event_id", res.Event.ID).Msg("frame synthesized")
	}
}

// wait sleeps for d while continuing to deliver registry ticks.
func (c *Controller) wait(ctx context.Context, d time.Duration, tick <-chan time.Time) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case now := <-tick:
			c.sink.Tick(ctx, now)
		}
	}
}

func (c *Controller) beginAttempt() uint64 {
	c.mu.Lock()
	c.status.Attempts++
	attempt := c.status.Attempts
	c.status.NextRetryIn = ""
	c.mu.Unlock()

	if attempt > 1 {
		metrics.ReconnectAttempts.Inc()
	}
	c.transition(StateConnecting, nil)
	return attempt
}

func (c *Controller) connected() {
	c.mu.Lock()
	c.status.LastConnected = c.now()
	c.status.Failures = 0
	c.status.LastError = ""
	c.mu.Unlock()
	c.transition(StateConnected, nil)
}

func (c *Controller) setCorrelationID(id string) {
	c.mu.Lock()
	c.status.CorrelationID = id
	c.mu.Unlock()
}

func (c *Controller) setNextRetry(d time.Duration) {
	c.mu.Lock()
	c.status.NextRetryIn = d.String()
	c.mu.Unlock()
}

func (c *Controller) transition(to ConnState, cause error) {
	c.mu.Lock()
	c.status.State = to
	if cause != nil && !errors.Is(cause, context.Canceled) {
		c.status.LastError = cause.Error()
		if to == StateDisconnected {
			c.status.Failures++
		}
	}
	status := c.status
	b := c.broadcaster
	c.mu.Unlock()

	metrics.SetConnectionState(to.gauge())
	if b != nil {
		b.BroadcastJSON(detection.MessageConnectionState, status)
	}
}
