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

	"github.com/nats-io/nats.go"

	"github.com/tomtom215/threatlens/internal/logging"
)

// NATSConfig configures the NATS subject subscription.
type NATSConfig struct {
	URL     string
	Subject string
	// HeartbeatSubject receives outbound heartbeats. Empty disables sending.
	HeartbeatSubject string
	// BufferSize bounds frames received but not yet handled.
	BufferSize int
}

// NATSSource subscribes to a core NATS subject. The client's own reconnect
// logic is disabled so the controller's state machine stays authoritative.
type NATSSource struct {
	cfg NATSConfig
}

// NewNATSSource creates a NATS source.
func NewNATSSource(cfg NATSConfig) *NATSSource {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	return &NATSSource{cfg: cfg}
}

// Name implements Source.
func (s *NATSSource) Name() string {
	return "nats"
}

// Connect implements Source.
func (s *NATSSource) Connect(ctx context.Context) (Conn, error) {
	c := &natsConn{
		msgs:             make(chan *nats.Msg, s.cfg.BufferSize),
		done:             make(chan struct{}),
		heartbeatSubject: s.cfg.HeartbeatSubject,
	}

	timeout := 10 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	nc, err := nats.Connect(s.cfg.URL,
		nats.Name("threatlens-ingest"),
		nats.NoReconnect(),
		nats.Timeout(timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err == nil {
				err = errors.New("nats disconnected")
			}
			c.fail(err)
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			c.fail(ErrClosed)
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logging.Warn().Err(err).Str("subject", subject).Msg("NATS async error")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	sub, err := nc.ChanSubscribe(s.cfg.Subject, c.msgs)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.cfg.Subject, err)
	}
	// Frames published before the server registers the subscription are lost.
	if err := nc.FlushTimeout(timeout); err != nil {
		nc.Close()
		return nil, fmt.Errorf("flush subscription %s: %w", s.cfg.Subject, err)
	}

	c.nc = nc
	c.sub = sub
	return c, nil
}

type natsConn struct {
	nc               *nats.Conn
	sub              *nats.Subscription
	msgs             chan *nats.Msg
	heartbeatSubject string

	mu   sync.Mutex
	err  error
	done chan struct{}
}

func (c *natsConn) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	c.err = err
	close(c.done)
}

func (c *natsConn) Receive() ([]byte, error) {
	select {
	case msg := <-c.msgs:
		return msg.Data, nil
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return nil, c.err
	}
}

func (c *natsConn) Send(data []byte) error {
	if c.heartbeatSubject == "" {
		return nil
	}
	return c.nc.Publish(c.heartbeatSubject, data)
}

func (c *natsConn) Close() error {
	// Fail first so Receive reports ErrClosed rather than the disconnect
	// callback's error.
	c.fail(ErrClosed)
	if c.sub != nil {
		if err := c.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			logging.Debug().Err(err).Msg("failed to unsubscribe")
		}
	}
	c.nc.Close()
	return nil
}
