// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package ingest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/threatlens/internal/logging"
)

// WebSocketConfig configures the producer WebSocket client.
type WebSocketConfig struct {
	URL              string
	Header           http.Header
	HandshakeTimeout time.Duration
	// ReadTimeout bounds the silence tolerated on an open connection. The
	// producer answers every heartbeat, so it should exceed the heartbeat
	// interval.
	ReadTimeout time.Duration
}

// WebSocketSource dials the producer over WebSocket.
type WebSocketSource struct {
	cfg    WebSocketConfig
	dialer websocket.Dialer
}

// NewWebSocketSource creates a WebSocket source.
func NewWebSocketSource(cfg WebSocketConfig) *WebSocketSource {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &WebSocketSource{
		cfg: cfg,
		dialer: websocket.Dialer{
			Proxy:             http.ProxyFromEnvironment,
			HandshakeTimeout:  cfg.HandshakeTimeout,
			EnableCompression: true,
		},
	}
}

// Name implements Source.
func (s *WebSocketSource) Name() string {
	return "websocket"
}

// Connect implements Source.
func (s *WebSocketSource) Connect(ctx context.Context) (Conn, error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.cfg.URL, s.cfg.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Debug().Err(cerr).Msg("failed to close handshake response body")
		}
	}

	return &wsConn{conn: conn, readTimeout: s.cfg.ReadTimeout}, nil
}

type wsConn struct {
	conn        *websocket.Conn
	readTimeout time.Duration

	writeMu sync.Mutex
	once    sync.Once
}

func (c *wsConn) Receive() ([]byte, error) {
	if c.readTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}
	}
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *wsConn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	var err error
	c.once.Do(func() {
		c.writeMu.Lock()
		if werr := c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		); werr != nil {
			logging.Debug().Err(werr).Msg("failed to send close message")
		}
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
