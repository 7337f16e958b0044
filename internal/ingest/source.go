// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package ingest

import (
	"context"
	"errors"
)

// ErrClosed is returned by Conn methods after Close.
var ErrClosed = errors.New("connection closed")

// Source dials the producer stream.
type Source interface {
	// Name identifies the transport in logs and metrics.
	Name() string

	// Connect establishes one connection. It must honor ctx during the
	// handshake.
	Connect(ctx context.Context) (Conn, error)
}

// Conn is one established producer connection.
type Conn interface {
	// Receive blocks until the next frame arrives or the connection fails.
	// It is called from a single reader goroutine.
	Receive() ([]byte, error)

	// Send writes one frame to the producer. It is safe to call
	// concurrently with Receive.
	Send(data []byte) error

	// Close releases the connection and unblocks Receive.
	Close() error
}
