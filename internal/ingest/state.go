// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package ingest

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/threatlens/internal/metrics"
)

// ConnState is the controller's connection state. There is no terminal
// state: Disconnected always leads back to Connecting until the controller's
// context is canceled.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// MarshalJSON encodes the state as its label.
func (s ConnState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s ConnState) gauge() int {
	switch s {
	case StateConnecting:
		return metrics.ConnConnecting
	case StateConnected:
		return metrics.ConnConnected
	default:
		return metrics.ConnDisconnected
	}
}

// Status is the connectivity indicator served to operators.
type Status struct {
	State         ConnState `json:"state"`
	Source        string    `json:"source"`                   // Transport name
	Attempts      uint64    `json:"attempts"`                 // Connection attempts since start
	Failures      int       `json:"consecutive_failures"`     // Reset on a successful connect
	LastConnected time.Time `json:"last_connected,omitempty"` // Most recent successful connect
	LastMessage   time.Time `json:"last_message,omitempty"`   // Most recent inbound frame
	LastError     string    `json:"last_error,omitempty"`     // Most recent dial or read error
	NextRetryIn   string    `json:"next_retry_in,omitempty"`  // Backoff before the next attempt
	CorrelationID string    `json:"correlation_id,omitempty"` // Current connection's log correlation ID
}
