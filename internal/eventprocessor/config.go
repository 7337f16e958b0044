// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package eventprocessor

import "time"

// Backends.
const (
	BackendGoChannel = "gochannel"
	BackendNATS      = "nats"
)

// DefaultTopic is where synthesized events are published.
const DefaultTopic = "threatlens.events"

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	// Backend selects the message bus: gochannel (in-process) or nats.
	Backend string

	// Topic receives every synthesized event. For NATS it is the subject.
	Topic string

	// QueueSize bounds events waiting to be published. When full, new
	// events are dropped rather than blocking ingestion.
	QueueSize int

	// URL is the NATS server URL (nats backend only).
	URL string

	// MaxReconnects and ReconnectWait configure the NATS client (nats
	// backend only). -1 reconnects forever.
	MaxReconnects int
	ReconnectWait time.Duration

	// BreakerThreshold is the number of consecutive publish failures that
	// open the circuit. Zero disables the breaker.
	BreakerThreshold uint32
	BreakerTimeout   time.Duration
}

// DefaultPublisherConfig returns production defaults for publisher.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		Backend:          BackendGoChannel,
		Topic:            DefaultTopic,
		QueueSize:        1024,
		URL:              "nats://127.0.0.1:4222",
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		BreakerThreshold: 5,
		BreakerTimeout:   30 * time.Second,
	}
}
