// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package config

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/threatlens/internal/detection"
	"github.com/tomtom215/threatlens/internal/eventprocessor"
	"github.com/tomtom215/threatlens/internal/ingest"
	"github.com/tomtom215/threatlens/internal/logging"
	"github.com/tomtom215/threatlens/internal/registry"
	"github.com/tomtom215/threatlens/internal/state"
	"github.com/tomtom215/threatlens/internal/synthesis"
	"github.com/tomtom215/threatlens/internal/websocket"
)

// Source kinds for the producer stream.
const (
	SourceWebSocket = "websocket"
	SourceNATS      = "nats"
	SourceNone      = "none" // No live stream; API over replayed or empty state
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values for every setting
//  2. Config File: optional YAML file (config.yaml)
//  3. Environment Variables: override any mapped setting
//
// Sections:
//   - Ingest: producer stream transport, reconnect, heartbeat and dedupe
//   - Registry: module staleness
//   - Synthesis: severity thresholds
//   - Store: bounded collection capacities
//   - Publish: event bus fan-out
//   - Server: HTTP API and operator websocket
//   - Logging: zerolog output
type Config struct {
	Ingest    IngestConfig    `koanf:"ingest"`
	Registry  RegistryConfig  `koanf:"registry"`
	Synthesis SynthesisConfig `koanf:"synthesis"`
	Store     StoreConfig     `koanf:"store"`
	Publish   PublishConfig   `koanf:"publish"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// IngestConfig configures the stream ingestion controller and its source.
type IngestConfig struct {
	Source string `koanf:"source" validate:"oneof=websocket nats none"`

	// WebSocket source
	URL              string        `koanf:"url" validate:"omitempty,stream_url"`
	HandshakeTimeout time.Duration `koanf:"handshake_timeout" validate:"gte=0"`
	ReadTimeout      time.Duration `koanf:"read_timeout" validate:"gte=0"`

	// NATS source
	NATSURL              string `koanf:"nats_url" validate:"omitempty,nats_url"`
	NATSSubject          string `koanf:"nats_subject" validate:"max=256"`
	NATSHeartbeatSubject string `koanf:"nats_heartbeat_subject" validate:"max=256"`
	BufferSize           int    `koanf:"buffer_size" validate:"gte=0"`

	BackoffBase       time.Duration `koanf:"backoff_base" validate:"gt=0"`
	BackoffCap        time.Duration `koanf:"backoff_cap" validate:"gtefield=BackoffBase"`
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval" validate:"gte=0"`
	TickInterval      time.Duration `koanf:"tick_interval" validate:"gt=0"`

	DedupeCapacity int           `koanf:"dedupe_capacity" validate:"gte=0"`
	DedupeTTL      time.Duration `koanf:"dedupe_ttl" validate:"gte=0"`

	BreakerThreshold uint32        `koanf:"breaker_threshold" validate:"gte=1"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout" validate:"gt=0"`

	MalformedLogRate  float64 `koanf:"malformed_log_rate" validate:"gt=0"` // Warnings per second
	MalformedLogBurst int     `koanf:"malformed_log_burst" validate:"gte=1"`
}

// RegistryConfig configures module availability tracking.
type RegistryConfig struct {
	// StalenessThreshold is how long a module may stay silent before it is
	// shown offline. Zero derives it as three heartbeat intervals.
	StalenessThreshold time.Duration `koanf:"staleness_threshold" validate:"gte=0"`
}

// SynthesisConfig configures event synthesis.
type SynthesisConfig struct {
	Thresholds    synthesis.Thresholds `koanf:"thresholds"`
	DefaultSource string               `koanf:"default_source" validate:"required,max=64"`
}

// StoreConfig bounds the in-memory collections.
type StoreConfig struct {
	EventCapacity    int           `koanf:"event_capacity" validate:"gte=1,lte=100000"`
	TimelineCapacity int           `koanf:"timeline_capacity" validate:"gte=1,lte=100000"`
	EvidenceCapacity int           `koanf:"evidence_capacity" validate:"gte=1,lte=100000"`
	SessionCapacity  int           `koanf:"session_capacity" validate:"gte=1,lte=1000000"`
	ActivityWindow   time.Duration `koanf:"activity_window" validate:"gt=0"`
}

// PublishConfig configures event bus fan-out.
type PublishConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Backend       string        `koanf:"backend" validate:"oneof=gochannel nats"`
	Topic         string        `koanf:"topic" validate:"required,max=256"`
	QueueSize     int           `koanf:"queue_size" validate:"gte=1"`
	NATSURL       string        `koanf:"nats_url" validate:"omitempty,nats_url"`
	MaxReconnects int           `koanf:"max_reconnects" validate:"gte=-1"`
	ReconnectWait time.Duration `koanf:"reconnect_wait" validate:"gte=0"`
}

// ServerConfig configures the HTTP API and operator websocket.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	CORSOrigins       []string      `koanf:"cors_origins" validate:"dive,required"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gte=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	WSBroadcastBuffer int `koanf:"ws_broadcast_buffer" validate:"gte=1"`
	WSClientBuffer    int `koanf:"ws_client_buffer" validate:"gte=1"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level" validate:"oneof=trace debug info warn error"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}

// StalenessThreshold resolves the module staleness threshold.
func (c *Config) StalenessThreshold() time.Duration {
	if c.Registry.StalenessThreshold > 0 {
		return c.Registry.StalenessThreshold
	}
	if c.Ingest.HeartbeatInterval > 0 {
		return 3 * c.Ingest.HeartbeatInterval
	}
	return registry.DefaultStalenessThreshold
}

// ControllerConfig builds the ingestion controller configuration.
func (c *Config) ControllerConfig() ingest.Config {
	return ingest.Config{
		Backoff:           ingest.ExponentialBackoff{Base: c.Ingest.BackoffBase, Cap: c.Ingest.BackoffCap},
		HeartbeatInterval: c.Ingest.HeartbeatInterval,
		TickInterval:      c.Ingest.TickInterval,
		BreakerThreshold:  c.Ingest.BreakerThreshold,
		BreakerTimeout:    c.Ingest.BreakerTimeout,
		MalformedLogRate:  rate.Limit(c.Ingest.MalformedLogRate),
		MalformedLogBurst: c.Ingest.MalformedLogBurst,
	}
}

// WebSocketConfig builds the WebSocket source configuration.
func (c *Config) WebSocketConfig() ingest.WebSocketConfig {
	return ingest.WebSocketConfig{
		URL:              c.Ingest.URL,
		HandshakeTimeout: c.Ingest.HandshakeTimeout,
		ReadTimeout:      c.Ingest.ReadTimeout,
	}
}

// NATSConfig builds the NATS source configuration.
func (c *Config) NATSConfig() ingest.NATSConfig {
	return ingest.NATSConfig{
		URL:              c.Ingest.NATSURL,
		Subject:          c.Ingest.NATSSubject,
		HeartbeatSubject: c.Ingest.NATSHeartbeatSubject,
		BufferSize:       c.Ingest.BufferSize,
	}
}

// EngineConfig builds the detection engine configuration.
func (c *Config) EngineConfig() detection.EngineConfig {
	return detection.EngineConfig{
		DedupeCapacity: c.Ingest.DedupeCapacity,
		DedupeTTL:      c.Ingest.DedupeTTL,
	}
}

// StateConfig builds the state store configuration.
func (c *Config) StateConfig() state.Config {
	return state.Config{
		EventCapacity:    c.Store.EventCapacity,
		TimelineCapacity: c.Store.TimelineCapacity,
		EvidenceCapacity: c.Store.EvidenceCapacity,
		SessionCapacity:  c.Store.SessionCapacity,
		ActivityWindow:   c.Store.ActivityWindow,
		Registry:         registry.Config{StalenessThreshold: c.StalenessThreshold()},
	}
}

// SynthesizerConfig builds the synthesizer configuration.
func (c *Config) SynthesizerConfig() synthesis.Config {
	return synthesis.Config{
		Thresholds:    c.Synthesis.Thresholds,
		DefaultSource: c.Synthesis.DefaultSource,
	}
}

// PublisherConfig builds the event publisher configuration.
func (c *Config) PublisherConfig() eventprocessor.PublisherConfig {
	cfg := eventprocessor.DefaultPublisherConfig()
	cfg.Backend = c.Publish.Backend
	cfg.Topic = c.Publish.Topic
	cfg.QueueSize = c.Publish.QueueSize
	cfg.MaxReconnects = c.Publish.MaxReconnects
	cfg.ReconnectWait = c.Publish.ReconnectWait
	cfg.BreakerThreshold = c.Ingest.BreakerThreshold
	cfg.BreakerTimeout = c.Ingest.BreakerTimeout
	switch {
	case c.Publish.NATSURL != "":
		cfg.URL = c.Publish.NATSURL
	case c.Ingest.NATSURL != "":
		cfg.URL = c.Ingest.NATSURL
	}
	return cfg
}

// HubConfig builds the operator websocket hub configuration.
func (c *Config) HubConfig() websocket.HubConfig {
	return websocket.HubConfig{
		BroadcastBuffer: c.Server.WSBroadcastBuffer,
		ClientBuffer:    c.Server.WSClientBuffer,
	}
}

// LoggerConfig builds the logger configuration.
func (c *Config) LoggerConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Format = c.Logging.Format
	cfg.Caller = c.Logging.Caller
	return cfg
}
