// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/threatlens/internal/eventprocessor"
	"github.com/tomtom215/threatlens/internal/synthesis"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/threatlens/config.yaml",
	"/etc/threatlens/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Ingest: IngestConfig{
			Source:            SourceWebSocket,
			URL:               "ws://127.0.0.1:8765/stream",
			HandshakeTimeout:  10 * time.Second,
			ReadTimeout:       75 * time.Second, // Two missed heartbeat responses plus slack
			NATSURL:           "",
			NATSSubject:       "threatlens.analysis",
			BufferSize:        256,
			BackoffBase:       time.Second,
			BackoffCap:        30 * time.Second,
			HeartbeatInterval: 30 * time.Second,
			TickInterval:      5 * time.Second,
			DedupeCapacity:    1024,
			DedupeTTL:         10 * time.Minute,
			BreakerThreshold:  5,
			BreakerTimeout:    30 * time.Second,
			MalformedLogRate:  1,
			MalformedLogBurst: 5,
		},
		Registry: RegistryConfig{
			StalenessThreshold: 0, // Derived: 3 x heartbeat interval
		},
		Synthesis: SynthesisConfig{
			Thresholds:    synthesis.DefaultThresholds(),
			DefaultSource: synthesis.DefaultSource,
		},
		Store: StoreConfig{
			EventCapacity:    100,
			TimelineCapacity: 50,
			EvidenceCapacity: 20,
			SessionCapacity:  1000,
			ActivityWindow:   time.Minute,
		},
		Publish: PublishConfig{
			Enabled:       false,
			Backend:       eventprocessor.BackendGoChannel,
			Topic:         eventprocessor.DefaultTopic,
			QueueSize:     1024,
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			Timeout:           30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{},
			RateLimitReqs:     600,
			RateLimitWindow:   time.Minute,
			WSBroadcastBuffer: 256,
			WSClientBuffer:    256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
//
// Precedence is ENV > File > Defaults. The result is validated.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// STREAM_URL -> ingest.url
	// SEVERITY_HIGH -> synthesis.thresholds.high
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
var envMappings = map[string]string{
	// Ingestion
	"ingest_source":            "ingest.source",
	"stream_url":               "ingest.url",
	"stream_handshake_timeout": "ingest.handshake_timeout",
	"stream_read_timeout":      "ingest.read_timeout",
	"nats_url":                 "ingest.nats_url",
	"nats_subject":             "ingest.nats_subject",
	"nats_heartbeat_subject":   "ingest.nats_heartbeat_subject",
	"stream_buffer_size":       "ingest.buffer_size",
	"reconnect_backoff_base":   "ingest.backoff_base",
	"reconnect_backoff_cap":    "ingest.backoff_cap",
	"heartbeat_interval":       "ingest.heartbeat_interval",
	"tick_interval":            "ingest.tick_interval",
	"dedupe_capacity":          "ingest.dedupe_capacity",
	"dedupe_ttl":               "ingest.dedupe_ttl",
	"breaker_threshold":        "ingest.breaker_threshold",
	"breaker_timeout":          "ingest.breaker_timeout",
	"malformed_log_rate":       "ingest.malformed_log_rate",
	"malformed_log_burst":      "ingest.malformed_log_burst",

	// Module registry
	"module_staleness_threshold": "registry.staleness_threshold",

	// Synthesis
	"severity_medium":      "synthesis.thresholds.medium",
	"severity_high":        "synthesis.thresholds.high",
	"severity_critical":    "synthesis.thresholds.critical",
	"default_event_source": "synthesis.default_source",

	// State store
	"event_capacity":    "store.event_capacity",
	"timeline_capacity": "store.timeline_capacity",
	"evidence_capacity": "store.evidence_capacity",
	"session_capacity":  "store.session_capacity",
	"activity_window":   "store.activity_window",

	// Event bus fan-out
	"publish_enabled":        "publish.enabled",
	"publish_backend":        "publish.backend",
	"publish_topic":          "publish.topic",
	"publish_queue_size":     "publish.queue_size",
	"publish_nats_url":       "publish.nats_url",
	"publish_max_reconnects": "publish.max_reconnects",
	"publish_reconnect_wait": "publish.reconnect_wait",

	// HTTP server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"rate_limit_reqs":       "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"rate_limit_disabled":   "server.rate_limit_disabled",
	"ws_broadcast_buffer":   "server.ws_broadcast_buffer",
	"ws_client_buffer":      "server.ws_client_buffer",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - STREAM_URL -> ingest.url
//   - HEARTBEAT_INTERVAL -> ingest.heartbeat_interval
//   - SEVERITY_CRITICAL -> synthesis.thresholds.critical
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// Unmapped keys are skipped so unrelated environment variables cannot
	// pollute the config.
	return ""
}
