// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/time/rate"

	"github.com/tomtom215/threatlens/internal/ingest"
	"github.com/tomtom215/threatlens/internal/registry"
	"github.com/tomtom215/threatlens/internal/state"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string // Substring; empty means valid
	}{
		{"defaults", func(*Config) {}, ""},
		{"no live source", func(c *Config) { c.Ingest.Source = SourceNone; c.Ingest.URL = "" }, ""},
		{"unknown source", func(c *Config) { c.Ingest.Source = "kafka" }, "invalid configuration"},
		{"websocket without url", func(c *Config) { c.Ingest.URL = "" }, "STREAM_URL is required"},
		{"http stream url", func(c *Config) { c.Ingest.URL = "http://producer:8765" }, "invalid configuration"},
		{"nats without url", func(c *Config) { c.Ingest.Source = SourceNATS }, "NATS_URL is required"},
		{"nats without subject", func(c *Config) {
			c.Ingest.Source = SourceNATS
			c.Ingest.NATSURL = "nats://bus:4222"
			c.Ingest.NATSSubject = " "
		}, "NATS_SUBJECT is required"},
		{"nats source", func(c *Config) {
			c.Ingest.Source = SourceNATS
			c.Ingest.NATSURL = "nats://bus:4222"
		}, ""},
		{"backoff cap below base", func(c *Config) { c.Ingest.BackoffCap = 500 * time.Millisecond }, "invalid configuration"},
		{"zero backoff base", func(c *Config) { c.Ingest.BackoffBase = 0 }, "invalid configuration"},
		{"read timeout inside heartbeat", func(c *Config) { c.Ingest.ReadTimeout = 10 * time.Second }, "must exceed HEARTBEAT_INTERVAL"},
		{"thresholds not increasing", func(c *Config) { c.Synthesis.Thresholds.High = 0.2 }, "SEVERITY thresholds"},
		{"threshold at one", func(c *Config) { c.Synthesis.Thresholds.Critical = 1 }, "SEVERITY thresholds"},
		{"zero event capacity", func(c *Config) { c.Store.EventCapacity = 0 }, "invalid configuration"},
		{"unknown publish backend", func(c *Config) { c.Publish.Backend = "kafka" }, "invalid configuration"},
		{"nats publish without url", func(c *Config) {
			c.Publish.Enabled = true
			c.Publish.Backend = "nats"
		}, "PUBLISH_NATS_URL is required"},
		{"nats publish reuses ingest url", func(c *Config) {
			c.Publish.Enabled = true
			c.Publish.Backend = "nats"
			c.Ingest.NATSURL = "nats://bus:4222"
		}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid configuration"},
		{"mixed cors wildcard", func(c *Config) { c.Server.CORSOrigins = []string{"*", "https://soc.example"} }, "cannot mix"},
		{"zero rate limit", func(c *Config) { c.Server.RateLimitReqs = 0 }, "RATE_LIMIT_REQS"},
		{"zero rate limit when disabled", func(c *Config) {
			c.Server.RateLimitReqs = 0
			c.Server.RateLimitDisabled = true
		}, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestStalenessThreshold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		explicit  time.Duration
		heartbeat time.Duration
		want      time.Duration
	}{
		{"explicit wins", 2 * time.Minute, 30 * time.Second, 2 * time.Minute},
		{"derived from heartbeat", 0, 20 * time.Second, time.Minute},
		{"heartbeat disabled", 0, 0, registry.DefaultStalenessThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := defaultConfig()
			cfg.Registry.StalenessThreshold = tt.explicit
			cfg.Ingest.HeartbeatInterval = tt.heartbeat
			if got := cfg.StalenessThreshold(); got != tt.want {
				t.Errorf("StalenessThreshold() = %v, want %v", got, tt.want)
			}
			if got := cfg.StateConfig().Registry.StalenessThreshold; got != tt.want {
				t.Errorf("StateConfig().Registry = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComponentConfigs(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()

	wantController := ingest.Config{
		Backoff:           ingest.ExponentialBackoff{Base: time.Second, Cap: 30 * time.Second},
		HeartbeatInterval: 30 * time.Second,
		TickInterval:      5 * time.Second,
		BreakerThreshold:  5,
		BreakerTimeout:    30 * time.Second,
		MalformedLogRate:  rate.Limit(1),
		MalformedLogBurst: 5,
	}
	if diff := cmp.Diff(wantController, cfg.ControllerConfig()); diff != "" {
		t.Errorf("ControllerConfig mismatch (-want +got):\n%s", diff)
	}

	wantState := state.Config{
		EventCapacity:    100,
		TimelineCapacity: 50,
		EvidenceCapacity: 20,
		SessionCapacity:  1000,
		ActivityWindow:   time.Minute,
		Registry:         registry.Config{StalenessThreshold: 90 * time.Second},
	}
	if diff := cmp.Diff(wantState, cfg.StateConfig()); diff != "" {
		t.Errorf("StateConfig mismatch (-want +got):\n%s", diff)
	}

	if got := cfg.EngineConfig(); got.DedupeCapacity != 1024 || got.DedupeTTL != 10*time.Minute {
		t.Errorf("EngineConfig = %+v", got)
	}
	if got := cfg.SynthesizerConfig(); got.Thresholds.Critical != 0.8 || got.DefaultSource == "" {
		t.Errorf("SynthesizerConfig = %+v", got)
	}
	if got := cfg.HubConfig(); got.BroadcastBuffer != 256 || got.ClientBuffer != 256 {
		t.Errorf("HubConfig = %+v", got)
	}
	if got := cfg.LoggerConfig(); got.Level != "info" || got.Format != "json" {
		t.Errorf("LoggerConfig = %+v", got)
	}
	if got := cfg.Server.Addr(); got != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q", got)
	}

	cfg.Ingest.NATSURL = "nats://ingest:4222"
	if got := cfg.PublisherConfig().URL; got != "nats://ingest:4222" {
		t.Errorf("PublisherConfig().URL = %q, want ingest URL fallback", got)
	}
	cfg.Publish.NATSURL = "nats://bus:4222"
	if got := cfg.PublisherConfig().URL; got != "nats://bus:4222" {
		t.Errorf("PublisherConfig().URL = %q", got)
	}
}
