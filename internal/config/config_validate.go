// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/threatlens/internal/validation"
)

// Validate checks struct tags first, then the cross-field rules tags cannot
// express.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("invalid configuration: %w", verr)
	}

	if err := c.validateIngest(); err != nil {
		return err
	}

	if err := c.validateSynthesis(); err != nil {
		return err
	}

	if err := c.validatePublish(); err != nil {
		return err
	}

	return c.validateServer()
}

// validateIngest requires the endpoint matching the selected source kind.
func (c *Config) validateIngest() error {
	switch c.Ingest.Source {
	case SourceWebSocket:
		if c.Ingest.URL == "" {
			return fmt.Errorf("STREAM_URL is required when INGEST_SOURCE=websocket")
		}
		if err := validateStreamURL(c.Ingest.URL); err != nil {
			return err
		}
	case SourceNATS:
		if c.Ingest.NATSURL == "" {
			return fmt.Errorf("NATS_URL is required when INGEST_SOURCE=nats")
		}
		if err := validateNATSURL(c.Ingest.NATSURL, "NATS_URL"); err != nil {
			return err
		}
		if strings.TrimSpace(c.Ingest.NATSSubject) == "" {
			return fmt.Errorf("NATS_SUBJECT is required when INGEST_SOURCE=nats")
		}
	}

	if c.Ingest.ReadTimeout > 0 && c.Ingest.HeartbeatInterval > 0 && c.Ingest.ReadTimeout <= c.Ingest.HeartbeatInterval {
		return fmt.Errorf("STREAM_READ_TIMEOUT (%s) must exceed HEARTBEAT_INTERVAL (%s)",
			c.Ingest.ReadTimeout, c.Ingest.HeartbeatInterval)
	}
	return nil
}

func (c *Config) validateSynthesis() error {
	if err := c.Synthesis.Thresholds.Validate(); err != nil {
		return fmt.Errorf("SEVERITY thresholds: %w", err)
	}
	return nil
}

// validatePublish only checks the NATS endpoint when it will be dialed.
func (c *Config) validatePublish() error {
	if !c.Publish.Enabled || c.Publish.Backend != "nats" {
		return nil
	}
	url := c.Publish.NATSURL
	if url == "" {
		url = c.Ingest.NATSURL
	}
	if url == "" {
		return fmt.Errorf("PUBLISH_NATS_URL is required when PUBLISH_BACKEND=nats")
	}
	return validateNATSURL(url, "PUBLISH_NATS_URL")
}

// validateServer rejects CORS wildcards mixed with explicit origins.
func (c *Config) validateServer() error {
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" && len(c.Server.CORSOrigins) > 1 {
			return fmt.Errorf("CORS_ORIGINS cannot mix * with explicit origins")
		}
	}
	if !c.Server.RateLimitDisabled && (c.Server.RateLimitReqs <= 0 || c.Server.RateLimitWindow <= 0) {
		return fmt.Errorf("RATE_LIMIT_REQS and RATE_LIMIT_WINDOW must be positive unless RATE_LIMIT_DISABLED=true")
	}
	return nil
}
