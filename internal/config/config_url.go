// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// validateURLScheme checks that rawURL parses, has a host and uses one of
// the given schemes.
func validateURLScheme(rawURL, fieldName string, schemes ...string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	valid := false
	for _, s := range schemes {
		if parsedURL.Scheme == s {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%s scheme must be one of %v, got: %q", fieldName, schemes, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	return nil
}

// validateStreamURL validates a producer WebSocket endpoint.
func validateStreamURL(rawURL string) error {
	return validateURLScheme(rawURL, "STREAM_URL", "ws", "wss")
}

// validateNATSURL validates a NATS server URL.
func validateNATSURL(rawURL, fieldName string) error {
	return validateURLScheme(rawURL, fieldName, "nats", "tls", "ws", "wss")
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
