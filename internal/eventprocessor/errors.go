// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package eventprocessor

import "errors"

// ErrPublisherClosed is returned after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// ErrQueueFull is returned when the publish queue cannot accept an event.
var ErrQueueFull = errors.New("publish queue full")

// ErrInvalidConfig is returned when configuration is invalid.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrSubscribeUnsupported is returned by Subscribe on backends without an
// in-process subscriber.
var ErrSubscribeUnsupported = errors.New("backend does not support in-process subscription")
