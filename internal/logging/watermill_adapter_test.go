// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// traceGlobally lowers the global zerolog level for the duration of t.
// Callers must not be parallel.
func traceGlobally(t *testing.T) {
	t.Helper()
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
}

func TestWatermillLogger_Levels(t *testing.T) {
	traceGlobally(t)

	var buf bytes.Buffer
	wl := NewWatermillLoggerWithLogger(zerolog.New(&buf).Level(zerolog.TraceLevel))

	tests := []struct {
		name  string
		log   func()
		level string
	}{
		{"error", func() { wl.Error("publish failed", errors.New("nats down"), nil) }, "error"},
		{"info", func() { wl.Info("publisher ready", nil) }, "info"},
		{"debug", func() { wl.Debug("sending", nil) }, "debug"},
		{"trace", func() { wl.Trace("ack", nil) }, "trace"},
	}

	for _, tt := range tests {
		buf.Reset()
		tt.log()
		if !strings.Contains(buf.String(), `"level":"`+tt.level+`"`) {
			t.Errorf("%s: unexpected output: %s", tt.name, buf.String())
		}
	}
}

func TestWatermillLogger_ErrorIncludesErr(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	wl := NewWatermillLoggerWithLogger(zerolog.New(&buf))
	wl.Error("publish failed", errors.New("nats down"), watermill.LogFields{"topic": "threatlens.events"})

	out := buf.String()
	if !strings.Contains(out, `"error":"nats down"`) || !strings.Contains(out, `"topic":"threatlens.events"`) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestWatermillLogger_With(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := NewWatermillLoggerWithLogger(zerolog.New(&buf))
	child := base.With(watermill.LogFields{"publisher": "gochannel"})

	child.Info("published", watermill.LogFields{"uuid": "m-1"})
	out := buf.String()
	if !strings.Contains(out, `"publisher":"gochannel"`) || !strings.Contains(out, `"uuid":"m-1"`) {
		t.Errorf("unexpected output: %s", out)
	}

	buf.Reset()
	base.Info("plain", nil)
	if strings.Contains(buf.String(), "publisher") {
		t.Errorf("parent logger must not inherit child fields: %s", buf.String())
	}
}

func TestWatermillLogger_DisabledLevelIsNoop(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	wl := NewWatermillLoggerWithLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))
	wl.Debug("hidden", watermill.LogFields{"k": "v"})

	if buf.Len() != 0 {
		t.Errorf("expected no output, got: %s", buf.String())
	}
}
