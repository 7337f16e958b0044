// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package eventprocessor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/threatlens/internal/models"
)

func testEvent(id string) *models.ThreatEvent {
	return &models.ThreatEvent{
		Seq:            1,
		ID:             id,
		SessionID:      "sess-1",
		Timestamp:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ReceivedAt:     time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC),
		Severity:       models.SeverityHigh,
		AggregateScore: 0.82,
		ThreatType:     "jailbreak",
		Source:         "stream",
	}
}

func testConfig() PublisherConfig {
	cfg := DefaultPublisherConfig()
	cfg.QueueSize = 4
	return cfg
}

func TestNewPublisher_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PublisherConfig)
	}{
		{"empty topic", func(c *PublisherConfig) { c.Topic = "" }},
		{"zero queue", func(c *PublisherConfig) { c.QueueSize = 0 }},
		{"unknown backend", func(c *PublisherConfig) { c.Backend = "kafka" }},
		{"nats without url", func(c *PublisherConfig) { c.Backend = BackendNATS; c.URL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := NewPublisher(cfg, nil)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestPublisher_DeliversToSubscribers(t *testing.T) {
	pub, err := NewPublisher(testConfig(), nil)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := pub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	go func() { _ = pub.Serve(ctx) }()

	want := testEvent("evt-1")
	if err := pub.PublishEvent(ctx, want); err != nil {
		t.Fatalf("PublishEvent: %v", err)
	}

	select {
	case msg := <-msgs:
		msg.Ack()
		if got := msg.Metadata.Get(MetadataEventID); got != "evt-1" {
			t.Errorf("event_id metadata = %q", got)
		}
		if got := msg.Metadata.Get(MetadataSeverity); got != "High" {
			t.Errorf("severity metadata = %q", got)
		}
		got, err := DeserializeEvent(msg.Payload)
		if err != nil {
			t.Fatalf("DeserializeEvent: %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("payload mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}

	deadline := time.Now().Add(2 * time.Second)
	for pub.Stats().Published != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := pub.Stats().Published; got != 1 {
		t.Errorf("published = %d, want 1", got)
	}
}

func TestPublisher_QueueFullDropsWithoutBlocking(t *testing.T) {
	cfg := testConfig()
	cfg.QueueSize = 2
	pub, err := NewPublisher(cfg, nil)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	defer pub.Close()

	// Serve is not running, so nothing drains.
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := pub.PublishEvent(ctx, testEvent("evt")); err != nil {
			t.Fatalf("PublishEvent %d: %v", i, err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- pub.PublishEvent(ctx, testEvent("evt-3")) }()

	select {
	case err := <-done:
		if !errors.Is(err, ErrQueueFull) {
			t.Fatalf("err = %v, want ErrQueueFull", err)
		}
	case <-time.After(time.Second):
		t.Fatal("PublishEvent blocked on a full queue")
	}

	want := PublisherStats{Dropped: 1, Queued: 2}
	if diff := cmp.Diff(want, pub.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestPublisher_Closed(t *testing.T) {
	pub, err := NewPublisher(testConfig(), nil)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := pub.PublishEvent(context.Background(), testEvent("evt-1")); !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("err = %v, want ErrPublisherClosed", err)
	}
}

func TestPublisher_ServeStopsOnCancel(t *testing.T) {
	pub, err := NewPublisher(testConfig(), nil)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pub.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if pub.String() != "event-publisher" {
		t.Errorf("String() = %q", pub.String())
	}
}

func TestSerializeEvent(t *testing.T) {
	if _, err := SerializeEvent(nil); err == nil {
		t.Error("expected error for nil event")
	}
	if _, err := DeserializeEvent([]byte("{")); err == nil {
		t.Error("expected error for truncated JSON")
	}

	msg, err := NewEventMessage(testEvent("evt-9"))
	if err != nil {
		t.Fatalf("NewEventMessage: %v", err)
	}
	if msg.UUID == "" {
		t.Error("message UUID not set")
	}
	if got := msg.Metadata.Get(MetadataSessionID); got != "sess-1" {
		t.Errorf("session_id metadata = %q", got)
	}
}
