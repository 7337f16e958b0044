// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/threatlens/internal/logging"
	"github.com/tomtom215/threatlens/internal/metrics"
	"github.com/tomtom215/threatlens/internal/models"
)

// PublisherStats holds publisher counters.
type PublisherStats struct {
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
	Queued    int    `json:"queued"`
}

// Publisher forwards synthesized events to a Watermill message bus.
//
// PublishEvent only enqueues; Serve drains the queue through a circuit
// breaker. Ingestion therefore never blocks on a slow or absent bus, and a
// full queue drops the newest event.
type Publisher struct {
	cfg        PublisherConfig
	publisher  message.Publisher
	subscriber message.Subscriber // gochannel backend only
	breaker    *gobreaker.CircuitBreaker[struct{}]
	queue      chan *message.Message

	mu     sync.RWMutex
	closed bool

	published atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// NewPublisher creates a publisher for the configured backend.
func NewPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewWatermillLogger()
	}

	p := &Publisher{
		cfg:   cfg,
		queue: make(chan *message.Message, cfg.QueueSize),
	}

	switch cfg.Backend {
	case BackendGoChannel:
		ch := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: int64(cfg.QueueSize),
		}, logger)
		p.publisher = ch
		p.subscriber = ch
	case BackendNATS:
		pub, err := newNATSPublisher(cfg, logger)
		if err != nil {
			return nil, err
		}
		p.publisher = pub
	}

	if cfg.BreakerThreshold > 0 {
		p.breaker = newBreaker("event-publisher", cfg)
	}
	return p, nil
}

func validateConfig(cfg PublisherConfig) error {
	if cfg.Topic == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidConfig)
	}
	if cfg.QueueSize <= 0 {
		return fmt.Errorf("%w: queue size must be positive", ErrInvalidConfig)
	}
	switch cfg.Backend {
	case BackendGoChannel:
	case BackendNATS:
		if cfg.URL == "" {
			return fmt.Errorf("%w: nats backend requires a URL", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, cfg.Backend)
	}
	return nil
}

func newNATSPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	natsOpts := []natsgo.Option{
		natsgo.Name("threatlens-publisher"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
		natsgo.ErrorHandler(func(_ *natsgo.Conn, sub *natsgo.Subscription, err error) {
			fields := watermill.LogFields{}
			if sub != nil {
				fields["subject"] = sub.Subject
			}
			logger.Error("NATS error", err, fields)
		}),
	}

	// Core NATS: events are a live feed, consumers that need history read
	// the state API.
	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled: true,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	return pub, nil
}

func newBreaker(name string, cfg PublisherConfig) *gobreaker.CircuitBreaker[struct{}] {
	threshold := cfg.BreakerThreshold
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			metrics.RecordBreakerTransition(name, from.String(), to.String(), breakerGauge(to))
		},
	})
}

func breakerGauge(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// PublishEvent enqueues an event for publication. It never blocks; when the
// queue is full the event is dropped and ErrQueueFull returned.
func (p *Publisher) PublishEvent(_ context.Context, evt *models.ThreatEvent) error {
	msg, err := NewEventMessage(evt)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.queue <- msg:
		return nil
	default:
		p.dropped.Add(1)
		metrics.RecordPublish(metrics.PublishDropped)
		return ErrQueueFull
	}
}

// Serve drains the queue until ctx is done. It implements suture.Service.
func (p *Publisher) Serve(ctx context.Context) error {
	logging.Info().
		Str("backend", p.cfg.Backend).
		Str("topic", p.cfg.Topic).
		Msg("event publisher started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-p.queue:
			p.publish(msg)
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (p *Publisher) String() string {
	return "event-publisher"
}

func (p *Publisher) publish(msg *message.Message) {
	var err error
	if p.breaker != nil {
		_, err = p.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, p.publisher.Publish(p.cfg.Topic, msg)
		})
	} else {
		err = p.publisher.Publish(p.cfg.Topic, msg)
	}

	if err != nil {
		p.failed.Add(1)
		metrics.RecordPublish(metrics.PublishFailure)
		logging.Err(err).
			Str("event_id", msg.Metadata.Get(MetadataEventID)).
			Str("topic", p.cfg.Topic).
			Msg("failed to publish event")
		return
	}
	p.published.Add(1)
	metrics.RecordPublish(metrics.PublishSuccess)
}

// Subscribe returns the in-process event stream (gochannel backend only).
func (p *Publisher) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	if p.subscriber == nil {
		return nil, ErrSubscribeUnsupported
	}
	return p.subscriber.Subscribe(ctx, p.cfg.Topic)
}

// Stats returns a snapshot of publisher counters.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
		Queued:    len(p.queue),
	}
}

// Close shuts down the underlying publisher. Queued events are discarded.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
