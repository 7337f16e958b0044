// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

/*
Package eventprocessor publishes synthesized threat events to a message bus
for downstream consumers (SIEM forwarders, archivers, other dashboards).

# Backends

  - gochannel: in-process Watermill pub/sub. Default; consumers in the same
    binary call Publisher.Subscribe.
  - nats: core NATS via watermill-nats. JetStream is disabled because the
    event feed is live-only.

# Flow

	Engine.Process --> PublishEvent --> queue --> Serve --> breaker --> bus

PublishEvent never blocks the ingestion path. When the queue is full the
event is dropped and counted (threatlens_events_published_total with
result="dropped"). Serve runs as a supervised service and routes every
publish through a sony/gobreaker circuit breaker so a dead broker costs one
fast failure per event instead of a network timeout.

Each message carries the JSON-encoded event as payload and the event_id,
session_id and severity as metadata.
*/
package eventprocessor
