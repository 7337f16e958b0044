// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package detection

import (
	"context"
	"time"

	"github.com/tomtom215/threatlens/internal/models"
)

// Broadcast message types pushed to operator clients.
const (
	MessageThreatEvent     = "threat_event"
	MessageSummaryUpdate   = "summary_update"
	MessageModuleStatus    = "module_status"
	MessageConnectionState = "connection_state"
)

// Broadcaster pushes frames to operator clients via WebSocket.
type Broadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// Publisher hands synthesized events to the message bus. Implementations
// must not block ingestion.
type Publisher interface {
	PublishEvent(ctx context.Context, evt *models.ThreatEvent) error
}

// Outcome classifies what Handle did with a frame.
type Outcome int

const (
	OutcomeEvent     Outcome = iota // Synthesized and stored
	OutcomeControl                  // Heartbeat or ping, discarded
	OutcomeDuplicate                // Replayed frame, discarded
	OutcomeMalformed                // Undecodable, discarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEvent:
		return "event"
	case OutcomeControl:
		return "control"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Result reports the handling of one frame.
type Result struct {
	Outcome Outcome
	Event   models.ThreatEvent // Set when Outcome is OutcomeEvent
	Control string             // Control frame type when Outcome is OutcomeControl
}

// EngineMetrics tracks engine throughput.
type EngineMetrics struct {
	FramesHandled   int64     `json:"frames_handled"`
	EventsStored    int64     `json:"events_stored"`
	ControlFrames   int64     `json:"control_frames"`
	Duplicates      int64     `json:"duplicates"`
	Malformed       int64     `json:"malformed"`
	PublishErrors   int64     `json:"publish_errors"`
	LastProcessedAt time.Time `json:"last_processed_at"`
}

// ModuleStatusUpdate is the payload of a module_status broadcast.
type ModuleStatusUpdate struct {
	Modules []models.ModuleStatus `json:"modules"`
}
