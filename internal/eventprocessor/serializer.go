// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package eventprocessor

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/threatlens/internal/models"
)

// Metadata keys set on every published message.
const (
	MetadataEventID   = "event_id"
	MetadataSessionID = "session_id"
	MetadataSeverity  = "severity"
)

// SerializeEvent marshals an event to JSON.
func SerializeEvent(evt *models.ThreatEvent) ([]byte, error) {
	if evt == nil {
		return nil, fmt.Errorf("marshal event: nil event")
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// DeserializeEvent unmarshals JSON to an event.
func DeserializeEvent(data []byte) (*models.ThreatEvent, error) {
	var evt models.ThreatEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &evt, nil
}

// NewEventMessage builds the watermill message for an event.
func NewEventMessage(evt *models.ThreatEvent) (*message.Message, error) {
	data, err := SerializeEvent(evt)
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(MetadataEventID, evt.ID)
	msg.Metadata.Set(MetadataSessionID, evt.SessionID)
	msg.Metadata.Set(MetadataSeverity, evt.Severity.String())
	return msg, nil
}
