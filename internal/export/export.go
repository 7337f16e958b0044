// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/threatlens/internal/models"
)

// Supported export formats.
const (
	FormatJSON = "json"
	FormatCEF  = "cef"
)

// ErrUnknownFormat is returned by ForFormat for unsupported format names.
var ErrUnknownFormat = errors.New("unknown export format")

// Exporter renders threat events for an external consumer.
type Exporter interface {
	Export(events []models.ThreatEvent) ([]byte, error)
	ContentType() string
}

// ForFormat returns the exporter for a format name. The empty name selects
// JSON Lines.
func ForFormat(format, version string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON, "jsonl", "ndjson":
		return &JSONExporter{}, nil
	case FormatCEF:
		cef := NewCEFExporter()
		if version != "" {
			cef.DeviceVersion = version
		}
		return cef, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// JSONExporter exports events as JSON Lines, one event per line.
type JSONExporter struct{}

// Export exports events in JSON Lines format.
func (e *JSONExporter) Export(events []models.ThreatEvent) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			return nil, fmt.Errorf("encode event %s: %w", events[i].ID, err)
		}
	}
	return buf.Bytes(), nil
}

// ContentType implements Exporter.
func (e *JSONExporter) ContentType() string {
	return "application/x-ndjson"
}

// CEFExporter exports events in Common Event Format (for SIEM integration).
type CEFExporter struct {
	DeviceVendor  string
	DeviceProduct string
	DeviceVersion string
}

// NewCEFExporter creates a new CEF exporter with defaults.
func NewCEFExporter() *CEFExporter {
	return &CEFExporter{
		DeviceVendor:  "ThreatLens",
		DeviceProduct: "ThreatSynthesis",
		DeviceVersion: "1.0",
	}
}

// Export exports events to CEF format.
// CEF Format: CEF:Version|Device Vendor|Device Product|Device Version|Signature ID|Name|Severity|Extension
func (e *CEFExporter) Export(events []models.ThreatEvent) ([]byte, error) {
	lines := make([]string, 0, len(events))

	for idx := range events {
		event := &events[idx]

		signature := event.ThreatType
		if signature == "" {
			signature = "threat_event"
		}
		name := event.Message
		if name == "" {
			name = event.Severity.String() + " " + signature
		}

		lines = append(lines, fmt.Sprintf("CEF:0|%s|%s|%s|%s|%s|%d|%s",
			escapeHeader(e.DeviceVendor),
			escapeHeader(e.DeviceProduct),
			escapeHeader(e.DeviceVersion),
			escapeHeader(signature),
			escapeHeader(name),
			cefSeverity(event.Severity),
			buildExtension(event),
		))
	}

	if len(lines) == 0 {
		return []byte{}, nil
	}
	return []byte(strings.Join(lines, "\n") + "\n"), nil
}

// ContentType implements Exporter.
func (e *CEFExporter) ContentType() string {
	return "text/plain; charset=utf-8"
}

// cefSeverity maps a severity bucket to CEF severity (0-10).
func cefSeverity(severity models.Severity) int {
	switch severity {
	case models.SeverityLow:
		return 3
	case models.SeverityMedium:
		return 5
	case models.SeverityHigh:
		return 8
	case models.SeverityCritical:
		return 10
	default:
		return 0
	}
}

// buildExtension builds the CEF extension string.
func buildExtension(event *models.ThreatEvent) string {
	parts := []string{
		fmt.Sprintf("rt=%d", event.ReceivedAt.UnixMilli()),
		fmt.Sprintf("start=%d", event.Timestamp.UnixMilli()),
		"externalId=" + escapeExtension(event.ID),
		"act=" + escapeExtension(string(event.RecommendedAction)),
		"cs1Label=sessionId",
		"cs1=" + escapeExtension(event.SessionID),
		"cfp1Label=normalizedScore",
		fmt.Sprintf("cfp1=%.4f", event.NormalizedScore),
	}

	if len(event.Modules) > 0 {
		ids := make([]string, len(event.Modules))
		for i := range event.Modules {
			ids[i] = event.Modules[i].ModuleID
		}
		parts = append(parts, "cs2Label=modules", "cs2="+escapeExtension(strings.Join(ids, ",")))
	}
	if event.Source != "" {
		parts = append(parts, "cs3Label=source", "cs3="+escapeExtension(event.Source))
	}
	if len(event.Annotations) > 0 {
		parts = append(parts, "cs4Label=annotations", "cs4="+escapeExtension(strings.Join(event.Annotations, ",")))
	}
	if event.Message != "" {
		parts = append(parts, "msg="+escapeExtension(event.Message))
	}

	return strings.Join(parts, " ")
}

// escapeHeader escapes pipes and backslashes in CEF header fields.
func escapeHeader(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}

// escapeExtension escapes equals signs, backslashes and newlines in CEF
// extension values.
func escapeExtension(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "=", "\\=")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", "\\n")
}
