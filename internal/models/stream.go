// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package models

import (
	"bytes"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ============================================================================
// Inbound Stream Frames
// ============================================================================
// One JSON object per frame:
//
//	{ session_id, timestamp, severity?, threat_type?, source?, score?,
//	  tdc_ai1..tdc_ai11: {...}?, message?, raw_user?, raw_ai?, type? }

// ErrNotJSON is returned for frames that are not a JSON object.
var ErrNotJSON = errors.New("frame is not a JSON object")

// Control frame types. They are recognized and discarded.
const (
	MessageTypeHeartbeat         = "heartbeat"
	MessageTypeHeartbeatResponse = "heartbeat_response"
	MessageTypePing              = "ping"
	MessageTypePong              = "pong"
)

// ModuleField is one tdc_aiN sub-object as it arrived on the wire.
type ModuleField struct {
	Key      string          // Transport key, e.g. "tdc_ai2_ai_manipulation_tactics"
	Kind     ModuleKind      // Decoded from Key
	ModuleID string          // Canonical identifier
	Raw      json.RawMessage // Undecoded sub-object
}

// StreamMessage is a decoded inbound frame. Field values are tolerant:
// anything that cannot be read is left at its zero value and, where it
// matters for synthesis, recorded in the Invalid* fields.
type StreamMessage struct {
	Type         string
	SessionID    string
	Timestamp    time.Time
	HasTimestamp bool
	Severity     string   // Raw label, "" when absent
	Score        *float64 // Top-level score, nil when absent or invalid
	ThreatType   string
	Source       string
	Message      string
	RawUser      string
	RawAI        string
	Modules      []ModuleField // Enumeration order

	InvalidScore     bool // score present but not numeric
	InvalidTimestamp bool // timestamp present but unparseable

	raw []byte
}

// IsControl reports whether the frame is a heartbeat or ping that must not
// reach the state store.
func (m *StreamMessage) IsControl() bool {
	switch strings.ToLower(m.Type) {
	case MessageTypeHeartbeat, MessageTypeHeartbeatResponse, MessageTypePing, MessageTypePong:
		return true
	default:
		return false
	}
}

// Raw returns the original frame bytes.
func (m *StreamMessage) Raw() []byte {
	return m.raw
}

// Fingerprint identifies a replayed frame: session, producer timestamp and a
// hash of the frame content. Frames without a producer timestamp return ""
// and are never treated as replays.
func (m *StreamMessage) Fingerprint() string {
	if !m.HasTimestamp {
		return ""
	}
	h := fnv.New64a()
	_, _ = h.Write(m.raw)
	return m.SessionID + "|" + m.Timestamp.UTC().Format(time.RFC3339Nano) + "|" + strconv.FormatUint(h.Sum64(), 16)
}

// DecodeStreamMessage decodes one inbound frame.
func DecodeStreamMessage(data []byte) (*StreamMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotJSON
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJSON, err)
	}

	msg := &StreamMessage{raw: append([]byte(nil), trimmed...)}

	for key, raw := range fields {
		switch strings.ToLower(key) {
		case "type":
			msg.Type = decodeText(raw)
		case "session_id", "sessionid":
			msg.SessionID = decodeText(raw)
		case "timestamp":
			if isNullish(raw) {
				continue
			}
			var v any
			if err := json.Unmarshal(raw, &v); err == nil {
				if ts, ok := ParseTimestamp(v); ok {
					msg.Timestamp, msg.HasTimestamp = ts, true
					continue
				}
			}
			msg.InvalidTimestamp = true
		case "severity":
			msg.Severity = decodeText(raw)
		case "score":
			if isNullish(raw) {
				continue
			}
			var v any
			if err := json.Unmarshal(raw, &v); err == nil {
				if f, ok := CoerceNumber(v); ok {
					msg.Score = &f
					continue
				}
			}
			msg.InvalidScore = true
		case "threat_type":
			msg.ThreatType = decodeText(raw)
		case "source":
			msg.Source = decodeText(raw)
		case "message":
			msg.Message = decodeText(raw)
		case "raw_user":
			msg.RawUser = decodeText(raw)
		case "raw_ai":
			msg.RawAI = decodeText(raw)
		default:
			if !IsModuleKey(key) || isEmptyModule(raw) {
				continue
			}
			kind, id := ParseModuleKind(key)
			msg.Modules = append(msg.Modules, ModuleField{Key: key, Kind: kind, ModuleID: id, Raw: raw})
		}
	}

	sort.SliceStable(msg.Modules, func(i, j int) bool {
		a, b := msg.Modules[i], msg.Modules[j]
		if c := compareKinds(a.Kind, a.ModuleID, b.Kind, b.ModuleID); c != 0 {
			return c < 0
		}
		return a.Key < b.Key
	})

	return msg, nil
}

func decodeText(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func isNullish(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// isEmptyModule treats null, {}, "" and [] as "no output this cycle".
func isEmptyModule(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(t) == 0
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

// ============================================================================
// Tolerant Value Coercion
// ============================================================================

// CoerceNumber reads a finite number from a decoded JSON value. Numeric
// strings are accepted. Booleans, NaN and infinities are not numbers.
func CoerceNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp reads an ISO-8601 string or a Unix epoch number. Epoch
// numbers are read as seconds, milliseconds, microseconds or nanoseconds by
// magnitude. Zoneless strings are read as UTC. Results outside years 1 to
// 9999 are rejected because they cannot be rendered as RFC 3339.
func ParseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return checkYear(ts.UTC())
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return epochToTime(f)
		}
		return time.Time{}, false
	default:
		f, ok := CoerceNumber(v)
		if !ok {
			return time.Time{}, false
		}
		return epochToTime(f)
	}
}

// Epoch magnitude boundaries. 1e11 seconds is year 5138, 1e14 ms and 1e17 us
// are the same instant at finer scales.
const (
	epochMillisFloor = 1e11
	epochMicrosFloor = 1e14
	epochNanosFloor  = 1e17
)

func epochToTime(f float64) (time.Time, bool) {
	if f <= 0 || f >= math.MaxInt64 {
		return time.Time{}, false
	}
	var ts time.Time
	switch {
	case f >= epochNanosFloor:
		ts = time.Unix(0, int64(f))
	case f >= epochMicrosFloor:
		ts = time.UnixMicro(int64(f))
	case f >= epochMillisFloor:
		ts = time.UnixMilli(int64(f))
	default:
		sec, frac := math.Modf(f)
		ts = time.Unix(int64(sec), int64(frac*1e9))
	}
	return checkYear(ts.UTC())
}

func checkYear(ts time.Time) (time.Time, bool) {
	if y := ts.Year(); y < 1 || y > 9999 {
		return time.Time{}, false
	}
	return ts, true
}
