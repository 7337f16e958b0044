// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package normalize

import (
	"errors"
	"math"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/threatlens/internal/models"
)

// ErrEmptyModuleID is the only rejection: an output that cannot be
// attributed to any module.
var ErrEmptyModuleID = errors.New("module identifier is empty")

// evidenceTypeAnalysis labels evidence built from a structured "analysis" field.
const evidenceTypeAnalysis = "analysis"

// Field normalizes one tdc_aiN sub-object taken from a stream frame.
func Field(f models.ModuleField) (models.ModuleOutput, error) {
	var v any
	if err := json.Unmarshal(f.Raw, &v); err != nil {
		out, nerr := Output(f.ModuleID, map[string]any{})
		if nerr != nil {
			return out, nerr
		}
		out.Flags = appendUnique(out.Flags, models.FlagNormalizationError)
		return out, nil
	}
	return Output(f.ModuleID, v)
}

// Output normalizes a decoded module result. moduleID may be empty when the
// payload carries module_name. The returned record always satisfies
// 0 <= Score, Confidence <= 1; every recovered fault is recorded as a soft
// flag after the producer's own flags.
func Output(moduleID string, raw any) (models.ModuleOutput, error) {
	fields := asObject(raw)

	producerName := stringField(fields, "module_name")
	if strings.TrimSpace(moduleID) == "" {
		moduleID = producerName
	}
	kind, canonical := models.ParseModuleKind(moduleID)
	if canonical == "" {
		return models.ModuleOutput{}, ErrEmptyModuleID
	}

	n := &normalizer{
		out: models.ModuleOutput{
			ModuleID:          canonical,
			Kind:              kind,
			ModuleName:        producerName,
			Flags:             []string{},
			Evidence:          []models.Evidence{},
			RecommendedAction: models.ActionReview,
			SchemaVersion:     models.CurrentSchemaVersion,
		},
	}
	if n.out.ModuleName == "" {
		n.out.ModuleName = kind.Name()
		if !kind.Known() {
			n.out.ModuleName = canonical
		}
	}

	if fields == nil {
		n.scalar(raw)
		return n.finish(), nil
	}

	n.score(fields)
	n.confidence(fields)
	n.flags(fields)
	n.threats(fields)
	n.notes(fields)
	n.evidence(fields)
	n.analysis(fields)
	n.action(fields)
	n.timestamp(fields)
	n.schemaVersion(fields)
	n.extra(fields)
	n.status(fields)

	return n.finish(), nil
}

type normalizer struct {
	out  models.ModuleOutput
	soft []string
}

func (n *normalizer) flag(f string) {
	n.soft = appendUnique(n.soft, f)
}

func (n *normalizer) finish() models.ModuleOutput {
	n.out.Flags = append(n.out.Flags, n.soft...)
	return n.out
}

// scalar handles a sub-object that is not an object: a bare number is the
// score and a bare string is the notes.
func (n *normalizer) scalar(raw any) {
	switch t := raw.(type) {
	case nil:
	case string:
		if f, ok := models.CoerceNumber(t); ok {
			n.out.Score, n.out.HasScore = n.clamp(f, models.FlagScoreClamped), true
			return
		}
		n.out.Notes = strings.TrimSpace(t)
	default:
		if f, ok := models.CoerceNumber(t); ok {
			n.out.Score, n.out.HasScore = n.clamp(f, models.FlagScoreClamped), true
			return
		}
		n.flag(models.FlagNormalizationError)
	}
}

func (n *normalizer) clamp(v float64, clampFlag string) float64 {
	if v < 0 {
		n.flag(clampFlag)
		return 0
	}
	if v > 1 {
		n.flag(clampFlag)
		return 1
	}
	return v
}

func (n *normalizer) score(fields map[string]any) {
	v, present := fields["score"]
	if !present || v == nil {
		return
	}
	f, ok := models.CoerceNumber(v)
	if !ok {
		n.flag(models.FlagNormalizationError)
		return
	}
	n.out.Score = n.clamp(f, models.FlagScoreClamped)
	n.out.HasScore = true
}

func (n *normalizer) confidence(fields map[string]any) {
	v, present := fields["confidence"]
	if !present || v == nil {
		return
	}
	f, ok := models.CoerceNumber(v)
	if !ok {
		n.flag(models.FlagNormalizationError)
		return
	}
	n.out.Confidence = n.clamp(f, models.FlagConfidenceClamped)
}

func (n *normalizer) flags(fields map[string]any) {
	switch t := fields["flags"].(type) {
	case nil:
	case string:
		if s := strings.TrimSpace(t); s != "" {
			n.out.Flags = append(n.out.Flags, s)
		}
	case []any:
		for _, item := range t {
			s, ok := item.(string)
			if !ok || strings.TrimSpace(s) == "" {
				n.flag(models.FlagInvalidFlagEntry)
				continue
			}
			n.out.Flags = append(n.out.Flags, strings.TrimSpace(s))
		}
	default:
		n.flag(models.FlagInvalidFlagEntry)
	}
}

// threats accepts a count or a list of threat labels.
func (n *normalizer) threats(fields map[string]any) {
	switch t := fields["threats"].(type) {
	case nil:
	case []any:
		n.out.ThreatCount = len(t)
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				n.out.Flags = append(n.out.Flags, strings.TrimSpace(s))
			}
		}
	default:
		f, ok := models.CoerceNumber(t)
		if !ok {
			n.flag(models.FlagNormalizationError)
			return
		}
		if f > 0 && f < math.MaxInt32 {
			n.out.ThreatCount = int(f)
		}
	}
}

func (n *normalizer) notes(fields map[string]any) {
	n.out.Notes = stringField(fields, "notes")
}

func (n *normalizer) evidence(fields map[string]any) {
	items, ok := fields["evidence"].([]any)
	if !ok {
		if fields["evidence"] != nil {
			n.flag(models.FlagInvalidEvidenceEntry)
		}
		return
	}
	for _, item := range items {
		switch t := item.(type) {
		case map[string]any:
			typ, _ := t["type"].(string)
			typ = strings.TrimSpace(typ)
			if typ == "" {
				n.flag(models.FlagInvalidEvidenceEntry)
				continue
			}
			n.out.Evidence = append(n.out.Evidence, models.Evidence{Type: typ, Data: marshalData(t["data"])})
		case string:
			if strings.TrimSpace(t) == "" {
				n.flag(models.FlagInvalidEvidenceEntry)
				continue
			}
			n.out.Evidence = append(n.out.Evidence, models.Evidence{Type: "text", Data: marshalData(t)})
		default:
			n.flag(models.FlagInvalidEvidenceEntry)
		}
	}
}

// analysis maps the compact transport field: text becomes notes, structure
// becomes an evidence item.
func (n *normalizer) analysis(fields map[string]any) {
	switch t := fields["analysis"].(type) {
	case nil:
	case string:
		s := strings.TrimSpace(t)
		switch {
		case s == "":
		case n.out.Notes == "":
			n.out.Notes = s
		default:
			n.out.Notes += "; " + s
		}
	default:
		n.out.Evidence = append(n.out.Evidence, models.Evidence{Type: evidenceTypeAnalysis, Data: marshalData(t)})
	}
}

func (n *normalizer) action(fields map[string]any) {
	v, present := fields["recommended_action"]
	if !present || v == nil {
		return
	}
	s, _ := v.(string)
	if strings.TrimSpace(s) == "" {
		n.flag(models.FlagInvalidRecommendedAction)
		return
	}
	a, ok := models.ParseAction(s)
	if !ok {
		n.flag(models.FlagInvalidRecommendedAction)
	}
	n.out.RecommendedAction = a
}

func (n *normalizer) timestamp(fields map[string]any) {
	v, present := fields["timestamp"]
	if !present || v == nil {
		return
	}
	ts, ok := models.ParseTimestamp(v)
	if !ok {
		n.flag(models.FlagInvalidTimestamp)
		return
	}
	n.out.Timestamp = ts
}

func (n *normalizer) schemaVersion(fields map[string]any) {
	if f, ok := models.CoerceNumber(fields["schema_version"]); ok && f >= 1 && f < math.MaxInt32 {
		n.out.SchemaVersion = int(f)
	}
}

func (n *normalizer) extra(fields map[string]any) {
	if v, ok := fields["extra"]; ok && v != nil {
		n.out.Extra = marshalData(v)
	}
}

func (n *normalizer) status(fields map[string]any) {
	s, _ := fields["status"].(string)
	if strings.EqualFold(strings.TrimSpace(s), string(models.StatusProcessing)) && !n.out.HasScore {
		n.out.Processing = true
	}
}

func asObject(raw any) map[string]any {
	m, _ := raw.(map[string]any)
	return m
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}

func marshalData(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
