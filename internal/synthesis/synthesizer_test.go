// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package synthesis

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/threatlens/internal/models"
	"github.com/tomtom215/threatlens/internal/normalize"
)

var received = time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)

func decode(t *testing.T, frame string) (*models.StreamMessage, []models.ModuleOutput) {
	t.Helper()
	msg, err := models.DecodeStreamMessage([]byte(frame))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg, normalize.Message(msg).Outputs
}

func TestThresholds_Bucket(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()
	tests := []struct {
		score float64
		want  models.Severity
	}{
		{0, models.SeverityLow},
		{0.25, models.SeverityLow},
		{0.26, models.SeverityMedium},
		{0.5, models.SeverityMedium},
		{0.51, models.SeverityHigh},
		{0.8, models.SeverityHigh},
		{0.81, models.SeverityCritical},
		{1, models.SeverityCritical},
	}
	for _, tt := range tests {
		if got := th.Bucket(tt.score); got != tt.want {
			t.Errorf("Bucket(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestThresholds_Validate(t *testing.T) {
	t.Parallel()

	if err := DefaultThresholds().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
	for _, bad := range []Thresholds{
		{Medium: 0, High: 0.5, Critical: 0.8},
		{Medium: 0.5, High: 0.5, Critical: 0.8},
		{Medium: 0.2, High: 0.9, Critical: 0.8},
		{Medium: 0.2, High: 0.5, Critical: 1},
	} {
		if bad.Validate() == nil {
			t.Errorf("expected %+v to be invalid", bad)
		}
	}

	// Invalid thresholds never reach the synthesizer.
	s := New(Config{Thresholds: Thresholds{Medium: 0.9, High: 0.1, Critical: 0.5}})
	if s.Thresholds() != DefaultThresholds() {
		t.Errorf("thresholds = %+v", s.Thresholds())
	}
}

func TestNormalizeScale(t *testing.T) {
	t.Parallel()

	for in, want := range map[float64]float64{0.4: 0.4, 1: 1, 90: 0.9, 250: 1, -3: 0} {
		if got := NormalizeScale(in); got != want {
			t.Errorf("NormalizeScale(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestSynthesize_AmbiguousScoreScale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score         string
		wantNorm      float64
		wantAnnotated bool
	}{
		{"0.9", 0.9, false},
		{"1", 1, false},
		{"1.5", 0.015, true},
		{"10", 0.1, true},
		{"11", 0.11, false},
		{"90", 0.9, false},
	}
	for _, tt := range tests {
		t.Run(tt.score, func(t *testing.T) {
			t.Parallel()

			msg, outs := decode(t, `{"session_id":"s","score":`+tt.score+`}`)
			evt := New(DefaultConfig()).Synthesize(msg, outs, received)

			if evt.NormalizedScore != tt.wantNorm {
				t.Errorf("NormalizedScore = %v, want %v", evt.NormalizedScore, tt.wantNorm)
			}
			annotated := false
			for _, a := range evt.Annotations {
				if a == models.AnnotationAmbiguousScoreScale {
					annotated = true
				}
			}
			if annotated != tt.wantAnnotated {
				t.Errorf("annotations = %v, want ambiguous_score_scale %v", evt.Annotations, tt.wantAnnotated)
			}
		})
	}
}

func TestSynthesize_ProducerSeverityAndScore(t *testing.T) {
	t.Parallel()

	msg, outs := decode(t, `{"session_id":"s1","severity":"Critical","threat_type":"AI_Manipulation","score":90}`)
	evt := New(DefaultConfig()).Synthesize(msg, outs, received)

	if evt.Severity != models.SeverityCritical || evt.SeverityDerived {
		t.Errorf("severity = %v derived=%v", evt.Severity, evt.SeverityDerived)
	}
	if evt.AggregateScore != 90 || evt.NormalizedScore != 0.9 {
		t.Errorf("scores = %v/%v", evt.AggregateScore, evt.NormalizedScore)
	}
	if evt.ThreatType != "AI_Manipulation" || evt.SessionID != "s1" || evt.Source != DefaultSource {
		t.Errorf("labels = %+v", evt)
	}
	if !evt.Timestamp.Equal(received) {
		t.Errorf("timestamp should fall back to receipt time, got %v", evt.Timestamp)
	}
	if len(evt.Annotations) != 0 {
		t.Errorf("annotations = %v", evt.Annotations)
	}
}

func TestSynthesize_DerivedFromModule(t *testing.T) {
	t.Parallel()

	msg, outs := decode(t, `{"session_id":"s2","tdc_ai2_ai_manipulation_tactics":{"score":0.8,"threats":2}}`)
	evt := New(DefaultConfig()).Synthesize(msg, outs, received)

	if evt.Severity != models.SeverityHigh || !evt.SeverityDerived {
		t.Errorf("severity = %v derived=%v", evt.Severity, evt.SeverityDerived)
	}
	if evt.AggregateScore != 0.8 {
		t.Errorf("aggregate = %v", evt.AggregateScore)
	}
	if evt.ThreatType != models.UnknownThreatType {
		t.Errorf("threat type = %q", evt.ThreatType)
	}
	if _, ok := evt.Module("TDC-AI2"); !ok || evt.ThreatCount() != 2 {
		t.Errorf("module contribution missing: %+v", evt.Modules)
	}
}

func TestSynthesize_TieBreaks(t *testing.T) {
	t.Parallel()

	s := New(DefaultConfig())
	msg := &models.StreamMessage{SessionID: "s"}

	outs := []models.ModuleOutput{
		{ModuleID: "TDC-AI7", Kind: models.ModuleTDCAI7, Score: 0.6, Confidence: 0.9, RecommendedAction: models.ActionMonitor},
		{ModuleID: "TDC-AI3", Kind: models.ModuleTDCAI3, Score: 0.6, Confidence: 0.5, RecommendedAction: models.ActionEscalate},
		{ModuleID: "TDC-AI1", Kind: models.ModuleTDCAI1, Score: 0.6, Confidence: 0.9, RecommendedAction: models.ActionReview},
	}
	evt := s.Synthesize(msg, outs, received)

	if evt.AggregateScore != 0.6 {
		t.Errorf("aggregate = %v", evt.AggregateScore)
	}
	ids := []string{evt.Modules[0].ModuleID, evt.Modules[1].ModuleID, evt.Modules[2].ModuleID}
	if diff := cmp.Diff([]string{"TDC-AI1", "TDC-AI3", "TDC-AI7"}, ids); diff != "" {
		t.Errorf("module order (-want +got):\n%s", diff)
	}
	if best, _ := strongest(evt.Modules); best.ModuleID != "TDC-AI1" {
		t.Errorf("tie-break picked %s, want TDC-AI1 (same score and confidence, earlier kind)", best.ModuleID)
	}
	if evt.RecommendedAction != models.ActionEscalate {
		t.Errorf("action = %s", evt.RecommendedAction)
	}
}

func TestSynthesize_ConfidenceTieBreak(t *testing.T) {
	t.Parallel()

	outs := []models.ModuleOutput{
		{ModuleID: "TDC-AI1", Kind: models.ModuleTDCAI1, Score: 0.7, Confidence: 0.2},
		{ModuleID: "TDC-AI5", Kind: models.ModuleTDCAI5, Score: 0.7, Confidence: 0.95},
	}
	best, ok := strongest(canonicalOutputs(outs))
	if !ok || best.ModuleID != "TDC-AI5" {
		t.Errorf("best = %s", best.ModuleID)
	}
}

func TestSynthesize_ActionRanking(t *testing.T) {
	t.Parallel()

	s := New(DefaultConfig())
	msg, outs := decode(t, `{
		"session_id":"s3",
		"tdc_ai1":{"score":0.2,"recommended_action":"Monitor"},
		"tdc_ai4":{"score":0.9,"recommended_action":"Immediate_Intervention"},
		"tdc_ai5":{"score":0.5,"recommended_action":"Block"}
	}`)
	if got := s.Synthesize(msg, outs, received).RecommendedAction; got != models.ActionImmediateIntervention {
		t.Errorf("action = %s", got)
	}
}

func TestSynthesize_Degenerate(t *testing.T) {
	t.Parallel()

	msg, outs := decode(t, `{"session_id":"s4","message":"turn started"}`)
	evt := New(DefaultConfig()).Synthesize(msg, outs, received)

	if evt.Severity != models.SeverityLow || evt.RecommendedAction != models.ActionReview {
		t.Errorf("degenerate event = %v/%s", evt.Severity, evt.RecommendedAction)
	}
	if evt.HasEvidence() || len(evt.Modules) != 0 {
		t.Error("degenerate event must carry no evidence")
	}
	if diff := cmp.Diff([]string{models.AnnotationNoModuleOutputs}, evt.Annotations); diff != "" {
		t.Errorf("annotations (-want +got):\n%s", diff)
	}
}

func TestSynthesize_UnknownSeverityFallsBack(t *testing.T) {
	t.Parallel()

	msg, outs := decode(t, `{"session_id":"s5","severity":"apocalyptic","score":"n/a","timestamp":"whenever","tdc_ai5":{"score":0.55}}`)
	evt := New(DefaultConfig()).Synthesize(msg, outs, received)

	if evt.Severity != models.SeverityHigh || !evt.SeverityDerived {
		t.Errorf("severity = %v derived=%v", evt.Severity, evt.SeverityDerived)
	}
	want := []string{models.AnnotationInvalidSeverity, models.AnnotationInvalidScore, models.AnnotationInvalidTimestamp}
	if diff := cmp.Diff(want, evt.Annotations); diff != "" {
		t.Errorf("annotations (-want +got):\n%s", diff)
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	t.Parallel()

	frame := `{"session_id":"s6","timestamp":"2026-03-01T12:00:00Z","tdc_ai4":{"score":0.7,"flags":["x"],"evidence":[{"type":"span","data":{"a":1}}]},"tdc_ai6":{"score":0.3}}`
	s := New(DefaultConfig())

	msg1, outs1 := decode(t, frame)
	msg2, outs2 := decode(t, frame)
	a := s.Synthesize(msg1, outs1, received)
	b := s.Synthesize(msg2, outs2, received.Add(time.Hour))
	// ReceivedAt is the only field allowed to differ.
	b.ReceivedAt = a.ReceivedAt

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("synthesis not deterministic (-a +b):\n%s", diff)
	}
}
