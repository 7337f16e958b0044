// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/threatlens/internal/models"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func output(id string, score float64) models.ModuleOutput {
	kind, canonical := models.ParseModuleKind(id)
	return models.ModuleOutput{ModuleID: canonical, Kind: kind, ModuleName: kind.Name(), Score: score, ThreatCount: 2, Notes: "detail"}
}

func TestNew_AllOffline(t *testing.T) {
	t.Parallel()

	r := New(DefaultConfig())
	statuses := r.Statuses()
	if len(statuses) != models.KnownModuleCount {
		t.Fatalf("len = %d, want %d", len(statuses), models.KnownModuleCount)
	}
	for i, st := range statuses {
		if st.Status != models.StatusOffline {
			t.Errorf("%s starts %s", st.ModuleID, st.Status)
		}
		if st.Kind != models.ModuleKind(i+1) {
			t.Errorf("status %d out of enumeration order: %v", i, st.Kind)
		}
	}

	// No output ever recorded: ticking far into the future keeps it offline.
	if changed := r.Tick(t0.Add(24 * time.Hour)); len(changed) != 0 {
		t.Errorf("unexpected transitions: %+v", changed)
	}
	if r.OnlineCount() != 0 {
		t.Error("expected no modules online")
	}
}

func TestRecord_OnlineUntilStale(t *testing.T) {
	t.Parallel()

	r := New(Config{StalenessThreshold: 90 * time.Second})

	tr := r.Record(output("TDC-AI2", 0.8), t0)
	if tr.From != models.StatusOffline || tr.To != models.StatusOnline {
		t.Errorf("transition = %+v", tr)
	}

	st, err := r.Get("tdc_ai2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.Status != models.StatusOnline || st.LastScore != 0.8 || st.LastThreatCount != 2 || st.LastDetail != "detail" {
		t.Errorf("status = %+v", st)
	}
	if !st.LastUpdate.Equal(t0) || st.Updates != 1 {
		t.Errorf("update bookkeeping = %v/%d", st.LastUpdate, st.Updates)
	}

	// Exactly at the threshold the module is still online.
	if changed := r.Tick(t0.Add(90 * time.Second)); len(changed) != 0 {
		t.Errorf("went offline at threshold: %+v", changed)
	}

	changed := r.Tick(t0.Add(91 * time.Second))
	if len(changed) != 1 || changed[0].ModuleID != "TDC-AI2" || changed[0].To != models.StatusOffline {
		t.Fatalf("changed = %+v", changed)
	}
	st, _ = r.Get("TDC-AI2")
	if st.Status != models.StatusOffline {
		t.Errorf("status = %s", st.Status)
	}
	// Last verdict is retained for display while offline.
	if st.LastScore != 0.8 {
		t.Errorf("last score lost: %v", st.LastScore)
	}
}

func TestRecord_RefreshKeepsOnline(t *testing.T) {
	t.Parallel()

	r := New(Config{StalenessThreshold: time.Minute})
	r.Record(output("TDC-AI1", 0.1), t0)
	r.Record(output("TDC-AI1", 0.2), t0.Add(50*time.Second))

	if changed := r.Tick(t0.Add(100 * time.Second)); len(changed) != 0 {
		t.Errorf("refreshed module went offline: %+v", changed)
	}
}

func TestMarkProcessing(t *testing.T) {
	t.Parallel()

	r := New(Config{StalenessThreshold: time.Minute})
	tr := r.MarkProcessing("tdc_ai9_explainability", t0)
	if tr.To != models.StatusProcessing {
		t.Errorf("transition = %+v", tr)
	}
	st, _ := r.Get("TDC-AI9")
	if st.Status != models.StatusProcessing || st.LastScore != 0 {
		t.Errorf("status = %+v", st)
	}

	changed := r.Tick(t0.Add(2 * time.Minute))
	if len(changed) != 1 || changed[0].From != models.StatusProcessing {
		t.Errorf("changed = %+v", changed)
	}
}

func TestUnknownModuleTracked(t *testing.T) {
	t.Parallel()

	r := New(DefaultConfig())
	r.Record(output("custom_detector", 0.5), t0)

	statuses := r.Statuses()
	last := statuses[len(statuses)-1]
	if last.ModuleID != "custom_detector" || last.Status != models.StatusOnline {
		t.Errorf("unknown module should sort last and be online: %+v", last)
	}
	if _, err := r.Get("never_seen"); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestStatusesAreCopies(t *testing.T) {
	t.Parallel()

	r := New(DefaultConfig())
	r.Record(output("TDC-AI3", 0.4), t0)

	statuses := r.Statuses()
	statuses[2].Status = models.StatusOffline

	st, _ := r.Get("TDC-AI3")
	if st.Status != models.StatusOnline {
		t.Error("mutating a returned status leaked into the registry")
	}
}
