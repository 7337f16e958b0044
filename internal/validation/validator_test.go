// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package validation

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()
	if v1 == nil || v1 != v2 {
		t.Error("GetValidator() should return one non-nil instance")
	}
}

type queryStruct struct {
	Severity []string `query:"severity" validate:"dive,severity"`
	Module   []string `query:"module" validate:"dive,module_id"`
	Sort     string   `query:"sort" validate:"omitempty,oneof=time time_asc severity"`
	Limit    int      `query:"limit" validate:"gte=0,lte=1000"`
}

type sourceStruct struct {
	Name    string `koanf:"name" validate:"required,min=2"`
	Stream  string `koanf:"stream_url" validate:"omitempty,stream_url"`
	NATS    string `koanf:"nats_url" validate:"omitempty,nats_url"`
	Retries int    `validate:"min=1"`
}

func TestValidateStruct_CustomTags(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  []string // failing fields, in order
	}{
		{
			name:  "valid query",
			input: &queryStruct{Severity: []string{"high", "Critical"}, Module: []string{"TDC-AI4", "tdc_ai2_ai_manipulation_tactics"}, Sort: "severity", Limit: 50},
		},
		{
			name:  "unknown severity",
			input: &queryStruct{Severity: []string{"extreme"}},
			want:  []string{"severity[0]"},
		},
		{
			name:  "bad module and limit",
			input: &queryStruct{Module: []string{"sentiment"}, Limit: 5000},
			want:  []string{"module[0]", "limit"},
		},
		{
			name:  "bad sort",
			input: &queryStruct{Sort: "random"},
			want:  []string{"sort"},
		},
		{
			name:  "valid source",
			input: &sourceStruct{Name: "ws", Stream: "wss://producer.example:8443/stream", NATS: "nats://127.0.0.1:4222", Retries: 1},
		},
		{
			name:  "wrong schemes",
			input: &sourceStruct{Name: "ws", Stream: "http://producer.example", NATS: "ws://127.0.0.1:4222", Retries: 1},
			want:  []string{"stream_url", "nats_url"},
		},
		{
			name:  "missing host",
			input: &sourceStruct{Name: "ws", Stream: "ws://", Retries: 1},
			want:  []string{"stream_url"},
		},
		{
			name:  "go field name fallback",
			input: &sourceStruct{Name: "ws", Retries: 0},
			want:  []string{"Retries"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(tt.input)
			var got []string
			if verr != nil {
				for _, e := range verr.Errors() {
					got = append(got, e.Field())
				}
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("failing fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		verr := ValidateStruct(&queryStruct{Limit: -1})
		if verr == nil {
			t.Fatal("expected validation error")
		}
		apiErr := verr.ToAPIError()
		if apiErr.Code != "VALIDATION_FAILED" {
			t.Errorf("code = %q", apiErr.Code)
		}
		if apiErr.Message != "limit must be greater than or equal to 0" {
			t.Errorf("message = %q", apiErr.Message)
		}
		if apiErr.Details["field"] != "limit" {
			t.Errorf("details = %v", apiErr.Details)
		}
	})

	t.Run("multiple", func(t *testing.T) {
		verr := ValidateStruct(&sourceStruct{Name: "x", Retries: 0})
		if verr == nil {
			t.Fatal("expected validation error")
		}
		apiErr := verr.ToAPIError()
		fields, ok := apiErr.Details["fields"].([]map[string]interface{})
		if !ok || len(fields) != 2 {
			t.Fatalf("details = %#v", apiErr.Details)
		}
		if !strings.Contains(apiErr.Message, "name must be at least 2 characters") {
			t.Errorf("message = %q", apiErr.Message)
		}
		if verr.Error() != apiErr.Message {
			t.Errorf("Error() = %q, want %q", verr.Error(), apiErr.Message)
		}
	})

	t.Run("empty", func(t *testing.T) {
		verr := &RequestValidationError{}
		if verr.Error() != "validation failed" {
			t.Errorf("Error() = %q", verr.Error())
		}
		if verr.ToAPIError().Message != "Validation failed" {
			t.Errorf("message = %q", verr.ToAPIError().Message)
		}
	})
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  string
	}{
		{"severity", &queryStruct{Severity: []string{"nope"}}, "severity[0] must be one of Low, Medium, High, Critical"},
		{"module", &queryStruct{Module: []string{"x"}}, "module[0] must be a module identifier such as TDC-AI4"},
		{"oneof", &queryStruct{Sort: "x"}, "sort must be one of: time time_asc severity"},
		{"lte", &queryStruct{Limit: 1001}, "limit must be less than or equal to 1000"},
		{"stream_url", &sourceStruct{Name: "ws", Stream: "tcp://x", Retries: 1}, "stream_url must be a ws:// or wss:// URL"},
		{"required", &sourceStruct{Retries: 1}, "name is required"},
		{"min int", &sourceStruct{Name: "ws"}, "Retries must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(tt.input)
			if verr == nil {
				t.Fatal("expected validation error")
			}
			if got := verr.Errors()[0].Error(); got != tt.want {
				t.Errorf("message = %q, want %q", got, tt.want)
			}
		})
	}
}
