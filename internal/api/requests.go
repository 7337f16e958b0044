// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/threatlens/internal/models"
	"github.com/tomtom215/threatlens/internal/projection"
)

// MaxLimit caps every list endpoint.
const MaxLimit = 1000

// EventsRequest holds the validated query parameters of GET /events.
// List parameters accept repeated keys and comma-separated values.
type EventsRequest struct {
	Types      []string `query:"type" validate:"dive,min=1,max=128"`
	Severities []string `query:"severity" validate:"dive,severity"`
	Modules    []string `query:"module" validate:"dive,module_id"`
	From       string   `query:"from" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To         string   `query:"to" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Search     string   `query:"q" validate:"max=256"`
	Sort       string   `query:"sort" validate:"omitempty,oneof=time time_asc timestamp severity score session type newest oldest time_desc"`
	Limit      int      `query:"limit" validate:"gte=0,lte=1000"`
}

// LimitRequest holds the ?limit= parameter of the bounded views.
type LimitRequest struct {
	Limit int `query:"limit" validate:"gte=0,lte=1000"`
}

// parseEventsRequest binds query parameters. It only fails on values that
// cannot be bound at all; range checks are left to the validator.
func parseEventsRequest(r *http.Request) (EventsRequest, error) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		return EventsRequest{}, err
	}

	return EventsRequest{
		Types:      listParam(q["type"]),
		Severities: listParam(q["severity"]),
		Modules:    listParam(q["module"]),
		From:       strings.TrimSpace(q.Get("from")),
		To:         strings.TrimSpace(q.Get("to")),
		Search:     strings.TrimSpace(q.Get("q")),
		Sort:       strings.ToLower(strings.TrimSpace(q.Get("sort"))),
		Limit:      limit,
	}, nil
}

func parseLimitRequest(r *http.Request) (LimitRequest, error) {
	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil {
		return LimitRequest{}, err
	}
	return LimitRequest{Limit: limit}, nil
}

// ToQuery converts a validated request into a projection query.
func (req EventsRequest) ToQuery() (projection.Query, error) {
	var q projection.Query

	q.ThreatTypes = req.Types
	q.Modules = req.Modules
	for _, raw := range req.Severities {
		s, ok := models.ParseSeverity(raw)
		if !ok {
			return q, fmt.Errorf("unknown severity %q", raw)
		}
		q.Severities = append(q.Severities, s)
	}

	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			return q, fmt.Errorf("from: %w", err)
		}
		q.From = &from
	}
	if req.To != "" {
		to, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			return q, fmt.Errorf("to: %w", err)
		}
		q.To = &to
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return q, fmt.Errorf("to must not be before from")
	}

	sort, ok := projection.ParseSort(req.Sort)
	if !ok {
		return q, fmt.Errorf("unknown sort %q", req.Sort)
	}
	q.Sort = sort
	q.Search = req.Search
	q.Limit = req.Limit
	return q, nil
}

// listParam flattens repeated and comma-separated values, dropping blanks.
func listParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func intParam(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer")
	}
	return n, nil
}

// lastN returns at most n trailing elements; n <= 0 returns all.
func lastN[T any](items []T, n int) []T {
	if n <= 0 || n >= len(items) {
		return items
	}
	return items[len(items)-n:]
}

// firstN returns at most n leading elements; n <= 0 returns all.
func firstN[T any](items []T, n int) []T {
	if n <= 0 || n >= len(items) {
		return items
	}
	return items[:n]
}
