// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package api

import (
	"net/http"
	"strconv"

	"github.com/tomtom215/threatlens/internal/export"
	"github.com/tomtom215/threatlens/internal/logging"
	"github.com/tomtom215/threatlens/internal/projection"
	"github.com/tomtom215/threatlens/internal/validation"
)

// ExportEvents handles GET /api/v1/events/export?format=json|cef. It takes
// the same filter, search, sort and limit parameters as /events and writes
// the matching events in the requested SIEM format instead of the JSON
// envelope.
func (h *Handler) ExportEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	exp, err := export.ForFormat(r.URL.Query().Get("format"), h.version)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	req, err := parseEventsRequest(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}
	q, err := req.ToQuery()
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	snap := h.state.Snapshot()
	events := projection.Events(snap, q)

	body, err := exp.Export(events)
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("event export failed")
		rw.InternalError("export failed")
		return
	}

	w.Header().Set("Content-Type", exp.ContentType())
	w.Header().Set("X-Snapshot-Version", strconv.FormatUint(snap.Version, 10))
	w.Header().Set("X-Event-Count", strconv.Itoa(len(events)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
