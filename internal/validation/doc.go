// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide (it caches struct
// metadata). It is used for configuration after koanf has merged every layer,
// and for read-API query parameters after they are bound into a request
// struct.
//
// # Custom Tags
//
//   - severity: Low, Medium, High or Critical, case-insensitive
//   - module_id: a TDC-AI<n> identifier in any transport spelling
//   - stream_url: ws:// or wss:// with a host
//   - nats_url: nats:// or tls:// with a host
//
// Field names in errors come from the query, koanf or json tag, in that
// order, so a bad ?limit= is reported as "limit" rather than "Limit".
//
// # Usage
//
//	type eventsQuery struct {
//	    Limit int `query:"limit" validate:"gte=0,lte=1000"`
//	}
//
//	if verr := validation.ValidateStruct(&q); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    rw.ValidationError(apiErr.Message, apiErr.Details)
//	    return
//	}
package validation
