// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/threatlens/internal/middleware"
)

// Router sets up HTTP routes using the Chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. The websocket origin check follows the CORS
// allow-list.
func NewRouter(handler *Handler, mwConfig *ChiMiddlewareConfig) *Router {
	mw := NewChiMiddleware(mwConfig)
	handler.origins = mw.allowsOrigin
	return &Router{
		handler:       handler,
		chiMiddleware: mw,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(router.chiMiddleware.CORS()) // Must be global to answer OPTIONS preflight

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		r.With(router.chiMiddleware.RateLimitCustom(RateLimitWebSocket)).Get("/ws", router.handler.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())

			r.Get("/events", router.handler.Events)
			r.Get("/events/export", router.handler.ExportEvents)
			r.Get("/events/{id}", router.handler.Event)
			r.Get("/summary", router.handler.Summary)
			r.Get("/modules", router.handler.Modules)
			r.Get("/modules/{id}", router.handler.Module)
			r.Get("/timeline", router.handler.Timeline)
			r.Get("/evidence", router.handler.Evidence)
			r.Get("/sessions", router.handler.Sessions)
			r.Get("/connection", router.handler.Connection)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, r, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	return r
}
