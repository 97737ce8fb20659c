// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/biotensor/streamhub/internal/metrics"
)

// Routes assembles the full HTTP surface.
//
// The WebSocket endpoints sit outside the REST rate limiter: they are
// long-lived upgrades, and inbound frame abuse is throttled per connection
// by the client message limiter instead.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.config.Security.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// WebSocket channels
	r.Get("/ws/vitals", h.VitalsWS)
	r.Get("/ws/security", h.SecurityWS)

	// REST surface
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(h.config.Security.APIRateLimit, time.Minute))
		r.Use(prometheusMetrics)

		r.Get("/health", h.Health)
		r.Get("/alerts", h.Alerts)
		r.Get("/incidents", h.Incidents)
		r.Post("/patients/{patientID}/vitals", h.IngestVitals)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// prometheusMetrics records request counts by method, route pattern, and
// status code. Uses the Chi route pattern so path parameters don't explode
// label cardinality.
func prometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(wrapped, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.APIRequestsTotal.WithLabelValues(
			r.Method, pattern, strconv.Itoa(wrapped.Status())).Inc()
	})
}
