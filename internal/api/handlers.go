// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

// Package api exposes the WebSocket upgrade endpoints and the small REST
// surface: vitals ingest, alert/incident history, and health.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/biotensor/streamhub/internal/config"
	"github.com/biotensor/streamhub/internal/database"
	"github.com/biotensor/streamhub/internal/logging"
	"github.com/biotensor/streamhub/internal/models"
	ws "github.com/biotensor/streamhub/internal/websocket"
)

const historyLimit = 100

// Handler holds dependencies for all HTTP endpoints. store may be nil when
// persistence is disabled; the history endpoints then return 503.
type Handler struct {
	hub       *ws.Hub
	wsRouter  *ws.Router
	store     *database.Store
	config    *config.Config
	startTime time.Time
}

// NewHandler creates the HTTP handler set.
func NewHandler(hub *ws.Hub, wsRouter *ws.Router, store *database.Store, cfg *config.Config) *Handler {
	return &Handler{
		hub:       hub,
		wsRouter:  wsRouter,
		store:     store,
		config:    cfg,
		startTime: time.Now(),
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout against slow clients.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins. A missing
// Origin header is rejected: browsers always send one, so its absence means
// the CORS allowlist cannot apply.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("websocket connection rejected: missing Origin header")
		return false
	}

	// Nil config fails open for tests.
	if h.config == nil {
		return true
	}

	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("websocket connection rejected: origin not allowed")
	return false
}

// VitalsWS upgrades a connection on the patient vitals channel.
func (h *Handler) VitalsWS(w http.ResponseWriter, r *http.Request) {
	h.upgrade(w, r, "vitals")
}

// SecurityWS upgrades a connection on the security monitoring channel.
// Both channels share one hub; which event families a connection sees is
// driven entirely by the subscriptions it requests.
func (h *Handler) SecurityWS(w http.ResponseWriter, r *http.Request) {
	h.upgrade(w, r, "security")
}

func (h *Handler) upgrade(w http.ResponseWriter, r *http.Request, channel string) {
	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Str("channel", channel).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, h.wsRouter, conn,
		h.config.Security.ClientMessageRate, h.config.Security.ClientMessageBurst)
	h.hub.Register <- client
	client.Start()

	logging.Debug().Uint64("client_id", client.ID()).Str("channel", channel).
		Msg("websocket client upgraded")
}

// IngestVitals handles POST /api/v1/patients/{patientID}/vitals. The body is
// a vitals reading; it is broadcast through the same path the WebSocket
// channel uses, threshold alerting included.
func (h *Handler) IngestVitals(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if patientID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "patient ID required")
		return
	}

	var vitals models.VitalSigns
	if err := json.NewDecoder(r.Body).Decode(&vitals); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be a vitals reading")
		return
	}

	h.wsRouter.PublishVitals(patientID, vitals)
	respondJSON(w, http.StatusAccepted, response{
		Status: "accepted",
		Data: map[string]any{
			"patientId":   patientID,
			"subscribers": len(h.hub.Subscribers(patientID)),
		},
	})
}

// Alerts handles GET /api/v1/alerts, newest first.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "PERSISTENCE_DISABLED", "alert history requires the database")
		return
	}
	alerts, err := h.store.RecentAlerts(r.Context(), historyLimit)
	if err != nil {
		logging.Error().Err(err).Msg("alert history query failed")
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to load alerts")
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	respondJSON(w, http.StatusOK, response{Status: "success", Data: alerts})
}

// Incidents handles GET /api/v1/incidents, newest first.
func (h *Handler) Incidents(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "PERSISTENCE_DISABLED", "incident history requires the database")
		return
	}
	incidents, err := h.store.RecentIncidents(r.Context(), historyLimit)
	if err != nil {
		logging.Error().Err(err).Msg("incident history query failed")
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to load incidents")
		return
	}
	if incidents == nil {
		incidents = []models.IncidentReport{}
	}
	respondJSON(w, http.StatusOK, response{Status: "success", Data: incidents})
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	dbStatus := "disabled"
	if h.store != nil {
		dbStatus = "up"
		if err := h.store.Ping(r.Context()); err != nil {
			dbStatus = "down"
			status = "degraded"
		}
	}

	respondJSON(w, http.StatusOK, response{
		Status: "success",
		Data: map[string]any{
			"status":        status,
			"database":      dbStatus,
			"connections":   h.hub.ClientCount(),
			"patientTopics": h.hub.TopicCount(),
			"uptimeSeconds": int64(time.Since(h.startTime).Seconds()),
		},
	})
}

// response is the REST envelope. WebSocket frames use their own shape.
type response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, response{Status: "error", Code: code, Error: message})
}
