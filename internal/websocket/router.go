// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

package websocket

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/biotensor/streamhub/internal/logging"
	"github.com/biotensor/streamhub/internal/metrics"
	"github.com/biotensor/streamhub/internal/models"
)

// Vitals threshold rules. A reading outside these bounds raises an alert
// broadcast to every connection, not just the patient's subscribers.
const (
	heartRateLow  = 50.0
	heartRateHigh = 120.0
	oxygenSatLow  = 90.0
)

// PersistenceSink records selected event kinds for later query. Writes are
// fire-and-forget: implementations must never block the caller and must
// swallow failures.
type PersistenceSink interface {
	RecordAlert(alert models.Alert)
	RecordIncident(incident models.IncidentReport)
}

// Router maps inbound client frames to registry and broadcaster operations.
// It also exposes PublishVitals so REST handlers and the NATS bridge reuse
// the exact broadcast path the WebSocket channel uses.
type Router struct {
	hub      *Hub
	sink     PersistenceSink // nil disables persistence
	validate *validator.Validate
}

// NewRouter creates a router bound to a hub. sink may be nil.
func NewRouter(hub *Hub, sink PersistenceSink) *Router {
	return &Router{
		hub:      hub,
		sink:     sink,
		validate: validator.New(),
	}
}

// Dispatch handles one raw inbound frame from a client. Malformed frames are
// answered with an error reply; the connection stays usable.
func (r *Router) Dispatch(c *Client, data []byte) {
	msg, err := ParseInbound(data)
	if err != nil {
		metrics.WSMessagesMalformed.Inc()
		c.trySend(NewError(err.Error()))
		return
	}
	metrics.WSMessagesReceived.WithLabelValues(msg.Type).Inc()

	switch msg.Type {
	case TypeSubscribePatient:
		r.handleSubscribePatient(c, msg)
	case TypeUnsubscribePatient:
		r.handleUnsubscribePatient(c, msg)
	case TypeVitalsUpdate:
		r.handleVitals(c, msg)
	case TypeAlert:
		r.handleAlert(msg)
	case TypeSubscribeThreats:
		r.hub.SubscribeThreats(c)
		c.trySend(Message{Type: TypeSubscribed, Data: AckPayload{
			Channel:   ChannelThreats,
			Message:   "subscribed to threat stream",
			Timestamp: time.Now().UTC(),
		}})
	case TypeSubscribeHealth:
		r.hub.SubscribeSystemHealth(c)
		c.trySend(Message{Type: TypeSubscribed, Data: AckPayload{
			Channel:   ChannelSystemHealth,
			Message:   "subscribed to system health stream",
			Timestamp: time.Now().UTC(),
		}})
	case TypeReportIncident:
		r.handleIncident(c, msg)
	case TypePing:
		c.trySend(NewPong())
	}
}

func (r *Router) handleSubscribePatient(c *Client, msg *Inbound) {
	if msg.PatientID == "" {
		c.trySend(NewError("subscribe-patient requires patientId"))
		return
	}
	r.hub.Subscribe(c, msg.PatientID)
	c.trySend(Message{Type: TypeSubscribed, Data: AckPayload{
		PatientID: msg.PatientID,
		Message:   fmt.Sprintf("subscribed to vitals for %s", msg.PatientID),
		Timestamp: time.Now().UTC(),
	}})
}

func (r *Router) handleUnsubscribePatient(c *Client, msg *Inbound) {
	if msg.PatientID == "" {
		c.trySend(NewError("unsubscribe-patient requires patientId"))
		return
	}
	r.hub.Unsubscribe(c, msg.PatientID)
	c.trySend(Message{Type: TypeUnsubscribed, Data: AckPayload{
		PatientID: msg.PatientID,
		Message:   fmt.Sprintf("unsubscribed from vitals for %s", msg.PatientID),
		Timestamp: time.Now().UTC(),
	}})
}

func (r *Router) handleVitals(c *Client, msg *Inbound) {
	if msg.PatientID == "" || msg.Vitals == nil {
		c.trySend(NewError("vitals-update requires patientId and vitals"))
		return
	}
	r.PublishVitals(msg.PatientID, *msg.Vitals)
}

// PublishVitals broadcasts a vitals observation to the patient's topic and
// evaluates threshold rules. Violations raise alerts to every connection
// and are persisted. Broadcast happens before persistence so a slow store
// never delays delivery.
func (r *Router) PublishVitals(patientID string, vitals models.VitalSigns) {
	r.hub.BroadcastToPatient(patientID, NewVitalsUpdate(patientID, vitals))

	for _, alert := range EvaluateThresholds(patientID, vitals) {
		r.hub.BroadcastAll(NewAlert(alert))
		if r.sink != nil {
			r.sink.RecordAlert(alert)
		}
		logging.Warn().
			Str("patient_id", patientID).
			Str("severity", alert.Severity).
			Str("alert", alert.Message).
			Msg("vitals threshold violated")
	}
}

// EvaluateThresholds returns the alerts a vitals reading raises. Heart rate
// outside [50,120] bpm is high severity; oxygen saturation below 90% is
// critical. A reading can raise both.
func EvaluateThresholds(patientID string, vitals models.VitalSigns) []models.Alert {
	var alerts []models.Alert
	now := time.Now().UTC()

	if vitals.HeartRate < heartRateLow || vitals.HeartRate > heartRateHigh {
		alerts = append(alerts, models.Alert{
			ID:        uuid.NewString(),
			Type:      "abnormal-heart-rate",
			Message:   fmt.Sprintf("heart rate %.0f bpm outside safe range [%.0f, %.0f]", vitals.HeartRate, heartRateLow, heartRateHigh),
			Severity:  models.SeverityHigh,
			PatientID: patientID,
			Timestamp: now,
		})
	}
	if vitals.OxygenSaturation < oxygenSatLow {
		alerts = append(alerts, models.Alert{
			ID:        uuid.NewString(),
			Type:      "low-oxygen-saturation",
			Message:   fmt.Sprintf("oxygen saturation %.0f%% below %.0f%%", vitals.OxygenSaturation, oxygenSatLow),
			Severity:  models.SeverityCritical,
			PatientID: patientID,
			Timestamp: now,
		})
	}
	return alerts
}

func (r *Router) handleAlert(msg *Inbound) {
	alertType := msg.AlertType
	if alertType == "" {
		alertType = "manual"
	}
	severity := msg.Severity
	if severity == "" {
		severity = models.SeverityMedium
	}
	alert := models.Alert{
		ID:        uuid.NewString(),
		Type:      alertType,
		Message:   msg.Message,
		Severity:  severity,
		PatientID: msg.PatientID,
		Timestamp: time.Now().UTC(),
	}

	r.hub.BroadcastAll(NewAlert(alert))
	if r.sink != nil {
		r.sink.RecordAlert(alert)
	}
}

// incidentRequest carries the validated report-incident fields.
type incidentRequest struct {
	Title       string `validate:"required,max=200"`
	Description string `validate:"required,max=2000"`
	Severity    string `validate:"omitempty,oneof=low medium high critical"`
}

func (r *Router) handleIncident(c *Client, msg *Inbound) {
	req := incidentRequest{
		Title:       msg.Title,
		Description: msg.Description,
		Severity:    msg.Severity,
	}
	if err := r.validate.Struct(req); err != nil {
		c.trySend(NewError("report-incident requires title and description"))
		return
	}

	severity := req.Severity
	if severity == "" {
		severity = models.SeverityMedium
	}
	reportedBy := msg.UserID
	if reportedBy == "" {
		reportedBy = "anonymous"
	}

	incident := models.IncidentReport{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Severity:    severity,
		ReportedBy:  reportedBy,
		Status:      "investigating",
		Timestamp:   time.Now().UTC(),
	}

	r.hub.BroadcastAll(NewIncidentReport(incident))
	if r.sink != nil {
		r.sink.RecordIncident(incident)
	}
	logging.Info().Str("incident_id", incident.ID).Str("severity", incident.Severity).Msg("incident reported")
}
