// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

package websocket

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/biotensor/streamhub/internal/models"
)

// Message type tags accepted from clients.
const (
	TypeSubscribePatient   = "subscribe-patient"
	TypeUnsubscribePatient = "unsubscribe-patient"
	TypeVitalsUpdate       = "vitals-update"
	TypeAlert              = "alert"
	TypeSubscribeThreats   = "subscribe-threats"
	TypeSubscribeHealth    = "subscribe-system-health"
	TypeReportIncident     = "report-incident"
	TypePing               = "ping"
)

// Message type tags only ever sent by the server.
const (
	TypeSubscribed     = "subscribed"
	TypeUnsubscribed   = "unsubscribed"
	TypeThreatDetected = "threat-detected"
	TypeSystemHealth   = "system-health-update"
	TypeSecurityEvent  = "security-event"
	TypeIncidentReport = "incident-report"
	TypePong           = "pong"
	TypeError          = "error"
)

// inboundTypes is the closed set of message kinds clients may send.
// Anything else is rejected at the boundary.
var inboundTypes = map[string]struct{}{
	TypeSubscribePatient:   {},
	TypeUnsubscribePatient: {},
	TypeVitalsUpdate:       {},
	TypeAlert:              {},
	TypeSubscribeThreats:   {},
	TypeSubscribeHealth:    {},
	TypeReportIncident:     {},
	TypePing:               {},
}

// Inbound is the decoded form of one client frame. Type is one of the
// inbound tags above; only the fields relevant to that tag are populated.
type Inbound struct {
	Type      string             `json:"type"`
	PatientID string             `json:"patientId,omitempty"`
	Vitals    *models.VitalSigns `json:"vitals,omitempty"`

	// alert fields (freeform per the wire contract)
	AlertType string `json:"alertType,omitempty"`
	Message   string `json:"message,omitempty"`
	Severity  string `json:"severity,omitempty"`

	// report-incident fields
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	UserID      string `json:"userId,omitempty"`
}

// ParseInbound decodes one client frame and rejects unknown message kinds.
func ParseInbound(data []byte) (*Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unparseable message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("missing message type")
	}
	if _, ok := inboundTypes[msg.Type]; !ok {
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
	return &msg, nil
}

// Message is one outbound frame. Data holds the kind-specific payload and is
// flattened next to the type tag on the wire:
//
//	{"type":"vitals-update","patientId":"PAT000001","vitals":{...},"timestamp":"..."}
type Message struct {
	Type string
	Data any
}

// MarshalJSON flattens the payload fields alongside the "type" tag.
func (m Message) MarshalJSON() ([]byte, error) {
	head := `{"type":"` + m.Type + `"`
	if m.Data == nil {
		return []byte(head + "}"), nil
	}

	payload, err := json.Marshal(m.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", m.Type, err)
	}
	if len(payload) < 2 || payload[0] != '{' {
		return nil, fmt.Errorf("%s payload must encode to a JSON object", m.Type)
	}
	if len(payload) == 2 { // "{}"
		return []byte(head + "}"), nil
	}

	buf := make([]byte, 0, len(head)+1+len(payload))
	buf = append(buf, head...)
	buf = append(buf, ',')
	buf = append(buf, payload[1:]...)
	return buf, nil
}

// AckPayload acknowledges a subscribe or unsubscribe request.
type AckPayload struct {
	PatientID string    `json:"patientId,omitempty"`
	Channel   string    `json:"channel,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// VitalsPayload carries one vitals observation for a patient topic.
type VitalsPayload struct {
	PatientID string            `json:"patientId"`
	Vitals    models.VitalSigns `json:"vitals"`
	Timestamp time.Time         `json:"timestamp"`
}

// ThreatPayload wraps a detected threat for the security channel.
type ThreatPayload struct {
	Threat    models.Threat `json:"threat"`
	Timestamp time.Time     `json:"timestamp"`
}

// HealthPayload carries one subsystem health snapshot.
type HealthPayload struct {
	System    string                     `json:"system"`
	Metrics   models.SystemHealthMetrics `json:"metrics"`
	Timestamp time.Time                  `json:"timestamp"`
}

// SecurityEventPayload wraps an operational security event.
type SecurityEventPayload struct {
	Event     models.SecurityEvent `json:"event"`
	Timestamp time.Time            `json:"timestamp"`
}

// ErrorPayload reports a recoverable protocol error to the sender.
type ErrorPayload struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// PongPayload answers a ping.
type PongPayload struct {
	Timestamp time.Time `json:"timestamp"`
}

// NewVitalsUpdate builds a vitals-update frame for a patient topic.
func NewVitalsUpdate(patientID string, vitals models.VitalSigns) Message {
	return Message{Type: TypeVitalsUpdate, Data: VitalsPayload{
		PatientID: patientID,
		Vitals:    vitals,
		Timestamp: time.Now().UTC(),
	}}
}

// NewAlert builds an alert frame.
func NewAlert(alert models.Alert) Message {
	return Message{Type: TypeAlert, Data: alert}
}

// NewThreatDetected builds a threat-detected frame.
func NewThreatDetected(threat models.Threat) Message {
	return Message{Type: TypeThreatDetected, Data: ThreatPayload{
		Threat:    threat,
		Timestamp: time.Now().UTC(),
	}}
}

// NewSystemHealth builds a system-health-update frame.
func NewSystemHealth(system string, m models.SystemHealthMetrics) Message {
	return Message{Type: TypeSystemHealth, Data: HealthPayload{
		System:    system,
		Metrics:   m,
		Timestamp: time.Now().UTC(),
	}}
}

// NewSecurityEvent builds a security-event frame.
func NewSecurityEvent(event models.SecurityEvent) Message {
	return Message{Type: TypeSecurityEvent, Data: SecurityEventPayload{
		Event:     event,
		Timestamp: time.Now().UTC(),
	}}
}

// NewIncidentReport builds an incident-report frame.
func NewIncidentReport(incident models.IncidentReport) Message {
	return Message{Type: TypeIncidentReport, Data: incident}
}

// NewError builds an error frame for the sender.
func NewError(message string) Message {
	return Message{Type: TypeError, Data: ErrorPayload{
		Message:   message,
		Timestamp: time.Now().UTC(),
	}}
}

// NewPong answers a ping.
func NewPong() Message {
	return Message{Type: TypePong, Data: PongPayload{Timestamp: time.Now().UTC()}}
}
