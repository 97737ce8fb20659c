// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

package websocket

import (
	"sync"
	"testing"
	"time"

	"github.com/biotensor/streamhub/internal/models"
)

// recordingSink captures persisted events for assertions.
type recordingSink struct {
	mu        sync.Mutex
	alerts    []models.Alert
	incidents []models.IncidentReport
}

func (s *recordingSink) RecordAlert(alert models.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
}

func (s *recordingSink) RecordIncident(incident models.IncidentReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents = append(s.incidents, incident)
}

func (s *recordingSink) alertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

func (s *recordingSink) incidentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.incidents)
}

// startRouter wires a running hub, a recording sink, and a router.
func startRouter(t *testing.T) (*Hub, *Router, *recordingSink) {
	t.Helper()
	hub := startHub(t)
	sink := &recordingSink{}
	return hub, NewRouter(hub, sink), sink
}

func TestEvaluateThresholds(t *testing.T) {
	tests := []struct {
		name         string
		vitals       models.VitalSigns
		wantCount    int
		wantSeverity string
		wantType     string
	}{
		{
			name:         "heart rate above range",
			vitals:       models.VitalSigns{HeartRate: 130, OxygenSaturation: 97},
			wantCount:    1,
			wantSeverity: models.SeverityHigh,
			wantType:     "abnormal-heart-rate",
		},
		{
			name:         "heart rate below range",
			vitals:       models.VitalSigns{HeartRate: 42, OxygenSaturation: 97},
			wantCount:    1,
			wantSeverity: models.SeverityHigh,
			wantType:     "abnormal-heart-rate",
		},
		{
			name:         "low oxygen saturation",
			vitals:       models.VitalSigns{HeartRate: 75, OxygenSaturation: 85},
			wantCount:    1,
			wantSeverity: models.SeverityCritical,
			wantType:     "low-oxygen-saturation",
		},
		{
			name:      "normal reading",
			vitals:    models.VitalSigns{HeartRate: 75, OxygenSaturation: 97},
			wantCount: 0,
		},
		{
			name:      "boundary values raise nothing",
			vitals:    models.VitalSigns{HeartRate: 50, OxygenSaturation: 90},
			wantCount: 0,
		},
		{
			name:      "both thresholds violated",
			vitals:    models.VitalSigns{HeartRate: 180, OxygenSaturation: 80},
			wantCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := EvaluateThresholds("PAT000001", tt.vitals)
			if len(alerts) != tt.wantCount {
				t.Fatalf("alert count = %d, want %d", len(alerts), tt.wantCount)
			}
			if tt.wantCount != 1 {
				return
			}
			if alerts[0].Severity != tt.wantSeverity {
				t.Errorf("severity = %q, want %q", alerts[0].Severity, tt.wantSeverity)
			}
			if alerts[0].Type != tt.wantType {
				t.Errorf("type = %q, want %q", alerts[0].Type, tt.wantType)
			}
			if alerts[0].PatientID != "PAT000001" {
				t.Errorf("patientId = %q, want PAT000001", alerts[0].PatientID)
			}
			if alerts[0].ID == "" {
				t.Error("alert ID must be generated")
			}
		})
	}
}

func TestPublishVitalsReachesOnlySubscribers(t *testing.T) {
	hub, router, _ := startRouter(t)
	subscriber := newTestClient()
	bystander := newTestClient()
	register(hub, subscriber)
	register(hub, bystander)
	hub.Subscribe(subscriber, "PAT000001")

	router.PublishVitals("PAT000001", models.VitalSigns{HeartRate: 75, OxygenSaturation: 97})

	msg := recv(t, subscriber)
	if msg.Type != TypeVitalsUpdate {
		t.Errorf("type = %q, want %q", msg.Type, TypeVitalsUpdate)
	}
	noMessage(t, bystander)
}

// Threshold alerts intentionally escape topic scoping: a violated reading
// alerts every connection, not just the patient's subscribers.
func TestPublishVitalsThresholdAlertsEveryone(t *testing.T) {
	hub, router, sink := startRouter(t)
	subscriber := newTestClient()
	bystander := newTestClient()
	register(hub, subscriber)
	register(hub, bystander)
	hub.Subscribe(subscriber, "PAT000001")

	router.PublishVitals("PAT000001", models.VitalSigns{HeartRate: 130, OxygenSaturation: 97})

	// Subscriber sees the vitals frame first, then the alert.
	if msg := recv(t, subscriber); msg.Type != TypeVitalsUpdate {
		t.Errorf("first frame = %q, want %q", msg.Type, TypeVitalsUpdate)
	}
	if msg := recv(t, subscriber); msg.Type != TypeAlert {
		t.Errorf("second frame = %q, want %q", msg.Type, TypeAlert)
	}
	// Bystander only sees the alert.
	if msg := recv(t, bystander); msg.Type != TypeAlert {
		t.Errorf("bystander frame = %q, want %q", msg.Type, TypeAlert)
	}
	noMessage(t, bystander)

	if sink.alertCount() != 1 {
		t.Errorf("persisted alerts = %d, want 1", sink.alertCount())
	}
}

func TestDispatchSubscribeAndUnsubscribeAcks(t *testing.T) {
	hub, router, _ := startRouter(t)
	c := newTestClient()
	register(hub, c)

	router.Dispatch(c, []byte(`{"type":"subscribe-patient","patientId":"PAT000001"}`))
	msg := recv(t, c)
	if msg.Type != TypeSubscribed {
		t.Fatalf("type = %q, want %q", msg.Type, TypeSubscribed)
	}
	ack, ok := msg.Data.(AckPayload)
	if !ok {
		t.Fatalf("payload type = %T, want AckPayload", msg.Data)
	}
	if ack.PatientID != "PAT000001" {
		t.Errorf("ack patientId = %q, want PAT000001", ack.PatientID)
	}
	if len(hub.Subscribers("PAT000001")) != 1 {
		t.Error("subscription not registered")
	}

	router.Dispatch(c, []byte(`{"type":"unsubscribe-patient","patientId":"PAT000001"}`))
	msg = recv(t, c)
	if msg.Type != TypeUnsubscribed {
		t.Fatalf("type = %q, want %q", msg.Type, TypeUnsubscribed)
	}
	if hub.TopicCount() != 0 {
		t.Error("topic should be gone after last unsubscribe")
	}
}

func TestDispatchSubscribeRequiresPatientID(t *testing.T) {
	hub, router, _ := startRouter(t)
	c := newTestClient()
	register(hub, c)

	router.Dispatch(c, []byte(`{"type":"subscribe-patient"}`))

	if msg := recv(t, c); msg.Type != TypeError {
		t.Errorf("type = %q, want %q", msg.Type, TypeError)
	}
	if hub.TopicCount() != 0 {
		t.Error("no subscription should be created")
	}
}

// A bad frame gets one error reply and the session keeps working.
func TestDispatchMalformedFrameKeepsConnectionUsable(t *testing.T) {
	hub, router, _ := startRouter(t)
	c := newTestClient()
	register(hub, c)

	router.Dispatch(c, []byte(`{not json at all`))
	if msg := recv(t, c); msg.Type != TypeError {
		t.Fatalf("type = %q, want %q", msg.Type, TypeError)
	}

	router.Dispatch(c, []byte(`{"type":"ping"}`))
	if msg := recv(t, c); msg.Type != TypePong {
		t.Errorf("type = %q, want %q after recovering", msg.Type, TypePong)
	}
}

func TestDispatchUnknownTypeRejected(t *testing.T) {
	hub, router, _ := startRouter(t)
	c := newTestClient()
	register(hub, c)

	router.Dispatch(c, []byte(`{"type":"shutdown-server"}`))

	if msg := recv(t, c); msg.Type != TypeError {
		t.Errorf("type = %q, want %q", msg.Type, TypeError)
	}
}

func TestDispatchPingAnswersSenderOnly(t *testing.T) {
	hub, router, _ := startRouter(t)
	sender := newTestClient()
	other := newTestClient()
	register(hub, sender)
	register(hub, other)

	router.Dispatch(sender, []byte(`{"type":"ping"}`))

	if msg := recv(t, sender); msg.Type != TypePong {
		t.Errorf("type = %q, want %q", msg.Type, TypePong)
	}
	noMessage(t, other)
}

func TestDispatchGlobalSubscriptionAcks(t *testing.T) {
	tests := []struct {
		name        string
		frame       string
		wantChannel string
	}{
		{"threats", `{"type":"subscribe-threats"}`, ChannelThreats},
		{"system health", `{"type":"subscribe-system-health"}`, ChannelSystemHealth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub, router, _ := startRouter(t)
			c := newTestClient()
			register(hub, c)

			router.Dispatch(c, []byte(tt.frame))

			msg := recv(t, c)
			if msg.Type != TypeSubscribed {
				t.Fatalf("type = %q, want %q", msg.Type, TypeSubscribed)
			}
			ack, ok := msg.Data.(AckPayload)
			if !ok {
				t.Fatalf("payload type = %T, want AckPayload", msg.Data)
			}
			if ack.Channel != tt.wantChannel {
				t.Errorf("channel = %q, want %q", ack.Channel, tt.wantChannel)
			}
		})
	}
}

func TestDispatchAlertBroadcastsAndPersists(t *testing.T) {
	hub, router, sink := startRouter(t)
	sender := newTestClient()
	other := newTestClient()
	register(hub, sender)
	register(hub, other)

	router.Dispatch(sender, []byte(`{"type":"alert","message":"manual check requested"}`))

	for _, c := range []*Client{sender, other} {
		msg := recv(t, c)
		if msg.Type != TypeAlert {
			t.Fatalf("type = %q, want %q", msg.Type, TypeAlert)
		}
		alert, ok := msg.Data.(models.Alert)
		if !ok {
			t.Fatalf("payload type = %T, want models.Alert", msg.Data)
		}
		if alert.Type != "manual" {
			t.Errorf("alert type = %q, want default manual", alert.Type)
		}
		if alert.Severity != models.SeverityMedium {
			t.Errorf("severity = %q, want default %q", alert.Severity, models.SeverityMedium)
		}
	}
	if sink.alertCount() != 1 {
		t.Errorf("persisted alerts = %d, want 1", sink.alertCount())
	}
}

func TestDispatchIncidentReport(t *testing.T) {
	hub, router, sink := startRouter(t)
	reporter := newTestClient()
	observer := newTestClient()
	register(hub, reporter)
	register(hub, observer)

	router.Dispatch(reporter, []byte(`{"type":"report-incident","title":"Unusual login pattern","description":"Repeated failed logins from one address","severity":"high","userId":"analyst-7"}`))

	msg := recv(t, observer)
	if msg.Type != TypeIncidentReport {
		t.Fatalf("type = %q, want %q", msg.Type, TypeIncidentReport)
	}
	incident, ok := msg.Data.(models.IncidentReport)
	if !ok {
		t.Fatalf("payload type = %T, want models.IncidentReport", msg.Data)
	}
	if incident.ID == "" {
		t.Error("incident ID must be generated")
	}
	if incident.Status != "investigating" {
		t.Errorf("status = %q, want investigating", incident.Status)
	}
	if incident.Severity != models.SeverityHigh {
		t.Errorf("severity = %q, want %q", incident.Severity, models.SeverityHigh)
	}
	if incident.ReportedBy != "analyst-7" {
		t.Errorf("reportedBy = %q, want analyst-7", incident.ReportedBy)
	}
	if sink.incidentCount() != 1 {
		t.Errorf("persisted incidents = %d, want 1", sink.incidentCount())
	}
}

func TestDispatchIncidentDefaults(t *testing.T) {
	hub, router, _ := startRouter(t)
	c := newTestClient()
	register(hub, c)

	router.Dispatch(c, []byte(`{"type":"report-incident","title":"Door ajar","description":"Server room door left open"}`))

	msg := recv(t, c)
	incident, ok := msg.Data.(models.IncidentReport)
	if !ok {
		t.Fatalf("payload type = %T, want models.IncidentReport", msg.Data)
	}
	if incident.Severity != models.SeverityMedium {
		t.Errorf("severity = %q, want default %q", incident.Severity, models.SeverityMedium)
	}
	if incident.ReportedBy != "anonymous" {
		t.Errorf("reportedBy = %q, want anonymous", incident.ReportedBy)
	}
}

func TestDispatchIncidentValidation(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"missing title", `{"type":"report-incident","description":"no title given"}`},
		{"missing description", `{"type":"report-incident","title":"just a title"}`},
		{"bad severity", `{"type":"report-incident","title":"t","description":"d","severity":"catastrophic"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub, router, sink := startRouter(t)
			c := newTestClient()
			register(hub, c)

			router.Dispatch(c, []byte(tt.frame))

			if msg := recv(t, c); msg.Type != TypeError {
				t.Errorf("type = %q, want %q", msg.Type, TypeError)
			}
			if sink.incidentCount() != 0 {
				t.Error("invalid incident must not be persisted")
			}
		})
	}
}

func TestDispatchVitalsRequiresPayload(t *testing.T) {
	hub, router, _ := startRouter(t)
	c := newTestClient()
	register(hub, c)

	router.Dispatch(c, []byte(`{"type":"vitals-update","patientId":"PAT000001"}`))

	if msg := recv(t, c); msg.Type != TypeError {
		t.Errorf("type = %q, want %q", msg.Type, TypeError)
	}
}

func TestNilSinkDoesNotPanic(t *testing.T) {
	hub := startHub(t)
	router := NewRouter(hub, nil)
	c := newTestClient()
	register(hub, c)

	router.Dispatch(c, []byte(`{"type":"alert","message":"no sink wired"}`))
	router.PublishVitals("PAT000001", models.VitalSigns{HeartRate: 130, OxygenSaturation: 85})
	time.Sleep(20 * time.Millisecond)
}
