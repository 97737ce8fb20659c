// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/biotensor/streamhub/internal/config"
	"github.com/biotensor/streamhub/internal/database"
	"github.com/biotensor/streamhub/internal/logging"
	ws "github.com/biotensor/streamhub/internal/websocket"
)

//nolint:gochecknoinits // init ensures quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

func testServerConfig() *config.Config {
	cfg := config.Default()
	cfg.Security.CORSOrigins = []string{"*"}
	cfg.Security.APIRateLimit = 10000
	cfg.Security.ClientMessageRate = 1000
	cfg.Security.ClientMessageBurst = 1000
	return cfg
}

// newTestServer wires a running hub, handler set, and httptest server.
// store may be nil.
func newTestServer(t *testing.T, store *database.Store) (*httptest.Server, *ws.Hub) {
	t.Helper()

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.Run(ctx) }()

	var sink ws.PersistenceSink
	if store != nil {
		sink = database.NewSink(store)
	}
	wsRouter := ws.NewRouter(hub, sink)
	handler := NewHandler(hub, wsRouter, store, testServerConfig())

	srv := httptest.NewServer(handler.Routes())
	t.Cleanup(srv.Close)
	return srv, hub
}

// dial opens a WebSocket connection with a valid Origin header.
func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	header := http.Header{"Origin": []string{"http://localhost"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial %s failed: %v", path, err)
	}
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readFrame reads and decodes one frame with a timeout.
func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set read deadline failed: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return frame
}

func TestCheckWebSocketOrigin(t *testing.T) {
	tests := []struct {
		name   string
		config *config.Config
		origin string
		allow  bool
	}{
		{"nil config allows", nil, "http://example.com", true},
		{"missing origin rejected", testServerConfig(), "", false},
		{"wildcard allows any", testServerConfig(), "http://anywhere.example", true},
		{
			"exact match allows",
			&config.Config{Security: config.SecurityConfig{CORSOrigins: []string{"http://app.example"}}},
			"http://app.example",
			true,
		},
		{
			"mismatch rejected",
			&config.Config{Security: config.SecurityConfig{CORSOrigins: []string{"http://app.example"}}},
			"http://evil.example",
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &Handler{config: tt.config}
			req := httptest.NewRequest(http.MethodGet, "/ws/vitals", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := handler.checkWebSocketOrigin(req); got != tt.allow {
				t.Errorf("checkWebSocketOrigin(%q) = %v, want %v", tt.origin, got, tt.allow)
			}
		})
	}
}

func TestWebSocketUpgradeRejectsMissingOrigin(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/vitals"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil) // no Origin header
	if err == nil {
		_ = conn.Close()
		t.Fatal("dial without Origin should fail")
	}
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
		}
	}
}

func TestSubscribeThenRESTIngestDeliversVitals(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	subscriber := dial(t, srv, "/ws/vitals")
	bystander := dial(t, srv, "/ws/vitals")

	err := subscriber.WriteJSON(map[string]string{"type": "subscribe-patient", "patientId": "PAT000001"})
	if err != nil {
		t.Fatalf("subscribe write failed: %v", err)
	}
	if frame := readFrame(t, subscriber); frame["type"] != "subscribed" {
		t.Fatalf("frame type = %v, want subscribed", frame["type"])
	}

	body := strings.NewReader(`{"heartRate":75,"bloodPressure":{"systolic":120,"diastolic":80},"temperature":36.8,"oxygenSaturation":97}`)
	resp, err := http.Post(srv.URL+"/api/v1/patients/PAT000001/vitals", "application/json", body)
	if err != nil {
		t.Fatalf("ingest request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("ingest status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}

	frame := readFrame(t, subscriber)
	if frame["type"] != "vitals-update" {
		t.Errorf("frame type = %v, want vitals-update", frame["type"])
	}
	if frame["patientId"] != "PAT000001" {
		t.Errorf("patientId = %v, want PAT000001", frame["patientId"])
	}
	if _, ok := frame["vitals"]; !ok {
		t.Error("vitals missing from frame")
	}

	// The bystander never subscribed and must stay silent.
	if err := bystander.SetReadDeadline(time.Now().Add(200 * time.Millisecond)); err != nil {
		t.Fatalf("set read deadline failed: %v", err)
	}
	if _, data, err := bystander.ReadMessage(); err == nil {
		t.Errorf("bystander unexpectedly received %s", data)
	}
}

// A threshold-violating ingest alerts every connection on both channels.
func TestRESTIngestThresholdAlertReachesAllChannels(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	vitalsConn := dial(t, srv, "/ws/vitals")
	securityConn := dial(t, srv, "/ws/security")

	body := strings.NewReader(`{"heartRate":130,"bloodPressure":{"systolic":120,"diastolic":80},"temperature":36.8,"oxygenSaturation":97}`)
	resp, err := http.Post(srv.URL+"/api/v1/patients/PAT000002/vitals", "application/json", body)
	if err != nil {
		t.Fatalf("ingest request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	for name, conn := range map[string]*websocket.Conn{"vitals": vitalsConn, "security": securityConn} {
		frame := readFrame(t, conn)
		if frame["type"] != "alert" {
			t.Errorf("%s channel frame type = %v, want alert", name, frame["type"])
		}
		if frame["severity"] != "high" {
			t.Errorf("%s channel severity = %v, want high", name, frame["severity"])
		}
	}
}

func TestPingPongOverWire(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	conn := dial(t, srv, "/ws/security")

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("ping write failed: %v", err)
	}
	if frame := readFrame(t, conn); frame["type"] != "pong" {
		t.Errorf("frame type = %v, want pong", frame["type"])
	}
}

func TestMalformedFrameOverWire(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	conn := dial(t, srv, "/ws/vitals")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{broken")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if frame := readFrame(t, conn); frame["type"] != "error" {
		t.Fatalf("frame type = %v, want error", frame["type"])
	}

	// Connection still usable.
	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("ping write failed: %v", err)
	}
	if frame := readFrame(t, conn); frame["type"] != "pong" {
		t.Errorf("frame type = %v, want pong after recovering", frame["type"])
	}
}

func TestIngestRejectsBadBody(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/v1/patients/PAT000001/vitals", "application/json",
		strings.NewReader("not json"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.Status != "success" {
		t.Errorf("status = %q, want success", body.Status)
	}
	if body.Data["database"] != "disabled" {
		t.Errorf("database = %v, want disabled without store", body.Data["database"])
	}
}

func TestHistoryEndpointsWithoutStore(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, path := range []string{"/api/v1/alerts", "/api/v1/incidents"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("request %s failed: %v", path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want %d", path, resp.StatusCode, http.StatusServiceUnavailable)
		}
	}
}

func TestAlertHistoryAfterIngest(t *testing.T) {
	store, err := database.New(config.DatabaseConfig{Enabled: true})
	if err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	srv, _ := newTestServer(t, store)

	body := strings.NewReader(`{"heartRate":42,"bloodPressure":{"systolic":120,"diastolic":80},"temperature":36.8,"oxygenSaturation":97}`)
	resp, err := http.Post(srv.URL+"/api/v1/patients/PAT000003/vitals", "application/json", body)
	if err != nil {
		t.Fatalf("ingest request failed: %v", err)
	}
	_ = resp.Body.Close()

	// The sink writes asynchronously.
	time.Sleep(300 * time.Millisecond)

	listResp, err := http.Get(srv.URL + "/api/v1/alerts")
	if err != nil {
		t.Fatalf("alerts request failed: %v", err)
	}
	defer func() { _ = listResp.Body.Close() }()
	if listResp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", listResp.StatusCode, http.StatusOK)
	}

	var list struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&list); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(list.Data) != 1 {
		t.Fatalf("alert count = %d, want 1", len(list.Data))
	}
	if list.Data[0]["alertType"] != "abnormal-heart-rate" {
		t.Errorf("alertType = %v, want abnormal-heart-rate", list.Data[0]["alertType"])
	}
	if list.Data[0]["patientId"] != "PAT000003" {
		t.Errorf("patientId = %v, want PAT000003", list.Data[0]["patientId"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}
