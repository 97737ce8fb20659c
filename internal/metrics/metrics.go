// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

// Package metrics exposes Prometheus instrumentation for the broadcast core:
// connection churn, inbound message handling, fan-out delivery, synthetic
// event generation, and persistence sink outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WSConnectionsActive tracks currently open WebSocket connections.
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamhub_ws_connections_active",
			Help: "Number of currently connected WebSocket clients",
		},
	)

	// WSConnectionsTotal counts all connections ever admitted.
	WSConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streamhub_ws_connections_total",
			Help: "Total number of WebSocket connections admitted",
		},
	)

	// WSMessagesReceived counts inbound client messages by kind.
	WSMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_ws_messages_received_total",
			Help: "Total inbound WebSocket messages by message type",
		},
		[]string{"type"},
	)

	// WSMessagesMalformed counts inbound frames rejected at the boundary.
	WSMessagesMalformed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streamhub_ws_messages_malformed_total",
			Help: "Total inbound messages rejected as unparseable or unknown",
		},
	)

	// WSBroadcasts counts fan-out operations by target scope.
	WSBroadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_ws_broadcasts_total",
			Help: "Total broadcast operations by target (patient or all)",
		},
		[]string{"target", "type"},
	)

	// WSMessagesDropped counts per-client sends skipped because the client's
	// buffer was full or the broadcast queue overflowed.
	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streamhub_ws_messages_dropped_total",
			Help: "Total messages dropped due to slow clients or full queues",
		},
	)

	// SubscriptionsActive tracks live entity-topic memberships.
	SubscriptionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamhub_subscriptions_active",
			Help: "Number of active patient-topic subscriptions",
		},
	)

	// SimulatorEvents counts synthetic events by kind.
	SimulatorEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_simulator_events_total",
			Help: "Total synthetic events generated by kind",
		},
		[]string{"kind"},
	)

	// SinkWrites counts persistence attempts by table and outcome.
	SinkWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_sink_writes_total",
			Help: "Total persistence sink writes by table and status",
		},
		[]string{"table", "status"},
	)

	// APIRequestsTotal counts REST API requests.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_api_requests_total",
			Help: "Total REST API requests by method, endpoint, and status code",
		},
		[]string{"method", "endpoint", "status_code"},
	)
)
