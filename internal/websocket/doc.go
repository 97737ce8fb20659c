// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

/*
Package websocket implements the real-time broadcast core: connection
registry, topic routing, and event fan-out over gorilla/websocket.

Key components:

  - Hub: owns the client registry and per-patient topic subscriptions, and
    fans messages out to matching connections
  - Client: one live connection with read/write pump goroutines
  - Router: decodes inbound frames and invokes registry/broadcast operations
  - Message: typed outbound frame flattened to {"type": ..., ...payload}

Two logical channel families share one hub: per-patient vitals topics
(keyed subscriptions, many-to-many) and global security streams (threats,
system health). Alerts, threats, and incident reports are broadcast to every
connection; vitals updates only reach the patient's subscribers.

Delivery is best-effort and at-most-once. A client whose send buffer is full
is removed rather than allowed to stall other subscribers, and a connection
that closes mid-broadcast is simply skipped. Per connection, frames arrive
in the order the hub processed them; no ordering holds across topics.

The Hub.Run loop serializes lifecycle events and fan-out. Subscription
mutations and broadcast enqueueing are safe from any goroutine, which is how
the synthetic event simulators and the REST ingest path share the same entry
points as client-originated messages.

Usage:

	hub := websocket.NewHub()
	router := websocket.NewRouter(hub, sink)
	go hub.Run(ctx)

	// HTTP upgrade endpoint
	client := websocket.NewClient(hub, router, conn, 20, 40)
	hub.Register <- client
	client.Start()

	// Server-initiated broadcast (simulators, REST ingest)
	router.PublishVitals("PAT000001", vitals)
*/
package websocket
