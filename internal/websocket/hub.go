// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/biotensor/streamhub/internal/logging"
	"github.com/biotensor/streamhub/internal/metrics"
)

// Global channel names used in subscription acknowledgments.
const (
	ChannelThreats      = "threats"
	ChannelSystemHealth = "system-health"
)

// envelope pairs a message with its delivery target. An empty patientID
// targets every connected client.
type envelope struct {
	patientID string
	msg       Message
}

// Hub is the connection registry and broadcaster. It tracks every live
// client, the per-patient topic subscriptions, and fans messages out to
// matching connections.
//
// Lifecycle events (Register/Unregister) and broadcasts are serialized
// through the Run loop. Subscription changes and broadcast enqueueing happen
// on caller goroutines (client read pumps, simulators, HTTP handlers), so
// the registry maps are additionally guarded by mu.
type Hub struct {
	clients  map[*Client]struct{}
	patients map[string]map[*Client]struct{}

	Register   chan *Client
	Unregister chan *Client
	broadcast  chan envelope

	mu sync.RWMutex
}

// NewHub creates an idle hub. Call Run in a goroutine (or under a
// supervisor) to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		patients:   make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan envelope, 256),
	}
}

// Run processes lifecycle events and broadcasts until ctx is canceled.
// On shutdown all clients are closed and ctx.Err() is returned, which lets
// a supervisor restart the hub without leaking connections.
//
// Priority-based selection keeps behavior predictable when multiple channels
// are ready: shutdown first, then client lifecycle, then broadcasts. Go's
// select picks randomly among ready cases, so lifecycle events are checked
// non-blockingly before each broadcast wait.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.admit(client)
			continue
		case client := <-h.Unregister:
			h.remove(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.closeAllClients()
			return ctx.Err()
		case client := <-h.Register:
			h.admit(client)
		case client := <-h.Unregister:
			h.remove(client)
		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

// admit registers a newly opened connection with an empty subscription set.
func (h *Hub) admit(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnectionsTotal.Inc()
	metrics.WSConnectionsActive.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

// remove drops a connection and scrubs it from every topic it joined.
// Safe to call for a client that was never admitted or already removed.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	removed := h.removeLocked(client)
	total := len(h.clients)
	h.mu.Unlock()

	if removed {
		metrics.WSConnectionsActive.Set(float64(total))
		logging.Info().Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// removeLocked removes the client from the registry and closes its send
// channel. Empty patient topics are deleted outright so churn never leaks
// topic entries. Caller must hold mu.
func (h *Hub) removeLocked(client *Client) bool {
	if _, ok := h.clients[client]; !ok {
		return false
	}
	delete(h.clients, client)

	for patientID := range client.patients {
		if subs, ok := h.patients[patientID]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.patients, patientID)
			}
		}
		metrics.SubscriptionsActive.Dec()
	}
	client.patients = make(map[string]struct{})

	client.removed = true
	close(client.send)
	return true
}

// Subscribe adds the client to a patient topic, creating the topic entry if
// absent. Subscribing twice is a no-op, as is subscribing a client that has
// already been removed: a removed client must never re-enter the topic maps,
// or its closed send channel would outlive every cleanup path.
func (h *Hub) Subscribe(client *Client, patientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	if _, ok := client.patients[patientID]; ok {
		return
	}
	client.patients[patientID] = struct{}{}

	subs, ok := h.patients[patientID]
	if !ok {
		subs = make(map[*Client]struct{})
		h.patients[patientID] = subs
	}
	subs[client] = struct{}{}
	metrics.SubscriptionsActive.Inc()
}

// Unsubscribe removes the client from a patient topic. Unsubscribing a
// non-member is a no-op. A topic left without subscribers is deleted.
func (h *Hub) Unsubscribe(client *Client, patientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := client.patients[patientID]; !ok {
		return
	}
	delete(client.patients, patientID)

	if subs, ok := h.patients[patientID]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.patients, patientID)
		}
	}
	metrics.SubscriptionsActive.Dec()
}

// SubscribeThreats marks the connection as a global threat-stream listener.
// No-op for a removed client.
func (h *Hub) SubscribeThreats(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		client.threats = true
	}
	h.mu.Unlock()
}

// SubscribeSystemHealth marks the connection as a system-health listener.
// No-op for a removed client.
func (h *Hub) SubscribeSystemHealth(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		client.health = true
	}
	h.mu.Unlock()
}

// Subscribers returns a snapshot of the clients subscribed to a patient
// topic. An unknown topic yields an empty slice, not an error.
func (h *Hub) Subscribers(patientID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := h.patients[patientID]
	out := make([]*Client, 0, len(subs))
	for c := range subs {
		out = append(out, c)
	}
	return out
}

// PatientTopics returns the patient IDs that currently have at least one
// subscriber, sorted for deterministic iteration.
func (h *Hub) PatientTopics() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.patients))
	for id := range h.patients {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TopicCount returns the number of patient topics with subscribers.
func (h *Hub) TopicCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.patients)
}

// BroadcastToPatient queues a message for every subscriber of a patient
// topic. The queue is drained by the Run loop, so per-connection delivery
// order matches hand-off order. Drops the message if the queue is full.
func (h *Hub) BroadcastToPatient(patientID string, msg Message) {
	select {
	case h.broadcast <- envelope{patientID: patientID, msg: msg}:
		metrics.WSBroadcasts.WithLabelValues("patient", msg.Type).Inc()
	default:
		metrics.WSMessagesDropped.Inc()
		logging.Warn().Str("message_type", msg.Type).Msg("broadcast queue full, dropping patient message")
	}
}

// BroadcastAll queues a message for every connected client regardless of
// subscription state. Drops the message if the queue is full.
func (h *Hub) BroadcastAll(msg Message) {
	select {
	case h.broadcast <- envelope{msg: msg}:
		metrics.WSBroadcasts.WithLabelValues("all", msg.Type).Inc()
	default:
		metrics.WSMessagesDropped.Inc()
		logging.Warn().Str("message_type", msg.Type).Msg("broadcast queue full, dropping global message")
	}
}

// deliver fans one envelope out to its target set in deterministic client
// order. Clients whose send buffer is full are removed: a consumer that
// cannot keep up must not stall every other subscriber.
func (h *Hub) deliver(env envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var targets map[*Client]struct{}
	if env.patientID == "" {
		targets = h.clients
	} else {
		targets = h.patients[env.patientID]
	}
	if len(targets) == 0 {
		return
	}

	ordered := make([]*Client, 0, len(targets))
	for c := range targets {
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].id < ordered[j].id })

	var toRemove []*Client
	for _, client := range ordered {
		select {
		case client.send <- env.msg:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		metrics.WSMessagesDropped.Inc()
		logging.Warn().Uint64("client_id", client.id).Msg("send buffer full, removing slow client")
		h.removeLocked(client)
	}
	if len(toRemove) > 0 {
		metrics.WSConnectionsActive.Set(float64(len(h.clients)))
	}
}

// closeAllClients closes every connection during shutdown, in ID order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	ordered := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].id < ordered[j].id })

	for _, client := range ordered {
		h.removeLocked(client)
	}
	metrics.WSConnectionsActive.Set(0)
	logging.Info().Int("clients_closed", len(ordered)).Msg("websocket hub stopped")
}
