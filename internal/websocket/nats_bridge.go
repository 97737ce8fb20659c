// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

//go:build nats

package websocket

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"github.com/biotensor/streamhub/internal/logging"
	"github.com/biotensor/streamhub/internal/models"
)

// Bridge subjects. External producers publish vitals and threats here; the
// bridge republishes them through the hub so they reach subscribers exactly
// like client-originated events.
const (
	SubjectVitals  = "streamhub.vitals"
	SubjectThreats = "streamhub.threats"
)

// NATSMessageSource abstracts the JetStream consumer so this package never
// imports watermill directly. Satisfied by the subscriber adapter wired in
// cmd/server.
type NATSMessageSource interface {
	// Subscribe returns a channel of raw message payloads for a subject.
	Subscribe(ctx context.Context, subject string) (<-chan []byte, error)
	// Close releases consumer resources.
	Close() error
}

// vitalsEvent is the external wire form of a vitals observation.
type vitalsEvent struct {
	PatientID string            `json:"patientId"`
	Vitals    models.VitalSigns `json:"vitals"`
}

// NATSBridge forwards externally published events into the hub.
type NATSBridge struct {
	router *Router
	hub    *Hub
	source NATSMessageSource
}

// NewNATSBridge creates a bridge that republishes NATS events through the
// given router and hub.
func NewNATSBridge(hub *Hub, router *Router, source NATSMessageSource) *NATSBridge {
	return &NATSBridge{router: router, hub: hub, source: source}
}

// Run consumes both subjects until ctx is canceled. Implements
// suture.Service semantics: returns ctx.Err() on shutdown.
func (b *NATSBridge) Run(ctx context.Context) error {
	vitalsCh, err := b.source.Subscribe(ctx, SubjectVitals)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectVitals, err)
	}
	threatsCh, err := b.source.Subscribe(ctx, SubjectThreats)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectThreats, err)
	}

	logging.Info().Str("vitals_subject", SubjectVitals).Str("threats_subject", SubjectThreats).
		Msg("NATS bridge consuming")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for payload := range vitalsCh {
			b.forwardVitals(payload)
		}
	}()
	go func() {
		defer wg.Done()
		for payload := range threatsCh {
			b.forwardThreat(payload)
		}
	}()

	<-ctx.Done()
	if err := b.source.Close(); err != nil {
		logging.Warn().Err(err).Msg("NATS source close failed")
	}
	wg.Wait()
	return ctx.Err()
}

func (b *NATSBridge) forwardVitals(payload []byte) {
	var ev vitalsEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		logging.Warn().Err(err).Msg("dropping unparseable vitals event from NATS")
		return
	}
	if ev.PatientID == "" {
		logging.Warn().Msg("dropping NATS vitals event without patientId")
		return
	}
	b.router.PublishVitals(ev.PatientID, ev.Vitals)
}

func (b *NATSBridge) forwardThreat(payload []byte) {
	var threat models.Threat
	if err := json.Unmarshal(payload, &threat); err != nil {
		logging.Warn().Err(err).Msg("dropping unparseable threat event from NATS")
		return
	}
	b.hub.BroadcastAll(NewThreatDetected(threat))
}

// String implements fmt.Stringer for supervisor logging.
func (b *NATSBridge) String() string {
	return "nats-bridge"
}
