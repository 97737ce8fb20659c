// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

package simulator

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/biotensor/streamhub/internal/config"
	"github.com/biotensor/streamhub/internal/logging"
	"github.com/biotensor/streamhub/internal/metrics"
	"github.com/biotensor/streamhub/internal/models"
	"github.com/biotensor/streamhub/internal/websocket"
)

// SecurityEventSimulator periodically fabricates a routine operational
// security event from the fixed catalog and broadcasts it to every
// connection.
type SecurityEventSimulator struct {
	hub         *websocket.Hub
	interval    time.Duration
	probability float64
	rng         *rand.Rand
}

// NewSecurityEventSimulator creates a security event generator.
func NewSecurityEventSimulator(hub *websocket.Hub, cfg config.SimulatorConfig) *SecurityEventSimulator {
	return &SecurityEventSimulator{
		hub:         hub,
		interval:    cfg.SecurityEventInterval,
		probability: cfg.SecurityEventProbability,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Serve implements suture.Service. Emits until ctx is canceled.
func (s *SecurityEventSimulator) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", s.interval).Float64("probability", s.probability).
		Msg("security event simulator started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *SecurityEventSimulator) tick() {
	if s.rng.Float64() >= s.probability {
		return
	}
	event := s.generate()
	s.hub.BroadcastAll(websocket.NewSecurityEvent(event))
	metrics.SimulatorEvents.WithLabelValues("security").Inc()
	logging.Debug().Str("event_type", event.Type).Msg("synthetic security event emitted")
}

// generate instantiates a catalog entry with fresh identity and timing.
func (s *SecurityEventSimulator) generate() models.SecurityEvent {
	tpl := securityCatalog[s.rng.Intn(len(securityCatalog))]
	return models.SecurityEvent{
		ID:          uuid.NewString(),
		Type:        tpl.eventType,
		Description: tpl.description,
		Severity:    tpl.severity,
		User:        tpl.user,
		Timestamp:   time.Now().UTC(),
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *SecurityEventSimulator) String() string {
	return "security-event-simulator"
}
