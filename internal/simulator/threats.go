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

// ThreatSimulator periodically fabricates a security threat from the fixed
// catalog and broadcasts it to every connection.
type ThreatSimulator struct {
	hub         *websocket.Hub
	interval    time.Duration
	probability float64
	rng         *rand.Rand
}

// NewThreatSimulator creates a threat generator from simulator settings.
func NewThreatSimulator(hub *websocket.Hub, cfg config.SimulatorConfig) *ThreatSimulator {
	return &ThreatSimulator{
		hub:         hub,
		interval:    cfg.ThreatInterval,
		probability: cfg.ThreatProbability,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Serve implements suture.Service. Emits until ctx is canceled.
func (s *ThreatSimulator) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", s.interval).Float64("probability", s.probability).
		Msg("threat simulator started")

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

func (s *ThreatSimulator) tick() {
	if s.rng.Float64() >= s.probability {
		return
	}
	threat := s.generate()
	s.hub.BroadcastAll(websocket.NewThreatDetected(threat))
	metrics.SimulatorEvents.WithLabelValues("threat").Inc()
	logging.Debug().Str("threat_type", threat.Type).Str("severity", threat.Severity).
		Msg("synthetic threat emitted")
}

// generate instantiates a catalog entry with fresh identity and timing.
func (s *ThreatSimulator) generate() models.Threat {
	tpl := threatCatalog[s.rng.Intn(len(threatCatalog))]
	return models.Threat{
		ID:          uuid.NewString(),
		Type:        tpl.threatType,
		Name:        tpl.name,
		Description: tpl.description,
		Severity:    tpl.severity,
		Confidence:  tpl.confidence,
		Status:      "active",
		Timestamp:   time.Now().UTC(),
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *ThreatSimulator) String() string {
	return "threat-simulator"
}
