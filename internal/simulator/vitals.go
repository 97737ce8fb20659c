// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

package simulator

import (
	"context"
	"math/rand"
	"time"

	"github.com/biotensor/streamhub/internal/config"
	"github.com/biotensor/streamhub/internal/logging"
	"github.com/biotensor/streamhub/internal/metrics"
	"github.com/biotensor/streamhub/internal/models"
	"github.com/biotensor/streamhub/internal/websocket"
)

// VitalsSimulator periodically fabricates vitals readings for every patient
// topic that currently has subscribers. Readings stay inside normal clinical
// ranges, so synthetic traffic never trips the threshold alerting path.
type VitalsSimulator struct {
	hub         *websocket.Hub
	interval    time.Duration
	probability float64
	rng         *rand.Rand
}

// NewVitalsSimulator creates a vitals generator from simulator settings.
func NewVitalsSimulator(hub *websocket.Hub, cfg config.SimulatorConfig) *VitalsSimulator {
	return &VitalsSimulator{
		hub:         hub,
		interval:    cfg.VitalsInterval,
		probability: cfg.VitalsProbability,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Serve implements suture.Service. Emits until ctx is canceled.
func (s *VitalsSimulator) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", s.interval).Float64("probability", s.probability).
		Msg("vitals simulator started")

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

// tick rolls the emission chance once per subscribed patient topic.
func (s *VitalsSimulator) tick() {
	for _, patientID := range s.hub.PatientTopics() {
		if s.rng.Float64() >= s.probability {
			continue
		}
		vitals := s.generate()
		s.hub.BroadcastToPatient(patientID, websocket.NewVitalsUpdate(patientID, vitals))
		metrics.SimulatorEvents.WithLabelValues("vitals").Inc()
	}
}

// generate produces a reading inside normal clinical ranges.
func (s *VitalsSimulator) generate() models.VitalSigns {
	return models.VitalSigns{
		HeartRate: round1(60 + s.rng.Float64()*40), // 60-100 bpm
		BloodPressure: models.BloodPressure{
			Systolic:  110 + s.rng.Intn(30), // 110-140 mmHg
			Diastolic: 70 + s.rng.Intn(20),  // 70-90 mmHg
		},
		Temperature:      round1(36.5 + s.rng.Float64()*1.5), // 36.5-38.0 C
		OxygenSaturation: round1(95 + s.rng.Float64()*5),     // 95-100 %
		RespiratoryRate:  round1(12 + s.rng.Float64()*8),     // 12-20 /min
		GlucoseLevel:     round1(70 + s.rng.Float64()*70),    // 70-140 mg/dL
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *VitalsSimulator) String() string {
	return "vitals-simulator"
}

// round1 rounds to one decimal place for readable wire payloads.
func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
