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

// HealthSimulator emits a health snapshot for every monitored subsystem on
// each tick, unconditionally. Unlike the threat and security generators it
// has no emission probability; dashboards expect a steady cadence.
type HealthSimulator struct {
	hub      *websocket.Hub
	interval time.Duration
	rng      *rand.Rand
	started  time.Time
}

// NewHealthSimulator creates a health snapshot generator.
func NewHealthSimulator(hub *websocket.Hub, cfg config.SimulatorConfig) *HealthSimulator {
	return &HealthSimulator{
		hub:      hub,
		interval: cfg.HealthInterval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		started:  time.Now(),
	}
}

// Serve implements suture.Service. Emits until ctx is canceled.
func (s *HealthSimulator) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", s.interval).Int("systems", len(monitoredSystems)).
		Msg("health simulator started")

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

func (s *HealthSimulator) tick() {
	for _, system := range monitoredSystems {
		snapshot := s.generate()
		s.hub.BroadcastAll(websocket.NewSystemHealth(system, snapshot))
		metrics.SimulatorEvents.WithLabelValues("health").Inc()
	}
}

// generate produces a snapshot with mostly-healthy utilization. The health
// score is derived from the worst utilization figure so status transitions
// stay consistent with the numbers shown.
func (s *HealthSimulator) generate() models.SystemHealthMetrics {
	cpu := round1(10 + s.rng.Float64()*70)    // 10-80 %
	memory := round1(20 + s.rng.Float64()*60) // 20-80 %
	disk := round1(30 + s.rng.Float64()*40)   // 30-70 %
	network := round1(5 + s.rng.Float64()*55) // 5-60 %

	worst := cpu
	for _, v := range []float64{memory, disk, network} {
		if v > worst {
			worst = v
		}
	}
	health := round1(100 - worst)

	status := "healthy"
	switch {
	case health < 25:
		status = "critical"
	case health < 50:
		status = "degraded"
	}

	return models.SystemHealthMetrics{
		CPU:         cpu,
		Memory:      memory,
		Disk:        disk,
		Network:     network,
		Uptime:      int64(time.Since(s.started).Seconds()),
		HealthScore: health,
		Status:      status,
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *HealthSimulator) String() string {
	return "health-simulator"
}
