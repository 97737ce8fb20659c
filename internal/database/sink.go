// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

package database

import (
	"context"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/biotensor/streamhub/internal/logging"
	"github.com/biotensor/streamhub/internal/metrics"
	"github.com/biotensor/streamhub/internal/models"
)

const writeTimeout = 5 * time.Second

// Sink records alerts and incidents asynchronously with at-most-once
// semantics. Callers never block and never see an error; failures are logged
// and counted. A circuit breaker stops hammering the store after repeated
// failures and retries after a cooldown.
//
// Satisfies websocket.PersistenceSink.
type Sink struct {
	store   *Store
	breaker *gobreaker.CircuitBreaker[any]
	wg      sync.WaitGroup
}

// NewSink wraps a store with fire-and-forget write semantics.
func NewSink(store *Store) *Sink {
	settings := gobreaker.Settings{
		Name:    "persistence-sink",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("persistence circuit breaker state changed")
		},
	}
	return &Sink{
		store:   store,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

// RecordAlert queues an alert write without blocking the caller.
func (s *Sink) RecordAlert(alert models.Alert) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.write("alerts", func(ctx context.Context) error {
			return s.store.InsertAlert(ctx, alert)
		})
	}()
}

// RecordIncident queues an incident write without blocking the caller.
func (s *Sink) RecordIncident(incident models.IncidentReport) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.write("incidents", func(ctx context.Context) error {
			return s.store.InsertIncident(ctx, incident)
		})
	}()
}

// write executes one insert under the circuit breaker. All failure modes end
// here: logged, counted, swallowed.
func (s *Sink) write(table string, insert func(ctx context.Context) error) {
	_, err := s.breaker.Execute(func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		return nil, insert(ctx)
	})
	if err != nil {
		metrics.SinkWrites.WithLabelValues(table, "error").Inc()
		logging.Error().Err(err).Str("table", table).Msg("persistence write failed")
		return
	}
	metrics.SinkWrites.WithLabelValues(table, "ok").Inc()
}

// Drain waits for in-flight writes to finish. Called on shutdown and by
// tests; new writes issued during Drain are not waited for.
func (s *Sink) Drain() {
	s.wg.Wait()
}
