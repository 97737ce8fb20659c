// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

// Package main is the entry point for the StreamHub server.
//
// StreamHub broadcasts patient vital signs, threat intelligence, and system
// health events to WebSocket subscribers in real time. Clients subscribe to
// per-patient vitals topics or to the global threat and system-health streams;
// threshold breaches generate alerts that reach every connection.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, YAML file, STREAMHUB_ env vars (Koanf v2)
//  2. Database: DuckDB persistence sink for alerts and incident reports (optional)
//  3. WebSocket Hub: topic registry and fan-out loop
//  4. Router: inbound frame dispatch and threshold evaluation
//  5. HTTP Server: WebSocket endpoints, REST API, Prometheus metrics
//  6. Supervisor tree: hub, synthetic generators, NATS bridge, HTTP server
//
// # Build Tags
//
//	go build -tags "nats" ./cmd/server   # Enable the JetStream ingest bridge
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Closes every WebSocket session
//   - Drains in-flight persistence writes, then closes the database
//
// # Example Usage
//
// Development with synthetic events and console logs:
//
//	export STREAMHUB_SIMULATOR_ENABLED=true
//	export STREAMHUB_LOGGING_FORMAT=console
//	./streamhub
//
// Production with persistence:
//
//	export STREAMHUB_DATABASE_ENABLED=true
//	export STREAMHUB_DATABASE_PATH=/var/lib/streamhub/streamhub.db
//	export STREAMHUB_SECURITY_CORS_ORIGINS=https://dashboard.example.org
//	./streamhub
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/biotensor/streamhub/internal/api"
	"github.com/biotensor/streamhub/internal/config"
	"github.com/biotensor/streamhub/internal/database"
	"github.com/biotensor/streamhub/internal/logging"
	"github.com/biotensor/streamhub/internal/simulator"
	"github.com/biotensor/streamhub/internal/supervisor"
	"github.com/biotensor/streamhub/internal/supervisor/services"
	ws "github.com/biotensor/streamhub/internal/websocket"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		// Config is not available yet, so the default logger reports this.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Bool("database", cfg.Database.Enabled).
		Bool("simulator", cfg.Simulator.Enabled).
		Bool("nats", cfg.NATS.Enabled).
		Msg("Starting StreamHub")

	// Persistence is optional. Without it alerts and incidents are still
	// broadcast, but history endpoints return 503.
	var (
		store *database.Store
		sink  *database.Sink
	)
	if cfg.Database.Enabled {
		store, err = database.New(cfg.Database)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize database")
		}
		sink = database.NewSink(store)
		logging.Info().Str("path", cfg.Database.Path).Msg("Persistence sink ready")
	} else {
		logging.Info().Msg("Persistence disabled, events will not be recorded")
	}

	hub := ws.NewHub()

	// A nil *Sink must not become a non-nil interface value.
	var persistence ws.PersistenceSink
	if sink != nil {
		persistence = sink
	}
	wsRouter := ws.NewRouter(hub, persistence)

	handler := api.NewHandler(hub, wsRouter, store, cfg)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler.Routes(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	tree.AddMessagingService(services.NewHubService(hub))

	if cfg.Simulator.Enabled {
		tree.AddMessagingService(simulator.NewVitalsSimulator(hub, cfg.Simulator))
		tree.AddMessagingService(simulator.NewThreatSimulator(hub, cfg.Simulator))
		tree.AddMessagingService(simulator.NewHealthSimulator(hub, cfg.Simulator))
		tree.AddMessagingService(simulator.NewSecurityEventSimulator(hub, cfg.Simulator))
		logging.Info().Msg("Synthetic event generators enabled")
	}

	bridge, err := initNATSBridge(cfg, hub, wsRouter)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize NATS bridge")
	}
	if bridge != nil {
		tree.AddMessagingService(bridge)
	}

	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("StreamHub listening")

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree exited with error")
	}

	// The tree has stopped every service, so no more writes can arrive.
	if sink != nil {
		sink.Drain()
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("StreamHub shutdown complete")
}

// loadConfig reads configuration from the explicit path when given, otherwise
// from the default file locations and environment.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}
