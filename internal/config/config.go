// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

// Package config loads and validates StreamHub configuration.
//
// Configuration is layered: struct defaults, then an optional YAML file,
// then STREAMHUB_-prefixed environment variables. Later layers override
// earlier ones.
//
// Environment variable mapping replaces underscores with dots, so
// STREAMHUB_SERVER_PORT overrides server.port.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the StreamHub server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Database  DatabaseConfig  `koanf:"database"`
	Simulator SimulatorConfig `koanf:"simulator"`
	NATS      NATSConfig      `koanf:"nats"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port" validate:"min=1,max=65535"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds origin checking and rate limiting settings.
type SecurityConfig struct {
	// CORSOrigins lists origins allowed to connect. "*" allows any origin.
	CORSOrigins []string `koanf:"cors_origins"`

	// APIRateLimit is the per-IP request limit per minute on REST routes.
	APIRateLimit int `koanf:"api_rate_limit" validate:"min=1"`

	// ClientMessageRate limits inbound WebSocket messages per second per
	// connection. Messages beyond the burst are answered with an error frame
	// and discarded.
	ClientMessageRate  float64 `koanf:"client_message_rate" validate:"gt=0"`
	ClientMessageBurst int     `koanf:"client_message_burst" validate:"min=1"`
}

// DatabaseConfig holds DuckDB settings for the persistence sink.
// When disabled, alerts and incidents are broadcast but not recorded.
type DatabaseConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// SimulatorConfig controls the synthetic event generators.
// Intervals are tick periods; probabilities are the per-tick chance of
// emitting an event, in [0,1].
type SimulatorConfig struct {
	Enabled bool `koanf:"enabled"`

	VitalsInterval    time.Duration `koanf:"vitals_interval"`
	VitalsProbability float64       `koanf:"vitals_probability" validate:"gte=0,lte=1"`

	ThreatInterval    time.Duration `koanf:"threat_interval"`
	ThreatProbability float64       `koanf:"threat_probability" validate:"gte=0,lte=1"`

	HealthInterval time.Duration `koanf:"health_interval"`

	SecurityEventInterval    time.Duration `koanf:"security_event_interval"`
	SecurityEventProbability float64       `koanf:"security_event_probability" validate:"gte=0,lte=1"`
}

// NATSConfig holds settings for the optional JetStream ingest bridge.
// Only used when built with -tags nats.
type NATSConfig struct {
	Enabled       bool          `koanf:"enabled"`
	URL           string        `koanf:"url"`
	StreamName    string        `koanf:"stream_name"`
	DurableName   string        `koanf:"durable_name"`
	QueueGroup    string        `koanf:"queue_group"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
	AckWait       time.Duration `koanf:"ack_wait"`
	MaxReconnects int           `koanf:"max_reconnects"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// Validate checks the configuration against struct tags and cross-field
// constraints. Returns a descriptive error for the first violation found.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Database.Enabled && c.Database.Path == "" {
		return fmt.Errorf("invalid configuration: database.path required when database.enabled")
	}
	if c.Simulator.Enabled {
		for name, d := range map[string]time.Duration{
			"simulator.vitals_interval":         c.Simulator.VitalsInterval,
			"simulator.threat_interval":         c.Simulator.ThreatInterval,
			"simulator.health_interval":         c.Simulator.HealthInterval,
			"simulator.security_event_interval": c.Simulator.SecurityEventInterval,
		} {
			if d <= 0 {
				return fmt.Errorf("invalid configuration: %s must be positive", name)
			}
		}
	}
	return nil
}
