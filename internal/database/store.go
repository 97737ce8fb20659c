// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

// Package database persists alerts and incident reports in DuckDB and backs
// the REST query endpoints. Writes go through the fire-and-forget Sink; the
// Store itself is a thin synchronous layer over database/sql.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/biotensor/streamhub/internal/config"
	"github.com/biotensor/streamhub/internal/logging"
	"github.com/biotensor/streamhub/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS alerts (
	id          VARCHAR PRIMARY KEY,
	alert_type  VARCHAR NOT NULL,
	message     VARCHAR NOT NULL,
	severity    VARCHAR NOT NULL,
	patient_id  VARCHAR,
	created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS incidents (
	id          VARCHAR PRIMARY KEY,
	title       VARCHAR NOT NULL,
	description VARCHAR NOT NULL,
	severity    VARCHAR NOT NULL,
	reported_by VARCHAR NOT NULL,
	status      VARCHAR NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
`

// Store wraps the DuckDB connection and schema.
type Store struct {
	conn *sql.DB
}

// New opens (or creates) the DuckDB database at cfg.Path and ensures the
// schema exists. An empty path opens an in-memory database, which the tests
// rely on.
func New(cfg config.DatabaseConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); cfg.Path != "" && dir != "" && dir != "." {
		// 0750 per gosec G301
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "256MB"
	}

	connStr := cfg.Path
	if connStr != "" {
		connStr = fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s", cfg.Path, threads, maxMemory)
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// DuckDB is embedded; a single writer connection avoids write contention.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if _, err := conn.Exec(schema); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Msg("database opened")
	return &Store{conn: conn}, nil
}

// InsertAlert records one alert row.
func (s *Store) InsertAlert(ctx context.Context, alert models.Alert) error {
	patientID := sql.NullString{String: alert.PatientID, Valid: alert.PatientID != ""}
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO alerts (id, alert_type, message, severity, patient_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.Type, alert.Message, alert.Severity, patientID, alert.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert alert %s: %w", alert.ID, err)
	}
	return nil
}

// InsertIncident records one incident report row.
func (s *Store) InsertIncident(ctx context.Context, incident models.IncidentReport) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO incidents (id, title, description, severity, reported_by, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		incident.ID, incident.Title, incident.Description, incident.Severity,
		incident.ReportedBy, incident.Status, incident.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert incident %s: %w", incident.ID, err)
	}
	return nil
}

// RecentAlerts returns up to limit alerts, newest first.
func (s *Store) RecentAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, alert_type, message, severity, patient_id, created_at
		 FROM alerts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer closeRowsQuietly(rows)

	var out []models.Alert
	for rows.Next() {
		var (
			alert     models.Alert
			patientID sql.NullString
			createdAt time.Time
		)
		if err := rows.Scan(&alert.ID, &alert.Type, &alert.Message, &alert.Severity, &patientID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		alert.PatientID = patientID.String
		alert.Timestamp = createdAt
		out = append(out, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alert rows: %w", err)
	}
	return out, nil
}

// RecentIncidents returns up to limit incident reports, newest first.
func (s *Store) RecentIncidents(ctx context.Context, limit int) ([]models.IncidentReport, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, title, description, severity, reported_by, status, created_at
		 FROM incidents ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer closeRowsQuietly(rows)

	var out []models.IncidentReport
	for rows.Next() {
		var (
			incident  models.IncidentReport
			createdAt time.Time
		)
		if err := rows.Scan(&incident.ID, &incident.Title, &incident.Description,
			&incident.Severity, &incident.ReportedBy, &incident.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incident.Timestamp = createdAt
		out = append(out, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate incident rows: %w", err)
	}
	return out, nil
}

// Ping verifies the connection is alive, for health reporting.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func closeQuietly(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logging.Warn().Err(err).Msg("failed to close database connection")
	}
}

func closeRowsQuietly(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logging.Warn().Err(err).Msg("failed to close result rows")
	}
}
