// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

// Package models defines the event payloads carried over the WebSocket
// channels and recorded by the persistence layer.
package models

import "time"

// Alert severities, ordered by urgency.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// BloodPressure is a systolic/diastolic reading in mmHg.
type BloodPressure struct {
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
}

// VitalSigns is one observation of a patient's vital signs.
// RespiratoryRate and GlucoseLevel are optional on the wire.
type VitalSigns struct {
	HeartRate        float64       `json:"heartRate"`
	BloodPressure    BloodPressure `json:"bloodPressure"`
	Temperature      float64       `json:"temperature"`
	OxygenSaturation float64       `json:"oxygenSaturation"`
	RespiratoryRate  float64       `json:"respiratoryRate,omitempty"`
	GlucoseLevel     float64       `json:"glucoseLevel,omitempty"`
}

// Alert is a broadcast notification that something needs attention.
// PatientID is set only for vitals-derived alerts. The alert kind is
// serialized as alertType so it never collides with the frame's type tag.
type Alert struct {
	ID        string    `json:"id"`
	Type      string    `json:"alertType"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	PatientID string    `json:"patientId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Threat is a detected security threat on the monitoring channel.
type Threat struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Confidence  float64   `json:"confidence"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// SystemHealthMetrics is a point-in-time health snapshot of one subsystem.
type SystemHealthMetrics struct {
	CPU         float64 `json:"cpu"`
	Memory      float64 `json:"memory"`
	Disk        float64 `json:"disk"`
	Network     float64 `json:"network"`
	Uptime      int64   `json:"uptime"`
	HealthScore float64 `json:"health"`
	Status      string  `json:"status"`
}

// SecurityEvent is a routine operational event on the security channel.
type SecurityEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	User        string    `json:"user"`
	Timestamp   time.Time `json:"timestamp"`
}

// IncidentReport is a user-filed incident. Status starts at "investigating".
type IncidentReport struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	ReportedBy  string    `json:"reportedBy"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}
