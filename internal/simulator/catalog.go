// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

package simulator

import "github.com/biotensor/streamhub/internal/models"

// threatTemplate is one entry in the fixed threat catalog. Severity and
// confidence are fixed per threat kind; only identity and timing vary.
type threatTemplate struct {
	threatType  string
	name        string
	description string
	severity    string
	confidence  float64
}

var threatCatalog = []threatTemplate{
	{
		threatType:  "malware",
		name:        "Trojan.MedDevice.Agent",
		description: "Suspicious binary detected on infusion pump controller",
		severity:    models.SeverityCritical,
		confidence:  0.92,
	},
	{
		threatType:  "intrusion",
		name:        "Unauthorized Access Attempt",
		description: "Repeated failed logins against the clinical records gateway",
		severity:    models.SeverityHigh,
		confidence:  0.87,
	},
	{
		threatType:  "data-exfiltration",
		name:        "Anomalous Outbound Transfer",
		description: "Large encrypted upload from the imaging archive outside business hours",
		severity:    models.SeverityHigh,
		confidence:  0.78,
	},
	{
		threatType:  "dos",
		name:        "Connection Flood",
		description: "Elevated connection rate against the telemetry ingress",
		severity:    models.SeverityMedium,
		confidence:  0.71,
	},
}

// securityTemplate is one entry in the operational security event catalog.
type securityTemplate struct {
	eventType   string
	description string
	severity    string
	user        string
}

var securityCatalog = []securityTemplate{
	{
		eventType:   "configuration-change",
		description: "Firewall rule set updated on perimeter gateway",
		severity:    models.SeverityMedium,
		user:        "ops-admin",
	},
	{
		eventType:   "patch-applied",
		description: "Security patch applied to monitoring agents",
		severity:    models.SeverityLow,
		user:        "system",
	},
	{
		eventType:   "backup-completed",
		description: "Nightly encrypted backup completed and verified",
		severity:    models.SeverityLow,
		user:        "system",
	},
	{
		eventType:   "scan-completed",
		description: "Scheduled vulnerability scan finished with no new findings",
		severity:    models.SeverityLow,
		user:        "scanner",
	},
	{
		eventType:   "certificate-expiry",
		description: "TLS certificate for internal API expires within 14 days",
		severity:    models.SeverityMedium,
		user:        "system",
	},
}

// monitoredSystems are the subsystems the health simulator reports on.
var monitoredSystems = []string{
	"api-gateway",
	"event-broker",
	"vitals-ingest",
	"storage",
}
