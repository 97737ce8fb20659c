// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

/*
Package simulator fabricates plausible domain events on fixed intervals,
standing in for live instruments and sensors.

Four independent generators run as supervised services:

  - VitalsSimulator: per-tick chance of a vitals reading for each patient
    topic that currently has subscribers
  - ThreatSimulator: per-tick chance of a threat drawn from a fixed catalog
  - HealthSimulator: unconditional per-subsystem health snapshots every tick
  - SecurityEventSimulator: per-tick chance of an operational security event

Generators publish through the same hub entry points client messages use;
they never touch transport connections directly. Each implements
suture.Service and exits with ctx.Err() on shutdown so the supervisor can
restart it independently.
*/
package simulator
