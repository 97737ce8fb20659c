// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

// Package services adapts StreamHub components to suture.Service.
package services

import (
	"context"
)

// ContextHub matches *websocket.Hub's Run method without importing the
// websocket package, keeping this package dependency-free.
type ContextHub interface {
	Run(ctx context.Context) error
}

// HubService wraps the WebSocket hub as a supervised service. The hub's Run
// loop already follows suture semantics (blocks, returns ctx.Err() after
// closing all clients), so this only adds the service name.
type HubService struct {
	hub  ContextHub
	name string
}

// NewHubService creates the hub service wrapper.
func NewHubService(hub ContextHub) *HubService {
	return &HubService{
		hub:  hub,
		name: "websocket-hub",
	}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.Run(ctx)
}

// String implements fmt.Stringer for supervisor logging.
func (s *HubService) String() string {
	return s.name
}
