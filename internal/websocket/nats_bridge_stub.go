// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

//go:build !nats

package websocket

import (
	"context"
	"fmt"
)

// NATSMessageSource is a stub for non-NATS builds.
type NATSMessageSource interface {
	Subscribe(ctx context.Context, subject string) (<-chan []byte, error)
	Close() error
}

// NATSBridge is a stub for non-NATS builds.
type NATSBridge struct{}

// NewNATSBridge returns nil in non-NATS builds.
func NewNATSBridge(_ *Hub, _ *Router, _ NATSMessageSource) *NATSBridge {
	return nil
}

// Run returns an error in non-NATS builds.
func (b *NATSBridge) Run(_ context.Context) error {
	return fmt.Errorf("NATS support not enabled (build with -tags nats)")
}

// String implements fmt.Stringer.
func (b *NATSBridge) String() string {
	return "nats-bridge (disabled)"
}
