// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

//go:build nats

package main

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/thejerf/suture/v4"

	"github.com/biotensor/streamhub/internal/config"
	"github.com/biotensor/streamhub/internal/logging"
	ws "github.com/biotensor/streamhub/internal/websocket"
)

// initNATSBridge wires the JetStream ingest path when NATS_ENABLED=true.
// External producers publish vitals and threats to streamhub.* subjects and
// the bridge replays them through the hub. Returns nil when disabled.
func initNATSBridge(cfg *config.Config, hub *ws.Hub, router *ws.Router) (suture.Service, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS bridge disabled (NATS_ENABLED=false)")
		return nil, nil
	}

	source, err := newJetStreamSource(cfg.NATS)
	if err != nil {
		return nil, fmt.Errorf("create JetStream source: %w", err)
	}

	logging.Info().
		Str("url", cfg.NATS.URL).
		Str("stream", cfg.NATS.StreamName).
		Str("durable", cfg.NATS.DurableName).
		Msg("NATS bridge initialized")

	return &bridgeService{bridge: ws.NewNATSBridge(hub, router, source)}, nil
}

// bridgeService adapts the bridge's Run loop to suture.Service.
type bridgeService struct {
	bridge *ws.NATSBridge
}

func (s *bridgeService) Serve(ctx context.Context) error {
	return s.bridge.Run(ctx)
}

func (s *bridgeService) String() string {
	return s.bridge.String()
}

// jetStreamSource implements websocket.NATSMessageSource over a durable
// Watermill JetStream subscriber.
type jetStreamSource struct {
	subscriber message.Subscriber
}

func newJetStreamSource(cfg config.NATSConfig) (*jetStreamSource, error) {
	logger := watermill.NewStdLogger(false, false)

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS subscriber disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS subscriber reconnected")
		}),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.AckWait(cfg.AckWait),
		// New events only; the stream's history is not replayed on startup.
		natsgo.DeliverNew(),
	}

	// Bind to the existing stream when configured so AutoProvision never
	// tries to create one from a subject name.
	autoProvision := true
	if cfg.StreamName != "" {
		subOpts = append(subOpts, natsgo.BindStream(cfg.StreamName))
		autoProvision = false
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   cfg.AckWait,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    autoProvision,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}
	return &jetStreamSource{subscriber: sub}, nil
}

// Subscribe consumes a subject and forwards acked payloads. The returned
// channel closes when the upstream subscription ends.
func (s *jetStreamSource) Subscribe(ctx context.Context, subject string) (<-chan []byte, error) {
	msgs, err := s.subscriber.Subscribe(ctx, subject)
	if err != nil {
		return nil, err
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		for msg := range msgs {
			out <- msg.Payload
			msg.Ack()
		}
	}()
	return out, nil
}

func (s *jetStreamSource) Close() error {
	return s.subscriber.Close()
}
