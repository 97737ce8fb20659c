// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

//go:build !nats

package main

import (
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/biotensor/streamhub/internal/config"
	"github.com/biotensor/streamhub/internal/logging"
	ws "github.com/biotensor/streamhub/internal/websocket"
)

// initNATSBridge is a stub for builds without the nats tag. Enabling NATS in
// configuration against this build is a hard error rather than silent loss of
// the ingest path.
func initNATSBridge(cfg *config.Config, _ *ws.Hub, _ *ws.Router) (suture.Service, error) {
	if cfg.NATS.Enabled {
		return nil, fmt.Errorf("NATS is enabled in configuration but this binary was built without NATS support (rebuild with -tags nats)")
	}
	logging.Debug().Msg("NATS bridge not compiled in (build without nats tag)")
	return nil, nil
}
