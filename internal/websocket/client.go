// StreamHub - Real-Time Vitals and Security Event Broadcasting
// Copyright 2026 BioTensor Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/biotensor/streamhub

package websocket

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/biotensor/streamhub/internal/logging"
	"github.com/biotensor/streamhub/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // 64 KB; vitals and incident frames are small
	sendBufferSize = 256
)

// clientIDCounter assigns unique, monotonically increasing client IDs so
// broadcast iteration order is deterministic.
var clientIDCounter atomic.Uint64

// Client is one live WebSocket session: the middleman between the transport
// connection and the hub.
type Client struct {
	id     uint64
	hub    *Hub
	router *Router
	conn   *websocket.Conn
	send   chan Message

	// limiter throttles inbound frames; overflow gets an error reply.
	limiter *rate.Limiter

	// Subscription state, guarded by hub.mu.
	patients map[string]struct{}
	threats  bool
	health   bool

	// removed is set under hub.mu when the hub closes send. Replies racing a
	// slow-consumer removal check it before touching the channel.
	removed bool
}

// NewClient creates a client for an upgraded connection. messageRate is the
// sustained inbound frames/second allowed, burst the spike allowance.
func NewClient(hub *Hub, router *Router, conn *websocket.Conn, messageRate float64, burst int) *Client {
	return &Client{
		id:       clientIDCounter.Add(1),
		hub:      hub,
		router:   router,
		conn:     conn,
		send:     make(chan Message, sendBufferSize),
		limiter:  rate.NewLimiter(rate.Limit(messageRate), burst),
		patients: make(map[string]struct{}),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// trySend queues a message for this client only, without blocking. Used for
// acknowledgments, pongs, and error replies. A full buffer drops the frame;
// the write pump will catch up or the hub will remove the client.
//
// The read pump keeps dispatching until the transport errors out, which can
// be after the hub has already removed this client and closed send. The
// removal flag is checked under the hub lock so such replies are dropped
// instead of panicking on the closed channel.
func (c *Client) trySend(msg Message) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	if c.removed {
		metrics.WSMessagesDropped.Inc()
		return
	}
	select {
	case c.send <- msg:
	default:
		metrics.WSMessagesDropped.Inc()
	}
}

// readPump reads frames from the connection and hands them to the router.
// A malformed frame never terminates the loop; only transport errors do.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close() // best-effort cleanup
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			break
		}

		if !c.limiter.Allow() {
			c.trySend(NewError("message rate limit exceeded"))
			continue
		}

		c.router.Dispatch(c, data)
	}
}

// writePump writes queued messages to the connection and keeps it alive
// with periodic pings. Exits when the hub closes the send channel or a
// write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // best-effort cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				logging.Error().Err(err).Msg("failed to write JSON message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
