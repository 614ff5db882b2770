// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pongWait      = 60 * time.Second
	pingPeriod    = 54 * time.Second
	writeWait     = 10 * time.Second
	sendQueueSize = 256
)

// Client is one WebSocket connection. Its id doubles as the participant id
// in the universe for the lifetime of the connection.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	addr           string
	closed         bool
	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
	log            *slog.Logger
}

// NewClient creates a Client for conn with a fresh connection id. conn may be
// nil, in which case the hub places the client but starts no pumps.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	id := uuid.NewString()

	return &Client{
		id:             id,
		conn:           conn,
		send:           make(chan []byte, sendQueueSize),
		hub:            hub,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimit),
		rateLimit:      cfg.RateLimit,
		log:            hub.log.With("client", id, "addr", addr),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// GetSendChan returns the client's outgoing frame channel.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Warn("error setting read deadline in pong handler", "error", err)
		}
		return nil
	})
}

// handleReadError logs the read failure and reports whether the read loop
// should stop. Every non-nil error ends the loop.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("message exceeded maximum size", "limit", c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Info("client disconnected", "reason", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Info("client connection closed", "reason", err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.log.Warn("unexpected websocket close", "error", err)
	default:
		c.log.Warn("websocket read error", "error", err)
	}
	return true
}

func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		c.log.Warn("rate limit exceeded; discarding message",
			"burst", c.rateLimit.Burst, "interval", c.rateLimit.RefillInterval)
		return false
	}
	return true
}

// forward hands a frame to the hub. It gives up once the hub stops.
func (c *Client) forward(payload []byte) bool {
	select {
	case c.hub.inbound <- InboundMessage{Sender: c, Payload: payload}:
		return true
	case <-c.hub.ctx.Done():
		return false
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("error closing connection in readPump", "error", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if c.handleReadError(err) {
			return
		}

		if !c.checkRateLimit() {
			continue
		}

		if !c.forward(rawMessage) {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	case <-c.hub.ctx.Done():
		return false
	}
}

func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("error closing connection in writePump", "error", err)
	}
}

// handleMessage writes one outgoing frame and returns false if the
// connection should be closed.
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("error setting write deadline", "error", err)
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("error writing close message", "error", err)
		}
		return false
	}

	// Envelopes are separate JSON documents, so each one gets its own frame.
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.log.Warn("error writing message", "error", err)
		return false
	}
	return true
}

func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("error setting write deadline for ping", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Warn("error writing ping message", "error", err)
		return false
	}
	return true
}
