// Package server manages individual client connections: the login handshake,
// the read/write pumps, rate limiting, and per-connection teardown.
package server

import (
	"errors"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/stregea/PartyChat/internal/protocol"
)

// Client is the server-side handler for one connection. It owns the raw
// WebSocket, runs the login handshake, and then loops dispatching inbound
// requests. Outbound frames are queued on send and written by the write pump,
// so the hub never blocks on this connection's I/O.
type Client struct {
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	addr           string
	id             string
	username       string
	loggedIn       bool
	closed         bool
	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
}

// NewClient creates a handler for the given connection. The send queue is
// buffered so a briefly slow reader does not stall broadcast commits.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		conn:           conn,
		send:           make(chan []byte, 256),
		hub:            hub,
		addr:           addr,
		id:             uuid.NewString(),
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimitBurst, cfg.RateLimitRefill),
		rateLimit:      RateLimitConfig{Burst: cfg.RateLimitBurst, RefillInterval: cfg.RateLimitRefill},
	}
}

// GetSendChan returns the client's outbound queue for reading.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// setupReadConnection configures the read deadline and pong handler.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		log.Printf("Error setting initial read deadline for %s: %v", c.addr, err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			log.Printf("Error setting read deadline in pong handler for %s: %v", c.addr, err)
		}
		return nil
	})
}

// logReadError logs the reason the read loop is ending, keeping the noise
// down for the close scenarios every disconnect produces.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Printf("Frame from %s exceeded maximum size of %d bytes", c.addr, c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		log.Printf("Connection %s disconnected: %v", c.id, err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		log.Printf("Connection %s closed: %v", c.id, err)
	default:
		log.Printf("Read error from %s (%s): %v", c.addr, c.id, err)
	}
}

// readPump drives the connection's state machine: one login request, then the
// chat loop. Any read failure ends the pump, deregisters the username when one
// was registered, and closes the connection. There is no retry.
func (c *Client) readPump() {
	defer func() {
		if c.loggedIn {
			c.hub.Logout(c.username, c)
			log.Printf("%s signed out", c.username)
		}
		// Closing the queue lets the write pump flush what is buffered,
		// send the close message, and close the socket.
		c.hub.Detach(c)
	}()

	c.setupReadConnection()

	if !c.handshake() {
		return
	}
	c.chatLoop()
}

// handshake reads exactly one request, which must be a LOGIN, and answers it.
// A rejected client is never registered and is kept on the line until it hangs
// up; the server does not close on it proactively.
func (c *Client) handshake() bool {
	_, frame, err := c.conn.ReadMessage()
	if err != nil {
		c.logReadError(err)
		return false
	}

	req, err := protocol.Decode(frame)
	if err != nil || req.Type != protocol.TypeLogin || req.User == nil {
		log.Printf("Protocol violation from %s: first request was not a valid LOGIN", c.addr)
		c.hub.Reply(c, protocol.NewError("expected a LOGIN request"))
		return false
	}

	username := req.User.Username
	switch err := c.hub.Login(c, username); {
	case errors.Is(err, protocol.ErrInvalidUsername):
		c.hub.Reply(c, protocol.NewInvalidUsername())
		c.drainRejected()
		return false
	case errors.Is(err, protocol.ErrUserAlreadyExists):
		log.Printf("Login rejected for %s: %q is already signed in", c.addr, username)
		c.hub.Reply(c, protocol.NewUserAlreadyExists())
		c.drainRejected()
		return false
	case err != nil:
		log.Printf("Login failed for %s: %v", c.addr, err)
		c.hub.Reply(c, protocol.NewError("login failed"))
		return false
	}

	c.username = username
	c.loggedIn = true
	log.Printf("%s signed in from %s", username, c.addr)
	return true
}

// drainRejected keeps reading a rejected connection so it stays open until the
// peer ends the session, discarding anything it sends.
func (c *Client) drainRejected() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.logReadError(err)
			return
		}
	}
}

// chatLoop reads and dispatches requests for a logged-in session until the
// stream ends or a frame fails to parse.
func (c *Client) chatLoop() {
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		req, err := protocol.Decode(frame)
		if err != nil {
			log.Printf("Malformed request from %s: %v", c.username, err)
			return
		}

		if !c.dispatch(req) {
			return
		}
	}
}

// dispatch handles one request from a logged-in session. Request types that
// have no meaning in this state are ignored. It returns false when the
// connection must be torn down.
func (c *Client) dispatch(req protocol.Request) bool {
	switch req.Type {
	case protocol.TypeSendMessage:
		if req.Message == nil {
			log.Printf("Malformed SEND_MESSAGE from %s: missing payload", c.username)
			return false
		}
		if !c.checkRateLimit() {
			return true
		}
		c.hub.Submit(c.username, req.Message.Body)
	default:
	}
	return true
}

// checkRateLimit reports whether the session is allowed to submit another
// message. Messages over the limit are discarded, not fatal.
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		log.Printf("Rate limit exceeded for %s (%d messages per %s); discarding message",
			c.username, c.rateLimit.Burst, c.rateLimit.RefillInterval)
		return false
	}
	return true
}

// writePump writes queued frames to the connection and keeps it alive with
// periodic pings. One frame per WebSocket message; clients decode by frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
				log.Printf("Error setting write deadline for %s: %v", c.addr, err)
				return
			}
			if !ok {
				c.writeCloseMessage()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error writing frame to %s: %v", c.addr, err)
				}
				return
			}
		case <-ticker.C:
			if !c.handlePing() {
				return
			}
		}
	}
}

// closeConnection closes the WebSocket, ignoring the errors every teardown
// produces.
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		log.Printf("Error closing connection in writePump: %v", err)
	}
}

// writeCloseMessage tells the peer the server side is done.
func (c *Client) writeCloseMessage() {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing close message to %s: %v", c.addr, err)
		}
	}
}

// handlePing sends a ping to keep the connection alive.
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		log.Printf("Error setting write deadline for ping to %s: %v", c.addr, err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		log.Printf("Error writing ping message to %s: %v", c.addr, err)
		return false
	}
	return true
}
