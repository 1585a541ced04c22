// Package server coordinates login registration, message commit, and broadcast
// fan-out for the PartyChat room via the Hub type.
package server

import (
	"log"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/stregea/PartyChat/internal/protocol"
)

// Hub owns the shared chat state: the session registry mapping each logged-in
// username to its client, and the transcript. One mutex guards both, so login,
// logout, and message commit are each a single critical section and no two of
// them interleave. The critical sections never perform socket I/O; delivery to
// a client goes through its buffered send queue.
type Hub struct {
	mu         sync.Mutex
	sessions   map[string]*Client
	conns      map[*Client]struct{}
	transcript *Transcript
	wg         sync.WaitGroup
}

// NewHub creates a hub with an empty registry and an empty transcript.
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]*Client),
		conns:      make(map[*Client]struct{}),
		transcript: NewTranscript(),
	}
}

var hub = NewHub()

// GetHub returns the global hub instance for shutdown coordination.
func GetHub() *Hub {
	return hub
}

// StartClient tracks the connection and launches its read and write pumps.
// The client is not in the registry until its login handshake succeeds.
func (h *Hub) StartClient(c *Client) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	total := len(h.conns)
	h.mu.Unlock()
	log.Printf("Connection %s accepted from %s. Open connections: %d", c.id, c.addr, total)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
}

// Login atomically checks the candidate name against the registry and, when it
// is available, registers the client's push handle and queues the
// LOGIN_SUCCESS reply followed by the transcript snapshot. Queuing the reply
// inside the critical section guarantees the snapshot plus the MESSAGE_SENT
// frames that follow reconstruct the transcript with no gap and no duplicate.
func (h *Hub) Login(c *Client, username string) error {
	if username == "" {
		return protocol.ErrInvalidUsername
	}

	success, err := protocol.NewLoginSuccess().Encode()
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, taken := h.sessions[username]; taken {
		return protocol.ErrUserAlreadyExists
	}

	snapshot, err := protocol.NewChatRoom(h.transcript.Snapshot()).Encode()
	if err != nil {
		return err
	}

	h.sessions[username] = c
	h.push(c, success)
	h.push(c, snapshot)
	return nil
}

// Logout removes the username from the registry, but only while it still maps
// to the given client. Removal is the connection handler's sole
// responsibility; the broadcast path never deregisters a session.
func (h *Hub) Logout(username string, c *Client) {
	h.mu.Lock()
	if current, ok := h.sessions[username]; ok && current == c {
		delete(h.sessions, username)
	}
	h.mu.Unlock()
}

// Detach stops tracking the connection and closes its send queue. Called
// exactly once, from the read pump's teardown.
func (h *Hub) Detach(c *Client) {
	h.mu.Lock()
	if c.closed {
		h.mu.Unlock()
		return
	}
	c.closed = true
	delete(h.conns, c)
	h.mu.Unlock()
	// Close the queue after releasing the lock; the write pump drains what is
	// already buffered before it sees the close.
	close(c.send)
}

// Submit commits one message: the author is bound from the logged-in session,
// the timestamp is assigned at commit time, the rendered line is appended to
// the transcript, and the MESSAGE_SENT frame is queued for every registered
// session. The order in which Submit calls take the lock is the one global
// order all clients observe. A session whose queue is full misses this
// message; it stays registered and delivery to the others is unaffected.
func (h *Hub) Submit(author, body string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg := protocol.Message{
		Author: protocol.User{Username: author},
		SentAt: time.Now().UnixMilli(),
		Body:   body,
	}
	h.transcript.Append(msg)

	frame, err := protocol.NewMessageSent(msg).Encode()
	if err != nil {
		log.Printf("Dropping message from %s: %v", author, err)
		return
	}

	for username, c := range h.sessions {
		if !h.push(c, frame) {
			log.Printf("Session %s missed a message: send queue unavailable", username)
		}
	}
}

// Reply queues a single frame for one client outside of a commit, used for
// handshake replies that carry no transcript state.
func (h *Hub) Reply(c *Client, req protocol.Request) {
	frame, err := req.Encode()
	if err != nil {
		log.Printf("Dropping %s reply for %s: %v", req.Type, c.addr, err)
		return
	}
	h.mu.Lock()
	h.push(c, frame)
	h.mu.Unlock()
}

// push queues a frame for one client without blocking. Callers hold h.mu,
// which also guards the closed flag.
func (h *Hub) push(c *Client, frame []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Usernames returns the names currently registered, in no particular order.
func (h *Hub) Usernames() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return lo.Keys(h.sessions)
}

// SessionCount reports how many users are logged in.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Transcript exposes the hub's transcript for snapshot reads.
func (h *Hub) Transcript() *Transcript {
	return h.transcript
}

// Shutdown closes every open connection and waits for the pump goroutines to
// finish, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.mu.Lock()
	conns := lo.Keys(h.conns)
	h.mu.Unlock()

	log.Printf("Shutting down %d client connections...", len(conns))
	for _, c := range conns {
		if c.conn == nil {
			continue
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing connection from %s: %v", c.addr, err)
		}
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return errShutdownTimeout
	}
}
