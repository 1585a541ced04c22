// Package client implements the client-side chat session used by the console
// application: the connection to the server, the login handshake, and the
// locally mirrored chat room.
package client

import (
	"sync"

	"github.com/stregea/PartyChat/internal/protocol"
)

// ChatRoom mirrors the server transcript on the client. It is seeded with the
// snapshot delivered at login and grows by one line per MESSAGE_SENT
// notification, so its text is always a prefix of the server transcript.
// Updates are pushed to observers over an asynchronous channel; the room never
// assumes anything about how the presentation layer consumes them.
type ChatRoom struct {
	mu      sync.RWMutex
	text    string
	updates chan string
}

// NewChatRoom returns an empty room.
func NewChatRoom() *ChatRoom {
	return &ChatRoom{updates: make(chan string, 64)}
}

// SetSnapshot replaces the room contents with the transcript snapshot
// received at login.
func (r *ChatRoom) SetSnapshot(snapshot string) {
	r.mu.Lock()
	r.text = snapshot
	r.mu.Unlock()
}

// Add renders a broadcast message, appends it, and notifies observers. A
// observer that has fallen behind misses the notification but String still
// returns the complete room.
func (r *ChatRoom) Add(msg protocol.Message) {
	line := protocol.FormatLine(msg)
	r.mu.Lock()
	r.text += line + "\n"
	r.mu.Unlock()

	select {
	case r.updates <- line:
	default:
	}
}

// String returns the room contents rendered so far.
func (r *ChatRoom) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.text
}

// Updates returns the channel carrying each newly appended line.
func (r *ChatRoom) Updates() <-chan string {
	return r.updates
}
