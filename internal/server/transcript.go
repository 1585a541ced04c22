// Package server keeps the chat transcript, the append-only rendered log of
// every message committed by the hub.
package server

import (
	"strings"
	"sync"

	"github.com/stregea/PartyChat/internal/protocol"
)

// Transcript is the ordered sequence of formatted chat lines. It lives only
// for the lifetime of the process; all writes go through the hub, which
// serializes them into the one global order every client observes.
type Transcript struct {
	mu    sync.RWMutex
	lines []string
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append renders the message as a transcript line, appends it, and returns
// the rendered line.
func (t *Transcript) Append(msg protocol.Message) string {
	line := protocol.FormatLine(msg)
	t.mu.Lock()
	t.lines = append(t.lines, line)
	t.mu.Unlock()
	return line
}

// Snapshot returns a point-in-time copy of the transcript: every committed
// line terminated by a newline, or the empty string for an empty room.
func (t *Transcript) Snapshot() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.lines) == 0 {
		return ""
	}
	return strings.Join(t.lines, "\n") + "\n"
}

// Len reports how many lines have been committed.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.lines)
}
