package server

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stregea/PartyChat/internal/protocol"
)

func TestTranscriptStartsEmpty(t *testing.T) {
	tr := NewTranscript()

	require.Empty(t, tr.Snapshot())
	require.Zero(t, tr.Len())
}

func TestTranscriptAppendRendersAndAccumulates(t *testing.T) {
	req := require.New(t)
	tr := NewTranscript()

	first := protocol.Message{Author: protocol.User{Username: "alice"}, SentAt: 1700000000000, Body: "hi"}
	second := protocol.Message{Author: protocol.User{Username: "bob"}, SentAt: 1700000001000, Body: "hey"}

	line := tr.Append(first)
	req.Equal(protocol.FormatLine(first), line)

	tr.Append(second)
	req.Equal(2, tr.Len())
	req.Equal(protocol.FormatLine(first)+"\n"+protocol.FormatLine(second)+"\n", tr.Snapshot())
}

func TestTranscriptSnapshotIsPointInTime(t *testing.T) {
	req := require.New(t)
	tr := NewTranscript()

	tr.Append(protocol.Message{Author: protocol.User{Username: "alice"}, Body: "one"})
	before := tr.Snapshot()

	tr.Append(protocol.Message{Author: protocol.User{Username: "alice"}, Body: "two"})

	req.NotEqual(before, tr.Snapshot())
	req.Contains(tr.Snapshot(), before)
}
