package integration

import (
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stregea/PartyChat/internal/protocol"
	"github.com/stregea/PartyChat/internal/server"
	"github.com/stregea/PartyChat/test/testhelpers"
)

// TestOriginControl verifies browser connections are admitted only from
// configured origins, while origin-less (non-browser) clients pass.
func TestOriginControl(t *testing.T) {
	testServer, wsURL := testhelpers.StartTestServer(t)

	t.Run("allowed origin connects", func(t *testing.T) {
		conn, err := testhelpers.ConnectWebSocket(wsURL, testServer.URL)
		if err != nil {
			t.Fatalf("Expected connection from allowed origin to succeed: %v", err)
		}
		_ = conn.Close()
	})

	t.Run("disallowed origin is blocked", func(t *testing.T) {
		conn, err := testhelpers.ConnectWebSocket(wsURL, "http://evil.example")
		if err == nil {
			_ = conn.Close()
			t.Fatal("Expected connection from disallowed origin to fail")
		}
	})

	t.Run("missing origin connects", func(t *testing.T) {
		conn, err := testhelpers.ConnectWebSocket(wsURL, "")
		if err != nil {
			t.Fatalf("Expected origin-less connection to succeed: %v", err)
		}
		_ = conn.Close()
	})
}

// TestOversizedFrameTerminatesConnection verifies a frame over the configured
// limit tears the offending session down without touching other sessions.
func TestOversizedFrameTerminatesConnection(t *testing.T) {
	_, wsURL := testhelpers.StartTestServer(t)
	alice := uniqueName(t, "alice")
	bob := uniqueName(t, "bob")

	bystander := testhelpers.MustConnect(t, wsURL)
	testhelpers.LoginSuccessfully(t, bystander, alice)

	offender := testhelpers.MustConnect(t, wsURL)
	testhelpers.LoginSuccessfully(t, offender, bob)

	oversized := strings.Repeat("X", int(server.NewConfig().MaxMessageSize)+1)
	testhelpers.SendBody(t, offender, oversized)
	testhelpers.ExpectClosed(t, offender, 2*time.Second)

	// The bystander's session is unaffected.
	testhelpers.SendBody(t, bystander, "still chatting")
	testhelpers.ExpectMessageSent(t, bystander, alice, "still chatting")
}

// TestMalformedFrameTerminatesConnection verifies an unparsable payload is a
// read failure: the session ends and the name is eventually freed.
func TestMalformedFrameTerminatesConnection(t *testing.T) {
	_, wsURL := testhelpers.StartTestServer(t)
	alice := uniqueName(t, "alice")

	conn := testhelpers.MustConnect(t, wsURL)
	testhelpers.LoginSuccessfully(t, conn, alice)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("this is not json")); err != nil {
		t.Fatalf("Failed to send malformed frame: %v", err)
	}
	testhelpers.ExpectClosed(t, conn, 2*time.Second)
}

// TestRateLimitDiscardsExcessMessages verifies messages beyond the burst are
// dropped without disconnecting the session.
func TestRateLimitDiscardsExcessMessages(t *testing.T) {
	_, wsURL := testhelpers.StartTestServer(t)
	alice := uniqueName(t, "alice")

	conn := testhelpers.MustConnect(t, wsURL)
	testhelpers.LoginSuccessfully(t, conn, alice)

	burst := server.NewConfig().RateLimitBurst
	for i := 0; i < burst+5; i++ {
		testhelpers.SendBody(t, conn, "spam")
	}

	received := 0
	for {
		if err := conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond)); err != nil {
			t.Fatalf("Failed to set read deadline: %v", err)
		}
		_, frame, err := conn.ReadMessage()
		if err != nil {
			break
		}
		req, err := protocol.Decode(frame)
		if err != nil {
			t.Fatalf("Received undecodable frame: %v", err)
		}
		if req.Type == protocol.TypeMessageSent {
			received++
		}
	}

	if received == 0 {
		t.Error("Expected at least the burst worth of messages to be delivered")
	}
	if received > burst+2 {
		t.Errorf("Expected roughly %d messages delivered, got %d", burst, received)
	}

	// Still logged in after being throttled: reconnecting under the same
	// name must fail.
	second := testhelpers.MustConnect(t, wsURL)
	if reply := testhelpers.Login(t, second, alice); reply.Type != protocol.TypeUserAlreadyExists {
		t.Errorf("Expected %s to still be registered, login reply was %s", alice, reply.Type)
	}
}
