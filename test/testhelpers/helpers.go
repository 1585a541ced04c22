// Package testhelpers provides common utilities and helper functions for testing the PartyChat server.
//
// This package contains reusable test utilities that are shared across the integration tests.
// It provides functions for starting a test server, speaking the chat protocol over real
// WebSocket connections, and asserting on received requests to reduce code duplication.
package testhelpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stregea/PartyChat/internal/protocol"
	"github.com/stregea/PartyChat/internal/server"
)

// StartTestServer starts the full PartyChat HTTP stack on an ephemeral port,
// allowing its own origin, and returns the WebSocket URL of the chat endpoint.
// The server is shut down when the test finishes.
func StartTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	mux := server.SetupRoutes()
	testServer := httptest.NewServer(mux)
	t.Cleanup(testServer.Close)

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{testServer.URL}
	server.SetConfig(cfg)
	t.Cleanup(func() { server.SetConfig(nil) })

	wsURL := "ws" + strings.TrimPrefix(testServer.URL, "http") + "/ws"
	return testServer, wsURL
}

// ConnectWebSocket opens a WebSocket connection to the chat endpoint. A
// non-empty origin is sent as the Origin header, mimicking a browser client.
func ConnectWebSocket(wsURL, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	var headers http.Header
	if origin != "" {
		headers = http.Header{}
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(wsURL, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// MustConnect opens a WebSocket connection and fails the test if it cannot.
func MustConnect(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()

	conn, err := ConnectWebSocket(wsURL, "")
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", wsURL, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendRequest writes one protocol request as a single WebSocket frame.
func SendRequest(t *testing.T, conn *websocket.Conn, req protocol.Request) {
	t.Helper()

	frame, err := req.Encode()
	if err != nil {
		t.Fatalf("Failed to encode %s request: %v", req.Type, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("Failed to send %s request: %v", req.Type, err)
	}
}

// ReadRequest reads and decodes the next protocol request, failing the test
// when nothing arrives before the timeout.
func ReadRequest(t *testing.T, conn *websocket.Conn, timeout time.Duration) protocol.Request {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read request: %v", err)
	}
	req, err := protocol.Decode(frame)
	if err != nil {
		t.Fatalf("Received undecodable frame: %v", err)
	}
	return req
}

// Login performs the login handshake and returns the server's first reply.
func Login(t *testing.T, conn *websocket.Conn, username string) protocol.Request {
	t.Helper()

	SendRequest(t, conn, protocol.NewLogin(username))
	return ReadRequest(t, conn, 2*time.Second)
}

// LoginSuccessfully performs the login handshake, asserts it succeeds, and
// returns the transcript snapshot that follows the LOGIN_SUCCESS reply.
func LoginSuccessfully(t *testing.T, conn *websocket.Conn, username string) string {
	t.Helper()

	reply := Login(t, conn, username)
	if reply.Type != protocol.TypeLoginSuccess {
		t.Fatalf("Expected LOGIN_SUCCESS for %q, got %s", username, reply.Type)
	}

	snapshot := ReadRequest(t, conn, 2*time.Second)
	if snapshot.Type != protocol.TypeChatRoom {
		t.Fatalf("Expected transcript snapshot after LOGIN_SUCCESS, got %s", snapshot.Type)
	}
	return snapshot.Transcript
}

// SendBody submits one chat message with the current time as its send stamp.
func SendBody(t *testing.T, conn *websocket.Conn, body string) {
	t.Helper()
	SendRequest(t, conn, protocol.NewSendMessage(time.Now().UnixMilli(), body))
}

// ExpectMessageSent reads the next request and asserts it is a MESSAGE_SENT
// with the given author and body.
func ExpectMessageSent(t *testing.T, conn *websocket.Conn, author, body string) {
	t.Helper()

	req := ReadRequest(t, conn, 2*time.Second)
	if req.Type != protocol.TypeMessageSent {
		t.Fatalf("Expected MESSAGE_SENT, got %s", req.Type)
	}
	if req.Message == nil {
		t.Fatal("MESSAGE_SENT carried no message")
	}
	if req.Message.Author.Username != author {
		t.Errorf("Expected author %q, got %q", author, req.Message.Author.Username)
	}
	if req.Message.Body != body {
		t.Errorf("Expected body %q, got %q", body, req.Message.Body)
	}
}

// ExpectNoRequest asserts that nothing arrives on the connection within the
// given window.
func ExpectNoRequest(t *testing.T, conn *websocket.Conn, window time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(window)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	if _, frame, err := conn.ReadMessage(); err == nil {
		t.Fatalf("Expected silence, received frame: %s", frame)
	}
}

// ExpectClosed asserts the server ends the connection within the timeout.
func ExpectClosed(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
