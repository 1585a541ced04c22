// Package integration contains integration tests that exercise the PartyChat
// server over real HTTP and WebSocket connections.
//
// The tests start the full routing stack on an ephemeral port and speak the
// actual chat protocol, verifying the login handshake, broadcast ordering,
// and connection-level protections end to end.
package integration

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stregea/PartyChat/test/testhelpers"
)

// uniqueName namespaces a username by test so the shared room registry never
// collides across tests.
func uniqueName(t *testing.T, base string) string {
	t.Helper()
	return base + "-" + t.Name()
}

// TestHealthEndpoint verifies the health check responds on the root route.
func TestHealthEndpoint(t *testing.T) {
	testServer, _ := testhelpers.StartTestServer(t)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(testServer.URL + "/")
	if err != nil {
		t.Fatalf("Failed to reach health endpoint: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read health response: %v", err)
	}
	expected := "PartyChat server is running!"
	if string(body) != expected {
		t.Errorf("Expected body %q, got %q", expected, string(body))
	}
}

// TestWebSocketEndpointRejectsPlainGET verifies a non-upgrade request to the
// chat endpoint does not succeed.
func TestWebSocketEndpointRejectsPlainGET(t *testing.T) {
	testServer, _ := testhelpers.StartTestServer(t)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(testServer.URL + "/ws")
	if err != nil {
		t.Fatalf("Failed to request chat endpoint: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK {
		t.Error("Expected the upgrade to fail for a plain GET request")
	}
}
