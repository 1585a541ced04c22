// Package server implements the PartyChat room engine: connection acceptance,
// the login handshake, the session registry, the broadcast hub, and the
// in-memory transcript.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, the transcript, routing, and HTTP handlers to keep
// the codebase maintainable and testable as the project grows.
package server
