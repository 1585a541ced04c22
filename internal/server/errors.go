// Package server groups the error helpers shared across connection teardown
// and shutdown paths.
package server

import (
	"errors"
	"strings"
)

// errShutdownTimeout is returned when goroutines are still running after the
// shutdown grace period.
var errShutdownTimeout = errors.New("shutdown timeout reached")

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
