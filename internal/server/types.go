// Package server defines transport errors and helpers shared by client and
// hub logic.
package server

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrSendBufferFull is returned when a client's outbound queue is full.
	// The client is evicted.
	ErrSendBufferFull = errors.New("server: client send buffer full")

	// ErrClientGone is returned when sending to a client that already left.
	ErrClientGone = errors.New("server: client is not connected")

	// ErrHubClosed is returned when registering with a hub that has shut down.
	ErrHubClosed = errors.New("server: hub is closed")
)

// Lifecycle receives connection events from the hub. relay.Coordinator
// implements it.
type Lifecycle interface {
	OnOpen(ctx context.Context, connID string) error
	OnClosing(connID string)
	OnClose(connID string)
	Dispatch(ctx context.Context, connID string, frame []byte) bool
}

// Frame drop reasons reported to the drop hook.
const (
	dropRateLimited = "rate_limited"
	dropMalformed   = "malformed"
)

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
