// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// Per-connection sliding window for JSON control messages; binary frames are not limited
	RateLimitMessages = 20
	RateLimitWindow   = time.Second

	// Largest accepted frame, over WebSocket or POST /api/frames
	MaxFrameBytes = 16 << 20

	// Deadline for pushing one message to a WebSocket client
	WriteTimeout = 2 * time.Second

	// Default and maximum number of entries returned by the history endpoint
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)
