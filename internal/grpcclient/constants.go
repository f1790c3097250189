// Package grpcclient connects the platform to a remote recognition service
// over gRPC and exposes that service for engines running in-process.
package grpcclient

import "time"

// Client configuration defaults
const (
	// Keepalive configuration
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	// Health check configuration
	HealthCheckTimeout = 2 * time.Second

	// Upper bound on a single encoded frame sent to the recognizer
	MaxFrameBytes = 16 << 20

	// Message limit on both ends of the recognizer connection. The JSON codec
	// base64-encodes the frame (4 bytes per 3), plus room for the envelope.
	MaxMessageBytes = (MaxFrameBytes+2)/3*4 + messageOverheadBytes

	messageOverheadBytes = 1 << 20
)
