// Package orchestrator coordinates detection sessions, frame intake and result
// fan-out.
package orchestrator

// Orchestrator configuration constants
const (
	// Per-subscriber buffer of undelivered results
	ResultBroadcastBuffer = 8

	// Number of recently emitted results kept for inspection
	ResultHistorySize = 20
)
