// Package transform maps recognition-engine corners into normalized preview space
package transform

// Transform constants
const (
	// ReferenceAspectRatio is the 9:16 portrait ratio the analysis stream is configured for.
	ReferenceAspectRatio = 0.5625

	// Scaling correction is attenuated by up to this fraction for a 1:1 preview.
	SquareDampening = 0.5
)
