package camera

import "time"

// Capture constants
const (
	// JPEG quality for frames produced by the screen capturer
	CaptureJPEGQuality = 85

	// Default capture rate when none is configured (Hz)
	DefaultCaptureRate = 15.0

	// Pause after a failed capture before trying again
	CaptureErrorBackoff = time.Second
)
