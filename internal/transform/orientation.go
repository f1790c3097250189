package transform

import (
	"fmt"
	"strings"
)

// Orientation describes how the analyzed image is mounted relative to the preview.
type Orientation int

const (
	// Rotate90 is a rear sensor mounted 90 degrees from the display with a
	// mirrored horizontal axis.
	Rotate90 Orientation = iota
	// Rotate270 is the opposite mounting, as seen on most front cameras.
	Rotate270
	// Upright sources need no axis swap (screen capture, pre-rotated frames).
	Upright
)

func (o Orientation) String() string {
	switch o {
	case Rotate90:
		return "rotate90"
	case Rotate270:
		return "rotate270"
	case Upright:
		return "none"
	default:
		return fmt.Sprintf("orientation(%d)", int(o))
	}
}

// ParseOrientation accepts the names produced by String plus degree shorthands.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rotate90", "90":
		return Rotate90, nil
	case "rotate270", "270":
		return Rotate270, nil
	case "none", "upright", "0":
		return Upright, nil
	default:
		return Rotate90, fmt.Errorf("unknown sensor orientation %q", s)
	}
}

// normalize maps a sensor-space point into [0,1] preview axes.
func (o Orientation) normalize(px, py, imageWidth, imageHeight float64) (float64, float64) {
	switch o {
	case Rotate270:
		return py / imageHeight, 1 - px/imageWidth
	case Upright:
		return px / imageWidth, py / imageHeight
	default:
		cameraX, cameraY := py, px
		return 1 - cameraX/imageHeight, cameraY / imageWidth
	}
}
