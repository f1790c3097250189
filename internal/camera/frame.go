// Package camera defines analysis frames and the sources that produce them
package camera

import (
	"sync"
	"time"
)

// Frame is one analysis image together with the resource that backs it.
// Release must be called exactly once when the frame is no longer needed;
// repeated calls are ignored.
type Frame struct {
	Data      []byte // encoded image; empty when the source had no image
	Format    string // "jpeg", "png", "webp"
	Width     int
	Height    int
	Rotation  int // degrees reported by the source
	Timestamp time.Time

	once    sync.Once
	release func()
}

// NewFrame wraps an encoded image. release may be nil.
func NewFrame(data []byte, format string, width, height, rotation int, ts time.Time, release func()) *Frame {
	return &Frame{
		Data:      data,
		Format:    format,
		Width:     width,
		Height:    height,
		Rotation:  rotation,
		Timestamp: ts,
		release:   release,
	}
}

// HasImage reports whether the frame carries image data.
func (f *Frame) HasImage() bool {
	return f != nil && len(f.Data) > 0
}

// Release returns the frame's backing resource to its source.
func (f *Frame) Release() {
	if f == nil {
		return
	}
	f.once.Do(func() {
		if f.release != nil {
			f.release()
		}
	})
}
