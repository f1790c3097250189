package detect

import (
	"log/slog"

	"github.com/corona10/goimagehash"

	"github.com/GriffinCanCode/codefinder/backend/platform/internal/camera"
)

// similarity remembers the perceptual hash of the last recognized frame.
// Owned by the driver goroutine.
type similarity struct {
	maxDistance int
	last        *goimagehash.ImageHash
}

func newSimilarity(maxDistance int) *similarity {
	return &similarity{maxDistance: maxDistance}
}

func (s *similarity) enabled() bool { return s != nil && s.maxDistance >= 0 }

// hash computes the frame's pHash, or nil if the frame cannot be decoded.
func (s *similarity) hash(f *camera.Frame) *goimagehash.ImageHash {
	if !s.enabled() || !f.HasImage() {
		return nil
	}
	img, err := f.Decode()
	if err != nil {
		return nil
	}
	h, err := goimagehash.PerceptionHash(camera.Thumbnail(img, HashThumbnailSize))
	if err != nil {
		return nil
	}
	return h
}

// similar reports whether h is within the configured Hamming distance of the
// last recognized frame.
func (s *similarity) similar(h *goimagehash.ImageHash) bool {
	if !s.enabled() || h == nil || s.last == nil {
		return false
	}
	dist, err := s.last.Distance(h)
	if err != nil {
		return false
	}
	if dist <= s.maxDistance {
		slog.Debug("frame similar to last recognized", "distance", dist)
		return true
	}
	return false
}

// remember records h as the last recognized frame.
func (s *similarity) remember(h *goimagehash.ImageHash) {
	if s.enabled() && h != nil {
		s.last = h
	}
}
