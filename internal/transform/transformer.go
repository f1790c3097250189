package transform

import (
	"math"

	"github.com/GriffinCanCode/codefinder/backend/platform/internal/geometry"
)

// Config for the coordinate transformer.
type Config struct {
	Orientation    Orientation
	ReferenceRatio float64
}

// Transformer converts engine quads into normalized preview coordinates.
// It holds no mutable state and is safe for concurrent use.
type Transformer struct {
	cfg Config
}

// New creates a transformer. A non-positive reference ratio falls back to 9:16.
func New(cfg Config) *Transformer {
	if cfg.ReferenceRatio <= 0 {
		cfg.ReferenceRatio = ReferenceAspectRatio
	}
	return &Transformer{cfg: cfg}
}

// Scale returns the horizontal and vertical correction factors for the preview.
// An unknown preview size yields (1, 1).
func (t *Transformer) Scale(m Metrics) (hs, vs float64) {
	r := m.AspectRatio()
	ref := t.cfg.ReferenceRatio
	if r <= 0 || r == ref {
		return 1, 1
	}

	var deviation float64
	if r < ref {
		deviation = ref/r - 1
	} else {
		deviation = r/ref - 1
	}

	squareness := math.Max(0, 1-math.Abs(r-1))
	damp := 1 - squareness*SquareDampening
	factor := 1 + deviation*damp

	if r < ref {
		return factor, 1
	}
	return 1, factor
}

// Transform maps each corner of q from image pixels into preview space.
// When the image size is unknown the quad is returned untouched. Output is
// not clamped and may overshoot [0,1] slightly for extreme aspect ratios.
func (t *Transformer) Transform(q geometry.Quad, imageWidth, imageHeight int, m Metrics) geometry.Quad {
	if imageWidth <= 0 || imageHeight <= 0 {
		return q
	}
	w, h := float64(imageWidth), float64(imageHeight)
	hs, vs := t.Scale(m)

	var out geometry.Quad
	for i, p := range q {
		nx, ny := t.cfg.Orientation.normalize(p.X, p.Y, w, h)
		out[i] = geometry.Point{
			X: 0.5 + (nx-0.5)*hs,
			Y: 0.5 + (ny-0.5)*vs,
		}
	}
	return out
}

// Orientation reports the configured sensor orientation.
func (t *Transformer) Orientation() Orientation { return t.cfg.Orientation }
