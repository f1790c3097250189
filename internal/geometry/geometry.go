// Package geometry holds the point and quad types shared by the detection pipeline
package geometry

// DefaultPaddingRatio inflates overlay quads by 1% around their centroid.
const DefaultPaddingRatio = 0.01

// Point is a 2D coordinate. Sensor space before transformation, normalized
// preview space after.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Quad is a four-corner polygon in the order the recognition engine reported it.
type Quad [4]Point

// QuadFromPoints converts engine corner data into a Quad.
// Reports false unless exactly four points are given.
func QuadFromPoints(pts []Point) (Quad, bool) {
	var q Quad
	if len(pts) != len(q) {
		return q, false
	}
	copy(q[:], pts)
	return q, true
}

// Centroid returns the arithmetic mean of the four corners.
func (q Quad) Centroid() Point {
	var c Point
	for _, p := range q {
		c.X += p.X
		c.Y += p.Y
	}
	c.X /= float64(len(q))
	c.Y /= float64(len(q))
	return c
}

// Expand pushes every corner away from the centroid by (1+ratio).
// A zero ratio returns the quad unchanged.
func Expand(q Quad, ratio float64) Quad {
	if ratio == 0 {
		return q
	}
	c := q.Centroid()
	scale := 1 + ratio
	var out Quad
	for i, p := range q {
		out[i] = Point{
			X: c.X + (p.X-c.X)*scale,
			Y: c.Y + (p.Y-c.Y)*scale,
		}
	}
	return out
}
