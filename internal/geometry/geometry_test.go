package geometry

import (
	"math"
	"testing"
)

func square() Quad {
	return Quad{{0.2, 0.2}, {0.4, 0.2}, {0.4, 0.4}, {0.2, 0.4}}
}

func TestQuadFromPoints(t *testing.T) {
	tests := []struct {
		name string
		pts  []Point
		ok   bool
	}{
		{"nil", nil, false},
		{"three", []Point{{}, {}, {}}, false},
		{"four", []Point{{1, 2}, {3, 4}, {5, 6}, {7, 8}}, true},
		{"five", []Point{{}, {}, {}, {}, {}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := QuadFromPoints(tt.pts)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && q[3] != (Point{7, 8}) {
				t.Errorf("order not preserved: %v", q)
			}
		})
	}
}

func TestCentroid(t *testing.T) {
	c := square().Centroid()
	if math.Abs(c.X-0.3) > 1e-12 || math.Abs(c.Y-0.3) > 1e-12 {
		t.Errorf("Centroid() = %v, want (0.3, 0.3)", c)
	}
}

func TestExpandZeroIsIdentity(t *testing.T) {
	q := Quad{{0.1, 0.7}, {0.9, 0.65}, {0.85, 0.8}, {0.12, 0.83}}
	if got := Expand(q, 0); got != q {
		t.Errorf("Expand(q, 0) = %v, want %v", got, q)
	}
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func TestExpandIncreasesDistance(t *testing.T) {
	q := square()
	c := q.Centroid()
	small := Expand(q, 0.01)
	large := Expand(q, 0.05)

	for i := range q {
		d0 := distance(c, q[i])
		d1 := distance(c, small[i])
		d2 := distance(c, large[i])
		if !(d0 < d1 && d1 < d2) {
			t.Errorf("corner %d distances not increasing: %v %v %v", i, d0, d1, d2)
		}
	}
}

func TestExpandKeepsCentroid(t *testing.T) {
	q := Quad{{0.1, 0.7}, {0.9, 0.65}, {0.85, 0.8}, {0.12, 0.83}}
	c0 := q.Centroid()
	c1 := Expand(q, DefaultPaddingRatio).Centroid()
	if math.Abs(c0.X-c1.X) > 1e-12 || math.Abs(c0.Y-c1.Y) > 1e-12 {
		t.Errorf("centroid moved: %v -> %v", c0, c1)
	}
}

func TestExpandOnePercent(t *testing.T) {
	got := Expand(square(), DefaultPaddingRatio)
	want := Point{0.3 - 0.1*1.01, 0.3 - 0.1*1.01}
	if math.Abs(got[0].X-want.X) > 1e-12 || math.Abs(got[0].Y-want.Y) > 1e-12 {
		t.Errorf("corner 0 = %v, want %v", got[0], want)
	}
}
