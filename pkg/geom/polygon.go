package geom

import "slices"

// Ring is an implicitly closed sequence of vertices. The last vertex
// connects back to the first.
type Ring []Point

// Bounds returns the bounding box of the ring, or false for an empty ring.
func (r Ring) Bounds() (Box, bool) {
	return BoxOf(r...)
}

// Area returns the absolute enclosed area using the shoelace formula.
// Self-intersecting rings give the net signed area in absolute value.
func (r Ring) Area() float64 {
	if len(r) < 3 {
		return 0
	}
	var sum float64
	for i, p := range r {
		q := r[(i+1)%len(r)]
		sum += float64(p.X)*float64(q.Y) - float64(q.X)*float64(p.Y)
	}
	if sum < 0 {
		sum = -sum
	}
	return sum / 2
}

// Rect returns the four-vertex ring of an axis-aligned rectangle.
func Rect(x0, y0, x1, y1 int64) Ring {
	return Ring{Pt(x0, y0), Pt(x1, y0), Pt(x1, y1), Pt(x0, y1)}
}

// Polygon is an outline with zero or more holes.
type Polygon struct {
	Outline Ring   `json:"outline"`
	Holes   []Ring `json:"holes,omitempty"`
}

// Clone returns a copy of p that shares no vertex storage with it.
func (p Polygon) Clone() Polygon {
	c := Polygon{Outline: slices.Clone(p.Outline)}
	if p.Holes != nil {
		c.Holes = make([]Ring, len(p.Holes))
		for i, h := range p.Holes {
			c.Holes[i] = slices.Clone(h)
		}
	}
	return c
}

// Bounds returns the outline's bounding box. Holes lie inside the outline
// and never enlarge it.
func (p Polygon) Bounds() (Box, bool) {
	return p.Outline.Bounds()
}
