package geom

import "fmt"

// Point is a position in board units.
type Point struct {
	X int64 `json:"x"`
	Y int64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Box is an axis-aligned bounding box given by its top-left origin and its
// size. Size is never negative.
type Box struct {
	Pos  Point `json:"pos"`
	Size Point `json:"size"`
}

// BoxOf returns the smallest box containing all points. The second result
// is false when pts is empty.
func BoxOf(pts ...Point) (Box, bool) {
	if len(pts) == 0 {
		return Box{}, false
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return Box{Pos: Pt(minX, minY), Size: Pt(maxX-minX, maxY-minY)}, true
}

// Left returns the minimum x coordinate.
func (b Box) Left() int64 { return b.Pos.X }

// Top returns the minimum y coordinate.
func (b Box) Top() int64 { return b.Pos.Y }

// Right returns the maximum x coordinate (inclusive).
func (b Box) Right() int64 { return b.Pos.X + b.Size.X }

// Bottom returns the maximum y coordinate (inclusive).
func (b Box) Bottom() int64 { return b.Pos.Y + b.Size.Y }

// Merge returns the union of b and o.
func (b Box) Merge(o Box) Box {
	left, top := min(b.Left(), o.Left()), min(b.Top(), o.Top())
	right, bottom := max(b.Right(), o.Right()), max(b.Bottom(), o.Bottom())
	return Box{Pos: Pt(left, top), Size: Pt(right-left, bottom-top)}
}

// Contains reports whether p lies inside b, edges included.
func (b Box) Contains(p Point) bool {
	return p.X >= b.Left() && p.X <= b.Right() && p.Y >= b.Top() && p.Y <= b.Bottom()
}

func (b Box) String() string {
	return fmt.Sprintf("[%v +%dx%d]", b.Pos, b.Size.X, b.Size.Y)
}
