package raster

import "fmt"

// Grid is a dense row-major grid of int32 cells.
type Grid struct {
	Width  int
	Height int
	Pix    []int32
}

// NewGrid allocates a zeroed grid. Negative dimensions are treated as zero.
func NewGrid(width, height int) *Grid {
	width, height = max(width, 0), max(height, 0)
	return &Grid{
		Width:  width,
		Height: height,
		Pix:    make([]int32, width*height),
	}
}

// In reports whether (x, y) is inside the grid.
func (g *Grid) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// At returns the cell value, or 0 outside the grid.
func (g *Grid) At(x, y int) int32 {
	if !g.In(x, y) {
		return 0
	}
	return g.Pix[y*g.Width+x]
}

// Set writes v at (x, y). Out-of-range writes are ignored.
func (g *Grid) Set(x, y int, v int32) {
	if !g.In(x, y) {
		return
	}
	g.Pix[y*g.Width+x] = v
}

// Add adds v at (x, y). Out-of-range writes are ignored.
func (g *Grid) Add(x, y int, v int32) {
	if !g.In(x, y) {
		return
	}
	g.Pix[y*g.Width+x] += v
}

// CountNonZero returns the number of nonzero cells.
func (g *Grid) CountNonZero() int {
	n := 0
	for _, v := range g.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Max returns the largest cell value, or 0 for an empty grid.
func (g *Grid) Max() int32 {
	var m int32
	for i, v := range g.Pix {
		if i == 0 || v > m {
			m = v
		}
	}
	return m
}

func (g *Grid) String() string {
	return fmt.Sprintf("grid %dx%d", g.Width, g.Height)
}

func sameShape(a, b *Grid) {
	if a.Width != b.Width || a.Height != b.Height {
		panic(fmt.Sprintf("raster: grid shape mismatch %dx%d vs %dx%d", a.Width, a.Height, b.Width, b.Height))
	}
}

// Threshold returns a mask that is 1 where g >= minValue and 0 elsewhere.
func Threshold(g *Grid, minValue int32) *Grid {
	out := NewGrid(g.Width, g.Height)
	for i, v := range g.Pix {
		if v >= minValue {
			out.Pix[i] = 1
		}
	}
	return out
}

// AndNot returns a mask that is 1 where a is nonzero and b is zero.
// Both grids must have the same shape.
func AndNot(a, b *Grid) *Grid {
	sameShape(a, b)
	out := NewGrid(a.Width, a.Height)
	for i := range a.Pix {
		if a.Pix[i] != 0 && b.Pix[i] == 0 {
			out.Pix[i] = 1
		}
	}
	return out
}

// Clear zeroes every cell of dst where mask is nonzero.
// Both grids must have the same shape.
func Clear(dst, mask *Grid) {
	sameShape(dst, mask)
	for i, v := range mask.Pix {
		if v != 0 {
			dst.Pix[i] = 0
		}
	}
}
