package raster

import (
	"slices"

	"github.com/matzehuels/viastitch/pkg/geom"
)

type pixel struct{ x, y int }

// FillPolygon rasterizes ring into g with an even-odd scanline fill, adding
// value to every covered cell. Rings with fewer than three vertices are
// ignored.
//
// An edge crosses row y iff min(y1,y2) <= y < max(y1,y2). The half-open
// test skips horizontal edges and counts a vertex shared by two edges only
// once. Spans between consecutive intersection pairs are filled inclusively
// and clipped to the grid.
func FillPolygon(g *Grid, f Frame, ring geom.Ring, value int32) {
	if len(ring) < 3 || g.Width == 0 || g.Height == 0 {
		return
	}

	pts := make([]pixel, len(ring))
	minY, maxY := 0, 0
	for i, v := range ring {
		x, y := f.ToPixel(v)
		pts[i] = pixel{x, y}
		if i == 0 || y < minY {
			minY = y
		}
		if i == 0 || y > maxY {
			maxY = y
		}
	}

	rowStart := max(minY, 0)
	rowEnd := min(maxY, g.Height) // exclusive: rows at maxY are never crossed

	xs := make([]int, 0, len(pts))
	for y := rowStart; y < rowEnd; y++ {
		xs = xs[:0]
		for i, a := range pts {
			b := pts[(i+1)%len(pts)]
			if a.y == b.y {
				continue
			}
			if y < min(a.y, b.y) || y >= max(a.y, b.y) {
				continue
			}
			x := float64(a.x) + float64(y-a.y)*float64(b.x-a.x)/float64(b.y-a.y)
			xs = append(xs, geom.FloorFloat(x))
		}
		slices.Sort(xs)

		row := g.Pix[y*g.Width : (y+1)*g.Width]
		for i := 0; i+1 < len(xs); i += 2 {
			x0 := max(0, xs[i])
			x1 := min(g.Width-1, xs[i+1])
			for x := x0; x <= x1; x++ {
				row[x] += value
			}
		}
	}
}

// FillPolygonHoles fills the outline of p, then zeroes every cell of g
// covered by any of its holes. Each hole is rasterized into a scratch grid
// first, so the subtraction clears earlier paint on g as well.
func FillPolygonHoles(g *Grid, f Frame, p geom.Polygon, value int32) {
	FillPolygon(g, f, p.Outline, value)
	if len(p.Holes) == 0 {
		return
	}
	scratch := NewGrid(g.Width, g.Height)
	for _, hole := range p.Holes {
		clear(scratch.Pix)
		FillPolygon(scratch, f, hole, 1)
		Clear(g, scratch)
	}
}
