package stitch

import (
	"context"
	"fmt"

	"github.com/matzehuels/viastitch/pkg/geom"
	"github.com/matzehuels/viastitch/pkg/raster"
)

// LatticePoints returns the number of lattice points the sampler expects
// to visit over box: (floor(w/gx)+1)·(floor(h/gy)+1) measured from the
// offset origin.
func LatticePoints(box geom.Box, g GridSpec, scale geom.Scale) int64 {
	gx, gy := g.Spacing(scale)
	w := box.Right() - (box.Left() + g.OffsetX)
	h := box.Bottom() - (box.Top() + g.OffsetY)
	if w < 0 || h < 0 {
		return 0
	}
	return (w/gx + 1) * (h/gy + 1)
}

// Sample walks the placement lattice over the frame and returns a
// candidate for every lattice point on a nonzero cell of valid.
//
// Columns run from the frame's left edge (plus OffsetX) to its right edge
// inclusive, step gx. Within a column, rows run from the top edge (plus
// OffsetY, plus gy/2 on odd columns when staggered) to the bottom edge
// inclusive, step gy. Points mapping outside valid are skipped.
//
// Progress moves from 65 to 90 as points are visited. ctx is checked
// between columns.
func Sample(ctx context.Context, valid *raster.Grid, f raster.Frame, p Params, sink Sink) ([]Candidate, int, error) {
	rep := newReporter(sink, nil)
	gx, gy := p.Grid.Spacing(p.Scale)
	box := f.Box
	left, top := box.Left()+p.Grid.OffsetX, box.Top()+p.Grid.OffsetY
	right, bottom := box.Right(), box.Bottom()

	total := LatticePoints(box, p.Grid, p.Scale)
	var (
		out     []Candidate
		visited int64
	)
	for col, x := 0, left; x <= right; col, x = col+1, x+gx {
		if err := ctx.Err(); err != nil {
			return nil, int(visited), err
		}
		y := top
		if p.Grid.Stagger && col%2 == 1 {
			y += gy / 2
		}
		for ; y <= bottom; y += gy {
			visited++
			px, py := f.ToPixel(geom.Pt(x, y))
			if valid.At(px, py) == 0 {
				continue
			}
			out = append(out, Candidate{
				Position: geom.Pt(x, y),
				Diameter: p.Via.Diameter,
				Drill:    p.Via.Drill,
				Net:      p.Net,
			})
		}
		if total > 0 {
			rep.Progress(Update{
				Percent: ProgressSampling + float64(ProgressCommit-ProgressSampling)*float64(visited)/float64(total),
				Status:  fmt.Sprintf("Checking grid points (%d/%d)...", visited, total),
			})
		}
	}
	return out, int(visited), nil
}
