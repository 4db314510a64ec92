package stitch

import (
	"fmt"
	"maps"
	"slices"

	"github.com/matzehuels/viastitch/pkg/raster"
)

// defaultPadSize is the pad diameter assumed when a pad carries no copper
// size data, in millimetres.
const defaultPadSize = 1.0

// CompositeObstacles rasterizes every feature not on p.Net into one grid;
// nonzero cells are forbidden. Features without a net are foreign.
//
//   - pads: filled circle, radius half the largest copper dimension
//   - vias: filled circle, radius half the diameter
//   - tracks: line walk stamping circles of half the width in pixels
//   - filled zones not listed in p.IgnoreZones: outline only, holes are
//     not subtracted
//
// Everything clips at the frame.
func CompositeObstacles(f raster.Frame, s *Scene, p Params) (*raster.Grid, []Skip) {
	g := f.NewGrid()
	var skipped []Skip
	foreign := func(net string) bool { return net == "" || net != p.Net }

	for _, pad := range s.Pads {
		if !foreign(pad.Net) {
			continue
		}
		size, ok := pad.MaxDimension()
		if !ok {
			size = p.Scale.FromMM(defaultPadSize)
		}
		cx, cy := f.ToPixel(pad.Position)
		raster.FillCircle(g, cx, cy, f.PixelLen(size/2), 1)
	}

	for _, v := range s.Vias {
		if !foreign(v.Net) {
			continue
		}
		cx, cy := f.ToPixel(v.Position)
		raster.FillCircle(g, cx, cy, f.PixelLen(v.Diameter/2), 1)
	}

	for _, t := range s.Tracks {
		if !foreign(t.Net) {
			continue
		}
		x0, y0 := f.ToPixel(t.Start)
		x1, y1 := f.ToPixel(t.End)
		raster.StrokeLine(g, x0, y0, x1, y1, f.PixelLen(t.Width)/2, 1)
	}

	ignored := p.ignored()
	for _, z := range s.Zones {
		if !z.Filled || !foreign(z.Net) || ignored[z.ID] {
			continue
		}
		for _, layer := range slices.Sorted(maps.Keys(z.Fills)) {
			for i, poly := range z.Fills[layer] {
				if len(poly.Outline) < 3 {
					skipped = append(skipped, Skip{
						Item:   z.ID,
						Layer:  layer,
						Reason: fmt.Sprintf("obstacle polygon %d has %d outline vertices", i, len(poly.Outline)),
					})
					continue
				}
				raster.FillPolygon(g, f, poly.Outline, 1)
			}
		}
	}
	return g, skipped
}
