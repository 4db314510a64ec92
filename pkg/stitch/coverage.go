package stitch

import (
	"fmt"
	"maps"
	"slices"

	"github.com/matzehuels/viastitch/pkg/board"
	"github.com/matzehuels/viastitch/pkg/raster"
)

// AccumulateCoverage rasterizes the filled polygons of zones, one grid per
// layer, and returns a grid counting at each pixel the layers with copper.
// Holes are punched out of their own layer's grid. Polygons with fewer
// than three outline vertices and listed layers without polygons are
// reported as skips.
func AccumulateCoverage(f raster.Frame, zones []board.Zone) (*raster.Grid, []Skip) {
	layers := make(map[board.Layer]*raster.Grid)
	var skipped []Skip

	for _, z := range zones {
		for _, layer := range z.Layers {
			if len(z.Fills[layer]) == 0 {
				skipped = append(skipped, Skip{Item: z.ID, Layer: layer, Reason: "no filled polygons on layer"})
			}
		}
		for _, layer := range slices.Sorted(maps.Keys(z.Fills)) {
			for i, poly := range z.Fills[layer] {
				if len(poly.Outline) < 3 {
					skipped = append(skipped, Skip{
						Item:   z.ID,
						Layer:  layer,
						Reason: fmt.Sprintf("polygon %d has %d outline vertices", i, len(poly.Outline)),
					})
					continue
				}
				g, ok := layers[layer]
				if !ok {
					g = f.NewGrid()
					layers[layer] = g
				}
				raster.FillPolygonHoles(g, f, poly, 1)
			}
		}
	}

	coverage := f.NewGrid()
	for _, g := range layers {
		for i, v := range g.Pix {
			if v > 0 {
				coverage.Pix[i]++
			}
		}
	}
	return coverage, skipped
}
