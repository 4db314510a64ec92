package stitch

import (
	"math"

	"github.com/matzehuels/viastitch/pkg/geom"
	"github.com/matzehuels/viastitch/pkg/raster"
)

// ErosionRadius returns the clearance margin in whole pixels.
func ErosionRadius(clearance, resolution int64) int {
	if resolution <= 0 || clearance <= 0 {
		return 0
	}
	k := geom.FloorDiv(clearance, resolution)
	return int(min(k, math.MaxInt32))
}

// ApplyClearance erodes the valid region by the clearance margin using a
// square structuring element. Margins under one pixel return valid
// unchanged.
func ApplyClearance(valid *raster.Grid, clearance, resolution int64) *raster.Grid {
	return raster.Erode(valid, ErosionRadius(clearance, resolution))
}

// Validity marks pixels covered on at least two layers and free of
// obstacles.
func Validity(coverage, obstacles *raster.Grid) *raster.Grid {
	return raster.AndNot(raster.Threshold(coverage, 2), obstacles)
}
