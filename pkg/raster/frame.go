package raster

import (
	"fmt"
	"math"

	"github.com/matzehuels/viastitch/pkg/geom"
)

// Frame maps board units to pixel coordinates for one run.
type Frame struct {
	Box        geom.Box
	Resolution int64 // board units per pixel
}

// NewFrame validates the resolution and box size.
func NewFrame(box geom.Box, resolution int64) (Frame, error) {
	if resolution <= 0 {
		return Frame{}, fmt.Errorf("resolution must be positive, got %d", resolution)
	}
	if box.Size.X < 0 || box.Size.Y < 0 {
		return Frame{}, fmt.Errorf("box size must be non-negative, got %dx%d", box.Size.X, box.Size.Y)
	}
	return Frame{Box: box, Resolution: resolution}, nil
}

// Dims returns the grid width and height in pixels.
func (f Frame) Dims() (width, height int) {
	return clampInt(f.Box.Size.X/f.Resolution + 1), clampInt(f.Box.Size.Y/f.Resolution + 1)
}

// Pixels returns width*height without overflowing int.
func (f Frame) Pixels() int64 {
	w, h := f.Dims()
	return int64(w) * int64(h)
}

// NewGrid allocates a zeroed grid sized to the frame.
func (f Frame) NewGrid() *Grid {
	return NewGrid(f.Dims())
}

// ToPixel maps a board point to pixel coordinates.
func (f Frame) ToPixel(p geom.Point) (x, y int) {
	x = clampInt(geom.FloorDiv(p.X-f.Box.Pos.X, f.Resolution))
	y = clampInt(geom.FloorDiv(p.Y-f.Box.Pos.Y, f.Resolution))
	return x, y
}

// PixelLen converts a length in board units to whole pixels, rounding down.
func (f Frame) PixelLen(length int64) int {
	return clampInt(geom.FloorDiv(length, f.Resolution))
}

// clampInt keeps pixel coordinates inside the int32 range so that
// arithmetic on them cannot overflow on any platform.
func clampInt(v int64) int {
	switch {
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	}
	return int(v)
}
