// Package raster converts board geometry into dense integer grids and
// combines them with boolean and morphological operations.
//
// # Frames
//
// A [Frame] fixes the mapping from board units to pixels for one pipeline
// run: a bounding box and a resolution in board units per pixel. A frame of
// width W units at resolution r is W/r+1 pixels wide, so the box's right
// and bottom edges land on a pixel. Points map to pixels with
// floor((v - origin) / r).
//
// # Grids
//
// A [Grid] stores one int32 per pixel in row-major order. The same type
// serves as a paint bitmap (nonzero = set), an additive counter (coverage
// counts) and a boolean mask. Writes outside the grid are dropped silently,
// so primitives that overhang the frame are clipped without error.
//
// # Primitives
//
//   - [FillPolygon]: even-odd scanline fill of a ring
//   - [FillPolygonHoles]: outline fill with holes punched out
//   - [FillCircle]: filled disc given a pixel radius
//   - [StrokeLine]: integer line walk with a disc stamped at every step
//
// # Operations
//
//   - [Threshold], [AndNot]: per-pixel boolean combination
//   - [Erode]: binary erosion with a square structuring element
//   - [WritePNG]: debug rendering, nearest-neighbour upscaled
//
// Nothing in this package knows about millimetres; callers convert user
// inputs to board units before building a frame.
package raster
