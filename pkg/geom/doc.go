// Package geom provides the integer geometry value types shared by the
// board model and the rasterizer.
//
// # Coordinates
//
// All lengths are int64 board units. The board collaborator decides what a
// unit is; the default convention is one nanometre, so [DefaultScale]
// converts millimetre inputs with 1 mm = 1,000,000 units. Conversion happens
// at the pipeline boundary through a [Scale] value and never inside the
// rasterizer.
//
// Y grows downward, matching the board editor and image conventions, so a
// [Box] origin is its top-left corner.
//
// # Types
//
//   - [Point]: a board position
//   - [Box]: origin + size, with [Box.Merge] for unions
//   - [Ring]: an implicitly closed vertex sequence
//   - [Polygon]: an outline ring plus zero or more hole rings
package geom
