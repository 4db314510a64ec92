package raster

// Erode performs binary erosion with a (2k+1)×(2k+1) square structuring
// element. A cell of the result is 1 only if every cell of g within
// Chebyshev distance k is nonzero; cells outside the grid count as zero,
// so a k-pixel border is always cleared.
//
// For k < 1 Erode returns g itself.
//
// The square element is separable, so the erosion runs as a horizontal pass
// followed by a vertical pass, each linear in the number of cells.
func Erode(g *Grid, k int) *Grid {
	if k < 1 {
		return g
	}
	span := 2*k + 1
	tmp := NewGrid(g.Width, g.Height)
	out := NewGrid(g.Width, g.Height)

	// Horizontal: run[x] is the length of the set run ending at x.
	for y := 0; y < g.Height; y++ {
		src := g.Pix[y*g.Width : (y+1)*g.Width]
		dst := tmp.Pix[y*g.Width : (y+1)*g.Width]
		run := 0
		for x := 0; x < g.Width; x++ {
			if src[x] != 0 {
				run++
			} else {
				run = 0
			}
			// The window centred on x-k ends at x.
			if run >= span && x-k >= 0 {
				dst[x-k] = 1
			}
		}
	}

	// Vertical, same scheme down each column.
	for x := 0; x < g.Width; x++ {
		run := 0
		for y := 0; y < g.Height; y++ {
			if tmp.Pix[y*g.Width+x] != 0 {
				run++
			} else {
				run = 0
			}
			if run >= span && y-k >= 0 {
				out.Pix[(y-k)*g.Width+x] = 1
			}
		}
	}
	return out
}
