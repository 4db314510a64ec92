package raster

// FillCircle paints value into every cell within radius pixels of
// (cx, cy), using (x-cx)²+(y-cy)² <= r². A zero radius paints the centre
// cell only; a negative radius paints nothing.
func FillCircle(g *Grid, cx, cy, radius int, value int32) {
	if radius < 0 {
		return
	}
	y0, y1 := max(cy-radius, 0), min(cy+radius, g.Height-1)
	x0, x1 := max(cx-radius, 0), min(cx+radius, g.Width-1)
	r2 := int64(radius) * int64(radius)
	for y := y0; y <= y1; y++ {
		dy := int64(y - cy)
		row := g.Pix[y*g.Width : (y+1)*g.Width]
		for x := x0; x <= x1; x++ {
			dx := int64(x - cx)
			if dx*dx+dy*dy <= r2 {
				row[x] = value
			}
		}
	}
}

// StrokeLine walks the integer line from (x0, y0) to (x1, y1), endpoints
// included, and stamps a filled circle of the given pixel radius at every
// step.
func StrokeLine(g *Grid, x0, y0, x1, y1, radius int, value int32) {
	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx, sy := 1, 1
	if x0 >= x1 {
		sx = -1
	}
	if y0 >= y1 {
		sy = -1
	}
	err := dx - dy

	for {
		FillCircle(g, x0, y0, radius, value)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
