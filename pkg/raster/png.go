package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
)

// ToImage renders g as a grayscale image. Zero is black and the largest
// value in the grid is white.
func ToImage(g *Grid) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	peak := g.Max()
	if peak <= 0 {
		return img
	}
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			v := g.Pix[y*g.Width+x]
			if v <= 0 {
				continue
			}
			img.SetGray(x, y, color.Gray{Y: uint8(int64(v) * 255 / int64(peak))})
		}
	}
	return img
}

// WritePNG encodes g as a PNG, upscaled by factor with nearest-neighbour
// sampling so single pixels stay visible. Factors below 1 are treated as 1.
func WritePNG(w io.Writer, g *Grid, factor int) error {
	src := ToImage(g)
	factor = max(factor, 1)
	var img image.Image = src
	if factor > 1 {
		dst := image.NewGray(image.Rect(0, 0, g.Width*factor, g.Height*factor))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		img = dst
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// SavePNG writes g to path. See [WritePNG].
func SavePNG(path string, g *Grid, factor int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WritePNG(f, g, factor); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
