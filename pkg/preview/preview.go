// Package preview draws a stitching plan as a PNG figure: a heat map of
// the target zone coverage, classified by whether a via fits, with the
// candidate positions overlaid. Axes are in millimetres.
package preview

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/matzehuels/viastitch/pkg/errors"
	"github.com/matzehuels/viastitch/pkg/geom"
	"github.com/matzehuels/viastitch/pkg/stitch"
)

// Figure defaults, in millimetres.
const (
	DefaultWidthMM  = 160.0
	DefaultHeightMM = 120.0
)

// maxCells bounds the heat map resolution along either axis; larger
// grids are subsampled.
const maxCells = 400

// Pixel classes of the heat map.
const (
	classEmpty    = 0 // outside every target zone
	classBlocked  = 1 // covered but inside an obstacle
	classMargin   = 2 // free copper lost to clearance
	classPlacable = 3 // a via centre may go here
)

// Options controls the figure.
type Options struct {
	WidthMM  float64
	HeightMM float64
	Title    string
}

func (o Options) size() (vg.Length, vg.Length) {
	w, h := o.WidthMM, o.HeightMM
	if w <= 0 {
		w = DefaultWidthMM
	}
	if h <= 0 {
		h = DefaultHeightMM
	}
	return vg.Length(w) * vg.Millimeter, vg.Length(h) * vg.Millimeter
}

// Render draws plan, which must have been computed with Params.KeepGrids.
func Render(plan *stitch.Plan, scale geom.Scale, opts Options) ([]byte, error) {
	if plan.Grids == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "plan for %s carries no grids", plan.Net)
	}
	g := newClassGrid(plan.Grids, scale)
	if c, r := g.Dims(); c < 2 || r < 2 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "frame %dx%d is too small to draw", c, r)
	}

	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = fmt.Sprintf("%s: %d vias", plan.Net, len(plan.Candidates))
	}
	p.X.Label.Text = "X (mm)"
	p.Y.Label.Text = "Y (mm)"
	// Board Y grows downwards.
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}

	hm := plotter.NewHeatMap(g, classPalette{})
	hm.Min, hm.Max = classEmpty, classPlacable
	p.Add(hm)

	if len(plan.Candidates) > 0 {
		pts := make(plotter.XYs, len(plan.Candidates))
		for i, c := range plan.Candidates {
			pts[i] = plotter.XY{X: scale.ToMM(c.Position.X), Y: scale.ToMM(c.Position.Y)}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("candidate scatter: %w", err)
		}
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Color = color.RGBA{R: 220, G: 40, B: 40, A: 255}
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add("via", sc)
		p.Legend.Top = true
	}

	w, h := opts.size()
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, fmt.Errorf("create png canvas: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// classGrid adapts the plan grids to plotter.GridXYZ, subsampling with a
// fixed stride.
type classGrid struct {
	grids  *stitch.Grids
	scale  geom.Scale
	stride int
	cols   int
	rows   int
}

func newClassGrid(g *stitch.Grids, scale geom.Scale) *classGrid {
	w, h := g.Frame.Dims()
	stride := max((max(w, h)+maxCells-1)/maxCells, 1)
	return &classGrid{
		grids:  g,
		scale:  scale,
		stride: stride,
		cols:   (w + stride - 1) / stride,
		rows:   (h + stride - 1) / stride,
	}
}

func (g *classGrid) Dims() (c, r int) { return g.cols, g.rows }

func (g *classGrid) Z(c, r int) float64 {
	return float64(classify(g.grids, c*g.stride, r*g.stride))
}

func (g *classGrid) X(c int) float64 {
	f := g.grids.Frame
	return g.scale.ToMM(f.Box.Left() + int64(c*g.stride)*f.Resolution)
}

func (g *classGrid) Y(r int) float64 {
	f := g.grids.Frame
	return g.scale.ToMM(f.Box.Top() + int64(r*g.stride)*f.Resolution)
}

func classify(g *stitch.Grids, x, y int) int {
	switch {
	case g.Eroded.At(x, y) != 0:
		return classPlacable
	case g.Valid.At(x, y) != 0:
		return classMargin
	case g.Coverage.At(x, y) != 0:
		return classBlocked
	}
	return classEmpty
}

// classPalette maps the four pixel classes to fixed colours.
type classPalette struct{}

func (classPalette) Colors() []color.Color {
	return []color.Color{
		color.RGBA{R: 245, G: 245, B: 245, A: 255},
		color.RGBA{R: 120, G: 120, B: 130, A: 255},
		color.RGBA{R: 150, G: 200, B: 150, A: 255},
		color.RGBA{R: 40, G: 140, B: 60, A: 255},
	}
}

var _ palette.Palette = classPalette{}
