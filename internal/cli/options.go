package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/viastitch/pkg/pipeline"
)

// optionFlags holds the stitching flags shared by stitch and preview.
// Flags override the [stitch] table of the config file only when set.
type optionFlags struct {
	net         string
	viaDiameter float64
	viaDrill    float64
	gridX       float64
	gridY       float64
	offsetX     float64
	offsetY     float64
	stagger     bool
	clearance   float64
	resolution  float64
	noRefill    bool
	ignore      []string
	maxPixels   int64
	refresh     bool
}

func (f *optionFlags) register(cmd *cobra.Command) {
	d := pipeline.DefaultOptions()
	fs := cmd.Flags()
	fs.StringVarP(&f.net, "net", "n", d.Net, "net to stitch")
	fs.Float64Var(&f.viaDiameter, "via-diameter", d.ViaDiameter, "via pad diameter in mm")
	fs.Float64Var(&f.viaDrill, "via-drill", d.ViaDrill, "via drill diameter in mm")
	fs.Float64Var(&f.gridX, "grid-x", d.GridX, "horizontal via pitch in mm")
	fs.Float64Var(&f.gridY, "grid-y", d.GridY, "vertical via pitch in mm")
	fs.Float64Var(&f.offsetX, "offset-x", 0, "horizontal grid offset in mm")
	fs.Float64Var(&f.offsetY, "offset-y", 0, "vertical grid offset in mm")
	fs.BoolVar(&f.stagger, "stagger", false, "offset odd columns by half the vertical pitch")
	fs.Float64Var(&f.clearance, "clearance", d.Clearance, "copper clearance around vias in mm")
	fs.Float64Var(&f.resolution, "resolution", d.Resolution, "raster resolution in mm per pixel")
	fs.BoolVar(&f.noRefill, "no-refill", false, "do not refill zones after placing vias")
	fs.StringSliceVar(&f.ignore, "ignore", nil, "zone IDs to treat as non-obstacles (repeatable)")
	fs.Int64Var(&f.maxPixels, "max-pixels", 0, "maximum raster size in pixels (0 = default)")
	fs.BoolVar(&f.refresh, "refresh", false, "recompute the plan even if cached")
}

// apply overlays the flags the user set onto base.
func (f *optionFlags) apply(cmd *cobra.Command, base pipeline.Options) pipeline.Options {
	opts := base
	set := cmd.Flags().Changed
	if set("net") {
		opts.Net = f.net
	}
	if set("via-diameter") {
		opts.ViaDiameter = f.viaDiameter
	}
	if set("via-drill") {
		opts.ViaDrill = f.viaDrill
	}
	if set("grid-x") {
		opts.GridX = f.gridX
	}
	if set("grid-y") {
		opts.GridY = f.gridY
	}
	if set("offset-x") {
		opts.OffsetX = f.offsetX
	}
	if set("offset-y") {
		opts.OffsetY = f.offsetY
	}
	if set("stagger") {
		opts.Stagger = f.stagger
	}
	if set("clearance") {
		opts.Clearance = f.clearance
	}
	if set("resolution") {
		opts.Resolution = f.resolution
	}
	if set("no-refill") {
		opts.Refill = !f.noRefill
	}
	if set("ignore") {
		opts.IgnoreZones = f.ignore
	}
	if set("max-pixels") {
		opts.MaxPixels = f.maxPixels
	}
	opts.Refresh = f.refresh
	return opts
}
