// Package pipeline runs stitching for the CLI and the HTTP server.
//
// It owns the user-facing millimetre options and their defaults, converts
// them to board-unit [stitch.Params], and wraps a [stitch.Stitcher] with
// plan caching, run history and observability hooks. Both entry points go
// through [Runner] so that they behave identically.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, store, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Net = "GND"
//	result, err := runner.Execute(ctx, board, opts, sink)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(len(result.Stitch.Created), "vias")
//
// A plan depends only on the board geometry and the options, so the
// runner caches it under a key derived from the board fingerprint.
// Cached plans skip rasterization; the commit always runs against the
// live board.
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/viastitch/pkg/cache"
	"github.com/matzehuels/viastitch/pkg/errors"
	"github.com/matzehuels/viastitch/pkg/geom"
	"github.com/matzehuels/viastitch/pkg/stitch"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API and config
// =============================================================================

const (
	DefaultNet         = "GND"
	DefaultViaDiameter = 0.6  // mm
	DefaultViaDrill    = 0.3  // mm
	DefaultGrid        = 2.5  // mm, both axes
	DefaultClearance   = 0.25 // mm
	DefaultResolution  = 0.1  // mm per pixel
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures one run in millimetres. It is decoded from API
// request bodies and from the [stitch] table of the config file.
type Options struct {
	Net         string   `json:"net" toml:"net"`
	ViaDiameter float64  `json:"via_diameter" toml:"via_diameter"`
	ViaDrill    float64  `json:"via_drill" toml:"via_drill"`
	GridX       float64  `json:"grid_x" toml:"grid_x"`
	GridY       float64  `json:"grid_y" toml:"grid_y"`
	OffsetX     float64  `json:"offset_x,omitempty" toml:"offset_x"`
	OffsetY     float64  `json:"offset_y,omitempty" toml:"offset_y"`
	Stagger     bool     `json:"stagger,omitempty" toml:"stagger"`
	Clearance   float64  `json:"clearance" toml:"clearance"`
	Resolution  float64  `json:"resolution" toml:"resolution"`
	Refill      bool     `json:"refill" toml:"refill"`
	IgnoreZones []string `json:"ignore_zones,omitempty" toml:"ignore_zones"`
	MaxPixels   int64    `json:"max_pixels,omitempty" toml:"max_pixels"`

	// Per-run switches
	DryRun  bool `json:"dry_run,omitempty" toml:"-"`
	Refresh bool `json:"refresh,omitempty" toml:"-"`

	// Runtime options (not serialized)
	UnitsPerMM int64       `json:"-" toml:"-"`
	Board      string      `json:"-" toml:"-"` // label recorded in history
	KeepGrids  bool        `json:"-" toml:"-"`
	Logger     *log.Logger `json:"-" toml:"-"`
}

// DefaultOptions returns the defaults used when nothing else is configured.
func DefaultOptions() Options {
	return Options{
		Net:         DefaultNet,
		ViaDiameter: DefaultViaDiameter,
		ViaDrill:    DefaultViaDrill,
		GridX:       DefaultGrid,
		GridY:       DefaultGrid,
		Clearance:   DefaultClearance,
		Resolution:  DefaultResolution,
		Refill:      true,
		UnitsPerMM:  int64(geom.DefaultScale),
	}
}

// Scale returns the configured units scale, defaulting to nanometres.
func (o *Options) Scale() geom.Scale {
	if o.UnitsPerMM == 0 {
		return geom.DefaultScale
	}
	return geom.Scale(o.UnitsPerMM)
}

// Params converts o to validated board-unit parameters.
func (o *Options) Params() (stitch.Params, error) {
	scale := o.Scale()
	if err := scale.Validate(); err != nil {
		return stitch.Params{}, errors.Wrap(errors.ErrCodeInvalidUnits, err, "invalid units")
	}
	p := stitch.Params{
		Net: o.Net,
		Via: stitch.ViaSpec{
			Diameter: scale.FromMM(o.ViaDiameter),
			Drill:    scale.FromMM(o.ViaDrill),
		},
		Grid: stitch.GridSpec{
			X:       scale.FromMM(o.GridX),
			Y:       scale.FromMM(o.GridY),
			OffsetX: scale.FromMM(o.OffsetX),
			OffsetY: scale.FromMM(o.OffsetY),
			Stagger: o.Stagger,
		},
		Clearance:   scale.FromMM(o.Clearance),
		Resolution:  scale.FromMM(o.Resolution),
		IgnoreZones: slices.Clone(o.IgnoreZones),
		RefillAfter: o.Refill,
		Scale:       scale,
		MaxPixels:   o.MaxPixels,
		KeepGrids:   o.KeepGrids,
	}
	if err := p.Validate(); err != nil {
		return stitch.Params{}, err
	}
	return p, nil
}

func (o *Options) logger(fallback *log.Logger) *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	if fallback != nil {
		return fallback
	}
	return log.New(io.Discard)
}

// PlanKeyOpts returns the cache key options for p. Ignored zone IDs are
// sorted so that their order does not split the cache.
func PlanKeyOpts(p stitch.Params) cache.PlanKeyOpts {
	ignore := slices.Clone(p.IgnoreZones)
	slices.Sort(ignore)
	ignore = slices.Compact(ignore)
	return cache.PlanKeyOpts{
		Net:         p.Net,
		ViaDiameter: p.Via.Diameter,
		ViaDrill:    p.Via.Drill,
		GridX:       p.Grid.X,
		GridY:       p.Grid.Y,
		OffsetX:     p.Grid.OffsetX,
		OffsetY:     p.Grid.OffsetY,
		Stagger:     p.Grid.Stagger,
		Clearance:   p.Clearance,
		Resolution:  p.Resolution,
		Scale:       int64(p.Scale),
		MaxPixels:   p.MaxPixels,
		IgnoreZones: ignore,
	}
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies the run in history.
	RunID string

	// Stitch is the stitcher's result. For dry runs nothing was applied.
	Stitch *stitch.Result

	// Fingerprint is the content hash of the board snapshot.
	Fingerprint string

	// PlanKey is the cache key of the plan.
	PlanKey string

	DryRun    bool
	Stats     Stats
	CacheInfo CacheInfo
}

// Done returns the final 100% update reported after a successful run.
func (r *Result) Done() stitch.Update {
	u := stitch.Update{Percent: stitch.ProgressDone, Status: "Complete", Milestone: true}
	switch {
	case r.Stitch == nil:
	case r.DryRun:
		u.Status = fmt.Sprintf("Complete - %d vias planned", len(r.Stitch.Candidates))
	default:
		u.Status = fmt.Sprintf("Complete - %d vias placed", len(r.Stitch.Created))
	}
	return u
}

// Stats contains pipeline timing information.
type Stats struct {
	LoadTime  time.Duration
	PlanTime  time.Duration
	ApplyTime time.Duration
	Total     time.Duration
}

// CacheInfo tracks cache hits.
type CacheInfo struct {
	PlanHit    bool // plan came from cache
	PreviewHit bool // preview image came from cache
}
