package stitch

import (
	"time"

	"github.com/matzehuels/viastitch/pkg/board"
	"github.com/matzehuels/viastitch/pkg/geom"
	"github.com/matzehuels/viastitch/pkg/raster"
)

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeNetNotFound   Outcome = "net-not-found"
	OutcomeNoFilledZones Outcome = "no-filled-zones"
	OutcomeEmptyBounds   Outcome = "empty-bounds"
	OutcomeTooLarge      Outcome = "too-large"
	OutcomeCommitFailed  Outcome = "commit-failed"
)

// Candidate is a via location accepted by the sampler.
type Candidate struct {
	Position geom.Point `json:"position"`
	Diameter int64      `json:"diameter"`
	Drill    int64      `json:"drill"`
	Net      string     `json:"net"`
}

// Via returns the board via for c, without an ID.
func (c Candidate) Via() board.Via {
	return board.Via{Net: c.Net, Position: c.Position, Diameter: c.Diameter, Drill: c.Drill}
}

// Skip records one piece of geometry left out of a run.
type Skip struct {
	Item   string      `json:"item"`
	Layer  board.Layer `json:"layer,omitempty"`
	Reason string      `json:"reason"`
}

// ZoneInfo describes a zone for net and ignore-list selection.
type ZoneInfo struct {
	ID     string        `json:"id"`
	Name   string        `json:"name,omitempty"`
	Net    string        `json:"net"`
	Layers []board.Layer `json:"layers"`
	Filled bool          `json:"filled"`
}

// Stats describes the grids of one plan.
type Stats struct {
	Width          int   `json:"width"`
	Height         int   `json:"height"`
	Layers         int   `json:"layers"`
	CoveredPixels  int   `json:"covered_pixels"`
	ObstaclePixels int   `json:"obstacle_pixels"`
	ValidPixels    int   `json:"valid_pixels"`
	ErodedPixels   int   `json:"eroded_pixels"`
	ErosionRadius  int   `json:"erosion_radius"`
	GridPoints     int   `json:"grid_points"`
	Pixels         int64 `json:"pixels"`

	CoverageTime  time.Duration `json:"coverage_time"`
	ObstacleTime  time.Duration `json:"obstacle_time"`
	ClearanceTime time.Duration `json:"clearance_time"`
	SampleTime    time.Duration `json:"sample_time"`
}

// Grids holds the intermediate grids of a plan.
type Grids struct {
	Frame     raster.Frame
	Coverage  *raster.Grid
	Obstacles *raster.Grid
	Valid     *raster.Grid
	Eroded    *raster.Grid
}

// Plan is the side-effect free part of a run: everything up to, but not
// including, the commit.
type Plan struct {
	Net        string      `json:"net"`
	Outcome    Outcome     `json:"outcome"`
	Bounds     geom.Box    `json:"bounds"`
	Candidates []Candidate `json:"candidates"`
	Skipped    []Skip      `json:"skipped,omitempty"`
	Stats      Stats       `json:"stats"`

	// Grids is set only when Params.KeepGrids was requested.
	Grids *Grids `json:"-"`
}

// Result is the outcome of a full run.
type Result struct {
	Net        string
	Outcome    Outcome
	Candidates []Candidate
	Skipped    []Skip
	Stats      Stats

	// Created lists the vias actually persisted, with board IDs. It is
	// empty when the commit failed, even if Candidates is not.
	Created []board.Via

	CommitErr    error
	SelectionErr error
	RefillErr    error
	Refilled     bool

	Plan *Plan
}

// Result returns p as a result with nothing applied. Dry runs report it
// directly.
func (p *Plan) Result() *Result {
	return &Result{
		Net:        p.Net,
		Outcome:    p.Outcome,
		Candidates: p.Candidates,
		Skipped:    p.Skipped,
		Stats:      p.Stats,
		Plan:       p,
	}
}
