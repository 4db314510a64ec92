package stitch

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/viastitch/pkg/board"
	"github.com/matzehuels/viastitch/pkg/errors"
	"github.com/matzehuels/viastitch/pkg/geom"
	"github.com/matzehuels/viastitch/pkg/observability"
	"github.com/matzehuels/viastitch/pkg/raster"
)

// Stitcher runs the stitching pipeline against one board.
type Stitcher struct {
	board  board.Board
	logger *log.Logger
}

// Option configures a [Stitcher].
type Option func(*Stitcher)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(s *Stitcher) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a stitcher over b.
func New(b board.Board, opts ...Option) *Stitcher {
	s := &Stitcher{board: b, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Board returns the collaborator the stitcher works on.
func (s *Stitcher) Board() board.Board { return s.board }

// Load takes a snapshot of the board.
func (s *Stitcher) Load(ctx context.Context) (*Scene, error) {
	return LoadScene(ctx, s.board)
}

// CandidateNets lists nets whose filled zones span at least two distinct
// layers, sorted by name.
func (s *Stitcher) CandidateNets(ctx context.Context) ([]string, error) {
	zones, err := s.board.Zones(ctx)
	if err != nil {
		return nil, enumerateErr(ctx, "zones", err)
	}
	return CandidateNets(zones), nil
}

// CandidateNets is the pure form of [Stitcher.CandidateNets]. Zones
// without a net are ignored.
func CandidateNets(zones []board.Zone) []string {
	layers := make(map[string]map[board.Layer]bool)
	for _, z := range zones {
		if !z.Filled || z.Net == "" {
			continue
		}
		set, ok := layers[z.Net]
		if !ok {
			set = make(map[board.Layer]bool)
			layers[z.Net] = set
		}
		for _, l := range z.Layers {
			set[l] = true
		}
	}
	var nets []string
	for net, set := range layers {
		if len(set) >= 2 {
			nets = append(nets, net)
		}
	}
	slices.Sort(nets)
	return nets
}

// OtherZones describes every filled zone not on net. Zones without a net
// report [board.NoNet].
func (s *Stitcher) OtherZones(ctx context.Context, net string) ([]ZoneInfo, error) {
	zones, err := s.board.Zones(ctx)
	if err != nil {
		return nil, enumerateErr(ctx, "zones", err)
	}
	return OtherZones(zones, net), nil
}

// OtherZones is the pure form of [Stitcher.OtherZones].
func OtherZones(zones []board.Zone, net string) []ZoneInfo {
	out := []ZoneInfo{}
	for _, z := range zones {
		if !z.Filled || z.NetName() == net {
			continue
		}
		out = append(out, ZoneInfo{
			ID:     z.ID,
			Name:   z.Name,
			Net:    z.NetName(),
			Layers: slices.Clone(z.Layers),
			Filled: z.Filled,
		})
	}
	return out
}

// Stitch loads the board, plans the vias and applies the plan.
func (s *Stitcher) Stitch(ctx context.Context, p Params, sink Sink) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	rep := newReporter(sink, s.logger)
	scene, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := s.Plan(ctx, scene, p, rep)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, plan, p, rep)
}

// Plan computes the candidate vias for p over scene without touching the
// board.
func (s *Stitcher) Plan(ctx context.Context, scene *Scene, p Params, sink Sink) (*Plan, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	rep := newReporter(sink, s.logger)
	logger := s.logger.With("net", p.Net)
	plan := &Plan{Net: p.Net, Outcome: OutcomeOK, Candidates: []Candidate{}}

	if !scene.HasNet(p.Net) {
		logger.Warn("net not found")
		plan.Outcome = OutcomeNetNotFound
		return plan, nil
	}

	zones := scene.FilledZones(p.Net)
	rep.milestone(ProgressZones, "Found zones for net")
	if len(zones) == 0 {
		logger.Warn("net has no filled zones")
		plan.Outcome = OutcomeNoFilledZones
		return plan, nil
	}

	box, ok := unionBounds(zones)
	if !ok {
		logger.Warn("filled zones have no geometry")
		plan.Outcome = OutcomeEmptyBounds
		return plan, nil
	}
	plan.Bounds = box

	frame, err := raster.NewFrame(box, p.Resolution)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGrid, err, "frame")
	}
	plan.Stats.Width, plan.Stats.Height = frame.Dims()
	plan.Stats.Pixels = frame.Pixels()
	if p.MaxPixels > 0 && plan.Stats.Pixels > p.MaxPixels {
		logger.Warn("frame too large", "pixels", plan.Stats.Pixels, "max", p.MaxPixels)
		plan.Outcome = OutcomeTooLarge
		return plan, nil
	}
	logger.Debug("frame", "bounds", box, "width", plan.Stats.Width, "height", plan.Stats.Height)

	// Coverage
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rep.milestone(ProgressCoverage, "Rasterizing target zones...")
	start := time.Now()
	coverage, skipped := AccumulateCoverage(frame, zones)
	plan.Skipped = append(plan.Skipped, skipped...)
	plan.Stats.CoverageTime = s.stage(ctx, "coverage", start)
	plan.Stats.CoveredPixels = coverage.CountNonZero()
	plan.Stats.Layers = int(coverage.Max())

	// Obstacles
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rep.milestone(ProgressObstacles, "Rasterizing obstacles...")
	start = time.Now()
	obstacles, skipped := CompositeObstacles(frame, scene, p)
	plan.Skipped = append(plan.Skipped, skipped...)
	plan.Stats.ObstacleTime = s.stage(ctx, "obstacles", start)
	plan.Stats.ObstaclePixels = obstacles.CountNonZero()

	// Validity and clearance
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rep.milestone(ProgressValidity, "Applying boolean operations...")
	valid := Validity(coverage, obstacles)
	plan.Stats.ValidPixels = valid.CountNonZero()

	rep.milestone(ProgressClearance, "Applying clearance...")
	start = time.Now()
	eroded := ApplyClearance(valid, p.Clearance, p.Resolution)
	plan.Stats.ClearanceTime = s.stage(ctx, "clearance", start)
	plan.Stats.ErosionRadius = ErosionRadius(p.Clearance, p.Resolution)
	plan.Stats.ErodedPixels = eroded.CountNonZero()

	// Sampling
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rep.milestone(ProgressSampling, "Generating via grid...")
	start = time.Now()
	candidates, visited, err := Sample(ctx, eroded, frame, p, rep)
	if err != nil {
		return nil, err
	}
	if candidates != nil {
		plan.Candidates = candidates
	}
	plan.Stats.SampleTime = s.stage(ctx, "sample", start)
	plan.Stats.GridPoints = visited

	if p.KeepGrids {
		plan.Grids = &Grids{Frame: frame, Coverage: coverage, Obstacles: obstacles, Valid: valid, Eroded: eroded}
	}
	for _, sk := range plan.Skipped {
		logger.Debug("skipped geometry", "item", sk.Item, "layer", sk.Layer, "reason", sk.Reason)
	}
	logger.Info("planned vias",
		"candidates", len(plan.Candidates),
		"grid_points", visited,
		"skipped", len(plan.Skipped))
	return plan, nil
}

// Apply creates the planned vias in one transaction, selects them and, when
// p.RefillAfter is set, refills the zones. Plans with an outcome other than
// ok are returned as results without touching the board.
//
// A failed commit is recorded as [OutcomeCommitFailed]; selection and
// refill still run. Selection and refill failures are recorded on the
// result. Only context errors are returned.
func (s *Stitcher) Apply(ctx context.Context, plan *Plan, p Params, sink Sink) (*Result, error) {
	res := plan.Result()
	if plan.Outcome != OutcomeOK {
		return res, nil
	}
	rep := newReporter(sink, s.logger)
	logger := s.logger.With("net", plan.Net)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rep.milestone(ProgressCommit, fmt.Sprintf("Committing %d vias...", len(plan.Candidates)))

	if len(plan.Candidates) > 0 {
		start := time.Now()
		created, err := s.commit(ctx, plan.Candidates)
		s.stage(ctx, "commit", start)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Error("commit failed", "candidates", len(plan.Candidates), "err", err)
			res.Outcome = OutcomeCommitFailed
			res.CommitErr = errors.Wrap(errors.ErrCodeCommitFailed, err, "create %d vias", len(plan.Candidates))
		} else {
			res.Created = created
			logger.Info("created vias", "count", len(created))
		}

		rep.milestone(ProgressSelect, "Selecting created vias...")
		if err := s.selectVias(ctx, created); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("selection failed", "err", err)
			res.SelectionErr = err
		}
	}

	if p.RefillAfter {
		rep.milestone(ProgressRefill, "Refilling zones...")
		start := time.Now()
		if err := s.board.RefillZones(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("refill failed", "err", err)
			res.RefillErr = err
		} else {
			res.Refilled = true
		}
		s.stage(ctx, "refill", start)
	}
	return res, nil
}

func (s *Stitcher) commit(ctx context.Context, candidates []Candidate) ([]board.Via, error) {
	tx, err := s.board.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	vias := make([]board.Via, len(candidates))
	for i, c := range candidates {
		vias[i] = c.Via()
	}
	created, err := tx.Create(ctx, vias...)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("create: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Stitcher) selectVias(ctx context.Context, created []board.Via) error {
	if err := s.board.ClearSelection(ctx); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	if len(created) == 0 {
		return nil
	}
	ids := make([]string, len(created))
	for i, v := range created {
		ids[i] = v.ID
	}
	if err := s.board.AddToSelection(ctx, ids...); err != nil {
		return fmt.Errorf("add to selection: %w", err)
	}
	return nil
}

func (s *Stitcher) stage(ctx context.Context, name string, start time.Time) time.Duration {
	d := time.Since(start)
	observability.Stitch().OnStage(ctx, name, d)
	s.logger.Debug("stage complete", "stage", name, "duration", d)
	return d
}

func unionBounds(zones []board.Zone) (geom.Box, bool) {
	var (
		box geom.Box
		ok  bool
	)
	for _, z := range zones {
		b, zok := z.Bounds()
		if !zok {
			continue
		}
		if ok {
			box = box.Merge(b)
		} else {
			box, ok = b, true
		}
	}
	return box, ok
}
