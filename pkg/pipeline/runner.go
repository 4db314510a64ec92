package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/viastitch/pkg/board"
	"github.com/matzehuels/viastitch/pkg/cache"
	"github.com/matzehuels/viastitch/pkg/history"
	"github.com/matzehuels/viastitch/pkg/observability"
	"github.com/matzehuels/viastitch/pkg/preview"
	"github.com/matzehuels/viastitch/pkg/stitch"
)

// Runner encapsulates pipeline execution with caching and history.
// Both CLI and API use it so that caching logic lives in one place.
//
// The Runner holds no per-run state; multiple goroutines can use the same
// Runner with different boards and options.
type Runner struct {
	Cache   cache.Cache
	Keyer   cache.Keyer
	History history.Store
	Logger  *log.Logger

	// PlanTTL is the expiry of cached plans.
	PlanTTL time.Duration

	now func() time.Time
}

// NewRunner creates a runner. A nil keyer selects the DefaultKeyer, a nil
// cache disables caching and a nil store disables history.
func NewRunner(c cache.Cache, keyer cache.Keyer, store history.Store, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if store == nil {
		store = history.Nop{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:   c,
		Keyer:   keyer,
		History: store,
		Logger:  logger,
		PlanTTL: cache.TTLPlan,
		now:     time.Now,
	}
}

// Execute stitches opts.Net on b: load, plan (cached), apply unless
// opts.DryRun, then record the run. Outcomes such as net-not-found are
// reported on the result, not as errors. A successful run ends with a
// [stitch.ProgressDone] update on sink.
func (r *Runner) Execute(ctx context.Context, b board.Board, opts Options, sink stitch.Sink) (*Result, error) {
	params, err := opts.Params()
	if err != nil {
		return nil, err
	}
	logger := opts.logger(r.Logger)
	st := stitch.New(b, stitch.WithLogger(logger))
	started := r.now()
	sink = stitch.Guard(sink, logger)

	observability.Stitch().OnStitchStart(ctx, params.Net)
	result, err := r.execute(ctx, st, opts, params, sink)
	duration := time.Since(started)

	var (
		outcome             string
		candidates, created int
	)
	if result != nil {
		result.Stats.Total = duration
		outcome = string(result.Stitch.Outcome)
		candidates = len(result.Stitch.Candidates)
		created = len(result.Stitch.Created)
	}
	observability.Stitch().OnStitchComplete(ctx, params.Net, outcome, candidates, created, duration, err)
	if err != nil {
		return nil, err
	}

	r.record(ctx, logger, opts, params, result, started, duration)
	if result.Stitch.Outcome == stitch.OutcomeOK {
		sink.Progress(result.Done())
	}
	logger.Info("stitch finished",
		"net", params.Net,
		"outcome", outcome,
		"candidates", candidates,
		"created", created,
		"plan_cached", result.CacheInfo.PlanHit,
		"duration", duration)
	return result, nil
}

func (r *Runner) execute(ctx context.Context, st *stitch.Stitcher, opts Options, params stitch.Params, sink stitch.Sink) (*Result, error) {
	result := &Result{DryRun: opts.DryRun}

	start := time.Now()
	scene, err := st.Load(ctx)
	if err != nil {
		return nil, err
	}
	result.Stats.LoadTime = time.Since(start)
	result.Fingerprint = scene.Fingerprint()

	start = time.Now()
	plan, key, hit, err := r.plan(ctx, st, scene, result.Fingerprint, params, opts.Refresh, sink)
	if err != nil {
		return nil, err
	}
	result.Stats.PlanTime = time.Since(start)
	result.PlanKey = key
	result.CacheInfo.PlanHit = hit

	if opts.DryRun {
		result.Stitch = plan.Result()
		return result, nil
	}
	start = time.Now()
	res, err := st.Apply(ctx, plan, params, sink)
	if err != nil {
		return nil, err
	}
	result.Stats.ApplyTime = time.Since(start)
	result.Stitch = res
	return result, nil
}

// Plan computes the plan for opts over b without applying it. The plan is
// taken from the cache when possible.
func (r *Runner) Plan(ctx context.Context, b board.Board, opts Options, sink stitch.Sink) (*stitch.Plan, *Result, error) {
	opts.DryRun = true
	result, err := r.Execute(ctx, b, opts, sink)
	if err != nil {
		return nil, nil, err
	}
	return result.Stitch.Plan, result, nil
}

// plan returns the cached plan for params or computes and caches it. Plans
// that must keep their grids are always computed.
func (r *Runner) plan(ctx context.Context, st *stitch.Stitcher, scene *stitch.Scene, fingerprint string, params stitch.Params, refresh bool, sink stitch.Sink) (*stitch.Plan, string, bool, error) {
	key := r.Keyer.PlanKey(fingerprint, PlanKeyOpts(params))

	if !refresh && !params.KeepGrids {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var plan stitch.Plan
			if err := json.Unmarshal(data, &plan); err == nil {
				observability.Cache().OnCacheHit(ctx, "plan")
				return &plan, key, true, nil
			}
			// Undecodable entries fall through to recompute.
		} else if err != nil {
			r.Logger.Warn("plan cache read failed", "err", err)
		}
		observability.Cache().OnCacheMiss(ctx, "plan")
	}

	plan, err := st.Plan(ctx, scene, params, sink)
	if err != nil {
		return nil, key, false, err
	}

	if data, err := json.Marshal(plan); err == nil {
		if err := r.Cache.Set(ctx, key, data, r.PlanTTL); err != nil {
			r.Logger.Warn("plan cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "plan", len(data))
		}
	}
	return plan, key, false, nil
}

// Preview renders the plan for opts over b as a PNG. Images are cached
// per plan key and figure size.
func (r *Runner) Preview(ctx context.Context, b board.Board, opts Options, popts preview.Options) ([]byte, *Result, error) {
	params, err := opts.Params()
	if err != nil {
		return nil, nil, err
	}
	params.KeepGrids = true
	logger := opts.logger(r.Logger)
	st := stitch.New(b, stitch.WithLogger(logger))
	result := &Result{DryRun: true}

	scene, err := st.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	result.Fingerprint = scene.Fingerprint()
	result.PlanKey = r.Keyer.PlanKey(result.Fingerprint, PlanKeyOpts(params))
	key := r.Keyer.PreviewKey(result.PlanKey, cache.PreviewKeyOpts{WidthMM: popts.WidthMM, HeightMM: popts.HeightMM})

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "preview")
			result.CacheInfo.PreviewHit = true
			return data, result, nil
		}
		observability.Cache().OnCacheMiss(ctx, "preview")
	}

	plan, err := st.Plan(ctx, scene, params, nil)
	if err != nil {
		return nil, nil, err
	}
	result.Stitch = plan.Result()
	if plan.Outcome != stitch.OutcomeOK {
		return nil, result, nil
	}
	data, err := preview.Render(plan, params.Scale, popts)
	if err != nil {
		return nil, nil, err
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLPreview); err == nil {
		observability.Cache().OnCacheSet(ctx, "preview", len(data))
	}
	return data, result, nil
}

// Nets lists the nets b can stitch.
func (r *Runner) Nets(ctx context.Context, b board.Board) ([]string, error) {
	return stitch.New(b, stitch.WithLogger(r.Logger)).CandidateNets(ctx)
}

// Zones lists filled zones of b not on net.
func (r *Runner) Zones(ctx context.Context, b board.Board, net string) ([]stitch.ZoneInfo, error) {
	return stitch.New(b, stitch.WithLogger(r.Logger)).OtherZones(ctx, net)
}

func (r *Runner) record(ctx context.Context, logger *log.Logger, opts Options, params stitch.Params, result *Result, started time.Time, d time.Duration) {
	res := result.Stitch
	rec := &history.Record{
		ID:          uuid.NewString(),
		Board:       opts.Board,
		Net:         params.Net,
		Fingerprint: result.Fingerprint,
		Outcome:     string(res.Outcome),
		Candidates:  len(res.Candidates),
		Created:     len(res.Created),
		PlanCached:  result.CacheInfo.PlanHit,
		DryRun:      result.DryRun,
		Params:      params,
		StartedAt:   started.UTC(),
		Duration:    d,
	}
	if res.CommitErr != nil {
		rec.CommitError = res.CommitErr.Error()
	}
	result.RunID = rec.ID
	if err := r.History.Save(ctx, rec); err != nil {
		logger.Warn("failed to record run", "err", err)
	}
}

// Close releases the cache and history store.
func (r *Runner) Close() error {
	var first error
	if r.Cache != nil {
		first = r.Cache.Close()
	}
	if r.History != nil {
		if err := r.History.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
