// Package stitch places stitching vias: through-board vias that tie
// same-net copper poured on two or more layers together.
//
// # Pipeline
//
// A run works on one immutable [Scene] enumerated from a [board.Board] and
// proceeds through the following stages, all on grids sharing one
// [raster.Frame] sized to the union bounding box of the target net's filled
// zones:
//
//  1. Coverage: every filled polygon of the target net is rasterized into a
//     per-layer grid; the coverage grid counts, per pixel, the layers that
//     carry copper ([AccumulateCoverage]).
//  2. Obstacles: pads, vias, tracks and filled zones of every other net are
//     composited into one grid ([CompositeObstacles]). Zones can be
//     excluded through [Params.IgnoreZones].
//  3. Validity: pixels covered on at least two layers and free of
//     obstacles.
//  4. Clearance: the valid region is eroded by the clearance margin
//     ([ApplyClearance]).
//  5. Sampling: a possibly staggered lattice is walked over the frame and
//     every lattice point on a valid pixel becomes a [Candidate]
//     ([Sample]).
//
// Stages 1 to 5 are pure and produce a [Plan], which can be cached and
// replayed. [Stitcher.Apply] then creates the candidate vias inside one
// board transaction, selects them and optionally refills the zones.
//
// # Outcomes
//
// Lookup failures such as an unknown net are reported as a [Plan] or
// [Result] outcome, never as errors, and leave the board untouched. A
// rejected commit is recorded in [Result.CommitErr] and the remaining
// steps still run. Only context cancellation and failures to enumerate the
// board are returned as errors.
//
// # Progress
//
// Progress is reported to an optional [Sink] at fixed milestones (10, 15,
// 35, 55, 60, 65, 90, 95, 99) with interpolated updates between 65 and 90
// while sampling. Wrap slow sinks with [Throttle]; a panicking sink is
// disabled for the rest of the run. Reporting 100 is left to the caller.
package stitch
