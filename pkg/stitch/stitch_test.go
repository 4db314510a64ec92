package stitch

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/viastitch/pkg/board"
	"github.com/matzehuels/viastitch/pkg/board/memory"
	vserrors "github.com/matzehuels/viastitch/pkg/errors"
	"github.com/matzehuels/viastitch/pkg/geom"
	"github.com/matzehuels/viastitch/pkg/raster"
)

func mm(v float64) int64 { return geom.DefaultScale.FromMM(v) }

func rectMM(x0, y0, x1, y1 float64) geom.Ring {
	return geom.Rect(mm(x0), mm(y0), mm(x1), mm(y1))
}

func filledZone(id, net string, ring geom.Ring, layers ...board.Layer) board.Zone {
	fills := make(map[board.Layer][]geom.Polygon, len(layers))
	for _, l := range layers {
		fills[l] = []geom.Polygon{{Outline: ring}}
	}
	return board.Zone{ID: id, Net: net, Layers: layers, Filled: true, Outline: ring, Fills: fills}
}

// twoLayerDoc is the reference board: one GND pour covering 0..10 mm on
// both outer layers.
func twoLayerDoc() *board.Document {
	return &board.Document{
		Nets: []board.Net{{Name: "GND"}, {Name: "VCC"}},
		Zones: []board.Zone{
			filledZone("top", "GND", rectMM(0, 0, 10, 10), "F.Cu"),
			filledZone("bottom", "GND", rectMM(0, 0, 10, 10), "B.Cu"),
		},
	}
}

func refParams() Params {
	return Params{
		Net:         "GND",
		Via:         ViaSpec{Diameter: mm(0.6), Drill: mm(0.3)},
		Grid:        GridSpec{X: mm(2.5), Y: mm(2.5)},
		Clearance:   mm(0.25),
		Resolution:  mm(0.1),
		RefillAfter: true,
	}
}

func newBoard(t *testing.T, doc *board.Document, opts ...memory.Option) *memory.Board {
	t.Helper()
	b, err := memory.New(doc, opts...)
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	return b
}

func positions(cs []Candidate) []geom.Point {
	out := make([]geom.Point, len(cs))
	for i, c := range cs {
		out[i] = c.Position
	}
	return out
}

func TestStitchReferenceBoard(t *testing.T) {
	ctx := context.Background()
	b := newBoard(t, twoLayerDoc())

	res, err := New(b).Stitch(ctx, refParams(), nil)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if res.Outcome != OutcomeOK {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeOK)
	}

	var want []geom.Point
	for _, x := range []float64{2.5, 5, 7.5} {
		for _, y := range []float64{2.5, 5, 7.5} {
			want = append(want, geom.Pt(mm(x), mm(y)))
		}
	}
	if diff := cmp.Diff(want, positions(res.Candidates)); diff != "" {
		t.Errorf("candidate positions mismatch (-want +got):\n%s", diff)
	}
	if len(res.Created) != 9 {
		t.Errorf("Created = %d, want 9", len(res.Created))
	}
	for _, c := range res.Candidates {
		if c.Net != "GND" || c.Diameter != mm(0.6) || c.Drill != mm(0.3) {
			t.Errorf("candidate %+v carries wrong via spec", c)
		}
	}

	st := res.Stats
	if st.Width != 101 || st.Height != 101 {
		t.Errorf("frame = %dx%d, want 101x101", st.Width, st.Height)
	}
	if st.ErosionRadius != 2 {
		t.Errorf("ErosionRadius = %d, want 2", st.ErosionRadius)
	}
	// Rows 0..99 and columns 0..100 are covered.
	if st.ValidPixels != 101*100 {
		t.Errorf("ValidPixels = %d, want %d", st.ValidPixels, 101*100)
	}
	// Erosion keeps columns 2..98 and rows 2..97.
	if st.ErodedPixels != 97*96 {
		t.Errorf("ErodedPixels = %d, want %d", st.ErodedPixels, 97*96)
	}
	if st.GridPoints != 25 {
		t.Errorf("GridPoints = %d, want 25", st.GridPoints)
	}

	vias, _ := b.Vias(ctx)
	if len(vias) != 9 {
		t.Errorf("board has %d vias, want 9", len(vias))
	}
	if got := len(b.Selection()); got != 9 {
		t.Errorf("selection = %d, want 9", got)
	}
	if !res.Refilled || b.Refills() != 1 {
		t.Errorf("Refilled = %v, Refills() = %d", res.Refilled, b.Refills())
	}
	wantCalls := []string{"begin", "create", "commit", "clear-selection", "add-selection", "refill"}
	if diff := cmp.Diff(wantCalls, b.Calls()); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
}

func TestStitchLookupOutcomes(t *testing.T) {
	tests := []struct {
		name string
		doc  *board.Document
		net  string
		want Outcome
	}{
		{"unknown net", twoLayerDoc(), "NOPE", OutcomeNetNotFound},
		{"net without zones", twoLayerDoc(), "VCC", OutcomeNoFilledZones},
		{"unfilled zones only", &board.Document{
			Nets:  []board.Net{{Name: "GND"}},
			Zones: []board.Zone{{ID: "z", Net: "GND", Layers: []board.Layer{"F.Cu"}}},
		}, "GND", OutcomeNoFilledZones},
		{"no geometry", &board.Document{
			Nets:  []board.Net{{Name: "GND"}},
			Zones: []board.Zone{{ID: "z", Net: "GND", Layers: []board.Layer{"F.Cu"}, Filled: true}},
		}, "GND", OutcomeEmptyBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBoard(t, tt.doc)
			p := refParams()
			p.Net = tt.net
			res, err := New(b).Stitch(context.Background(), p, nil)
			if err != nil {
				t.Fatalf("Stitch: %v", err)
			}
			if res.Outcome != tt.want {
				t.Errorf("Outcome = %v, want %v", res.Outcome, tt.want)
			}
			if len(res.Candidates) != 0 {
				t.Errorf("Candidates = %d, want 0", len(res.Candidates))
			}
			if calls := b.Calls(); len(calls) != 0 {
				t.Errorf("board mutated: %v", calls)
			}
		})
	}
}

func TestStitchTooLarge(t *testing.T) {
	b := newBoard(t, twoLayerDoc())
	p := refParams()
	p.MaxPixels = 100
	res, err := New(b).Stitch(context.Background(), p, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeTooLarge {
		t.Errorf("Outcome = %v, want %v", res.Outcome, OutcomeTooLarge)
	}
	if len(b.Calls()) != 0 {
		t.Errorf("board mutated: %v", b.Calls())
	}
}

func TestStitchCommitFailure(t *testing.T) {
	b := newBoard(t, twoLayerDoc(), memory.WithCommitError(errors.New("editor busy")))
	res, err := New(b).Stitch(context.Background(), refParams(), nil)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if res.Outcome != OutcomeCommitFailed {
		t.Errorf("Outcome = %v, want %v", res.Outcome, OutcomeCommitFailed)
	}
	if !vserrors.Is(res.CommitErr, vserrors.ErrCodeCommitFailed) {
		t.Errorf("CommitErr = %v", res.CommitErr)
	}
	if len(res.Candidates) != 9 || len(res.Created) != 0 {
		t.Errorf("Candidates = %d, Created = %d, want 9 and 0", len(res.Candidates), len(res.Created))
	}
	wantCalls := []string{"begin", "create", "commit", "clear-selection", "refill"}
	if diff := cmp.Diff(wantCalls, b.Calls()); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
}

func TestStitchNoRefill(t *testing.T) {
	b := newBoard(t, twoLayerDoc())
	p := refParams()
	p.RefillAfter = false
	res, err := New(b).Stitch(context.Background(), p, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Refilled || b.Refills() != 0 {
		t.Errorf("refill ran with RefillAfter=false")
	}
}

func TestStitchObstaclesAndIgnore(t *testing.T) {
	doc := twoLayerDoc()
	doc.Zones = append(doc.Zones, filledZone("island", "VCC", rectMM(4, 4, 6, 6), "F.Cu"))

	run := func(ignore ...string) *Result {
		t.Helper()
		p := refParams()
		p.IgnoreZones = ignore
		p.RefillAfter = false
		res, err := New(newBoard(t, doc)).Stitch(context.Background(), p, nil)
		if err != nil {
			t.Fatal(err)
		}
		return res
	}

	blocked := run()
	ignored := run("island")
	if len(blocked.Candidates) != 8 {
		t.Errorf("with island: %d candidates, want 8", len(blocked.Candidates))
	}
	if slices.Contains(positions(blocked.Candidates), geom.Pt(mm(5), mm(5))) {
		t.Error("candidate placed inside the foreign zone")
	}
	if len(ignored.Candidates) < len(blocked.Candidates) {
		t.Errorf("ignoring a zone reduced candidates: %d < %d", len(ignored.Candidates), len(blocked.Candidates))
	}
	if len(ignored.Candidates) != 9 {
		t.Errorf("island ignored: %d candidates, want 9", len(ignored.Candidates))
	}
}

func TestCompositeObstacles(t *testing.T) {
	frame, err := raster.NewFrame(geom.Box{Size: geom.Pt(mm(10), mm(10))}, mm(0.1))
	if err != nil {
		t.Fatal(err)
	}
	scene := &Scene{
		Nets: []board.Net{{Name: "GND"}, {Name: "SIG"}},
		Pads: []board.Pad{
			{ID: "own", Net: "GND", Position: geom.Pt(mm(1), mm(1))},
			{ID: "bare", Position: geom.Pt(mm(5), mm(5))},
			{ID: "sized", Net: "SIG", Position: geom.Pt(mm(8), mm(8)),
				Copper: []board.PadLayer{{Layer: "F.Cu", Size: geom.Pt(mm(0.4), mm(0.2))}}},
		},
		Vias:   []board.Via{{ID: "v", Net: "SIG", Position: geom.Pt(mm(2), mm(8)), Diameter: mm(0.6)}},
		Tracks: []board.Track{{ID: "t", Net: "SIG", Start: geom.Pt(mm(1), mm(3)), End: geom.Pt(mm(9), mm(3)), Width: mm(0.2)}},
		Zones: []board.Zone{
			filledZone("gnd", "GND", rectMM(0, 0, 10, 10), "F.Cu"),
			filledZone("sig", "SIG", rectMM(6, 0, 7, 1), "B.Cu"),
			{ID: "broken", Net: "SIG", Filled: true, Fills: map[board.Layer][]geom.Polygon{"F.Cu": {{Outline: rectMM(0, 0, 1, 1)[:2]}}}},
		},
	}
	p := refParams()
	p.Scale = geom.DefaultScale

	g, skipped := CompositeObstacles(frame, scene, p)

	checks := []struct {
		name    string
		x, y    int
		blocked bool
	}{
		{"own pad", 10, 10, false},
		{"pad without size uses 0.5 mm radius", 55, 50, true},
		{"pad without size edge", 56, 50, false},
		{"sized pad radius 2 px", 82, 80, true},
		{"sized pad outside", 83, 80, false},
		{"via radius 3 px", 23, 80, true},
		{"via outside", 24, 80, false},
		{"track body", 50, 30, true},
		{"track half width", 50, 31, true},
		{"track outside", 50, 32, false},
		{"foreign zone", 65, 5, true},
		{"target zone is not an obstacle", 30, 60, false},
	}
	for _, c := range checks {
		if got := g.At(c.x, c.y) != 0; got != c.blocked {
			t.Errorf("%s: blocked(%d,%d) = %v, want %v", c.name, c.x, c.y, got, c.blocked)
		}
	}
	if len(skipped) != 1 || skipped[0].Item != "broken" {
		t.Errorf("skipped = %+v, want the broken zone", skipped)
	}

	p.IgnoreZones = []string{"sig"}
	g2, _ := CompositeObstacles(frame, scene, p)
	if g2.At(65, 5) != 0 {
		t.Error("ignored zone still in obstacle grid")
	}
}

func TestAccumulateCoverage(t *testing.T) {
	frame, _ := raster.NewFrame(geom.Box{Size: geom.Pt(10, 10)}, 1)
	zones := []board.Zone{
		filledZone("a", "GND", geom.Rect(0, 0, 10, 10), "F.Cu"),
		filledZone("b", "GND", geom.Rect(0, 0, 5, 10), "F.Cu"),
		filledZone("c", "GND", geom.Rect(0, 0, 5, 5), "B.Cu"),
		{
			ID: "d", Net: "GND", Filled: true,
			Layers: []board.Layer{"In1.Cu", "In2.Cu"},
			Fills: map[board.Layer][]geom.Polygon{"In1.Cu": {{
				Outline: geom.Rect(0, 0, 10, 10),
				Holes:   []geom.Ring{geom.Rect(2, 2, 4, 4)},
			}, {
				Outline: geom.Ring{geom.Pt(0, 0), geom.Pt(1, 1)},
			}}},
		},
	}
	cov, skipped := AccumulateCoverage(frame, zones)

	if got := cov.At(1, 1); got != 3 {
		t.Errorf("coverage(1,1) = %d, want 3", got)
	}
	if got := cov.At(3, 3); got != 2 {
		t.Errorf("coverage in hole = %d, want 2", got)
	}
	if got := cov.At(1, 8); got != 2 {
		t.Errorf("coverage(1,8) = %d, want 2 (overlap on one layer counts once)", got)
	}
	if got := cov.At(8, 8); got != 2 {
		t.Errorf("coverage(8,8) = %d, want 2", got)
	}
	if got := cov.Max(); got > 3 {
		t.Errorf("coverage max %d exceeds layers with copper", got)
	}
	want := []Skip{
		{Item: "d", Layer: "In2.Cu", Reason: "no filled polygons on layer"},
		{Item: "d", Layer: "In1.Cu", Reason: "polygon 1 has 2 outline vertices"},
	}
	if diff := cmp.Diff(want, skipped); diff != "" {
		t.Errorf("skipped mismatch (-want +got):\n%s", diff)
	}
}

func fullGrid(w, h int) *raster.Grid {
	g := raster.NewGrid(w, h)
	for i := range g.Pix {
		g.Pix[i] = 1
	}
	return g
}

func TestSampleLattice(t *testing.T) {
	frame, _ := raster.NewFrame(geom.Box{Size: geom.Pt(10, 10)}, 1)
	valid := fullGrid(11, 11)

	tests := []struct {
		name string
		grid GridSpec
		want []geom.Point
	}{
		{"rectangular", GridSpec{X: 5, Y: 4}, []geom.Point{
			{X: 0, Y: 0}, {X: 0, Y: 4}, {X: 0, Y: 8}, {X: 5, Y: 0}, {X: 5, Y: 4}, {X: 5, Y: 8}, {X: 10, Y: 0}, {X: 10, Y: 4}, {X: 10, Y: 8},
		}},
		{"staggered", GridSpec{X: 5, Y: 4, Stagger: true}, []geom.Point{
			{X: 0, Y: 0}, {X: 0, Y: 4}, {X: 0, Y: 8}, {X: 5, Y: 2}, {X: 5, Y: 6}, {X: 5, Y: 10}, {X: 10, Y: 0}, {X: 10, Y: 4}, {X: 10, Y: 8},
		}},
		{"offset", GridSpec{X: 5, Y: 5, OffsetX: 1, OffsetY: 2}, []geom.Point{
			{X: 1, Y: 2}, {X: 1, Y: 7}, {X: 6, Y: 2}, {X: 6, Y: 7},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Params{Net: "GND", Grid: tt.grid, Scale: 1}
			got, _, err := Sample(context.Background(), valid, frame, p, nil)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, positions(got)); diff != "" {
				t.Errorf("lattice mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSampleClampsSpacing(t *testing.T) {
	frame, _ := raster.NewFrame(geom.Box{Size: geom.Pt(3, 3)}, 1)
	p := Params{Net: "GND", Grid: GridSpec{X: 0, Y: -7}, Scale: 1}
	got, visited, err := Sample(context.Background(), fullGrid(4, 4), frame, p, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 16 || visited != 16 {
		t.Errorf("got %d candidates over %d points, want 16 over 16", len(got), visited)
	}
}

func TestSampleSkipsInvalidAndOutside(t *testing.T) {
	frame, _ := raster.NewFrame(geom.Box{Pos: geom.Pt(100, 100), Size: geom.Pt(4, 4)}, 1)
	valid := raster.NewGrid(5, 5)
	valid.Set(2, 2, 1)
	p := Params{Net: "GND", Grid: GridSpec{X: 2, Y: 2, OffsetX: -2}, Scale: 1}
	got, _, err := Sample(context.Background(), valid, frame, p, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]geom.Point{{X: 102, Y: 102}}, positions(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSampleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	frame, _ := raster.NewFrame(geom.Box{Size: geom.Pt(10, 10)}, 1)
	_, _, err := Sample(ctx, fullGrid(11, 11), frame, Params{Grid: GridSpec{X: 1, Y: 1}, Scale: 1}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestApplyClearance(t *testing.T) {
	g := fullGrid(9, 9)
	if ApplyClearance(g, 9, 10) != g {
		t.Error("sub-pixel clearance should return the input")
	}
	eroded := ApplyClearance(g, 25, 10)
	if got := eroded.CountNonZero(); got != 25 {
		t.Errorf("eroded cells = %d, want 25", got)
	}
	if ErosionRadius(-5, 10) != 0 || ErosionRadius(5, 0) != 0 {
		t.Error("degenerate erosion radius should be 0")
	}
}

func TestCandidateNets(t *testing.T) {
	zones := []board.Zone{
		filledZone("1", "VCC", rectMM(0, 0, 1, 1), "F.Cu"),
		filledZone("2", "VCC", rectMM(0, 0, 1, 1), "B.Cu"),
		filledZone("3", "GND", rectMM(0, 0, 1, 1), "F.Cu", "In1.Cu"),
		filledZone("4", "SIG", rectMM(0, 0, 1, 1), "F.Cu"),
		filledZone("5", "SIG", rectMM(0, 0, 1, 1), "F.Cu"),
		filledZone("6", "", rectMM(0, 0, 1, 1), "F.Cu", "B.Cu"),
		{ID: "7", Net: "AUDIO", Layers: []board.Layer{"F.Cu", "B.Cu"}},
	}
	if diff := cmp.Diff([]string{"GND", "VCC"}, CandidateNets(zones)); diff != "" {
		t.Errorf("CandidateNets mismatch (-want +got):\n%s", diff)
	}
}

func TestOtherZones(t *testing.T) {
	b := newBoard(t, &board.Document{
		Nets: []board.Net{{Name: "GND"}, {Name: "VCC"}},
		Zones: []board.Zone{
			filledZone("g", "GND", rectMM(0, 0, 1, 1), "F.Cu"),
			filledZone("v", "VCC", rectMM(0, 0, 1, 1), "B.Cu"),
			filledZone("n", "", rectMM(0, 0, 1, 1), "F.Cu"),
			{ID: "u", Net: "VCC", Layers: []board.Layer{"F.Cu"}},
		},
	})
	got, err := New(b).OtherZones(context.Background(), "GND")
	if err != nil {
		t.Fatal(err)
	}
	want := []ZoneInfo{
		{ID: "v", Net: "VCC", Layers: []board.Layer{"B.Cu"}, Filled: true},
		{ID: "n", Net: board.NoNet, Layers: []board.Layer{"F.Cu"}, Filled: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("OtherZones mismatch (-want +got):\n%s", diff)
	}
}

func TestStitchProgress(t *testing.T) {
	var updates []Update
	sink := SinkFunc(func(u Update) { updates = append(updates, u) })
	if _, err := New(newBoard(t, twoLayerDoc())).Stitch(context.Background(), refParams(), sink); err != nil {
		t.Fatal(err)
	}

	var milestones []float64
	last := 0.0
	for _, u := range updates {
		if u.Percent < last {
			t.Errorf("progress went backwards: %v after %v", u.Percent, last)
		}
		last = u.Percent
		if u.Milestone {
			milestones = append(milestones, u.Percent)
		} else if u.Percent < ProgressSampling || u.Percent > ProgressCommit {
			t.Errorf("interpolated update %v outside sampling range", u.Percent)
		}
	}
	want := []float64{10, 15, 35, 55, 60, 65, 90, 95, 99}
	if diff := cmp.Diff(want, milestones); diff != "" {
		t.Errorf("milestones mismatch (-want +got):\n%s", diff)
	}
}

func TestPanickingSinkIsDisabled(t *testing.T) {
	calls := 0
	sink := SinkFunc(func(Update) {
		calls++
		panic("ui gone")
	})
	res, err := New(newBoard(t, twoLayerDoc())).Stitch(context.Background(), refParams(), sink)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Created) != 9 {
		t.Errorf("Created = %d, want 9", len(res.Created))
	}
	if calls != 1 {
		t.Errorf("sink called %d times after panicking, want 1", calls)
	}
}

func TestThrottle(t *testing.T) {
	var got []Update
	th := Throttle(SinkFunc(func(u Update) { got = append(got, u) }), time.Second).(*throttled)
	now := time.Unix(0, 0)
	th.now = func() time.Time { return now }

	th.Progress(Update{Percent: 65, Milestone: true})
	th.Progress(Update{Percent: 70})
	now = now.Add(500 * time.Millisecond)
	th.Progress(Update{Percent: 75})
	th.Progress(Update{Percent: 90, Milestone: true})
	now = now.Add(2 * time.Second)
	th.Progress(Update{Percent: 80})

	var pct []float64
	for _, u := range got {
		pct = append(pct, u.Percent)
	}
	if diff := cmp.Diff([]float64{65, 90, 80}, pct); diff != "" {
		t.Errorf("throttled updates mismatch (-want +got):\n%s", diff)
	}
}

func TestChanSinkDoesNotBlock(t *testing.T) {
	ch := make(chan Update, 1)
	s := ChanSink(ch)
	s.Progress(Update{Percent: 10})
	s.Progress(Update{Percent: 15})
	if u := <-ch; u.Percent != 10 {
		t.Errorf("first update = %v, want 10", u.Percent)
	}
	select {
	case u := <-ch:
		t.Errorf("unexpected buffered update %v", u)
	default:
	}
}

func TestStitchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := newBoard(t, twoLayerDoc())
	_, err := New(b).Stitch(ctx, refParams(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(b.Calls()) != 0 {
		t.Errorf("board mutated: %v", b.Calls())
	}
}

func TestStitchEnumerateError(t *testing.T) {
	b := newBoard(t, twoLayerDoc(), memory.WithEnumerateError(errors.New("socket closed")))
	_, err := New(b).Stitch(context.Background(), refParams(), nil)
	if !vserrors.Is(err, vserrors.ErrCodeBoardUnavailable) {
		t.Errorf("err = %v, want %s", err, vserrors.ErrCodeBoardUnavailable)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
		code   vserrors.Code
	}{
		{"ok", func(*Params) {}, ""},
		{"empty net", func(p *Params) { p.Net = "" }, vserrors.ErrCodeInvalidInput},
		{"zero resolution", func(p *Params) { p.Resolution = 0 }, vserrors.ErrCodeInvalidGrid},
		{"negative clearance", func(p *Params) { p.Clearance = -1 }, vserrors.ErrCodeInvalidInput},
		{"drill exceeds diameter", func(p *Params) { p.Via.Drill = p.Via.Diameter + 1 }, vserrors.ErrCodeInvalidInput},
		{"zero diameter", func(p *Params) { p.Via.Diameter = 0 }, vserrors.ErrCodeInvalidInput},
		{"negative scale", func(p *Params) { p.Scale = -1 }, vserrors.ErrCodeInvalidUnits},
		{"zero grid is clamped", func(p *Params) { p.Grid = GridSpec{} }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := refParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.code == "" {
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
				if p.Scale != geom.DefaultScale || p.MaxPixels != DefaultMaxPixels {
					t.Errorf("defaults not applied: %+v", p)
				}
				return
			}
			if !vserrors.Is(err, tt.code) {
				t.Errorf("Validate() = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestSceneFingerprint(t *testing.T) {
	ctx := context.Background()
	a, _ := LoadScene(ctx, newBoard(t, twoLayerDoc()))

	doc := twoLayerDoc()
	slices.Reverse(doc.Zones)
	slices.Reverse(doc.Nets)
	b, _ := LoadScene(ctx, newBoard(t, doc))
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("fingerprint depends on enumeration order")
	}

	doc.Vias = append(doc.Vias, board.Via{ID: "x", Diameter: 1, Drill: 1})
	c, _ := LoadScene(ctx, newBoard(t, doc))
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("fingerprint ignores an added via")
	}
}

func TestPlanKeepsGrids(t *testing.T) {
	s := New(newBoard(t, twoLayerDoc()))
	scene, _ := s.Load(context.Background())
	p := refParams()
	p.KeepGrids = true
	plan, err := s.Plan(context.Background(), scene, p, nil)
	if err != nil {
		t.Fatal(err)
	}
	if plan.Grids == nil || plan.Grids.Coverage.Max() != 2 || plan.Grids.Eroded.CountNonZero() != plan.Stats.ErodedPixels {
		t.Errorf("grids not retained: %+v", plan.Grids)
	}
}
