package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/matzehuels/viastitch/pkg/api"
	"github.com/matzehuels/viastitch/pkg/board"
	"github.com/matzehuels/viastitch/pkg/errors"
	"github.com/matzehuels/viastitch/pkg/geom"
	"github.com/matzehuels/viastitch/pkg/history"
	"github.com/matzehuels/viastitch/pkg/pipeline"
	"github.com/matzehuels/viastitch/pkg/stitch"
)

func mm(v float64) int64 { return geom.DefaultScale.FromMM(v) }

// writeTestBoard writes a 10x10 mm GND pour on both outer layers and a
// small VCC zone on the top layer.
func writeTestBoard(t *testing.T, dir string) string {
	t.Helper()
	ring := geom.Rect(0, 0, mm(10), mm(10))
	gnd := func(id string, l board.Layer) board.Zone {
		return board.Zone{
			ID: id, Net: "GND", Layers: []board.Layer{l}, Filled: true, Outline: ring,
			Fills: map[board.Layer][]geom.Polygon{l: {{Outline: ring}}},
		}
	}
	vccRing := geom.Rect(mm(20), mm(0), mm(25), mm(5))
	doc := &board.Document{
		Nets: []board.Net{{Name: "GND"}, {Name: "VCC"}},
		Zones: []board.Zone{
			gnd("top", "F.Cu"),
			gnd("bottom", "B.Cu"),
			{
				ID: "vcc", Name: "power", Net: "VCC", Layers: []board.Layer{"F.Cu"}, Filled: true, Outline: vccRing,
				Fills: map[board.Layer][]geom.Polygon{"F.Cu": {{Outline: vccRing}}},
			},
		},
	}
	path := filepath.Join(dir, "board.json")
	if err := board.SaveDocument(doc, path); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeTestConfig writes a config with the cache disabled and history in
// dir.
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "viastitch.toml")
	cfg := `[cache]
backend = "none"

[history]
backend = "sqlite"
path = "` + filepath.ToSlash(filepath.Join(dir, "history.db")) + `"
`
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes the root command with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	var out bytes.Buffer
	c.Out = &out
	root := c.RootCommand()
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	want := []string{"nets", "zones", "stitch", "preview", "serve", "history", "cache", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestNetsCommand(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeTestBoard(t, dir)
	cfg := writeTestConfig(t, dir)

	out, err := run(t, "--config", cfg, "nets", boardPath, "--json")
	if err != nil {
		t.Fatalf("nets: %v", err)
	}
	var nets []string
	if err := json.Unmarshal([]byte(out), &nets); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	// VCC covers a single layer and cannot be stitched.
	if len(nets) != 1 || nets[0] != "GND" {
		t.Errorf("nets = %v, want [GND]", nets)
	}
}

func TestZonesCommand(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeTestBoard(t, dir)
	cfg := writeTestConfig(t, dir)

	out, err := run(t, "--config", cfg, "zones", boardPath, "--json")
	if err != nil {
		t.Fatalf("zones: %v", err)
	}
	var zones []stitch.ZoneInfo
	if err := json.Unmarshal([]byte(out), &zones); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(zones) != 1 || zones[0].ID != "vcc" {
		t.Errorf("zones = %+v, want only vcc", zones)
	}

	out, err = run(t, "--config", cfg, "zones", boardPath)
	if err != nil {
		t.Fatalf("zones table: %v", err)
	}
	if !strings.Contains(out, "vcc") || !strings.Contains(out, "power") {
		t.Errorf("table output missing zone:\n%s", out)
	}
}

func TestStitchCommand(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeTestBoard(t, dir)
	cfg := writeTestConfig(t, dir)
	outPath := filepath.Join(dir, "stitched.json")

	out, err := run(t, "--config", cfg, "stitch", boardPath, "--json", "-o", outPath)
	if err != nil {
		t.Fatalf("stitch: %v", err)
	}
	var resp api.StitchResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if resp.Outcome != string(stitch.OutcomeOK) || resp.Candidates != 9 || len(resp.Created) != 9 {
		t.Errorf("outcome %s, %d candidates, %d created; want ok, 9, 9", resp.Outcome, resp.Candidates, len(resp.Created))
	}
	if !resp.Saved {
		t.Errorf("saved = false, save error %q", resp.SaveError)
	}

	doc, err := board.LoadDocument(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Vias) != 9 {
		t.Errorf("saved board has %d vias, want 9", len(doc.Vias))
	}
	orig, err := board.LoadDocument(boardPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(orig.Vias) != 0 {
		t.Errorf("input board modified: %d vias", len(orig.Vias))
	}

	// The run is in history.
	out, err = run(t, "--config", cfg, "history", "list", "--json")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	var runs []history.Record
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(runs) != 1 || runs[0].ID != resp.RunID || runs[0].Created != 9 {
		t.Fatalf("history = %+v, want the run %s", runs, resp.RunID)
	}

	out, err = run(t, "--config", cfg, "history", "show", resp.RunID[:8], "--json")
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	var rec history.Record
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if rec.ID != resp.RunID || rec.Board != boardPath {
		t.Errorf("show = %s on %s, want %s on %s", rec.ID, rec.Board, resp.RunID, boardPath)
	}
}

func TestStitchCommandDryRunFlags(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeTestBoard(t, dir)
	cfg := writeTestConfig(t, dir)

	out, err := run(t, "--config", cfg, "stitch", boardPath, "--json", "--dry-run", "--in-place",
		"--grid-x", "5", "--grid-y", "5")
	if err != nil {
		t.Fatalf("stitch: %v", err)
	}
	var resp api.StitchResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if !resp.DryRun || resp.Candidates != 1 || len(resp.Created) != 0 || resp.Saved {
		t.Errorf("dry run = %+v, want one candidate and nothing created or saved", resp)
	}
	if len(resp.Positions) != 1 || resp.Positions[0].Position != (geom.Point{X: mm(5), Y: mm(5)}) {
		t.Errorf("positions = %+v, want (5, 5) mm", resp.Positions)
	}

	doc, err := board.LoadDocument(boardPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Vias) != 0 {
		t.Errorf("dry run wrote %d vias", len(doc.Vias))
	}
}

func TestStitchCommandUnknownNet(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeTestBoard(t, dir)
	cfg := writeTestConfig(t, dir)

	out, err := run(t, "--config", cfg, "stitch", boardPath, "--json", "--net", "NOPE")
	if err != nil {
		t.Fatalf("an outcome is not an error: %v", err)
	}
	var resp api.StitchResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Outcome != string(stitch.OutcomeNetNotFound) {
		t.Errorf("outcome = %s, want %s", resp.Outcome, stitch.OutcomeNetNotFound)
	}
}

func TestMissingBoard(t *testing.T) {
	cfg := writeTestConfig(t, t.TempDir())
	if _, err := run(t, "--config", cfg, "nets", "does-not-exist.json"); err == nil {
		t.Error("expected an error for a missing board")
	}
}

func TestOptionFlagsOverrideOnlyWhenSet(t *testing.T) {
	cmd := &cobra.Command{Use: "stitch"}
	var f optionFlags
	f.register(cmd)
	if err := cmd.Flags().Parse([]string{"--clearance", "0.4", "--no-refill", "--ignore", "a,b"}); err != nil {
		t.Fatal(err)
	}

	base := pipeline.DefaultOptions()
	base.Net = "PGND"
	base.GridX = 1.27
	got := f.apply(cmd, base)

	if got.Net != "PGND" || got.GridX != 1.27 {
		t.Errorf("unset flags overrode config: net %q grid %g", got.Net, got.GridX)
	}
	if got.Clearance != 0.4 || got.Refill || len(got.IgnoreZones) != 2 {
		t.Errorf("set flags not applied: %+v", got)
	}
}

func TestCachePathCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "viastitch.toml")
	if err := os.WriteFile(cfgPath, []byte("[cache]\nbackend = \"file\"\ndir = \"/tmp/plans\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "--config", cfgPath, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "/tmp/plans" {
		t.Errorf("cache path = %q, want /tmp/plans", out)
	}
}

func TestCacheScope(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	want := "board:" + filepath.ToSlash(filepath.Join(dir, "board.json")) + ":"
	if got := cacheScope("board.json"); got != want {
		t.Errorf("cacheScope = %q, want %q", got, want)
	}
	if cacheScope("a.json") == cacheScope("b.json") {
		t.Error("different boards share a scope")
	}
}

func TestBoardUnitsMustMatchScale(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir)
	path := filepath.Join(dir, "um.json")
	doc := &board.Document{Units: "um", Nets: []board.Net{{Name: "GND"}}}
	if err := board.SaveDocument(doc, path); err != nil {
		t.Fatal(err)
	}
	_, err := run(t, "--config", cfg, "nets", path)
	if !errors.Is(err, errors.ErrCodeInvalidUnits) {
		t.Errorf("err = %v, want INVALID_UNITS", err)
	}
}
