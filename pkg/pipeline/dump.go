package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/matzehuels/viastitch/pkg/raster"
	"github.com/matzehuels/viastitch/pkg/stitch"
)

// DumpFactor is the default upscale factor of debug bitmaps.
const DumpFactor = 4

// DumpGrids writes the intermediate grids of plan to dir as PNG files and
// returns their paths. The plan must have been computed with KeepGrids.
func DumpGrids(dir string, plan *stitch.Plan, factor int) ([]string, error) {
	if plan.Grids == nil {
		return nil, fmt.Errorf("plan for %s carries no grids", plan.Net)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	g := plan.Grids
	stages := []struct {
		name string
		grid *raster.Grid
	}{
		{"coverage", g.Coverage},
		{"obstacles", g.Obstacles},
		{"valid", g.Valid},
		{"eroded", g.Eroded},
	}
	paths := make([]string, 0, len(stages))
	for _, s := range stages {
		path := filepath.Join(dir, fmt.Sprintf("%s-%s.png", SafeName(plan.Net), s.name))
		if err := raster.SavePNG(path, s.grid, factor); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// SafeName maps a net name to a file name component.
func SafeName(net string) string {
	out := []rune(net)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			out[i] = '_'
		}
	}
	if len(out) == 0 {
		return "net"
	}
	return string(out)
}
