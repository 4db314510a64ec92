package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/viastitch/pkg/api"
	"github.com/matzehuels/viastitch/pkg/board/memory"
	"github.com/matzehuels/viastitch/pkg/errors"
	"github.com/matzehuels/viastitch/pkg/pipeline"
	"github.com/matzehuels/viastitch/pkg/stitch"
)

// stitchFlags holds the flags of the stitch command.
type stitchFlags struct {
	optionFlags

	dryRun  bool
	noCache bool
	tui     bool
	pick    bool
	dumpDir string
	output  string
	inPlace bool
	asJSON  bool
}

// stitchCommand creates the stitch command.
func (c *CLI) stitchCommand() *cobra.Command {
	var f stitchFlags

	cmd := &cobra.Command{
		Use:   "stitch <board.json>",
		Short: "Place stitching vias on a net",
		Long: `Place a grid of stitching vias wherever the filled zones of a net overlap on
at least two copper layers, clear of pads, tracks, vias and other zones.

The vias are committed to the board in one transaction. Use -o or
--in-place to write the updated board document.`,
		Example: `  # Stitch GND with the defaults and update the file
  viastitch stitch board.json --in-place

  # Plan a denser staggered grid without touching the board
  viastitch stitch board.json --grid-x 1.27 --grid-y 1.27 --stagger --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStitch(cmd, args[0], &f)
		},
	}

	f.register(cmd)
	fs := cmd.Flags()
	fs.BoolVar(&f.dryRun, "dry-run", false, "plan vias without committing them")
	fs.BoolVar(&f.noCache, "no-cache", false, "disable the plan cache")
	fs.BoolVar(&f.tui, "tui", false, "show an interactive progress view")
	fs.BoolVar(&f.pick, "pick", false, "choose the net interactively")
	fs.StringVar(&f.dumpDir, "dump-dir", "", "write intermediate grids as PNGs to this directory")
	fs.StringVarP(&f.output, "output", "o", "", "write the updated board to this file")
	fs.BoolVar(&f.inPlace, "in-place", false, "overwrite the input board file")
	fs.BoolVar(&f.asJSON, "json", false, "print the result as JSON")
	cmd.MarkFlagsMutuallyExclusive("output", "in-place")
	cmd.MarkFlagsMutuallyExclusive("tui", "json")

	return cmd
}

func (c *CLI) runStitch(cmd *cobra.Command, path string, f *stitchFlags) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	opts := f.apply(cmd, c.config().Stitch)
	opts.DryRun = f.dryRun
	opts.Board = path
	opts.Logger = logger
	opts.KeepGrids = f.dumpDir != ""

	t := startTimer(logger)
	b, err := c.loadBoard(path)
	if err != nil {
		return err
	}
	t.done("board loaded", "path", path)

	runner, err := c.newRunner(ctx, f.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	if f.pick {
		nets, err := runner.Nets(ctx, b)
		if err != nil {
			return err
		}
		if len(nets) == 0 {
			printWarning("No filled zones on this board")
			return nil
		}
		net, err := pickNet(ctx, nets, opts.Net, cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if net == "" {
			return nil
		}
		opts.Net = net
	}

	run := func(ctx context.Context, sink stitch.Sink) (*pipeline.Result, error) {
		return runner.Execute(ctx, b, opts, sink)
	}

	var res *pipeline.Result
	switch {
	case f.tui:
		res, err = runWithProgress(ctx, "Stitching "+opts.Net, cmd.InOrStdin(), cmd.ErrOrStderr(), run)
	case f.asJSON:
		res, err = run(ctx, nil)
	default:
		spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Stitching %s...", opts.Net))
		spinner.Start()
		res, err = run(ctx, stitch.Throttle(spinner, 100*time.Millisecond))
		spinner.Stop()
	}
	if err != nil {
		return err
	}

	saved, saveErr := c.writeBoard(b, path, f, res)

	if f.asJSON {
		resp := api.Summarize(res)
		resp.DurationMS = res.Stats.Total.Milliseconds()
		resp.Saved = saved
		if saveErr != nil {
			resp.SaveError = saveErr.Error()
		}
		if err := writeJSONTo(cmd, resp); err != nil {
			return err
		}
	} else {
		printResult(res)
	}

	if f.dumpDir != "" && res.Stitch.Plan != nil && res.Stitch.Plan.Grids != nil {
		files, err := pipeline.DumpGrids(f.dumpDir, res.Stitch.Plan, pipeline.DumpFactor)
		if err != nil {
			return err
		}
		if !f.asJSON {
			for _, p := range files {
				printFile(p)
			}
		}
	}

	if saveErr != nil {
		return saveErr
	}
	if !f.asJSON && saved {
		printFile(c.savePath(path, f))
	}
	if !f.asJSON && f.dryRun && res.Stitch.Outcome == stitch.OutcomeOK {
		printNextStep("Apply", "viastitch stitch "+path+" --in-place")
	}
	if res.Stitch.Outcome == stitch.OutcomeCommitFailed {
		return errors.Wrap(errors.ErrCodeCommitFailed, res.Stitch.CommitErr, "no vias were placed")
	}
	return nil
}

// savePath returns where the updated board goes, or "" when it is not
// written.
func (c *CLI) savePath(path string, f *stitchFlags) string {
	switch {
	case f.inPlace:
		return path
	case f.output != "":
		return f.output
	}
	return ""
}

// writeBoard writes the updated board when vias were created and an output
// was requested.
func (c *CLI) writeBoard(b *memory.Board, path string, f *stitchFlags, res *pipeline.Result) (bool, error) {
	dst := c.savePath(path, f)
	if dst == "" || res.DryRun || len(res.Stitch.Created) == 0 {
		return false, nil
	}
	if err := saveBoard(b, dst); err != nil {
		return false, fmt.Errorf("save board: %w", err)
	}
	return true, nil
}
