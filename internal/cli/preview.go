package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/viastitch/pkg/pipeline"
	"github.com/matzehuels/viastitch/pkg/preview"
)

// previewCommand creates the preview command.
func (c *CLI) previewCommand() *cobra.Command {
	var (
		f       optionFlags
		output  string
		width   float64
		height  float64
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "preview <board.json>",
		Short: "Render planned vias over the placement mask as a PNG",
		Long: `Plan vias without committing them and render the result: the copper
coverage, the obstacles and the clearance margin as a heat map with the
candidate positions on top.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := f.apply(cmd, c.config().Stitch)
			opts.Board = args[0]
			opts.Logger = loggerFromContext(ctx)

			b, err := c.loadBoard(args[0])
			if err != nil {
				return err
			}
			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			spinner := newSpinnerWithContext(ctx, "Rendering preview...")
			spinner.Start()
			data, res, err := runner.Preview(ctx, b, opts, preview.Options{
				WidthMM:  width,
				HeightMM: height,
				Title:    fmt.Sprintf("%s stitching vias", opts.Net),
			})
			if err != nil {
				spinner.StopWithError("Preview failed")
				return err
			}
			spinner.Stop()
			if data == nil {
				printWarning("Nothing to preview on net %s: %s", opts.Net, outcomeText(res.Stitch.Outcome))
				return nil
			}

			if output == "" {
				output = pipeline.SafeName(opts.Net) + "-preview.png"
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write preview: %w", err)
			}
			printSuccess("Preview of %d vias", len(res.Stitch.Candidates))
			printStats(len(res.Stitch.Candidates), 0, res.CacheInfo.PreviewHit, true)
			printFile(output)
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PNG path (default <net>-preview.png)")
	cmd.Flags().Float64Var(&width, "width", preview.DefaultWidthMM, "figure width in mm")
	cmd.Flags().Float64Var(&height, "height", preview.DefaultHeightMM, "figure height in mm")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the cache")
	return cmd
}
