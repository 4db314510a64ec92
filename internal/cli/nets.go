package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/viastitch/pkg/cache"
	"github.com/matzehuels/viastitch/pkg/history"
	"github.com/matzehuels/viastitch/pkg/pipeline"
)

// netsCommand creates the nets command.
func (c *CLI) netsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "nets <board.json>",
		Short: "List nets that own filled zones",
		Long: `List the nets that own at least one filled zone, i.e. the nets that can be
stitched. The configured default net is marked with an asterisk.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.loadBoard(args[0])
			if err != nil {
				return err
			}
			nets, err := c.queryRunner().Nets(cmd.Context(), b)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSONTo(cmd, nets)
			}
			if len(nets) == 0 {
				printWarning("No filled zones on this board")
				return nil
			}
			def := c.config().Stitch.Net
			for _, n := range nets {
				if n == def {
					fmt.Fprintln(out, StyleHighlight.Render(n+" *"))
				} else {
					fmt.Fprintln(out, n)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

// queryRunner returns a runner for read-only queries that neither caches
// nor records history.
func (c *CLI) queryRunner() *pipeline.Runner {
	return pipeline.NewRunner(cache.NewNullCache(), nil, history.Nop{}, c.Logger)
}
