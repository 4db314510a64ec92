package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// zonesCommand creates the zones command.
func (c *CLI) zonesCommand() *cobra.Command {
	var (
		net    string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "zones <board.json>",
		Short: "List filled zones of other nets",
		Long: `List the filled zones that do not belong to the stitched net. Their IDs can
be passed to "stitch --ignore" to let vias overlap them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("net") {
				net = c.config().Stitch.Net
			}
			b, err := c.loadBoard(args[0])
			if err != nil {
				return err
			}
			zones, err := c.queryRunner().Zones(cmd.Context(), b, net)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSONTo(cmd, zones)
			}
			if len(zones) == 0 {
				printInfo("No other filled zones")
				return nil
			}
			fmt.Fprintln(out, zoneTable(zones))
			return nil
		},
	}

	cmd.Flags().StringVarP(&net, "net", "n", "", "net being stitched (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
