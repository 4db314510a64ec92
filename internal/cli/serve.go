package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/viastitch/pkg/api"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		save    bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve <board.json>",
		Short: "Serve the stitching API for a board",
		Long: `Load a board document and serve the stitching HTTP API for it.

With --save the board file is rewritten after every run that created vias.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.config()
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Server.Addr
			}

			path := args[0]
			b, err := c.loadBoard(path)
			if err != nil {
				return err
			}
			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			opts := []api.Option{
				api.WithDefaults(cfg.Stitch),
				api.WithLogger(c.Logger),
				api.WithCacheScope(cacheScope(path)),
			}
			if save {
				opts = append(opts, api.WithSave(func(context.Context) error {
					return saveBoard(b, path)
				}))
			}

			printInfo("Serving %s on %s", StyleValue.Render(path), StyleHighlight.Render(addr))
			return api.New(runner, b, opts...).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&save, "save", false, "write the board file after each committed run")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the plan cache")
	return cmd
}

// cacheScope returns the cache key prefix of a served board.
func cacheScope(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "board:" + filepath.ToSlash(path) + ":"
}
