package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/viastitch/pkg/errors"
	"github.com/matzehuels/viastitch/pkg/history"
)

// prefixScan is how many recent runs "history show" searches for an ID
// prefix.
const prefixScan = 500

// historyCommand creates the history command.
func (c *CLI) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Review past stitching runs",
	}

	cmd.AddCommand(c.historyListCommand())
	cmd.AddCommand(c.historyShowCommand())

	return cmd
}

// historyListCommand creates the "history list" subcommand.
func (c *CLI) historyListCommand() *cobra.Command {
	var (
		net    string
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent runs, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := c.newHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(ctx, history.ListOptions{Net: net, Limit: limit})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSONTo(cmd, runs)
			}
			if len(runs) == 0 {
				printInfo("No runs recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), runTable(runs, time.Now()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&net, "net", "n", "", "only runs on this net")
	cmd.Flags().IntVar(&limit, "limit", history.DefaultLimit, "maximum number of runs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

// historyShowCommand creates the "history show" subcommand.
func (c *CLI) historyShowCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run; a unique ID prefix is enough",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := c.newHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := findRun(ctx, store, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSONTo(cmd, rec)
			}
			printRecord(rec)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

// findRun looks id up exactly, then as a prefix of a recent run ID.
func findRun(ctx context.Context, store history.Store, id string) (*history.Record, error) {
	rec, err := store.Get(ctx, id)
	if err == nil || !errors.Is(err, errors.ErrCodeRunNotFound) {
		return rec, err
	}
	runs, lerr := store.List(ctx, history.ListOptions{Limit: prefixScan})
	if lerr != nil {
		return nil, lerr
	}
	var match *history.Record
	for i := range runs {
		if !strings.HasPrefix(runs[i].ID, id) {
			continue
		}
		if match != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "run ID prefix %q is ambiguous", id)
		}
		match = &runs[i]
	}
	if match == nil {
		return nil, err
	}
	return match, nil
}

func printRecord(r *history.Record) {
	p := r.Params
	mm := func(v int64) string { return fmt.Sprintf("%g mm", p.Scale.ToMM(v)) }

	printKeyValue("Run", r.ID)
	if r.Board != "" {
		printKeyValue("Board", r.Board)
	}
	printKeyValue("Net", r.Net)
	printKeyValue("Outcome", r.Outcome)
	printKeyValue("Started", r.StartedAt.Local().Format(time.DateTime))
	printKeyValue("Duration", r.Duration.Round(time.Millisecond).String())
	printKeyValue("Vias", fmt.Sprintf("%d created of %d candidates", r.Created, r.Candidates))
	if r.CommitError != "" {
		printKeyValue("Error", r.CommitError)
	}
	printKeyValue("Via", fmt.Sprintf("%s / %s drill", mm(p.Via.Diameter), mm(p.Via.Drill)))
	printKeyValue("Grid", fmt.Sprintf("%s x %s", mm(p.Grid.X), mm(p.Grid.Y)))
	if p.Grid.OffsetX != 0 || p.Grid.OffsetY != 0 {
		printKeyValue("Offset", fmt.Sprintf("%s, %s", mm(p.Grid.OffsetX), mm(p.Grid.OffsetY)))
	}
	printKeyValue("Clearance", mm(p.Clearance))
	printKeyValue("Resolution", mm(p.Resolution))
	if len(p.IgnoreZones) > 0 {
		printKeyValue("Ignored", strings.Join(p.IgnoreZones, ", "))
	}
	printStats(r.Candidates, r.Created, r.PlanCached, r.DryRun)
}

func writeJSONTo(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
