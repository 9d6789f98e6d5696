package main

import (
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"farm-dashboard/internal/data"
)

func newFetchCommand(o *options) *cobra.Command {
	var (
		siteID  int
		outDir  string
		summary bool
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run a global optimization on the farm API and save the response",
		RunE: func(cmd *cobra.Command, args []string) error {
			if siteID <= 0 {
				return errors.New("--site is required")
			}
			c := o.client()
			ctx := cmd.Context()

			run, err := c.RunGlobalOptimization(ctx, siteID)
			if err != nil {
				return errors.Wrapf(err, "optimizing site %d", siteID)
			}
			runPath := filepath.Join(outDir, fmt.Sprintf("site-%d-run.json", siteID))
			if err := data.SaveRunJSON(run, runPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d combinations to %s (best $%.2f/day)\n",
				len(run.AllResults), runPath, run.BestProfit)

			if !summary {
				return nil
			}
			s, err := c.GetSiteSummary(ctx, siteID)
			if err != nil {
				return errors.Wrapf(err, "loading summary of site %d", siteID)
			}
			summaryPath := filepath.Join(outDir, fmt.Sprintf("site-%d-summary.json", siteID))
			if err := data.SaveSiteSummaryJSON(s, summaryPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote summary of %d machines to %s\n", len(s.Machines), summaryPath)
			return nil
		},
	}
	cmd.Flags().IntVar(&siteID, "site", 0, "site id")
	cmd.Flags().StringVar(&outDir, "out", "data", "output directory")
	cmd.Flags().BoolVar(&summary, "summary", true, "also save the site summary")
	return cmd
}
