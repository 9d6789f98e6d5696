package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"farm-dashboard/internal/analysis"
)

func newRankCommand(o *options) *cobra.Command {
	var (
		runPath string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "List the sweet spots of a saved run, best first",
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, _, err := o.loadResultSet(runPath)
			if err != nil {
				return err
			}
			combos := rs.Combinations()
			stats := analysis.ComputeProfitStats(combos)
			ranked := analysis.RankSweetSpots(combos, stats, limit)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d combinations, profit min/max %.2f/%.2f, p95-p05 %.2f\n",
				stats.Count, stats.Min, stats.Max, stats.SpreadP95P05)
			fmt.Fprintf(out, "%-4s %-10s %-10s %s\n", "rank", "profit", "norm", "ratios")
			for _, r := range ranked {
				ratios := make([]string, len(r.Combination.Ratios))
				for i, v := range r.Combination.Ratios {
					ratios[i] = fmt.Sprintf("%.3f", v)
				}
				fmt.Fprintf(out, "%-4d %-10.2f %-10.3f %s\n",
					r.Rank, r.Combination.DailyProfit, r.Normalized, strings.Join(ratios, " "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runPath, "run", "", "path to a saved optimization run (JSON)")
	cmd.Flags().IntVar(&limit, "limit", 10, "max sweet spots (0 = all)")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}
