package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"farm-dashboard/internal/projection"
)

func newProjectCommand(o *options) *cobra.Command {
	var (
		runPath string
		sel     projection.AxisSelection
	)
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Print the scatter points of a saved run for two machines",
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, _, err := o.loadResultSet(runPath)
			if err != nil {
				return err
			}
			p, err := projection.Project(rs, sel)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, p.Title)
			fmt.Fprintf(w, "%s\t%s\tprofit\tbucket\t\n", p.XAxis.Label, p.YAxis.Label)
			for i := 0; i < p.Len(); i++ {
				mark := ""
				if i == p.OptimalIndex {
					mark = "*"
				}
				fmt.Fprintf(w, "%.3f\t%.3f\t%.2f\t%s\t%s\n", p.X[i], p.Y[i], p.Z[i], p.Buckets[i], mark)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&runPath, "run", "", "path to a saved optimization run (JSON)")
	cmd.Flags().IntVar(&sel.X, "x", 0, "machine index on the X axis")
	cmd.Flags().IntVar(&sel.Y, "y", 1, "machine index on the Y axis")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}
