package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"farm-dashboard/internal/export"
)

func newExportCommand(o *options) *cobra.Command {
	var (
		runPath string
		outDir  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the CSV export of a saved optimization run",
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, _, err := o.loadResultSet(runPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			out := filepath.Join(outDir, export.FileName(rs.SiteName(), time.Now()))
			if err := export.WriteCSVFile(out, rs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", rs.Len(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&runPath, "run", "", "path to a saved optimization run (JSON)")
	cmd.Flags().StringVar(&outDir, "out", "results", "output directory")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}
