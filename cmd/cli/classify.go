package main

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"farm-dashboard/internal/api/models"
	"farm-dashboard/internal/data"
	"farm-dashboard/internal/model"
)

func newClassifyCommand(o *options) *cobra.Command {
	var (
		summaryPath string
		siteID      int
	)
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Show the ratio state of every machine of a site",
		Long:  "Classify machine ratios from a saved summary (--summary) or live from the farm API (--site)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				summary *model.SiteSummary
				err     error
			)
			switch {
			case summaryPath != "":
				summary, err = data.LoadSiteSummaryJSON(summaryPath)
			case siteID > 0:
				summary, err = o.client().GetSiteSummary(cmd.Context(), siteID)
			default:
				return errors.New("one of --summary or --site is required")
			}
			if err != nil {
				return err
			}

			resp := models.NewSiteSummaryResponse(siteID, summary)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", resp.SiteName)
			fmt.Fprintf(out, "%-6s %-20s %-8s %-14s %-8s %s\n", "id", "name", "ratio", "category", "emphasis", "icons")
			for _, m := range resp.Machines {
				icons := make([]string, len(m.Classification.Icons))
				for i, ic := range m.Classification.Icons {
					icons[i] = string(ic)
				}
				fmt.Fprintf(out, "%-6d %-20s %-8s %-14s %-8s %s\n",
					m.InstanceID, m.Name, m.CurrentRatioDisplay,
					m.Classification.Category, m.Classification.Emphasis, strings.Join(icons, ","))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&summaryPath, "summary", "", "path to a saved site summary (JSON)")
	cmd.Flags().IntVar(&siteID, "site", 0, "site id (live)")
	return cmd
}
