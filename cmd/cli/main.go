package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"farm-dashboard/internal/config"
	"farm-dashboard/internal/data"
	"farm-dashboard/internal/logging"
	"farm-dashboard/internal/model"
	"farm-dashboard/internal/optimization"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// options are shared by every subcommand.
type options struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "farmdash",
		Short:         "Mining farm optimization toolbox",
		Long:          "Fetch, replay and export global optimization runs of the farm API",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setup()
		},
	}
	root.PersistentFlags().StringVar(&o.configPath, "config", "", "path to YAML config")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newFetchCommand(o),
		newExportCommand(o),
		newProjectCommand(o),
		newRankCommand(o),
		newClassifyCommand(o),
	)
	return root
}

func (o *options) setup() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	cfg.Logging.Format = "console"
	logger, err := logging.New(cfg.Logging, o.logLevel)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = logger
	return nil
}

func (o *options) client() *data.FarmAPIClient {
	return data.NewFarmAPIClient(o.cfg.FarmAPI, o.cfg.Cache, o.logger, nil)
}

// loadResultSet reads a saved run and applies the configured OPTIMAL matching rule.
func (o *options) loadResultSet(path string) (*optimization.ResultSet, model.OptimizationRun, error) {
	run, err := data.LoadRunJSON(path)
	if err != nil {
		return nil, model.OptimizationRun{}, err
	}
	rs, err := optimization.NewResultSet(*run, optimization.WithOptimalTolerance(o.cfg.Optimization.OptimalMatchTolerance))
	if err != nil {
		return nil, model.OptimizationRun{}, err
	}
	return rs, *run, nil
}
