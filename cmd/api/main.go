package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farm-dashboard/internal/api"
	"farm-dashboard/internal/config"
	"farm-dashboard/internal/data"
	"farm-dashboard/internal/logging"
	"farm-dashboard/internal/metrics"
	"farm-dashboard/internal/session"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to YAML config (optional)")
	logLevel := flag.String("log-level", "", "Override logging.level")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		// no logger yet
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging, *logLevel)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if wd, err := os.Getwd(); err == nil {
		logger.Info("starting", zap.String("working_directory", wd), zap.String("farm_api", cfg.FarmAPI.BaseURL))
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	m := metrics.New()
	router := api.NewRouter(api.Deps{
		Config:  cfg,
		FarmAPI: data.NewFarmAPIClient(cfg.FarmAPI, cfg.Cache, logger.Named("farmapi"), m),
		State:   session.New(cfg.Optimization.MaxRuns, cfg.Optimization.RunTTL),
		Metrics: m,
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting API server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
