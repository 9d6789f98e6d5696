package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farm-dashboard/internal/api/handlers"
	"farm-dashboard/internal/api/middleware"
	"farm-dashboard/internal/api/models"
	"farm-dashboard/internal/config"
	"farm-dashboard/internal/metrics"
	"farm-dashboard/internal/session"
)

// Deps are the collaborators of the dashboard API.
type Deps struct {
	Config  *config.Config
	FarmAPI handlers.FarmAPI
	State   *session.State
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// NewRouter wires middleware, API routes and the static UI.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(middleware.Logger(logger))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	siteHandler := handlers.NewSiteHandler(d.FarmAPI, logger)
	optHandler := handlers.NewOptimizationHandler(d.FarmAPI, d.State, d.Metrics, logger)
	optHandler.Tolerance = cfg.Optimization.OptimalMatchTolerance
	if cfg.Optimization.SweetSpotLimit > 0 {
		optHandler.SweetSpotLimit = cfg.Optimization.SweetSpotLimit
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/sites", siteHandler.ListSites)
		v1.GET("/sites/:site_id/summary", siteHandler.GetSummary)

		v1.POST("/sites/:site_id/global-optimization", optHandler.Run)
		v1.DELETE("/sites/:site_id/global-optimization", optHandler.Close)
		v1.GET("/sites/:site_id/global-optimization/projection", optHandler.Projection)
		v1.GET("/sites/:site_id/global-optimization/export", optHandler.Export)

		v1.GET("/sites/:site_id/machines/:instance_id/available-ratios", siteHandler.AvailableRatios)
		v1.POST("/sites/:site_id/machines/:instance_id/apply-ratio", siteHandler.ApplyRatio)
	}

	serveStatic(router, cfg.Server.StaticDir, logger)
	return router
}

// serveStatic serves the built UI with SPA fallback, if the directory exists.
func serveStatic(router *gin.Engine, staticDir string, logger *zap.Logger) {
	notFound := func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "NOT_FOUND", Message: "Not found"},
		})
	}

	if staticDir == "" {
		router.NoRoute(notFound)
		return
	}
	if info, err := os.Stat(staticDir); err != nil || !info.IsDir() {
		logger.Info("static directory not found, skipping static file serving", zap.String("dir", staticDir))
		router.NoRoute(notFound)
		return
	}

	router.Static("/assets", filepath.Join(staticDir, "assets"))
	router.StaticFile("/favicon.ico", filepath.Join(staticDir, "favicon.ico"))
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			notFound(c)
			return
		}
		c.File(filepath.Join(staticDir, "index.html"))
	})
	logger.Info("serving static files", zap.String("dir", staticDir))
}
