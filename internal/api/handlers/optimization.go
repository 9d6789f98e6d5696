package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farm-dashboard/internal/analysis"
	"farm-dashboard/internal/api/models"
	"farm-dashboard/internal/export"
	"farm-dashboard/internal/metrics"
	"farm-dashboard/internal/optimization"
	"farm-dashboard/internal/projection"
	"farm-dashboard/internal/session"
)

// OptimizationHandler runs global optimizations and serves views of the
// current run of each site.
type OptimizationHandler struct {
	api     FarmAPI
	state   *session.State
	metrics *metrics.Metrics
	logger  *zap.Logger

	// Tolerance is passed to optimization.WithOptimalTolerance.
	Tolerance      float64
	SweetSpotLimit int

	now func() time.Time
}

func NewOptimizationHandler(api FarmAPI, state *session.State, m *metrics.Metrics, logger *zap.Logger) *OptimizationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OptimizationHandler{
		api:            api,
		state:          state,
		metrics:        m,
		logger:         logger,
		SweetSpotLimit: 10,
		now:            time.Now,
	}
}

// Run handles POST /api/v1/sites/:site_id/global-optimization
func (h *OptimizationHandler) Run(c *gin.Context) {
	siteID, ok := intParam(c, "site_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	ticket := h.state.Begin(siteID)

	start := time.Now()
	run, err := h.api.RunGlobalOptimization(ctx, siteID)
	if err != nil {
		h.metrics.RunOutcome(metrics.OutcomeError)
		h.logger.Error("global optimization failed", zap.Int("site_id", siteID), zap.Error(err))
		writeUpstreamError(c, err)
		return
	}

	rs, err := optimization.NewResultSet(*run, optimization.WithOptimalTolerance(h.Tolerance))
	if err != nil {
		h.metrics.RunOutcome(metrics.OutcomeError)
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, "INVALID_OPTIMIZATION_RESULT", err.Error(), nil)
		return
	}

	stored, err := h.state.Commit(ticket, rs)
	if errors.Is(err, session.ErrStale) {
		h.metrics.RunOutcome(metrics.OutcomeStale)
		h.logger.Warn("dropping superseded optimization result",
			zap.Int("site_id", siteID), zap.Uint64("ticket", ticket.Seq))
		writeError(c, http.StatusConflict, "STALE_OPTIMIZATION", "A newer optimization request for this site superseded this one", nil)
		return
	}
	if err != nil {
		h.metrics.RunOutcome(metrics.OutcomeError)
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return
	}

	resp := h.buildResponse(stored)
	h.logger.Info("global optimization complete",
		zap.Int("site_id", siteID),
		zap.String("run_id", resp.RunID),
		zap.Int("combinations", rs.Len()),
		zap.Float64("best_profit", rs.BestProfit()),
		zap.Bool("synthetic", rs.Synthetic()),
		zap.Duration("duration", time.Since(start)))

	// Second, independent request: the optimization may have changed optimal ratios.
	summary, err := h.api.GetSiteSummary(ctx, siteID)
	if err != nil {
		h.logger.Warn("summary reload after optimization failed", zap.Int("site_id", siteID), zap.Error(err))
	} else {
		s := models.NewSiteSummaryResponse(siteID, summary)
		resp.Summary = &s
	}

	h.metrics.RunOutcome(metrics.OutcomeOK)
	c.JSON(http.StatusOK, resp)
}

func (h *OptimizationHandler) buildResponse(run session.Run) models.OptimizationResponse {
	rs := run.Results
	raw := rs.Run()
	combos := rs.Combinations()
	stats := analysis.ComputeProfitStats(combos)

	resp := models.OptimizationResponse{
		RunID:               run.ID.String(),
		SiteID:              run.SiteID,
		SiteName:            rs.SiteName(),
		CreatedAt:           run.CreatedAt,
		CombinationsTested:  rs.CombinationsTested(),
		BestProfit:          rs.BestProfit(),
		BestCombination:     raw.BestRatios(),
		TotalHashrate:       raw.Results.TotalHashrate,
		TotalPower:          raw.Results.TotalPower,
		DailyProfit:         raw.Results.DailyProfit,
		MachinePerformances: raw.Results.MachinePerformances,
		Synthetic:           rs.Synthetic(),
		Stats:               stats,
		SweetSpots:          analysis.RankSweetSpots(combos, stats, h.SweetSpotLimit),
	}
	if p, err := projection.Project(rs, run.Selection); err == nil {
		resp.Projection = p
	}
	return resp
}

// Projection handles GET /api/v1/sites/:site_id/global-optimization/projection?x=&y=
func (h *OptimizationHandler) Projection(c *gin.Context) {
	siteID, ok := intParam(c, "site_id")
	if !ok {
		return
	}
	run, ok := h.current(c, siteID)
	if !ok {
		return
	}

	var q models.ProjectionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_AXIS", err.Error(), nil)
		return
	}
	sel := run.Selection
	if q.X != nil {
		sel.X = *q.X
	}
	if q.Y != nil {
		sel.Y = *q.Y
	}

	p, err := projection.Project(run.Results, sel)
	switch {
	case errors.Is(err, projection.ErrTooFewDimensions):
		writeError(c, http.StatusUnprocessableEntity, "TOO_FEW_MACHINES", err.Error(),
			map[string]interface{}{"machines": run.Results.DimensionCount()})
		return
	case errors.Is(err, projection.ErrAxisOutOfRange):
		writeError(c, http.StatusBadRequest, "INVALID_AXIS", err.Error(),
			map[string]interface{}{"machines": run.Results.DimensionCount()})
		return
	case err != nil:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return
	}

	// The run may have been discarded meanwhile; the projection is still valid.
	_ = h.state.SetSelection(siteID, p.Axes)
	c.JSON(http.StatusOK, p)
}

// Export handles GET /api/v1/sites/:site_id/global-optimization/export
func (h *OptimizationHandler) Export(c *gin.Context) {
	siteID, ok := intParam(c, "site_id")
	if !ok {
		return
	}
	run, ok := h.current(c, siteID)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, run.Results); err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "EXPORT_FAILED", err.Error(), nil)
		return
	}
	name := export.FileName(run.Results.SiteName(), h.now())
	h.metrics.ExportServed()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Close handles DELETE /api/v1/sites/:site_id/global-optimization
func (h *OptimizationHandler) Close(c *gin.Context) {
	siteID, ok := intParam(c, "site_id")
	if !ok {
		return
	}
	removed := h.state.Discard(siteID)
	c.JSON(http.StatusOK, gin.H{"site_id": siteID, "discarded": removed})
}

func (h *OptimizationHandler) current(c *gin.Context, siteID int) (session.Run, bool) {
	run, err := h.state.Current(siteID)
	if err != nil {
		writeError(c, http.StatusNotFound, "NO_OPTIMIZATION_RUN",
			fmt.Sprintf("No optimization run for site %d", siteID), nil)
		return session.Run{}, false
	}
	return run, true
}
