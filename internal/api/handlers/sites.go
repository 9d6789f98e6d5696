package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farm-dashboard/internal/api/models"
	"farm-dashboard/internal/model"
)

// SiteHandler serves the site list, classified summaries and machine ratio changes.
type SiteHandler struct {
	api    FarmAPI
	logger *zap.Logger
}

func NewSiteHandler(api FarmAPI, logger *zap.Logger) *SiteHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SiteHandler{api: api, logger: logger}
}

// ListSites handles GET /api/v1/sites
func (h *SiteHandler) ListSites(c *gin.Context) {
	sites, err := h.api.ListSites(c.Request.Context())
	if err != nil {
		writeUpstreamError(c, err)
		return
	}
	if sites == nil {
		sites = []model.Site{}
	}
	c.JSON(http.StatusOK, models.SitesResponse{Sites: sites, Count: len(sites)})
}

// GetSummary handles GET /api/v1/sites/:site_id/summary
func (h *SiteHandler) GetSummary(c *gin.Context) {
	siteID, ok := intParam(c, "site_id")
	if !ok {
		return
	}
	summary, err := h.api.GetSiteSummary(c.Request.Context(), siteID)
	if err != nil {
		writeUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewSiteSummaryResponse(siteID, summary))
}

// AvailableRatios handles GET /api/v1/sites/:site_id/machines/:instance_id/available-ratios
func (h *SiteHandler) AvailableRatios(c *gin.Context) {
	siteID, ok := intParam(c, "site_id")
	if !ok {
		return
	}
	instanceID, ok := intParam(c, "instance_id")
	if !ok {
		return
	}
	ratios, err := h.api.GetMachineAvailableRatios(c.Request.Context(), siteID, instanceID)
	if err != nil {
		writeUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, ratios)
}

// ApplyRatio handles POST /api/v1/sites/:site_id/machines/:instance_id/apply-ratio
//
// The summary is reloaded afterwards so the caller gets the new classification.
func (h *SiteHandler) ApplyRatio(c *gin.Context) {
	siteID, ok := intParam(c, "site_id")
	if !ok {
		return
	}
	instanceID, ok := intParam(c, "instance_id")
	if !ok {
		return
	}
	var req models.ApplyRatioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	ratioType := model.RatioTypeManual
	if req.RatioType != "" {
		ratioType = model.RatioType(req.RatioType)
	}

	ctx := c.Request.Context()
	err := h.api.ApplyMachineRatio(ctx, siteID, instanceID, model.ApplyRatioRequest{Ratio: req.Ratio, RatioType: ratioType})
	if err != nil {
		writeUpstreamError(c, err)
		return
	}
	h.logger.Info("ratio applied",
		zap.Int("site_id", siteID),
		zap.Int("instance_id", instanceID),
		zap.Float64("ratio", req.Ratio),
		zap.String("ratio_type", string(ratioType)))

	summary, err := h.api.GetSiteSummary(ctx, siteID)
	if err != nil {
		writeUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewSiteSummaryResponse(siteID, summary))
}
