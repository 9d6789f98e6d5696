package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"farm-dashboard/internal/api/models"
	"farm-dashboard/internal/data"
	"farm-dashboard/internal/model"
)

// FarmAPI is the subset of the farm API client the handlers use.
type FarmAPI interface {
	ListSites(ctx context.Context) ([]model.Site, error)
	GetSiteSummary(ctx context.Context, siteID int) (*model.SiteSummary, error)
	RunGlobalOptimization(ctx context.Context, siteID int) (*model.OptimizationRun, error)
	GetMachineAvailableRatios(ctx context.Context, siteID, instanceID int) (*model.AvailableRatios, error)
	ApplyMachineRatio(ctx context.Context, siteID, instanceID int, req model.ApplyRatioRequest) error
}

var _ FarmAPI = (*data.FarmAPIClient)(nil)

func writeError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// writeUpstreamError maps a farm API failure. A farm API 404 stays a 404,
// everything else is a bad gateway.
func writeUpstreamError(c *gin.Context, err error) {
	_ = c.Error(err)

	var apiErr *data.APIError
	if errors.As(err, &apiErr) {
		status := http.StatusBadGateway
		switch apiErr.StatusCode {
		case http.StatusNotFound:
			status = http.StatusNotFound
		case http.StatusTooManyRequests:
			status = http.StatusTooManyRequests
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			status = http.StatusBadRequest
		}
		details := map[string]interface{}{"status_code": apiErr.StatusCode}
		if apiErr.RetryAfter != "" {
			details["retry_after"] = apiErr.RetryAfter
		}
		writeError(c, status, apiErr.Code, apiErr.Message, details)
		return
	}
	writeError(c, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "Farm API unavailable: "+err.Error(), nil)
}

func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		writeError(c, http.StatusBadRequest, "INVALID_PARAM", name+" must be a positive integer",
			map[string]interface{}{"param": name, "value": c.Param(name)})
		return 0, false
	}
	return v, true
}
