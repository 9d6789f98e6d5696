package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"farm-dashboard/internal/config"
	"farm-dashboard/internal/metrics"
	"farm-dashboard/internal/model"
)

// Endpoint labels, used for logging and the upstream latency histogram.
const (
	EndpointSites              = "sites"
	EndpointSiteSummary        = "site_summary"
	EndpointGlobalOptimization = "global_optimization"
	EndpointAvailableRatios    = "available_ratios"
	EndpointApplyRatio         = "apply_ratio"
)

// FarmAPIClient talks to the farm management API.
type FarmAPIClient struct {
	BaseURL string
	Client  *http.Client
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	Attempts uint
	Delay    time.Duration

	sites *SitesCache
}

// NewFarmAPIClient creates a client from config. logger and m may be nil.
func NewFarmAPIClient(cfg config.FarmAPIConfig, cacheCfg config.CacheConfig, logger *zap.Logger, m *metrics.Metrics) *FarmAPIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	attempts := cfg.RetryAttempts
	if attempts == 0 {
		attempts = 1
	}
	return &FarmAPIClient{
		BaseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		Client:   &http.Client{Timeout: timeout},
		Logger:   logger,
		Metrics:  m,
		Attempts: attempts,
		Delay:    cfg.RetryDelay,
		sites:    NewSitesCache(cacheCfg.SitesSize, cacheCfg.SitesTTL),
	}
}

// APIError represents a non-2xx answer from the farm API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string // For rate limit errors
}

func (e *APIError) Error() string {
	return e.Message
}

// NotFound reports whether err is a 404 from the farm API.
func NotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ListSites returns the site list, served from cache while fresh.
func (c *FarmAPIClient) ListSites(ctx context.Context) ([]model.Site, error) {
	if sites, ok := c.sites.Get(c.BaseURL); ok {
		c.Logger.Debug("sites cache hit", zap.Int("count", len(sites)))
		return sites, nil
	}
	var sites []model.Site
	if err := c.do(ctx, EndpointSites, http.MethodGet, "/sites", nil, &sites); err != nil {
		return nil, err
	}
	c.sites.Set(c.BaseURL, sites)
	return sites, nil
}

// InvalidateSites drops the cached site list.
func (c *FarmAPIClient) InvalidateSites() {
	c.sites.Purge()
}

// GetSiteSummary is never cached: ratios change whenever one is applied.
func (c *FarmAPIClient) GetSiteSummary(ctx context.Context, siteID int) (*model.SiteSummary, error) {
	var summary model.SiteSummary
	path := fmt.Sprintf("/sites/%d/summary", siteID)
	if err := c.do(ctx, EndpointSiteSummary, http.MethodGet, path, nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *FarmAPIClient) RunGlobalOptimization(ctx context.Context, siteID int) (*model.OptimizationRun, error) {
	var run model.OptimizationRun
	path := fmt.Sprintf("/sites/%d/global-optimization", siteID)
	if err := c.do(ctx, EndpointGlobalOptimization, http.MethodPost, path, nil, &run); err != nil {
		return nil, err
	}
	if run.SiteID == 0 {
		run.SiteID = siteID
	}
	return &run, nil
}

func (c *FarmAPIClient) GetMachineAvailableRatios(ctx context.Context, siteID, instanceID int) (*model.AvailableRatios, error) {
	var out model.AvailableRatios
	path := fmt.Sprintf("/sites/%d/machines/%d/available-ratios", siteID, instanceID)
	if err := c.do(ctx, EndpointAvailableRatios, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApplyMachineRatio sets a machine's ratio upstream. The response body is ignored;
// callers reload the site summary afterwards.
func (c *FarmAPIClient) ApplyMachineRatio(ctx context.Context, siteID, instanceID int, req model.ApplyRatioRequest) error {
	if req.Ratio <= 0 {
		return &APIError{StatusCode: http.StatusBadRequest, Code: "BAD_REQUEST", Message: "ratio must be > 0"}
	}
	path := fmt.Sprintf("/sites/%d/machines/%d/apply-ratio", siteID, instanceID)
	return c.do(ctx, EndpointApplyRatio, http.MethodPost, path, req, nil)
}

// do executes one logical request. Transport failures and 5xx are retried,
// anything else is returned as is.
func (c *FarmAPIClient) do(ctx context.Context, endpoint, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		payload = raw
	}

	attempt := 0
	return retry.Do(
		func() error {
			attempt++
			err := c.once(ctx, endpoint, method, path, payload, out)
			if err == nil {
				return nil
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
				return retry.Unrecoverable(err)
			}
			c.Logger.Warn("farm API request failed",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		},
		retry.Context(ctx),
		retry.Attempts(c.Attempts),
		retry.Delay(c.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

func (c *FarmAPIClient) once(ctx context.Context, endpoint, method, path string, payload []byte, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.Logger.Debug("farm API request", zap.String("method", method), zap.String("path", path))

	start := time.Now()
	resp, err := c.Client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.Metrics.ObserveUpstream(endpoint, "error", elapsed)
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()
	c.Metrics.ObserveUpstream(endpoint, strconv.Itoa(resp.StatusCode), elapsed)

	c.Logger.Info("farm API response",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", elapsed))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode %s response", endpoint)
	}
	return nil
}

// newAPIError maps a failed response. FastAPI-style {"detail": "..."} bodies
// provide the message when present.
func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Detail interface{} `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if s, ok := body.Detail.(string); ok {
			apiErr.Message = s
		}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		apiErr.Code = "NOT_FOUND"
	case resp.StatusCode == http.StatusTooManyRequests:
		apiErr.Code = "RATE_LIMIT_EXCEEDED"
		apiErr.RetryAfter = resp.Header.Get("Retry-After")
	case resp.StatusCode >= 500:
		apiErr.Code = "UPSTREAM_ERROR"
	default:
		apiErr.Code = "BAD_REQUEST"
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("farm API returned status %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return apiErr
}
