package data

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/h2non/gock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farm-dashboard/internal/config"
	"farm-dashboard/internal/metrics"
	"farm-dashboard/internal/model"
)

const farmHost = "http://farm.test"

func newTestClient(m *metrics.Metrics) *FarmAPIClient {
	return NewFarmAPIClient(
		config.FarmAPIConfig{BaseURL: farmHost + "/api/v1/", Timeout: 5 * time.Second, RetryAttempts: 3},
		config.CacheConfig{SitesSize: 4, SitesTTL: time.Minute},
		nil, m,
	)
}

func TestListSites_Cached(t *testing.T) {
	defer gock.Off()

	gock.New(farmHost).
		Get("/api/v1/sites").
		Reply(http.StatusOK).
		JSON([]map[string]interface{}{
			{"id": 1, "name": "North"},
			{"id": 2, "name": "South", "electricity_tier1_rate": 0.08},
		})

	c := newTestClient(nil)
	sites, err := c.ListSites(context.Background())
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "South", sites[1].Name)
	assert.Equal(t, 0.08, sites[1].ElectricityTier1Rate)

	// second call must not hit the network: the only mock is consumed
	again, err := c.ListSites(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sites, again)
	assert.True(t, gock.IsDone())

	c.InvalidateSites()
	_, err = c.ListSites(context.Background())
	assert.Error(t, err)
}

func TestGetSiteSummary(t *testing.T) {
	defer gock.Off()

	gock.New(farmHost).
		Get("/api/v1/sites/3/summary").
		Reply(http.StatusOK).
		BodyString(`{
			"site_name": "North",
			"electricity_tier1_rate": 0.07,
			"machines": [
				{"instance_id": 10, "name": "S19", "current_ratio": 1.0, "optimal_ratio": null, "ratio_type": "nominal"},
				{"instance_id": 11, "name": "S21", "current_ratio": 0.9, "optimal_ratio": 0.9, "ratio_type": "optimal"}
			],
			"total_profit": 12.5
		}`)

	summary, err := newTestClient(nil).GetSiteSummary(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "North", summary.SiteName)
	require.Len(t, summary.Machines, 2)
	assert.Nil(t, summary.Machines[0].OptimalRatio)
	assert.Equal(t, model.RatioTypeOptimal, summary.Machines[1].RatioType)
	assert.Equal(t, 0.9, *summary.Machines[1].OptimalRatio)
}

func TestRunGlobalOptimization_RetriesServerErrors(t *testing.T) {
	defer gock.Off()

	gock.New(farmHost).
		Post("/api/v1/sites/7/global-optimization").
		Reply(http.StatusBadGateway)
	gock.New(farmHost).
		Post("/api/v1/sites/7/global-optimization").
		Reply(http.StatusOK).
		BodyString(`{
			"site_name": "East",
			"combinations_tested": 2,
			"best_profit": 5.5,
			"best_combination": {"0": 1.0, "1": 0.8},
			"results": {"total_hashrate": 200, "total_power": 6000, "machine_performances": [
				{"name": "A", "ratio": 1.0, "hashrate": 100, "power": 3000},
				{"name": "B", "ratio": 0.8, "hashrate": 100, "power": 3000}
			]},
			"all_results": [
				{"combination": [1.0, 0.8], "daily_profit": 5.5, "total_hashrate": 200, "total_power": 6000},
				{"combination": [0.5, 0.5], "daily_profit": 2.0, "total_hashrate": 120, "total_power": 3500}
			]
		}`)

	m := metrics.New()
	run, err := newTestClient(m).RunGlobalOptimization(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, run.SiteID)
	assert.Equal(t, "East", run.SiteName)
	assert.Len(t, run.AllResults, 2)
	assert.Equal(t, []float64{1.0, 0.8}, run.BestRatios())
	assert.True(t, gock.IsDone())

	// one series per status seen: 502 then 200
	assert.Equal(t, 2, testutil.CollectAndCount(m.UpstreamDuration))
}

func TestRunGlobalOptimization_GivesUp(t *testing.T) {
	defer gock.Off()

	gock.New(farmHost).
		Post("/api/v1/sites/7/global-optimization").
		Times(3).
		Reply(http.StatusInternalServerError).
		JSON(map[string]string{"detail": "optimizer crashed"})

	_, err := newTestClient(nil).RunGlobalOptimization(context.Background(), 7)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "UPSTREAM_ERROR", apiErr.Code)
	assert.Equal(t, "optimizer crashed", apiErr.Message)
	assert.True(t, gock.IsDone())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	defer gock.Off()

	gock.New(farmHost).
		Get("/api/v1/sites/99/summary").
		Reply(http.StatusNotFound).
		JSON(map[string]string{"detail": "Site not found"})

	_, err := newTestClient(nil).GetSiteSummary(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, NotFound(err))
	assert.Equal(t, "Site not found", err.Error())
	assert.True(t, gock.IsDone())
}

func TestAvailableRatiosAndApply(t *testing.T) {
	defer gock.Off()

	gock.New(farmHost).
		Get("/api/v1/sites/1/machines/10/available-ratios").
		Reply(http.StatusOK).
		JSON(map[string]interface{}{
			"current_ratio":      1.0,
			"current_ratio_type": "nominal",
			"optimal_ratio":      0.85,
			"available_ratios":   []float64{0.5, 0.75, 0.85, 1.0, 1.1},
		})
	gock.New(farmHost).
		Post("/api/v1/sites/1/machines/10/apply-ratio").
		MatchType("json").
		JSON(map[string]interface{}{"ratio": 0.85, "ratio_type": "optimal"}).
		Reply(http.StatusOK).
		JSON(map[string]string{"message": "ok"})

	c := newTestClient(nil)
	ratios, err := c.GetMachineAvailableRatios(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Len(t, ratios.Ratios, 5)
	require.NotNil(t, ratios.OptimalRatio)
	assert.Equal(t, 0.85, *ratios.OptimalRatio)

	err = c.ApplyMachineRatio(context.Background(), 1, 10, model.ApplyRatioRequest{Ratio: 0.85, RatioType: model.RatioTypeOptimal})
	require.NoError(t, err)
	assert.True(t, gock.IsDone())
}

func TestApplyMachineRatio_RejectsNonPositive(t *testing.T) {
	err := newTestClient(nil).ApplyMachineRatio(context.Background(), 1, 10, model.ApplyRatioRequest{Ratio: 0})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}
