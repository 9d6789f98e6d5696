package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"farm-dashboard/internal/analysis"
	"farm-dashboard/internal/api/models"
	"farm-dashboard/internal/data"
	"farm-dashboard/internal/metrics"
	"farm-dashboard/internal/model"
	"farm-dashboard/internal/projection"
	"farm-dashboard/internal/session"
)

type mockFarmAPI struct {
	mock.Mock
}

func (m *mockFarmAPI) ListSites(ctx context.Context) ([]model.Site, error) {
	args := m.Called(ctx)
	sites, _ := args.Get(0).([]model.Site)
	return sites, args.Error(1)
}

func (m *mockFarmAPI) GetSiteSummary(ctx context.Context, siteID int) (*model.SiteSummary, error) {
	args := m.Called(ctx, siteID)
	s, _ := args.Get(0).(*model.SiteSummary)
	return s, args.Error(1)
}

func (m *mockFarmAPI) RunGlobalOptimization(ctx context.Context, siteID int) (*model.OptimizationRun, error) {
	args := m.Called(ctx, siteID)
	r, _ := args.Get(0).(*model.OptimizationRun)
	return r, args.Error(1)
}

func (m *mockFarmAPI) GetMachineAvailableRatios(ctx context.Context, siteID, instanceID int) (*model.AvailableRatios, error) {
	args := m.Called(ctx, siteID, instanceID)
	r, _ := args.Get(0).(*model.AvailableRatios)
	return r, args.Error(1)
}

func (m *mockFarmAPI) ApplyMachineRatio(ctx context.Context, siteID, instanceID int, req model.ApplyRatioRequest) error {
	return m.Called(ctx, siteID, instanceID, req).Error(0)
}

type fixture struct {
	api     *mockFarmAPI
	state   *session.State
	metrics *metrics.Metrics
	router  *gin.Engine
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)
	f := &fixture{
		api:     &mockFarmAPI{},
		state:   session.New(8, time.Hour),
		metrics: metrics.New(),
	}
	sites := NewSiteHandler(f.api, nil)
	opt := NewOptimizationHandler(f.api, f.state, f.metrics, nil)
	opt.now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }

	r := gin.New()
	r.GET("/sites", sites.ListSites)
	r.GET("/sites/:site_id/summary", sites.GetSummary)
	r.GET("/sites/:site_id/machines/:instance_id/available-ratios", sites.AvailableRatios)
	r.POST("/sites/:site_id/machines/:instance_id/apply-ratio", sites.ApplyRatio)
	r.POST("/sites/:site_id/global-optimization", opt.Run)
	r.DELETE("/sites/:site_id/global-optimization", opt.Close)
	r.GET("/sites/:site_id/global-optimization/projection", opt.Projection)
	r.GET("/sites/:site_id/global-optimization/export", opt.Export)
	f.router = r
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func threeMachineRun() *model.OptimizationRun {
	return &model.OptimizationRun{
		SiteName:           "North Farm",
		CombinationsTested: 3,
		BestProfit:         10,
		BestCombination:    map[string]float64{"0": 1.0, "1": 0.8, "2": 0.9},
		Results: model.RunResults{
			TotalHashrate: 300,
			TotalPower:    9000,
			MachinePerformances: []model.MachinePerformance{
				{Name: "A", Ratio: 1.0, Hashrate: 100, Power: 3000},
				{Name: "B", Ratio: 0.8, Hashrate: 90, Power: 2800},
				{Name: "C", Ratio: 0.9, Hashrate: 110, Power: 3200},
			},
		},
		AllResults: []model.Combination{
			{Ratios: []float64{1.0, 0.8, 0.9}, DailyProfit: 10, TotalHashrate: 300, TotalPower: 9000},
			{Ratios: []float64{0.5, 0.5, 0.5}, DailyProfit: 2, TotalHashrate: 150, TotalPower: 4500},
			{Ratios: []float64{0.8, 1.0, 1.0}, DailyProfit: 8, TotalHashrate: 280, TotalPower: 8800},
		},
	}
}

func northSummary() *model.SiteSummary {
	return &model.SiteSummary{
		SiteName: "North Farm",
		Machines: []model.MachineSummary{
			{InstanceID: 1, Name: "A", CurrentRatio: model.Ratio(1.0), OptimalRatio: model.Ratio(1.0), RatioType: model.RatioTypeOptimal},
			{InstanceID: 2, Name: "B", CurrentRatio: model.Ratio(1.2), OptimalRatio: model.Ratio(0.8), RatioType: model.RatioTypeOptimal},
		},
	}
}

func TestRun(t *testing.T) {
	f := newFixture()
	f.api.On("RunGlobalOptimization", mock.Anything, 1).Return(threeMachineRun(), nil).Once()
	f.api.On("GetSiteSummary", mock.Anything, 1).Return(northSummary(), nil).Once()

	w := f.do(http.MethodPost, "/sites/1/global-optimization", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[models.OptimizationResponse](t, w)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, 1, resp.SiteID)
	assert.Equal(t, "North Farm", resp.SiteName)
	assert.Equal(t, 3, resp.CombinationsTested)
	assert.Equal(t, []float64{1.0, 0.8, 0.9}, resp.BestCombination)
	assert.False(t, resp.Synthetic)
	assert.Equal(t, 2.0, resp.Stats.Min)
	assert.Equal(t, 10.0, resp.Stats.Max)

	require.Len(t, resp.SweetSpots, 1)
	assert.Equal(t, 0, resp.SweetSpots[0].Index)

	require.NotNil(t, resp.Projection)
	assert.True(t, resp.Projection.Selectable)
	assert.Equal(t, projection.DefaultAxes, resp.Projection.Axes)
	assert.Equal(t, 0, resp.Projection.OptimalIndex)

	require.NotNil(t, resp.Summary)
	require.Len(t, resp.Summary.Machines, 2)
	assert.Equal(t, analysis.CategoryNominal, resp.Summary.Machines[0].Classification.Category)
	assert.Equal(t, analysis.CategoryStaleOptimal, resp.Summary.Machines[1].Classification.Category)

	cur, err := f.state.Current(1)
	require.NoError(t, err)
	assert.Equal(t, resp.RunID, cur.ID.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OptimizationRuns.WithLabelValues(metrics.OutcomeOK)))
	f.api.AssertExpectations(t)
}

func TestRun_SummaryReloadFailureStillReturnsRun(t *testing.T) {
	f := newFixture()
	f.api.On("RunGlobalOptimization", mock.Anything, 1).Return(threeMachineRun(), nil)
	f.api.On("GetSiteSummary", mock.Anything, 1).Return(nil, &data.APIError{StatusCode: 503, Code: "UPSTREAM_ERROR", Message: "down"})

	w := f.do(http.MethodPost, "/sites/1/global-optimization", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.OptimizationResponse](t, w)
	assert.Nil(t, resp.Summary)
}

func TestRun_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"server error", &data.APIError{StatusCode: 500, Code: "UPSTREAM_ERROR", Message: "boom"}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"not found", &data.APIError{StatusCode: 404, Code: "NOT_FOUND", Message: "Site not found"}, http.StatusNotFound, "NOT_FOUND"},
		{"transport", context.DeadlineExceeded, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.api.On("RunGlobalOptimization", mock.Anything, 2).Return(nil, tt.err)

			w := f.do(http.MethodPost, "/sites/2/global-optimization", "")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode[models.ErrorResponse](t, w).Error.Code)

			_, err := f.state.Current(2)
			assert.ErrorIs(t, err, session.ErrNoRun)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OptimizationRuns.WithLabelValues(metrics.OutcomeError)))
			f.api.AssertNotCalled(t, "GetSiteSummary", mock.Anything, mock.Anything)
		})
	}
}

func TestRun_EmptyRunIsBadGateway(t *testing.T) {
	f := newFixture()
	f.api.On("RunGlobalOptimization", mock.Anything, 1).Return(&model.OptimizationRun{SiteName: "x"}, nil)

	w := f.do(http.MethodPost, "/sites/1/global-optimization", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "INVALID_OPTIMIZATION_RESULT", decode[models.ErrorResponse](t, w).Error.Code)
}

func TestRun_SupersededResultIsDropped(t *testing.T) {
	f := newFixture()
	older := threeMachineRun()
	older.SiteName = "older"
	f.api.On("RunGlobalOptimization", mock.Anything, 1).
		Run(func(mock.Arguments) {
			// a second click lands while the first request is still running
			f.state.Begin(1)
		}).
		Return(older, nil).Once()

	w := f.do(http.MethodPost, "/sites/1/global-optimization", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "STALE_OPTIMIZATION", decode[models.ErrorResponse](t, w).Error.Code)

	_, err := f.state.Current(1)
	assert.ErrorIs(t, err, session.ErrNoRun)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.StaleResults))
}

func TestProjection(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodGet, "/sites/1/global-optimization/projection", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NO_OPTIMIZATION_RUN", decode[models.ErrorResponse](t, w).Error.Code)

	f.api.On("RunGlobalOptimization", mock.Anything, 1).Return(threeMachineRun(), nil)
	f.api.On("GetSiteSummary", mock.Anything, 1).Return(northSummary(), nil)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/sites/1/global-optimization", "").Code)

	// colliding selection: Y advances past X
	w = f.do(http.MethodGet, "/sites/1/global-optimization/projection?x=2&y=2", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p := decode[projection.Projection](t, w)
	assert.Equal(t, projection.AxisSelection{X: 2, Y: 0}, p.Axes)
	assert.Equal(t, []float64{0.9, 0.5, 1.0}, p.X)
	assert.Equal(t, "Ratio C", p.XAxis.Label)

	// remembered for the next request
	w = f.do(http.MethodGet, "/sites/1/global-optimization/projection", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, projection.AxisSelection{X: 2, Y: 0}, decode[projection.Projection](t, w).Axes)

	w = f.do(http.MethodGet, "/sites/1/global-optimization/projection?x=5", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_AXIS", decode[models.ErrorResponse](t, w).Error.Code)

	w = f.do(http.MethodGet, "/sites/1/global-optimization/projection?x=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjection_SingleMachine(t *testing.T) {
	f := newFixture()
	profit := 3.5
	f.api.On("RunGlobalOptimization", mock.Anything, 1).Return(&model.OptimizationRun{
		SiteName:   "Solo",
		BestProfit: 3.5,
		Results: model.RunResults{
			TotalHashrate:       100,
			TotalPower:          3000,
			DailyProfit:         &profit,
			MachinePerformances: []model.MachinePerformance{{Name: "A", Ratio: 1, Hashrate: 100, Power: 3000}},
		},
	}, nil)
	f.api.On("GetSiteSummary", mock.Anything, 1).Return(northSummary(), nil)

	w := f.do(http.MethodPost, "/sites/1/global-optimization", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.OptimizationResponse](t, w)
	assert.True(t, resp.Synthetic)
	assert.Nil(t, resp.Projection)

	w = f.do(http.MethodGet, "/sites/1/global-optimization/projection", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "TOO_FEW_MACHINES", decode[models.ErrorResponse](t, w).Error.Code)
}

func TestExportAndClose(t *testing.T) {
	f := newFixture()
	f.api.On("RunGlobalOptimization", mock.Anything, 1).Return(threeMachineRun(), nil)
	f.api.On("GetSiteSummary", mock.Anything, 1).Return(northSummary(), nil)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/sites/1/global-optimization", "").Code)

	w := f.do(http.MethodGet, "/sites/1/global-optimization/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="global_optimization_North_Farm_2024-03-09.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Combination,Ratio_A,Ratio_B,Ratio_C,Profit_Total,Hashrate_Total,Power_Total", lines[0])
	assert.Equal(t, "OPTIMAL,1.000,0.800,0.900,10.0000,300.00,9000", lines[1])
	assert.Equal(t, "Test_2,0.800,1.000,1.000,8.0000,280.00,8800", lines[2])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Exports))

	w = f.do(http.MethodDelete, "/sites/1/global-optimization", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"site_id":1,"discarded":true}`, w.Body.String())

	w = f.do(http.MethodGet, "/sites/1/global-optimization/export", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListSites(t *testing.T) {
	f := newFixture()
	f.api.On("ListSites", mock.Anything).Return([]model.Site{{ID: 1, Name: "North Farm"}}, nil)

	w := f.do(http.MethodGet, "/sites", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.SitesResponse](t, w)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "North Farm", resp.Sites[0].Name)
}

func TestGetSummary(t *testing.T) {
	f := newFixture()
	f.api.On("GetSiteSummary", mock.Anything, 3).Return(northSummary(), nil)

	w := f.do(http.MethodGet, "/sites/3/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.SiteSummaryResponse](t, w)
	assert.Equal(t, 3, resp.SiteID)
	assert.Equal(t, "1.200", resp.Machines[1].CurrentRatioDisplay)
	assert.Equal(t, analysis.EmphasisWarning, resp.Machines[1].Classification.Emphasis)

	w = f.do(http.MethodGet, "/sites/abc/summary", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PARAM", decode[models.ErrorResponse](t, w).Error.Code)
}

func TestAvailableRatios(t *testing.T) {
	f := newFixture()
	f.api.On("GetMachineAvailableRatios", mock.Anything, 1, 7).Return(&model.AvailableRatios{
		CurrentRatio:     1,
		CurrentRatioType: model.RatioTypeNominal,
		Ratios:           []float64{0.8, 0.9, 1.0},
	}, nil)

	w := f.do(http.MethodGet, "/sites/1/machines/7/available-ratios", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[model.AvailableRatios](t, w).Ratios, 3)
}

func TestApplyRatio(t *testing.T) {
	f := newFixture()
	f.api.On("ApplyMachineRatio", mock.Anything, 1, 7, model.ApplyRatioRequest{Ratio: 0.9, RatioType: model.RatioTypeManual}).Return(nil).Once()
	f.api.On("GetSiteSummary", mock.Anything, 1).Return(northSummary(), nil).Once()

	w := f.do(http.MethodPost, "/sites/1/machines/7/apply-ratio", `{"ratio": 0.9}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[models.SiteSummaryResponse](t, w).Machines, 2)
	f.api.AssertExpectations(t)
}

func TestApplyRatio_InvalidBody(t *testing.T) {
	f := newFixture()
	for _, body := range []string{`{}`, `{"ratio": -1}`, `{"ratio": 1, "ratio_type": "turbo"}`, `not json`} {
		w := f.do(http.MethodPost, "/sites/1/machines/7/apply-ratio", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	f.api.AssertNotCalled(t, "ApplyMachineRatio", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
