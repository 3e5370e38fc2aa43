package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/finsight/internal/api/handlers"
	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/index"
	"github.com/cloo-solutions/finsight/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testRouterKey = "fin_0123456789abcdef0123456789abcdef"

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) Ingest(ctx context.Context, doc *domain.Document) (*service.IngestResult, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

func (m *MockIngestService) IngestBatch(ctx context.Context, docs []*domain.Document) ([]*service.IngestResult, error) {
	args := m.Called(ctx, docs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*service.IngestResult), args.Error(1)
}

func (m *MockIngestService) IndexStats(ctx context.Context) (index.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(index.Stats), args.Error(1)
}

type MockInsightService struct {
	mock.Mock
}

func (m *MockInsightService) Answer(ctx context.Context, input service.AnswerInput) (*domain.Insight, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Insight), args.Error(1)
}

type MockSymbolService struct {
	mock.Mock
}

func (m *MockSymbolService) List(ctx context.Context, input service.ListSymbolsInput) (*service.ListSymbolsOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListSymbolsOutput), args.Error(1)
}

func (m *MockSymbolService) Risk(ctx context.Context, input service.RiskInput) (*service.RiskOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RiskOutput), args.Error(1)
}

func (m *MockSymbolService) Series(ctx context.Context, input service.SeriesInput) (*domain.PriceSeries, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PriceSeries), args.Error(1)
}

type MockRefreshService struct {
	mock.Mock
}

func (m *MockRefreshService) Refresh(ctx context.Context, symbol string, since time.Time) (*service.RefreshResult, error) {
	args := m.Called(ctx, symbol, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RefreshResult), args.Error(1)
}

func setupRouter(apiKey string) (http.Handler, *MockIngestService, *MockInsightService, *MockSymbolService, *MockRefreshService) {
	ingestSvc := new(MockIngestService)
	insightSvc := new(MockInsightService)
	symbolSvc := new(MockSymbolService)
	refreshSvc := new(MockRefreshService)

	cfg := RouterConfig{
		APIKey:          apiKey,
		DocumentHandler: handlers.NewDocumentHandler(ingestSvc),
		InsightHandler:  handlers.NewInsightHandler(insightSvc),
		SymbolHandler:   handlers.NewSymbolHandler(symbolSvc, refreshSvc),
	}

	router := NewRouter(cfg)
	return router, ingestSvc, insightSvc, symbolSvc, refreshSvc
}

// decodeData unwraps the {"data": ...} envelope of a recorded response.
func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _, _, _ := setupRouter(testRouterKey)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeData(t, w)["status"])
}

func TestRouter_V1Routes_RequireAuth(t *testing.T) {
	router, _, _, _, _ := setupRouter(testRouterKey)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/documents"},
		{http.MethodGet, "/v1/index/stats"},
		{http.MethodPost, "/v1/insights"},
		{http.MethodGet, "/v1/symbols"},
		{http.MethodGet, "/v1/symbols/AAPL/risk"},
		{http.MethodGet, "/v1/symbols/AAPL/series"},
		{http.MethodPost, "/v1/symbols/AAPL/refresh"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouter_V1Routes_WithValidAuth(t *testing.T) {
	router, _, _, symbolSvc, _ := setupRouter(testRouterKey)

	firstDay := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	lastDay := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	symbolSvc.On("List", mock.Anything, service.ListSymbolsInput{}).Return(&service.ListSymbolsOutput{
		Items: []domain.SymbolInfo{
			{Symbol: "AAPL", Bars: 120, FirstDay: firstDay, LastDay: lastDay},
		},
		HasMore: false,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/symbols", nil)
	req.Header.Set("Authorization", "Bearer "+testRouterKey)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	symbolSvc.AssertExpectations(t)
}

func TestRouter_NoAPIKeyConfigured_OpenAccess(t *testing.T) {
	router, ingestSvc, _, _, _ := setupRouter("")

	ingestSvc.On("IndexStats", mock.Anything).Return(index.Stats{Entries: 42, Symbols: 3, Dimension: 256}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/index/stats", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(42), decodeData(t, w)["entries"])
	ingestSvc.AssertExpectations(t)
}
