package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "ejiview/internal/errors"
	"ejiview/internal/repository"
	"ejiview/internal/scale"
	"ejiview/internal/schema"
	"ejiview/internal/services"
	"ejiview/pkg/contracts/domain"
)

// MockDataService is a mock implementation of DataServiceInterface
type MockDataService struct {
	mock.Mock
}

func (m *MockDataService) Sources(ctx context.Context) ([]services.SourceSummary, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.SourceSummary), args.Error(1)
}

func (m *MockDataService) Table(ctx context.Context, source string) (*domain.NormalizedTable, error) {
	args := m.Called(source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NormalizedTable), args.Error(1)
}

func (m *MockDataService) Keys(ctx context.Context, source string, all bool) ([]string, error) {
	args := m.Called(source, all)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDataService) Entity(ctx context.Context, source, key string, mode repository.MatchMode) (services.EntityView, error) {
	args := m.Called(source, key, mode)
	return args.Get(0).(services.EntityView), args.Error(1)
}

func (m *MockDataService) Compare(ctx context.Context, req services.CompareRequest) (domain.ComparisonRecord, error) {
	args := m.Called(req)
	return args.Get(0).(domain.ComparisonRecord), args.Error(1)
}

func (m *MockDataService) Catalog(ctx context.Context) services.Catalog {
	return m.Called().Get(0).(services.Catalog)
}

func (m *MockDataService) Scale() []scale.Band {
	return m.Called().Get(0).([]scale.Band)
}

func (m *MockDataService) Reload(ctx context.Context) (services.ReloadResult, error) {
	args := m.Called()
	return args.Get(0).(services.ReloadResult), args.Error(1)
}

func newTestHandler(svc *MockDataService) http.Handler {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	h := NewDataHandler(svc, logger, apierrors.NewErrorHandler(logger, false))
	r := h.Routes()
	r.Post("/reload", h.Reload)
	return r
}

func serve(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func sampleComparison() domain.ComparisonRecord {
	return domain.ComparisonRecord{
		EntityA: domain.EntityRef{Key: "Bernalillo County", Source: "county"},
		EntityB: domain.EntityRef{Key: "United States", Source: "national"},
		Metrics: []domain.Metric{domain.MetricOverall, domain.MetricSocialVulnerability},
		Pairs: []domain.Pair{
			{Metric: domain.MetricOverall, A: domain.Number(0.72), B: domain.Number(0.5)},
			{Metric: domain.MetricSocialVulnerability, A: domain.Missing, B: domain.Number(0.5)},
		},
		Table: []domain.TableRow{
			{Entity: "Bernalillo County", Values: []domain.Value{domain.Number(0.72), domain.Missing}},
			{Entity: "United States", Values: []domain.Value{domain.Number(0.5), domain.Number(0.5)}},
		},
		Series: domain.Series{
			Labels: []string{"Overall EJI", "Social Vulnerability"},
			A:      []domain.Value{domain.Number(0.72), domain.Missing},
			B:      []domain.Value{domain.Number(0.5), domain.Number(0.5)},
		},
	}
}

func TestDataHandler_GetSources(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockDataService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "sources listed",
			setupMock: func(m *MockDataService) {
				m.On("Sources").Return([]services.SourceSummary{
					{Name: "county", KeyColumn: "COUNTY", Rows: 3, Metrics: []domain.Metric{domain.MetricOverall}},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"key_column":"COUNTY"`,
		},
		{
			name: "nothing loaded",
			setupMock: func(m *MockDataService) {
				m.On("Sources").Return(nil, services.ErrNoSources)
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `"NO_DATA"`,
		},
		{
			name: "internal error",
			setupMock: func(m *MockDataService) {
				m.On("Sources").Return(nil, errors.New("boom"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"Internal Server Error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDataService)
			tt.setupMock(svc)

			rec := serve(newTestHandler(svc), http.MethodGet, "/sources", "")

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}

func TestDataHandler_GetEntity(t *testing.T) {
	view := services.EntityView{
		EntityRecord: domain.NewEntityRecord("county", "Taos County", map[domain.Metric]domain.Value{
			domain.MetricOverall: domain.Number(0.38),
		}),
		Bands: map[domain.Metric]scale.Band{domain.MetricOverall: scale.Bands()[1]},
	}

	tests := []struct {
		name           string
		target         string
		setupMock      func(*MockDataService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "exact match",
			target: "/sources/county/entities/Taos%20County",
			setupMock: func(m *MockDataService) {
				m.On("Entity", "county", "Taos County", repository.MatchExact).Return(view, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"level":"moderate"`,
		},
		{
			name:   "normalized match",
			target: "/sources/county/entities/taos%20county?match=normalized",
			setupMock: func(m *MockDataService) {
				m.On("Entity", "county", "taos county", repository.MatchNormalized).Return(view, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"entity_key":"Taos County"`,
		},
		{
			name:           "bad match mode",
			target:         "/sources/county/entities/Taos%20County?match=fuzzy",
			setupMock:      func(m *MockDataService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"VALIDATION_FAILED"`,
		},
		{
			name:   "entity not found",
			target: "/sources/county/entities/Nowhere",
			setupMock: func(m *MockDataService) {
				m.On("Entity", "county", "Nowhere", repository.MatchExact).
					Return(services.EntityView{}, services.ErrEntityNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"ENTITY_NOT_FOUND"`,
		},
		{
			name:   "source not found",
			target: "/sources/tract/entities/Nowhere",
			setupMock: func(m *MockDataService) {
				m.On("Entity", "tract", "Nowhere", repository.MatchExact).
					Return(services.EntityView{}, services.ErrSourceNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"SOURCE_NOT_FOUND"`,
		},
		{
			name:   "duplicate key",
			target: "/sources/county/entities/luna?match=normalized",
			setupMock: func(m *MockDataService) {
				m.On("Entity", "county", "luna", repository.MatchNormalized).
					Return(services.EntityView{}, schema.DuplicateKeyError("county", "luna"))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `duplicate-key`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDataService)
			tt.setupMock(svc)

			rec := serve(newTestHandler(svc), http.MethodGet, tt.target, "")

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}

func TestDataHandler_GetEntities(t *testing.T) {
	svc := new(MockDataService)
	svc.On("Keys", "county", true).Return([]string{"Bernalillo County", "Taos County"}, nil)

	rec := serve(newTestHandler(svc), http.MethodGet, "/sources/county/entities?all=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, []interface{}{"Bernalillo County", "Taos County"}, body["data"])

	rec = serve(newTestHandler(svc), http.MethodGet, "/sources/county/entities?all=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDataHandler_GetTable(t *testing.T) {
	svc := new(MockDataService)
	svc.On("Table", "state").Return(&domain.NormalizedTable{
		Source:    "state",
		KeyColumn: "State",
		Metrics:   []domain.Metric{domain.MetricOverall},
		Rows: []domain.NormalizedRow{
			{EntityKey: "New Mexico", Values: map[domain.Metric]domain.Value{domain.MetricOverall: domain.Number(0.71)}},
		},
	}, nil)

	rec := serve(newTestHandler(svc), http.MethodGet, "/sources/state/table", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"OVERALL":0.71`)
	assert.Contains(t, rec.Body.String(), `"entity_key":"New Mexico"`)
}

func TestDataHandler_Compare(t *testing.T) {
	want := services.CompareRequest{A: "Bernalillo County", ASource: "county", B: "United States", BSource: "national"}

	t.Run("GET", func(t *testing.T) {
		svc := new(MockDataService)
		svc.On("Compare", want).Return(sampleComparison(), nil)

		rec := serve(newTestHandler(svc), http.MethodGet,
			"/compare?a=Bernalillo+County&a_source=county&b=United+States&b_source=national", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		data := decode(t, rec)["data"].(map[string]interface{})
		assert.Equal(t, []interface{}{"OVERALL", "SOCIAL_VULNERABILITY"}, data["metrics"])
		pairs := data["pairs"].([]interface{})
		assert.Nil(t, pairs[1].(map[string]interface{})["a"], "missing encodes as null")
	})

	t.Run("POST", func(t *testing.T) {
		svc := new(MockDataService)
		normalized := want
		normalized.Mode = repository.MatchNormalized
		svc.On("Compare", normalized).Return(sampleComparison(), nil)

		rec := serve(newTestHandler(svc), http.MethodPost, "/compare",
			`{"a":"Bernalillo County","a_source":"county","b":"United States","b_source":"national","match":"normalized"}`)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("missing fields", func(t *testing.T) {
		svc := new(MockDataService)
		rec := serve(newTestHandler(svc), http.MethodGet, "/compare?a=Bernalillo+County", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "a_source is required")
		svc.AssertNotCalled(t, "Compare", mock.Anything)
	})

	t.Run("unknown body field", func(t *testing.T) {
		svc := new(MockDataService)
		rec := serve(newTestHandler(svc), http.MethodPost, "/compare",
			`{"a":"x","a_source":"county","b":"y","b_source":"county","colour":"red"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong content type", func(t *testing.T) {
		svc := new(MockDataService)
		req := httptest.NewRequest(http.MethodPost, "/compare", strings.NewReader("a=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		newTestHandler(svc).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("entity missing", func(t *testing.T) {
		svc := new(MockDataService)
		svc.On("Compare", mock.Anything).Return(domain.ComparisonRecord{}, services.ErrEntityNotFound)
		rec := serve(newTestHandler(svc), http.MethodGet, "/compare?a=x&a_source=county&b=y&b_source=county", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), `"ENTITY_NOT_FOUND"`)
	})
}

func TestDataHandler_ExportCompare(t *testing.T) {
	const query = "a=Bernalillo+County&a_source=county&b=United+States&b_source=national"

	t.Run("csv", func(t *testing.T) {
		svc := new(MockDataService)
		svc.On("Compare", mock.Anything).Return(sampleComparison(), nil)

		rec := serve(newTestHandler(svc), http.MethodGet, "/compare/export?"+query, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, contentTypeCSV, rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="eji_Bernalillo_County_vs_United_States.csv"`, rec.Header().Get("Content-Disposition"))
		assert.True(t, strings.HasPrefix(rec.Body.String(), "\ufeff"))
		assert.Contains(t, rec.Body.String(), "Bernalillo County")
	})

	t.Run("xlsx", func(t *testing.T) {
		svc := new(MockDataService)
		svc.On("Compare", mock.Anything).Return(sampleComparison(), nil)

		rec := serve(newTestHandler(svc), http.MethodGet, "/compare/export?format=xlsx&"+query, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"), "xlsx is a zip archive")
	})

	t.Run("unknown format", func(t *testing.T) {
		svc := new(MockDataService)
		rec := serve(newTestHandler(svc), http.MethodGet, "/compare/export?format=pdf&"+query, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDataHandler_Reload(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{name: "success", expectedStatus: http.StatusOK, expectedBody: `"loaded_at"`},
		{name: "in progress", err: services.ErrReloadInProgress, expectedStatus: http.StatusConflict, expectedBody: `"RELOAD_IN_PROGRESS"`},
		{name: "source down", err: apierrors.NewSourceError("county", "fetch failed", errors.New("dial tcp")), expectedStatus: http.StatusBadGateway, expectedBody: `"SOURCE"`},
		{name: "plain failure", err: errors.New("disk full"), expectedStatus: http.StatusInternalServerError, expectedBody: `"RELOAD_FAILED"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDataService)
			result := services.ReloadResult{LoadedAt: time.Now(), Sources: []services.SourceSummary{{Name: "county"}}}
			if tt.err != nil {
				result = services.ReloadResult{}
			}
			svc.On("Reload").Return(result, tt.err)

			rec := serve(newTestHandler(svc), http.MethodPost, "/reload", "")
			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
		})
	}
}

func TestDataHandler_ReferenceData(t *testing.T) {
	svc := new(MockDataService)
	svc.On("Catalog").Return(services.Catalog{Metrics: domain.Catalog(), AliasVersion: "2024.1"})
	svc.On("Scale").Return(scale.Bands())
	h := newTestHandler(svc)

	rec := serve(h, http.MethodGet, "/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alias_version":"2024.1"`)

	rec = serve(h, http.MethodGet, "/scale", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(4), decode(t, rec)["count"])
}
