package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/trapcam/internal/calibrate"
	"github.com/tphakala/trapcam/internal/conf"
	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/llm"
	"github.com/tphakala/trapcam/internal/observability"
	"github.com/tphakala/trapcam/internal/pipeline"
	"github.com/tphakala/trapcam/internal/taxonomy"
)

const testImage = "data:image/jpeg;base64,/9j/4AAQSkZJRg=="

const (
	stage1Lion = `{"animal_present": true, "animal_count": 1, "image_type": "daylight", "image_quality": "good",
		"visible_features": {"body_visible": true, "face_visible": true}, "proceed_to_identification": true, "stage1_confidence": 0.95}`
	stage2Lion = `{"species_id": "lion", "confidence": 0.92, "reasoning": "mane",
		"identifying_features": ["mane", "tawny coat"],
		"alternative_species": [{"species_id": "leopard", "confidence": 0.05}]}`
	stage1Empty = `{"animal_present": false, "stage1_confidence": 0.9}`
)

// fakeIdentifier returns a fixed error for every request
type fakeIdentifier struct {
	err error
}

func (f fakeIdentifier) Identify(context.Context, pipeline.Request) (*pipeline.Result, error) {
	return nil, f.err
}

func newTestPipeline(t *testing.T, gen llm.Generator) *pipeline.Pipeline {
	t.Helper()
	stations, err := taxonomy.LoadStations("")
	require.NoError(t, err)

	gw := llm.NewGateway(gen, llm.GatewayConfig{MaxRetries: 0, BaseDelay: time.Millisecond}, nil)
	return pipeline.New(taxonomy.MustLoadDefault(), stations, gw, pipeline.Config{
		Policy: calibrate.DefaultPolicy(),
	}, nil)
}

func newTestController(t *testing.T, gen llm.Generator, opts ...Option) *echo.Echo {
	t.Helper()
	settings := &conf.Settings{}
	settings.LLM.Provider = conf.ProviderStatic

	e := echo.New()
	New(e, newTestPipeline(t, gen), settings, opts...)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return rec, out
}

func TestIdentifySuccess(t *testing.T) {
	t.Parallel()
	t.Attr("component", "identify")
	t.Attr("type", "integration")

	for _, path := range []string{"/identify", "/api/v1/identify"} {
		t.Run(path, func(t *testing.T) {
			t.Parallel()
			e := newTestController(t, llm.NewStatic(stage1Lion, stage2Lion))

			rec, body := doJSON(t, e, http.MethodPost, path,
				`{"image": "`+testImage+`", "station": "Gate-Waterhole"}`)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, true, body["success"])
			assert.Equal(t, "lion", body["species"])
			assert.Equal(t, "Lion", body["common_name"])
			assert.Equal(t, "Panthera leo", body["scientific_name"])
			assert.InDelta(t, 0.92, body["confidence"], 1e-9)
			assert.Equal(t, false, body["needs_review"])
			assert.Nil(t, body["review_reason"])
			assert.Equal(t, "mane", body["reasoning"])
			assert.Equal(t, "static", body["model"])
			assert.Equal(t, false, body["cached"])

			stage1, ok := body["stage1"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, true, stage1["animal_present"])
			assert.Equal(t, "daylight", stage1["image_type"])

			alts, ok := body["alternatives"].([]any)
			require.True(t, ok)
			require.Len(t, alts, 1)
			alt := alts[0].(map[string]any)
			assert.Equal(t, "leopard", alt["species_id"])
			assert.Equal(t, "Leopard", alt["common_name"])

			station, ok := body["station"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "gate-waterhole", station["id"])
		})
	}
}

func TestIdentifyEarlyExit(t *testing.T) {
	t.Parallel()
	e := newTestController(t, llm.NewStatic(stage1Empty))

	rec, body := doJSON(t, e, http.MethodPost, "/identify", `{"image": "`+testImage+`"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body, "species")
	assert.Nil(t, body["species"])
	assert.Equal(t, false, body["needs_review"])
	assert.Equal(t, "no animal detected", body["review_reason"])
	assert.Equal(t, []any{}, body["alternatives"])
}

func TestIdentifyInputErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"image": `},
		{"missing image", `{}`},
		{"unsupported type", `{"image": "data:image/gif;base64,R0lGOD"}`},
		{"unknown station", `{"image": "` + testImage + `", "station": "nowhere"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gen := llm.NewStatic(stage1Lion, stage2Lion)
			e := newTestController(t, gen)

			rec, body := doJSON(t, e, http.MethodPost, "/identify", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["error"])
			assert.NotEmpty(t, body["correlation_id"])
			assert.NotContains(t, body, "retryable")
			assert.Zero(t, gen.Calls())
		})
	}
}

func TestIdentifyErrorMapping(t *testing.T) {
	t.Parallel()
	t.Attr("component", "identify")
	t.Attr("feature", "status-mapping")

	transient := errors.Newf("model overloaded").
		Category(errors.CategoryUpstreamTransient).
		Context(errors.ContextAttempts, 3).
		Build()
	rateLimited := errors.Newf("quota exceeded").
		Category(errors.CategoryUpstreamTransient).
		Context(errors.ContextRateLimited, true).
		Build()
	permanent := errors.Newf("model rejected request").
		Category(errors.CategoryUpstreamPermanent).
		Build()

	tests := []struct {
		name        string
		err         error
		status      int
		retryable   any
		needsReview any
	}{
		{"input", errors.InputError("imaging", "image is required"), http.StatusBadRequest, nil, nil},
		{"config", errors.ConfigError("llm", "no API key"), http.StatusInternalServerError, nil, nil},
		{"rate limited", rateLimited, http.StatusTooManyRequests, true, true},
		{"transient", transient, http.StatusInternalServerError, true, true},
		{"permanent", permanent, http.StatusBadGateway, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newTestController(t, llm.NewStatic(), WithIdentifier(fakeIdentifier{err: tt.err}))

			rec, body := doJSON(t, e, http.MethodPost, "/api/v1/identify", `{"image": "`+testImage+`"}`)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.err.Error(), body["error"])
			assert.Equal(t, tt.retryable, body["retryable"])
			assert.Equal(t, tt.needsReview, body["needs_review"])
		})
	}
}

func TestIdentifyRecordsErrorMetrics(t *testing.T) {
	t.Parallel()
	m, err := observability.NewMetrics()
	require.NoError(t, err)

	e := newTestController(t, llm.NewStatic(), WithMetrics(m),
		WithIdentifier(fakeIdentifier{err: errors.ConfigError("llm", "no API key")}))

	rec, _ := doJSON(t, e, http.MethodPost, "/identify", `{"image": "`+testImage+`"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range families {
		if strings.HasSuffix(mf.GetName(), "errors_total") {
			found = true
		}
	}
	assert.True(t, found, "HTTP error counter should be exported")
}

func TestCorrelationIDReusesRequestID(t *testing.T) {
	t.Parallel()
	e := newTestController(t, llm.NewStatic())

	req := httptest.NewRequest(http.MethodPost, "/identify", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "req-123", body.CorrelationID)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	e := newTestController(t, llm.NewStatic())

	rec, body := doJSON(t, e, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "static", body["provider"])
	assert.Equal(t, "static", body["model"])
	assert.InDelta(t, float64(taxonomy.MustLoadDefault().Len()), body["species_count"], 0)
}

func TestListSpecies(t *testing.T) {
	t.Parallel()
	e := newTestController(t, llm.NewStatic())
	registry := taxonomy.MustLoadDefault()

	rec, body := doJSON(t, e, http.MethodGet, "/api/v1/species", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, float64(registry.Len()), body["count"], 0)

	rec, body = doJSON(t, e, http.MethodGet, "/api/v1/species?category=Reptile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, float64(len(registry.ByCategory(taxonomy.CategoryReptile))), body["count"], 0)
	for _, raw := range body["species"].([]any) {
		assert.Equal(t, "reptile", raw.(map[string]any)["category"])
	}

	rec, _ = doJSON(t, e, http.MethodGet, "/api/v1/species?category=fish", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSpecies(t *testing.T) {
	t.Parallel()
	e := newTestController(t, llm.NewStatic())

	tests := []struct {
		path   string
		status int
		id     string
	}{
		{"/api/v1/species/lion", http.StatusOK, "lion"},
		{"/api/v1/species/Honey%20Badger", http.StatusOK, "honey-badger"},
		{"/api/v1/species/okapi", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		rec, body := doJSON(t, e, http.MethodGet, tt.path, "")
		assert.Equal(t, tt.status, rec.Code, tt.path)
		if tt.id != "" {
			assert.Equal(t, tt.id, body["id"], tt.path)
		} else {
			assert.Equal(t, false, body["success"], tt.path)
		}
	}
}

func TestListStations(t *testing.T) {
	t.Parallel()
	e := newTestController(t, llm.NewStatic())

	rec, body := doJSON(t, e, http.MethodGet, "/api/v1/stations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 4, body["count"], 0)
}
