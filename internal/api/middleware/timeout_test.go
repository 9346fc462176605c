package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/trapcam/internal/logger"
)

func TestParseRequestTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		want  time.Duration
		ok    bool
	}{
		{"", 0, false},
		{"30", 30 * time.Second, true},
		{" 1.5 ", 1500 * time.Millisecond, true},
		{"0", 0, false},
		{"-5", 0, false},
		{"soon", 0, false},
		{"86400", maxRequestTimeout, true},
	}
	for _, tt := range tests {
		got, ok := ParseRequestTimeout(tt.value)
		assert.Equal(t, tt.ok, ok, tt.value)
		assert.Equal(t, tt.want, got, tt.value)
	}
}

func TestRequestTimeoutSetsDeadline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		header   string
		fallback time.Duration
		ceiling  time.Duration
		want     time.Duration
		deadline bool
	}{
		{"header wins", "5", time.Minute, 2 * time.Minute, 5 * time.Second, true},
		{"fallback", "", time.Minute, 2 * time.Minute, time.Minute, true},
		{"invalid header uses fallback", "abc", time.Minute, 2 * time.Minute, time.Minute, true},
		{"header capped at ceiling", "300", time.Minute, 2 * time.Minute, 2 * time.Minute, true},
		{"no ceiling uses package maximum", "86400", time.Minute, 0, maxRequestTimeout, true},
		{"none", "", 0, 2 * time.Minute, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.header != "" {
				req.Header.Set(HeaderRequestTimeout, tt.header)
			}
			c := e.NewContext(req, httptest.NewRecorder())

			start := time.Now()
			h := NewRequestTimeout(tt.fallback, tt.ceiling)(func(c echo.Context) error {
				deadline, ok := c.Request().Context().Deadline()
				require.Equal(t, tt.deadline, ok)
				if ok {
					assert.WithinDuration(t, start.Add(tt.want), deadline, time.Second)
				}
				return nil
			})
			require.NoError(t, h(c))
		})
	}
}

func TestRequestIDPropagatesTraceID(t *testing.T) {
	t.Parallel()
	e := echo.New()
	e.Use(NewRequestID())

	var traceID string
	e.GET("/", func(c echo.Context) error {
		traceID = logger.TraceIDFromContext(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.NotEmpty(t, traceID)
	assert.Equal(t, traceID, rec.Header().Get(echo.HeaderXRequestID))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(echo.HeaderXRequestID, "abc-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", traceID)
}
