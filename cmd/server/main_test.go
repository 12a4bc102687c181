package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/watchfeed/internal/metrics"
)

type fakeHealth map[string]error

func (f fakeHealth) Health(ctx context.Context) map[string]error { return f }

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("healthy", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(fakeHealth{"postgres": nil}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("redis down", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(fakeHealth{"postgres": nil, "redis": errors.New("dial tcp: refused")}).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "refused")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	newRouter(fakeHealth{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestNoFeatureEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	newRouter(fakeHealth{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/feed", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint_Gzip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept-Encoding", "gzip")

	w := httptest.NewRecorder()
	newRouter(fakeHealth{}).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}

func TestStatsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics.Stats().Observe(metrics.OpSimilarContent, time.Now(), false)

	w := httptest.NewRecorder()
	newRouter(fakeHealth{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, metrics.OpSimilarContent)
}
