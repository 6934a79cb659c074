package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vehicletracker/vehicletracker/internal/api/middleware"
)

func limitedHandler(limit int) http.Handler {
	cfg := middleware.RateLimitConfig{RequestLimit: limit, WindowLength: time.Minute}
	return middleware.RequestID(middleware.RateLimitByIP(cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
}

func hit(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/tracker/route:generate", http.NoBody)
	req.RemoteAddr = ip
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitByIP_BlocksOverLimit(t *testing.T) {
	h := limitedHandler(3)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1234").Code, "request %d", i+1)
	}

	rec := hit(h, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")
	assert.Contains(t, rec.Body.String(), "/v1/tracker/route:generate")
}

func TestRateLimitByIP_SeparateBudgets(t *testing.T) {
	h := limitedHandler(1)
	assert.Equal(t, http.StatusOK, hit(h, "172.16.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "172.16.0.1:1").Code)
	assert.Equal(t, http.StatusOK, hit(h, "172.16.0.2:1").Code)
}

func TestDefaultRateLimitConfigs(t *testing.T) {
	assert.Equal(t, 300, middleware.ReadRateLimit.RequestLimit)
	assert.Equal(t, 60, middleware.IntentRateLimit.RequestLimit)
	assert.Equal(t, 20, middleware.GenerateRateLimit.RequestLimit)
	assert.Equal(t, time.Minute, middleware.GenerateRateLimit.WindowLength)
}
