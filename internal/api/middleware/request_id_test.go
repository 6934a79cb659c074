package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vehicletracker/vehicletracker/internal/api/middleware"
)

func serveRequestID(t *testing.T, incoming string) (ctxID, headerID string) {
	t.Helper()
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = middleware.GetRequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/tracker", http.NoBody)
	if incoming != "" {
		req.Header.Set(middleware.RequestIDHeader, incoming)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return ctxID, rec.Header().Get(middleware.RequestIDHeader)
}

func TestRequestID_Generates(t *testing.T) {
	ctxID, headerID := serveRequestID(t, "")
	assert.True(t, strings.HasPrefix(ctxID, "req_"), ctxID)
	assert.Len(t, ctxID, 24)
	assert.Equal(t, ctxID, headerID)
}

func TestRequestID_PreservesIncoming(t *testing.T) {
	ctxID, headerID := serveRequestID(t, "dashboard-42")
	assert.Equal(t, "dashboard-42", ctxID)
	assert.Equal(t, "dashboard-42", headerID)
}

func TestRequestID_ReplacesOversizedIncoming(t *testing.T) {
	ctxID, _ := serveRequestID(t, strings.Repeat("x", 200))
	assert.True(t, strings.HasPrefix(ctxID, "req_"))
}

func TestRequestID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, _ := serveRequestID(t, "")
		assert.False(t, seen[id], "duplicate request ID %s", id)
		seen[id] = true
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	assert.Empty(t, middleware.GetRequestID(req.Context()))
}
