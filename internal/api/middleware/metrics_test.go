package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/vehicletracker/vehicletracker/internal/api/middleware"
	"github.com/vehicletracker/vehicletracker/internal/routing"
)

var _ routing.Observer = (*middleware.ProviderMetrics)(nil)

func TestMetrics_Middleware(t *testing.T) {
	m, err := middleware.NewMetrics()
	require.NoError(t, err)

	tests := []struct {
		name   string
		status int
	}{
		{"ok", http.StatusOK},
		{"client error", http.StatusConflict},
		{"server error", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body"))
			}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tracker/playback:start", http.NoBody))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "body", rec.Body.String())
		})
	}
}

func TestMetrics_Middleware_PreservesFlusher(t *testing.T) {
	m, err := middleware.NewMetrics()
	require.NoError(t, err)

	var flushable bool
	h := m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, flushable = w.(http.Flusher)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/tracker/stream", http.NoBody))
	assert.True(t, flushable)
}

func TestProviderMetrics(t *testing.T) {
	pm, err := middleware.NewProviderMetrics()
	require.NoError(t, err)

	// Recording on the global no-op meter must not panic.
	pm.RecordCacheHit("osrm", "fetch_route")
	pm.RecordCacheMiss("osrm", "fetch_route")
	pm.RecordRequest("osrm", "fetch_route", 40*time.Millisecond, nil)
	pm.RecordRequest("osrm", "fetch_route", time.Second, errors.New("timeout"))
}

func TestProviderMetrics_ErrorType(t *testing.T) {
	prev := otel.GetMeterProvider()
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	pm, err := middleware.NewProviderMetrics()
	require.NoError(t, err)

	noRoute := &routing.Error{Provider: "osrm", Code: "NoRoute", Err: routing.ErrNoRouteFound}
	pm.RecordRequest("osrm", "fetch_route", 10*time.Millisecond, noRoute)
	pm.RecordRequest("osrm", "fetch_route", 10*time.Millisecond, nil)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	types := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "tracker.route_provider.requests" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value("error.type")
				types[v.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"no_route": 1, "": 1}, types)
}
