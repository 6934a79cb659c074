package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vehicletracker/vehicletracker/internal/animation"
	"github.com/vehicletracker/vehicletracker/internal/api/models"
	"github.com/vehicletracker/vehicletracker/internal/provider/resilience"
	"github.com/vehicletracker/vehicletracker/internal/routing"
)

type staticHealth []*resilience.ProviderHealth

func (s staticHealth) AllHealth() []*resilience.ProviderHealth { return s }

type stubTracker struct {
	snap animation.Snapshot
}

func (s *stubTracker) Catalog() *animation.Catalog                      { return animation.DefaultCatalog() }
func (s *stubTracker) Snapshot() animation.Snapshot                     { return s.snap }
func (s *stubTracker) SelectOption(animation.Option) error              { return nil }
func (s *stubTracker) GenerateRoute(context.Context) error              { return nil }
func (s *stubTracker) StartPlayback() error                             { return nil }
func (s *stubTracker) StopPlayback()                                    {}
func (s *stubTracker) Subscribe(int) (<-chan animation.Snapshot, func()) { return nil, func() {} }
func (s *stubTracker) Subscribers() int                                 { return 2 }

var _ RouteCache = (*routing.Service)(nil)

type fakeCache struct {
	stats   routing.CacheStats
	cleared int
}

func (c *fakeCache) CacheStats() routing.CacheStats { return c.stats }
func (c *fakeCache) InvalidateCache()               { c.cleared++ }

func newOps(providers HealthSource) *OpsHandler {
	h := NewOpsHandler("1.2.3", "today", &stubTracker{snap: animation.Snapshot{
		Option: animation.OptionToday,
		State:  animation.StatePlaying,
	}}, providers)
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return h
}

func TestOps_SystemStatus(t *testing.T) {
	success := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	h := newOps(staticHealth{
		{Name: "openrouteservice", CircuitState: gobreaker.StateClosed, LastSuccessAt: &success},
		{Name: "osrm", CircuitState: gobreaker.StateHalfOpen, LastError: "HTTP 503"},
	})

	rec := httptest.NewRecorder()
	h.SystemStatus(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusDegraded, status.Status)
	assert.Equal(t, "playing (today)", status.Subsystems[0].Detail)
	assert.Equal(t, "2 subscribers", status.Subsystems[1].Detail)

	require.Len(t, status.Providers, 2)
	assert.Equal(t, models.HealthStatusOK, status.Providers[0].Status)
	assert.Equal(t, "closed", status.Providers[0].CircuitState)
	assert.True(t, success.Equal(*status.Providers[0].LastSuccessAt))
	assert.Equal(t, models.HealthStatusDegraded, status.Providers[1].Status)
	assert.Equal(t, "HTTP 503", status.Providers[1].Message)
}

func TestOps_SystemStatusReportsRouteCache(t *testing.T) {
	cache := &fakeCache{stats: routing.CacheStats{TotalEntries: 4, FreshEntries: 3, StaleEntries: 1, Provider: "osrm"}}
	h := newOps(nil).WithRouteCache(cache)

	rec := httptest.NewRecorder()
	h.SystemStatus(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Subsystems, 3)
	assert.Equal(t, "route_cache", status.Subsystems[2].Name)
	assert.Equal(t, "3 fresh routes, 1 stale (osrm)", status.Subsystems[2].Detail)
}

func TestOps_ClearRouteCache(t *testing.T) {
	cache := &fakeCache{}
	h := newOps(nil).WithRouteCache(cache)

	rec := httptest.NewRecorder()
	h.ClearRouteCache(rec, httptest.NewRequest(http.MethodPost, "/v1/ops/route-cache:clear", http.NoBody))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, cache.cleared)

	rec = httptest.NewRecorder()
	newOps(nil).ClearRouteCache(rec, httptest.NewRequest(http.MethodPost, "/v1/ops/route-cache:clear", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOps_Readiness(t *testing.T) {
	tests := []struct {
		name      string
		providers HealthSource
		want      int
	}{
		{"no registry", nil, http.StatusOK},
		{"one open of two", staticHealth{
			{Name: "a", CircuitState: gobreaker.StateOpen},
			{Name: "b", CircuitState: gobreaker.StateClosed},
		}, http.StatusOK},
		{"all open", staticHealth{
			{Name: "a", CircuitState: gobreaker.StateOpen},
		}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newOps(tt.providers).ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	assert.Nil(t, validateRequest(models.SelectOptionRequest{Option: "today"}))

	errs := validateRequest(models.SelectOptionRequest{Option: "this-option-name-is-far-too-long-to-accept"})
	require.Len(t, errs, 1)
	assert.Equal(t, "option", errs[0].Field)
	assert.Equal(t, "MAX", errs[0].Code)
	assert.Equal(t, "must be at most 32 characters", errs[0].Message)
}
