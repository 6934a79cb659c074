package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/vehicletracker/vehicletracker/internal/api/models"
	"github.com/vehicletracker/vehicletracker/internal/api/response"
	"github.com/vehicletracker/vehicletracker/internal/provider/resilience"
	"github.com/vehicletracker/vehicletracker/internal/routing"
)

// HealthSource lists upstream provider health. *resilience.Registry implements it.
type HealthSource interface {
	AllHealth() []*resilience.ProviderHealth
}

// RouteCache is the route cache in front of a remote provider. *routing.Service implements it.
type RouteCache interface {
	CacheStats() routing.CacheStats
	InvalidateCache()
}

// OpsHandler handles the operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	tracker   Tracker
	providers HealthSource
	cache     RouteCache
	now       func() time.Time
}

// NewOpsHandler creates an OpsHandler. providers may be nil when only the static
// provider is configured.
func NewOpsHandler(version, buildTime string, tracker Tracker, providers HealthSource) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		tracker:   tracker,
		providers: providers,
		now:       time.Now,
	}
}

// WithRouteCache reports cache occupancy on /v1/ops/status and enables ClearRouteCache.
func (h *OpsHandler) WithRouteCache(c RouteCache) *OpsHandler {
	h.cache = c
	return h
}

// HealthCheck handles GET /v1/ops/health - liveness.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   h.now().UTC(),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. The service is not ready when every
// registered route provider has an open circuit, since no route can be generated.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	providers := h.providerStatuses()
	open := 0
	for _, p := range providers {
		if p.Status == models.HealthStatusFail {
			open++
		}
	}

	if len(providers) > 0 && open == len(providers) {
		response.JSON(w, r, http.StatusServiceUnavailable, models.Health{
			Status:  models.HealthStatusFail,
			Time:    h.now().UTC(),
			Details: map[string]interface{}{"reason": "all route providers unavailable"},
		})
		return
	}
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   h.now().UTC(),
	})
}

// SystemStatus handles GET /v1/ops/status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.tracker.Snapshot()
	status := models.SystemStatus{
		Status: models.HealthStatusOK,
		Time:   h.now().UTC(),
		Subsystems: []models.SubsystemStatus{{
			Name:   "engine",
			Status: models.HealthStatusOK,
			Detail: snap.State.String() + " (" + string(snap.Option) + ")",
		}, {
			Name:   "stream",
			Status: models.HealthStatusOK,
			Detail: pluralize(h.tracker.Subscribers(), "subscriber"),
		}},
		Providers: h.providerStatuses(),
	}
	if h.cache != nil {
		stats := h.cache.CacheStats()
		status.Subsystems = append(status.Subsystems, models.SubsystemStatus{
			Name:   "route_cache",
			Status: models.HealthStatusOK,
			Detail: fmt.Sprintf("%s, %d stale (%s)", pluralize(stats.FreshEntries, "fresh route"), stats.StaleEntries, stats.Provider),
		})
	}
	for _, p := range status.Providers {
		if p.Status != models.HealthStatusOK {
			status.Status = models.HealthStatusDegraded
		}
	}
	response.JSON(w, r, http.StatusOK, status)
}

// ClearRouteCache handles POST /v1/ops/route-cache:clear. The next generate for every
// option goes to the upstream provider.
func (h *OpsHandler) ClearRouteCache(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		response.NotFound(w, r, "no route cache is configured")
		return
	}
	h.cache.InvalidateCache()
	response.NoContent(w, r)
}

func (h *OpsHandler) providerStatuses() []models.ProviderStatus {
	if h.providers == nil {
		return []models.ProviderStatus{}
	}
	all := h.providers.AllHealth()
	out := make([]models.ProviderStatus, 0, len(all))
	for _, p := range all {
		ps := models.ProviderStatus{
			Provider:      p.Name,
			CircuitState:  p.CircuitState.String(),
			LastSuccessAt: p.LastSuccessAt,
			LastFailureAt: p.LastFailureAt,
			Message:       p.LastError,
		}
		switch p.Status() {
		case resilience.StatusHealthy:
			ps.Status = models.HealthStatusOK
		case resilience.StatusDegraded:
			ps.Status = models.HealthStatusDegraded
		default:
			ps.Status = models.HealthStatusFail
		}
		out = append(out, ps)
	}
	return out
}

func pluralize(n int, noun string) string {
	s := strconv.Itoa(n) + " " + noun
	if n != 1 {
		s += "s"
	}
	return s
}
