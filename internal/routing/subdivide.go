package routing

import (
	"context"

	"github.com/vehicletracker/vehicletracker/internal/geo"
)

// Subdivider wraps a Provider and splits every segment of the returned route into
// Steps equal parts so playback advances in smaller increments.
type Subdivider struct {
	Provider Provider
	Steps    int
}

// Name returns the wrapped provider's name.
func (s Subdivider) Name() string {
	return s.Provider.Name()
}

// FetchRoute fetches from the wrapped provider and densifies the geometry. The
// wrapped provider's route is not modified.
func (s Subdivider) FetchRoute(ctx context.Context, req RouteRequest) (*Route, error) {
	route, err := s.Provider.FetchRoute(ctx, req)
	if err != nil || route.Empty() || s.Steps < 2 {
		return route, err
	}

	out := *route
	out.Coordinates = geo.Subdivide(route.Coordinates, s.Steps)
	return &out, nil
}
