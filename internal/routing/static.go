package routing

import (
	"context"
	"time"

	"github.com/vehicletracker/vehicletracker/internal/geo"
)

// StaticProviderName identifies the canned-route provider.
const StaticProviderName = "static"

// StaticRoute is a precomputed route between two endpoints.
type StaticRoute struct {
	Start            geo.Coordinate
	End              geo.Coordinate
	Coordinates      []geo.Coordinate
	DistanceKm       float64
	EstimatedMinutes float64
}

// StaticProvider serves precomputed routes. An unknown start/end pair yields an empty
// route, mirroring a remote provider that found nothing.
type StaticProvider struct {
	routes map[RouteRequest]StaticRoute
	now    func() time.Time
}

// NewStaticProvider creates a provider from canned routes. Later entries with the same
// endpoints replace earlier ones.
func NewStaticProvider(routes ...StaticRoute) *StaticProvider {
	p := &StaticProvider{
		routes: make(map[RouteRequest]StaticRoute, len(routes)),
		now:    time.Now,
	}
	for _, r := range routes {
		coords := make([]geo.Coordinate, len(r.Coordinates))
		copy(coords, r.Coordinates)
		r.Coordinates = coords
		p.routes[RouteRequest{Start: r.Start, End: r.End}] = r
	}
	return p
}

// Name returns the provider name.
func (p *StaticProvider) Name() string {
	return StaticProviderName
}

// FetchRoute returns the canned route for the request endpoints.
func (p *StaticProvider) FetchRoute(ctx context.Context, req RouteRequest) (*Route, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateRequest(StaticProviderName, req); err != nil {
		return nil, err
	}

	r, ok := p.routes[req]
	if !ok {
		return &Route{Provider: StaticProviderName, FetchedAt: p.now()}, nil
	}

	coords := make([]geo.Coordinate, len(r.Coordinates))
	copy(coords, r.Coordinates)
	return &Route{
		Coordinates:      coords,
		DistanceKm:       r.DistanceKm,
		EstimatedMinutes: r.EstimatedMinutes,
		Provider:         StaticProviderName,
		FetchedAt:        p.now(),
	}, nil
}
