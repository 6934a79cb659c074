// Package app assembles the route provider chain and logger shared by the commands.
package app

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/vehicletracker/vehicletracker/internal/animation"
	"github.com/vehicletracker/vehicletracker/internal/config"
	"github.com/vehicletracker/vehicletracker/internal/provider/resilience"
	"github.com/vehicletracker/vehicletracker/internal/routing"
	"github.com/vehicletracker/vehicletracker/internal/routing/openrouteservice"
	"github.com/vehicletracker/vehicletracker/internal/routing/osrm"
)

// NewLogger returns the process logger. Outside production it writes the human-readable
// console format instead of JSON lines.
func NewLogger(w io.Writer, service, version string, level zerolog.Level, production bool) zerolog.Logger {
	if !production {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}

// ProviderDeps are the optional collaborators of the provider chain.
type ProviderDeps struct {
	Registry *resilience.Registry
	Observer routing.Observer
	Logger   zerolog.Logger
}

// NewProvider builds the configured provider: a remote adapter behind the route cache,
// or the static provider serving the catalog's canned routes. When SubdivideSteps is 2
// or more the result is wrapped in a Subdivider.
func NewProvider(cfg *config.Config, catalog *animation.Catalog, deps ProviderDeps) (routing.Provider, error) {
	var p routing.Provider

	switch cfg.RouteProvider {
	case config.ProviderStatic:
		p = routing.NewStaticProvider(catalog.StaticRoutes()...)
	case config.ProviderOpenRouteService, config.ProviderOSRM:
		upstream := remoteProvider(cfg, deps)
		p = routing.NewService(routing.ServiceConfig{
			Provider: upstream,
			Logger:   deps.Logger,
			CacheTTL: cfg.RouteCacheTTL,
			Observer: deps.Observer,
		})
	default:
		return nil, fmt.Errorf("unknown route provider %q", cfg.RouteProvider)
	}

	if cfg.SubdivideSteps >= 2 {
		p = routing.Subdivider{Provider: p, Steps: cfg.SubdivideSteps}
	}
	return p, nil
}

// CacheOf returns the route cache inside p, or nil for the static provider.
func CacheOf(p routing.Provider) *routing.Service {
	if sd, ok := p.(routing.Subdivider); ok {
		p = sd.Provider
	}
	svc, _ := p.(*routing.Service)
	return svc
}

func remoteProvider(cfg *config.Config, deps ProviderDeps) routing.Provider {
	if cfg.RouteProvider == config.ProviderOSRM {
		return osrm.NewClient(osrm.ClientConfig{
			BaseURL:  cfg.OSRMBaseURL,
			Timeout:  cfg.ProviderTimeout,
			Registry: deps.Registry,
			Logger:   deps.Logger,
		})
	}
	return openrouteservice.NewClient(openrouteservice.ClientConfig{
		APIKey:   cfg.ORSAPIKey,
		BaseURL:  cfg.ORSBaseURL,
		Profile:  cfg.ORSProfile,
		Timeout:  cfg.ProviderTimeout,
		Registry: deps.Registry,
		Logger:   deps.Logger,
	})
}
