package app

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vehicletracker/vehicletracker/internal/animation"
	"github.com/vehicletracker/vehicletracker/internal/config"
	"github.com/vehicletracker/vehicletracker/internal/provider/resilience"
	"github.com/vehicletracker/vehicletracker/internal/routing"
)

func TestNewProvider_Static(t *testing.T) {
	catalog := animation.DefaultCatalog()
	p, err := NewProvider(&config.Config{RouteProvider: config.ProviderStatic}, catalog, ProviderDeps{})
	require.NoError(t, err)
	assert.Equal(t, routing.StaticProviderName, p.Name())

	today := catalog.First()
	route, err := p.FetchRoute(context.Background(), routing.RouteRequest{Start: today.Start, End: today.End})
	require.NoError(t, err)
	assert.Equal(t, 2, route.Len())
	assert.Equal(t, today.DistanceKm, route.DistanceKm)
}

func TestNewProvider_Subdivided(t *testing.T) {
	catalog := animation.DefaultCatalog()
	cfg := &config.Config{RouteProvider: config.ProviderStatic, SubdivideSteps: 10}
	p, err := NewProvider(cfg, catalog, ProviderDeps{})
	require.NoError(t, err)

	_, ok := p.(routing.Subdivider)
	require.True(t, ok)

	today := catalog.First()
	route, err := p.FetchRoute(context.Background(), routing.RouteRequest{Start: today.Start, End: today.End})
	require.NoError(t, err)
	assert.Equal(t, 11, route.Len())
}

func TestNewProvider_RemoteRegistersHealth(t *testing.T) {
	tests := []struct {
		provider string
		name     string
	}{
		{config.ProviderOSRM, "osrm"},
		{config.ProviderOpenRouteService, "openrouteservice"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			reg := resilience.NewRegistry()
			cfg := &config.Config{RouteProvider: tt.provider, ORSAPIKey: "k"}
			p, err := NewProvider(cfg, animation.DefaultCatalog(), ProviderDeps{Registry: reg, Logger: zerolog.Nop()})
			require.NoError(t, err)

			_, cached := p.(*routing.Service)
			assert.True(t, cached)
			assert.Equal(t, tt.name, p.Name())
			assert.NotNil(t, reg.Health(tt.name))
		})
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider(&config.Config{RouteProvider: "carrier-pigeon"}, animation.DefaultCatalog(), ProviderDeps{})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "vehicle-tracker", "1.0.0", zerolog.WarnLevel, true)
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "vehicle-tracker", entry["service"])
	assert.Equal(t, "1.0.0", entry["version"])
}

func TestNewLogger_ConsoleOutsideProduction(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "vehicle-tracker", "1.0.0", zerolog.InfoLevel, false)
	log.Info().Str("option", "today").Msg("route generated")

	out := buf.String()
	assert.False(t, json.Valid(buf.Bytes()))
	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "route generated")
	assert.Contains(t, out, "option=today")
}

func TestCacheOf(t *testing.T) {
	catalog := animation.DefaultCatalog()
	remote := &config.Config{RouteProvider: config.ProviderOSRM, SubdivideSteps: 4}

	p, err := NewProvider(remote, catalog, ProviderDeps{Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.NotNil(t, CacheOf(p))

	p, err = NewProvider(&config.Config{RouteProvider: config.ProviderStatic}, catalog, ProviderDeps{})
	require.NoError(t, err)
	assert.Nil(t, CacheOf(p))
}
