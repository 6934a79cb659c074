// Package config loads tracker configuration from the environment and the optional
// route-option catalog file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Route provider names accepted by ROUTE_PROVIDER.
const (
	ProviderOpenRouteService = "openrouteservice"
	ProviderOSRM             = "osrm"
	ProviderStatic           = "static"
)

// Config is the process configuration.
type Config struct {
	Port     string
	Env      string
	LogLevel zerolog.Level

	TickInterval   time.Duration
	SubdivideSteps int
	InitialOption  string
	CatalogFile    string

	RouteProvider   string
	ORSAPIKey       string
	ORSBaseURL      string
	ORSProfile      string
	OSRMBaseURL     string
	ProviderTimeout time.Duration
	RouteCacheTTL   time.Duration

	NATSURL           string
	NATSSubjectPrefix string

	OTELEnabled    bool
	OTLPEndpoint   string
	MetricsEnabled bool
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from a lookup function so tests need not touch the process env.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		Port:              get("APP_PORT", "8080"),
		Env:               get("APP_ENV", "development"),
		InitialOption:     get("INITIAL_OPTION", "today"),
		CatalogFile:       get("ROUTE_CATALOG_FILE", ""),
		ORSAPIKey:         get("ORS_API_KEY", ""),
		ORSBaseURL:        get("ORS_BASE_URL", ""),
		ORSProfile:        get("ORS_PROFILE", "driving-car"),
		OSRMBaseURL:       get("OSRM_BASE_URL", "https://router.project-osrm.org"),
		NATSURL:           get("NATS_URL", ""),
		NATSSubjectPrefix: get("NATS_SUBJECT_PREFIX", "tracker"),
		OTLPEndpoint:      get("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	level, err := zerolog.ParseLevel(strings.ToLower(get("LOG_LEVEL", "info")))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	if cfg.TickInterval, err = millis(get("TICK_INTERVAL_MS", "500"), "TICK_INTERVAL_MS"); err != nil {
		return nil, err
	}
	if cfg.ProviderTimeout, err = millis(get("PROVIDER_TIMEOUT_MS", "10000"), "PROVIDER_TIMEOUT_MS"); err != nil {
		return nil, err
	}

	ttl, err := strconv.Atoi(get("ROUTE_CACHE_TTL_S", "300"))
	if err != nil || ttl < 0 {
		return nil, fmt.Errorf("invalid ROUTE_CACHE_TTL_S: %q", get("ROUTE_CACHE_TTL_S", ""))
	}
	cfg.RouteCacheTTL = time.Duration(ttl) * time.Second

	steps, err := strconv.Atoi(get("SUBDIVIDE_STEPS", "0"))
	if err != nil || steps < 0 {
		return nil, fmt.Errorf("invalid SUBDIVIDE_STEPS: %q", get("SUBDIVIDE_STEPS", ""))
	}
	cfg.SubdivideSteps = steps

	if cfg.OTELEnabled, err = boolean(get("OTEL_ENABLED", "false"), "OTEL_ENABLED"); err != nil {
		return nil, err
	}
	if cfg.MetricsEnabled, err = boolean(get("METRICS_ENABLED", "true"), "METRICS_ENABLED"); err != nil {
		return nil, err
	}

	defProvider := ProviderStatic
	if cfg.ORSAPIKey != "" {
		defProvider = ProviderOpenRouteService
	}
	cfg.RouteProvider = strings.ToLower(get("ROUTE_PROVIDER", defProvider))
	switch cfg.RouteProvider {
	case ProviderOpenRouteService:
		if cfg.ORSAPIKey == "" {
			return nil, fmt.Errorf("ROUTE_PROVIDER=%s requires ORS_API_KEY", ProviderOpenRouteService)
		}
	case ProviderOSRM, ProviderStatic:
	default:
		return nil, fmt.Errorf("invalid ROUTE_PROVIDER: %q", cfg.RouteProvider)
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func millis(v, key string) (time.Duration, error) {
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func boolean(v, key string) (bool, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, v)
	}
	return b, nil
}
