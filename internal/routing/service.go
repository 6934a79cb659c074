package routing

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the caching routing service.
type ServiceConfig struct {
	// Provider is the routing data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache routes (default: 5 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.0001 ~ 11m).
	// Endpoints within the same grid cell share cached routes.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale routes on provider errors (default: 15 minutes).
	StaleIfErrorTTL time.Duration

	// CleanupInterval is how often to clean up expired entries (default: 5 minutes).
	CleanupInterval time.Duration

	// Observer receives cache and upstream outcomes. Optional.
	Observer Observer
}

// Observer is notified of cache hits, misses and upstream calls.
type Observer interface {
	RecordRequest(provider, operation string, d time.Duration, err error)
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

const opFetchRoute = "fetch_route"

type nopObserver struct{}

func (nopObserver) RecordRequest(string, string, time.Duration, error) {}
func (nopObserver) RecordCacheHit(string, string)                      {}
func (nopObserver) RecordCacheMiss(string, string)                     {}

// Service wraps a Provider with an in-memory route cache. It implements Provider.
// Empty routes are never cached so a regeneration always retries the upstream.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	cleanupInterval time.Duration
	observer        Observer

	mu          sync.RWMutex
	cache       map[string]*cachedRoute
	lastCleanup time.Time
}

type cachedRoute struct {
	route     *Route
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new caching routing service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.0001
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 15 * time.Minute
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 5 * time.Minute
	}

	var observer Observer = nopObserver{}
	if cfg.Observer != nil {
		observer = cfg.Observer
	}

	return &Service{
		provider:        cfg.Provider,
		observer:        observer,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		cleanupInterval: cleanupInterval,
		cache:           make(map[string]*cachedRoute),
	}
}

// Name returns the name of the underlying provider.
func (s *Service) Name() string {
	return s.provider.Name()
}

// FetchRoute returns a route between two points, served from cache when fresh.
func (s *Service) FetchRoute(ctx context.Context, req RouteRequest) (*Route, error) {
	if err := ValidateRequest(s.provider.Name(), req); err != nil {
		return nil, err
	}

	key := s.cacheKey(req)

	s.mu.RLock()
	if cached, ok := s.cache[key]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.observer.RecordCacheHit(s.provider.Name(), opFetchRoute)
		s.logger.Debug().
			Str("cache_key", key).
			Msg("cache hit for route")
		return cached.route, nil
	}
	s.mu.RUnlock()
	s.observer.RecordCacheMiss(s.provider.Name(), opFetchRoute)

	return s.fetch(ctx, req, key)
}

// fetch calls the provider and updates the cache. The provider call happens outside
// the lock so a slow upstream never blocks cache hits for other keys.
func (s *Service) fetch(ctx context.Context, req RouteRequest, key string) (*Route, error) {
	s.logger.Debug().
		Str("start", req.Start.String()).
		Str("end", req.End.String()).
		Str("provider", s.provider.Name()).
		Msg("fetching route from provider")

	start := time.Now()
	route, err := s.provider.FetchRoute(ctx, req)
	s.observer.RecordRequest(s.provider.Name(), opFetchRoute, time.Since(start), err)
	if err != nil {
		s.logger.Error().Err(err).
			Str("start", req.Start.String()).
			Str("end", req.End.String()).
			Msg("failed to fetch route")

		s.mu.RLock()
		cached, ok := s.cache[key]
		s.mu.RUnlock()
		if ok && time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", cached.fetchedAt).
				Str("cache_key", key).
				Msg("serving stale route due to provider error")
			return cached.route, nil
		}
		return nil, err
	}

	if route.Empty() {
		return route, nil
	}

	now := time.Now()
	s.mu.Lock()
	s.cache[key] = &cachedRoute{
		route:     route,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}
	s.cleanupIfNeeded(now)
	s.mu.Unlock()

	s.logger.Debug().
		Str("cache_key", key).
		Int("points", route.Len()).
		Msg("cached route")

	return route, nil
}

// cacheKey quantises both endpoints to the grid.
// Format: {provider}:{lat},{lng}:{lat},{lng}.
func (s *Service) cacheKey(req RouteRequest) string {
	q := func(v float64) float64 {
		return math.Floor(v/s.cacheGridSize) * s.cacheGridSize
	}
	return fmt.Sprintf("%s:%.5f,%.5f:%.5f,%.5f",
		s.provider.Name(),
		q(req.Start.Lat), q(req.Start.Lng),
		q(req.End.Lat), q(req.End.Lng),
	)
}

// cleanupIfNeeded removes entries past the stale window. Caller holds s.mu.
func (s *Service) cleanupIfNeeded(now time.Time) {
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}
	s.lastCleanup = now

	expired := 0
	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired route cache entries")
	}
}

// InvalidateCache clears all cached routes.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedRoute)
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	Provider     string
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	stats := CacheStats{
		TotalEntries: len(s.cache),
		Provider:     s.provider.Name(),
	}
	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			stats.FreshEntries++
		} else if now.Before(c.fetchedAt.Add(s.staleIfErrorTTL)) {
			stats.StaleEntries++
		}
	}
	return stats
}
