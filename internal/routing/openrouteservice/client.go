// Package openrouteservice provides a routing.Provider backed by the OpenRouteService
// directions API.
package openrouteservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/vehicletracker/vehicletracker/internal/geo"
	"github.com/vehicletracker/vehicletracker/internal/provider/resilience"
	"github.com/vehicletracker/vehicletracker/internal/routing"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "openrouteservice"

	// DefaultBaseURL is the OpenRouteService API base URL.
	DefaultBaseURL = "https://api.openrouteservice.org"

	// DefaultProfile is the vehicle profile used for directions.
	DefaultProfile = "driving-car"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 8 << 20
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OpenRouteService client.
type ClientConfig struct {
	// APIKey is the ORS API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to ORS API).
	BaseURL string

	// Profile is the ORS routing profile (optional, defaults to driving-car).
	Profile string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenRouteService API client.
type Client struct {
	apiKey     string
	baseURL    string
	profile    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OpenRouteService client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	profile := cfg.Profile
	if profile == "" {
		profile = DefaultProfile
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		profile:    profile,
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FetchRoute posts start and end to the GeoJSON directions endpoint. A response with no
// features yields an empty Route and a nil error.
func (c *Client) FetchRoute(ctx context.Context, req routing.RouteRequest) (*routing.Route, error) {
	if err := routing.ValidateRequest(ProviderName, req); err != nil {
		return nil, err
	}

	body, err := json.Marshal(newDirectionsRequest(req))
	if err != nil {
		return nil, fmt.Errorf("encoding directions request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.directionsURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/geo+json, application/json")

	c.logger.Debug().
		Str("profile", c.profile).
		Stringer("start", req.Start).
		Stringer("end", req.End).
		Msg("requesting directions")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      fmt.Errorf("%w: %v", routing.ErrProviderUnavailable, err),
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, mapError(resp.StatusCode, raw)
	}

	var fc featureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "DECODE_FAILED",
			Message:  "could not decode directions response",
			Err:      fmt.Errorf("%w: %v", routing.ErrInvalidResponse, err),
		}
	}

	route := toRoute(&fc, time.Now())
	c.logger.Debug().
		Int("points", route.Len()).
		Float64("distance_km", route.DistanceKm).
		Int("steps", route.Steps).
		Msg("received directions")
	return route, nil
}

func (c *Client) directionsURL() string {
	return c.baseURL + "/v2/directions/" + url.PathEscape(c.profile) + "/geojson"
}

// toRoute converts the first feature into a Route, swapping [lng, lat] to lat/lng.
func toRoute(fc *featureCollection, fetchedAt time.Time) *routing.Route {
	route := &routing.Route{
		Provider:  ProviderName,
		FetchedAt: fetchedAt,
	}
	if len(fc.Features) == 0 {
		return route
	}

	f := &fc.Features[0]
	coords := make([]geo.Coordinate, 0, len(f.Geometry.Coordinates))
	for _, pair := range f.Geometry.Coordinates {
		if len(pair) < 2 {
			continue
		}
		coords = append(coords, geo.Coordinate{Lat: pair[1], Lng: pair[0]})
	}
	route.Coordinates = coords
	route.DistanceKm = f.Properties.Summary.Distance / 1000
	route.EstimatedMinutes = f.Properties.Summary.Duration / 60
	for i := range f.Properties.Segments {
		route.Steps += len(f.Properties.Segments[i].Steps)
	}
	return route
}

// mapError turns a non-200 ORS answer into a *routing.Error. ORS reports "no route" either
// as a 404 or as a 400 carrying internal code 2009.
func mapError(status int, body []byte) error {
	var env errorResponse
	_ = json.Unmarshal(body, &env)
	msg := env.Error.Message

	e := &routing.Error{Provider: ProviderName, Message: msg}
	switch {
	case status == http.StatusTooManyRequests:
		e.Code, e.Err = "RATE_LIMIT", routing.ErrRateLimitExceeded
		e.Message = "API rate limit exceeded, please try again later"
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Code, e.Err = "FORBIDDEN", routing.ErrProviderUnavailable
		e.Message = "API access denied, check ORS_API_KEY"
	case status == http.StatusNotFound || env.Error.Code == errorCodeRouteNotFound:
		e.Code, e.Err = "NO_ROUTE", routing.ErrNoRouteFound
		if msg == "" {
			e.Message = "no route found between the given points"
		}
	case status == http.StatusBadRequest:
		e.Code, e.Err = "BAD_REQUEST", routing.ErrInvalidCoordinates
	case status >= 500:
		e.Code, e.Err = fmt.Sprintf("SERVER_%d", status), routing.ErrProviderUnavailable
		e.Message = "routing provider is temporarily unavailable"
	default:
		e.Code, e.Err = fmt.Sprintf("HTTP_%d", status), routing.ErrProviderUnavailable
		if msg == "" {
			e.Message = fmt.Sprintf("routing provider returned status %d", status)
		}
	}
	return e
}
