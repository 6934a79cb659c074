// Package osrm provides a routing.Provider backed by an OSRM route service.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vehicletracker/vehicletracker/internal/geo"
	"github.com/vehicletracker/vehicletracker/internal/provider/resilience"
	"github.com/vehicletracker/vehicletracker/internal/routing"
	"github.com/vehicletracker/vehicletracker/pkg/polyline"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "osrm"

	// DefaultBaseURL is the public OSRM demo server.
	DefaultBaseURL = "https://router.project-osrm.org"

	// DefaultProfile is the OSRM profile segment of the URL.
	DefaultProfile = "driving"
)

// HTTPDoer executes HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig configures the OSRM client.
type ClientConfig struct {
	BaseURL    string
	Profile    string
	HTTPClient HTTPDoer
	Timeout    time.Duration
	Registry   *resilience.Registry
	Logger     zerolog.Logger
}

// Client talks to the OSRM /route/v1 endpoint.
type Client struct {
	baseURL    string
	profile    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates an OSRM client. A resilient HTTP client is built when none is given.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	profile := cfg.Profile
	if profile == "" {
		profile = DefaultProfile
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout > 0 {
			clientCfg.Timeout = cfg.Timeout
		}
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
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

type routeResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message,omitempty"`
	Routes  []route `json:"routes"`
}

type route struct {
	Geometry string  `json:"geometry"`
	Distance float64 `json:"distance"` // meters
	Duration float64 `json:"duration"` // seconds
	Legs     []leg   `json:"legs"`
}

type leg struct {
	Steps []json.RawMessage `json:"steps"`
}

// FetchRoute requests the fastest route with full-resolution polyline geometry.
func (c *Client) FetchRoute(ctx context.Context, req routing.RouteRequest) (*routing.Route, error) {
	if err := routing.ValidateRequest(ProviderName, req); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=full&geometries=polyline&steps=true",
		c.baseURL, c.profile, req.Start.Lng, req.Start.Lat, req.End.Lng, req.End.Lat)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      routing.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var rr routeResponse
	decodeErr := json.Unmarshal(body, &rr)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &routing.Error{Provider: ProviderName, Code: "RATE_LIMIT", Message: "API rate limit exceeded", Err: routing.ErrRateLimitExceeded}
	case resp.StatusCode >= 500:
		return nil, &routing.Error{Provider: ProviderName, Code: fmt.Sprintf("SERVER_%d", resp.StatusCode), Message: "routing provider is temporarily unavailable", Err: routing.ErrProviderUnavailable}
	case decodeErr != nil:
		return nil, &routing.Error{Provider: ProviderName, Code: "DECODE_FAILED", Message: "could not decode route response", Err: fmt.Errorf("%w: %v", routing.ErrInvalidResponse, decodeErr)}
	case rr.Code != "Ok":
		// NoRoute, NoSegment, InvalidQuery and friends all mean no usable geometry.
		return nil, &routing.Error{Provider: ProviderName, Code: rr.Code, Message: rr.Message, Err: routing.ErrNoRouteFound}
	}

	out := &routing.Route{Provider: ProviderName, FetchedAt: time.Now()}
	if len(rr.Routes) == 0 {
		return out, nil
	}

	first := rr.Routes[0]
	points, err := polyline.Decode(first.Geometry)
	if err != nil {
		return nil, &routing.Error{Provider: ProviderName, Code: "DECODE_FAILED", Message: "could not decode route geometry", Err: fmt.Errorf("%w: %v", routing.ErrInvalidResponse, err)}
	}

	out.Coordinates = make([]geo.Coordinate, len(points))
	for i, p := range points {
		out.Coordinates[i] = geo.Coordinate{Lat: p.Lat, Lng: p.Lng}
	}
	out.DistanceKm = first.Distance / 1000
	out.EstimatedMinutes = first.Duration / 60
	for _, l := range first.Legs {
		out.Steps += len(l.Steps)
	}

	c.logger.Debug().Int("points", out.Len()).Float64("distance_km", out.DistanceKm).Msg("received route")
	return out, nil
}
