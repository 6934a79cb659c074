// Package routing defines the route provider contract consumed by the animation engine
// and the provider-independent pieces around it: caching, static canned routes and
// route subdivision.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/vehicletracker/vehicletracker/internal/geo"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates the provider reported that no route exists between the points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrInvalidResponse indicates the provider answered with a body that could not be parsed.
	ErrInvalidResponse = errors.New("invalid provider response")
)

// Provider supplies road geometry between two coordinates.
//
// A successful call with no geometry returns a Route with zero coordinates and a nil
// error; callers treat that as "not generated".
type Provider interface {
	// FetchRoute retrieves an ordered coordinate sequence from start to end.
	FetchRoute(ctx context.Context, req RouteRequest) (*Route, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// RouteRequest is the request for a single route.
type RouteRequest struct {
	Start geo.Coordinate
	End   geo.Coordinate
}

// Route is an ordered path plus its metadata. Routes are treated as immutable once
// returned by a provider.
type Route struct {
	Coordinates      []geo.Coordinate
	DistanceKm       float64
	EstimatedMinutes float64
	Steps            int // turn-by-turn step count when the provider reports it
	Provider         string
	FetchedAt        time.Time
}

// Empty reports whether the route has no coordinates.
func (r *Route) Empty() bool {
	return r == nil || len(r.Coordinates) == 0
}

// Len returns the number of coordinates.
func (r *Route) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Coordinates)
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}

// ValidateRequest checks both endpoints and returns a *Error tagged with provider.
func ValidateRequest(provider string, req RouteRequest) error {
	if !req.Start.Valid() {
		return &Error{
			Provider: provider,
			Code:     "INVALID_START",
			Message:  "invalid start coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}
	if !req.End.Valid() {
		return &Error{
			Provider: provider,
			Code:     "INVALID_END",
			Message:  "invalid end coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}
	return nil
}
