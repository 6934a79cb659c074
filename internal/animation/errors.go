package animation

import "errors"

var (
	// ErrRouteFetchFailed wraps any provider error (network, parse, provider-reported failure).
	ErrRouteFetchFailed = errors.New("route fetch failed")
	// ErrEmptyRoute means the provider succeeded but returned no coordinates.
	ErrEmptyRoute = errors.New("provider returned an empty route")
	// ErrInvalidTransition is returned by StartPlayback when there is no route to play.
	// Nothing changes; callers that want a forgiving UI can ignore it.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrSuperseded means a newer select or generate happened while the fetch was in
	// flight and the result was discarded.
	ErrSuperseded = errors.New("route generation superseded")
	// ErrUnknownOption means the option is not in the catalog.
	ErrUnknownOption = errors.New("unknown route option")
	// ErrClosed is returned by every entry point after Close.
	ErrClosed = errors.New("engine closed")
)
