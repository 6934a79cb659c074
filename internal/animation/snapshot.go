package animation

import (
	"time"

	"github.com/vehicletracker/vehicletracker/internal/geo"
)

// Status messages surfaced to the presentation layer.
const (
	StatusSelected    = "route not generated"
	StatusGenerating  = "generating route"
	StatusReady       = "route ready"
	StatusTracking    = "tracking"
	StatusStopped     = "tracking stopped"
	StatusArrived     = "arrived"
	StatusUnavailable = "route unavailable"
	StatusNoRoute     = "no route between these points"
)

// Snapshot is an immutable view of the engine, published on every change.
//
// Route shares the engine's backing array and must be treated as read-only.
type Snapshot struct {
	Seq              uint64
	Option           Option
	Label            string
	State            State
	Position         geo.Coordinate
	Heading          float64
	Cursor           int
	Route            []geo.Coordinate
	RouteVisible     bool
	DistanceKm       float64
	EstimatedMinutes float64
	Status           string
	At               time.Time
}

// Progress is the fraction of the route covered, in [0, 1].
func (s Snapshot) Progress() float64 {
	if len(s.Route) < 2 {
		if s.State == StateFinished {
			return 1
		}
		return 0
	}
	return float64(s.Cursor) / float64(len(s.Route)-1)
}
