package models

import (
	"time"

	"github.com/vehicletracker/vehicletracker/internal/animation"
)

// Point is a lat/lng pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TrackerSnapshot is the JSON view of an engine snapshot.
type TrackerSnapshot struct {
	Seq              uint64    `json:"seq"`
	Option           string    `json:"option"`
	Label            string    `json:"label"`
	State            string    `json:"state"`
	Status           string    `json:"status"`
	Position         Point     `json:"position"`
	Heading          float64   `json:"heading"`
	Cursor           int       `json:"cursor"`
	Progress         float64   `json:"progress"`
	RouteVisible     bool      `json:"routeVisible"`
	Route            []Point   `json:"route,omitempty"`
	DistanceKm       float64   `json:"distanceKm"`
	EstimatedMinutes float64   `json:"estimatedMinutes"`
	At               time.Time `json:"at"`
}

// NewTrackerSnapshot converts s. The route polyline is included only while it is visible
// and withRoute is set; streams omit it after the first event.
func NewTrackerSnapshot(s animation.Snapshot, withRoute bool) TrackerSnapshot {
	out := TrackerSnapshot{
		Seq:              s.Seq,
		Option:           string(s.Option),
		Label:            s.Label,
		State:            s.State.String(),
		Status:           s.Status,
		Position:         Point{Lat: s.Position.Lat, Lng: s.Position.Lng},
		Heading:          s.Heading,
		Cursor:           s.Cursor,
		Progress:         s.Progress(),
		RouteVisible:     s.RouteVisible,
		DistanceKm:       s.DistanceKm,
		EstimatedMinutes: s.EstimatedMinutes,
		At:               s.At,
	}
	if withRoute && s.RouteVisible {
		out.Route = make([]Point, len(s.Route))
		for i, c := range s.Route {
			out.Route[i] = Point{Lat: c.Lat, Lng: c.Lng}
		}
	}
	return out
}

// RouteOption is one entry of GET /v1/tracker/options.
type RouteOption struct {
	Key              string  `json:"key"`
	Label            string  `json:"label"`
	Start            Point   `json:"start"`
	End              Point   `json:"end"`
	DistanceKm       float64 `json:"distanceKm"`
	EstimatedMinutes float64 `json:"estimatedMinutes"`
}

// RouteOptionList is the body of GET /v1/tracker/options.
type RouteOptionList struct {
	Selected string        `json:"selected"`
	Options  []RouteOption `json:"options"`
}

// NewRouteOptionList converts the catalog.
func NewRouteOptionList(c *animation.Catalog, selected animation.Option) RouteOptionList {
	opts := c.Options()
	out := RouteOptionList{Selected: string(selected), Options: make([]RouteOption, 0, len(opts))}
	for _, o := range opts {
		out.Options = append(out.Options, RouteOption{
			Key:              string(o.Key),
			Label:            o.Label,
			Start:            Point{Lat: o.Start.Lat, Lng: o.Start.Lng},
			End:              Point{Lat: o.End.Lat, Lng: o.End.Lng},
			DistanceKm:       o.DistanceKm,
			EstimatedMinutes: o.EstimatedMinutes,
		})
	}
	return out
}

// SelectOptionRequest is the body of PUT /v1/tracker/option.
type SelectOptionRequest struct {
	Option string `json:"option" validate:"required,max=32"`
}
