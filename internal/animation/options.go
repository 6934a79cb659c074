package animation

import (
	"fmt"

	"github.com/vehicletracker/vehicletracker/internal/geo"
	"github.com/vehicletracker/vehicletracker/internal/routing"
)

// Option identifies a canned route choice.
type Option string

// Built-in options.
const (
	OptionToday     Option = "today"
	OptionYesterday Option = "yesterday"
	OptionLastWeek  Option = "lastweek"
)

// OptionConfig is the immutable definition of one route option.
type OptionConfig struct {
	Key              Option
	Label            string
	Start            geo.Coordinate
	End              geo.Coordinate
	DistanceKm       float64
	EstimatedMinutes float64

	// Waypoints, when set, is a canned geometry served by the static provider.
	Waypoints []geo.Coordinate
}

// Catalog is an ordered, read-only set of route options.
type Catalog struct {
	order   []Option
	options map[Option]OptionConfig
}

// NewCatalog builds a catalog preserving the given order. Keys must be unique and non-empty.
func NewCatalog(opts ...OptionConfig) (*Catalog, error) {
	if len(opts) == 0 {
		return nil, fmt.Errorf("catalog: at least one option is required")
	}

	c := &Catalog{
		order:   make([]Option, 0, len(opts)),
		options: make(map[Option]OptionConfig, len(opts)),
	}
	for _, o := range opts {
		if o.Key == "" {
			return nil, fmt.Errorf("catalog: option with empty key")
		}
		if _, dup := c.options[o.Key]; dup {
			return nil, fmt.Errorf("catalog: duplicate option %q", o.Key)
		}
		o.Waypoints = append([]geo.Coordinate(nil), o.Waypoints...)
		c.order = append(c.order, o.Key)
		c.options[o.Key] = o
	}
	return c, nil
}

// DefaultCatalog returns the three canned Delhi routes.
func DefaultCatalog() *Catalog {
	c, _ := NewCatalog(
		OptionConfig{
			Key:              OptionToday,
			Label:            "Live Route (Today)",
			Start:            geo.Coordinate{Lat: 28.6139, Lng: 77.2109},
			End:              geo.Coordinate{Lat: 28.6199, Lng: 77.2400},
			DistanceKm:       12,
			EstimatedMinutes: 25,
		},
		OptionConfig{
			Key:              OptionYesterday,
			Label:            "Yesterday's Route",
			Start:            geo.Coordinate{Lat: 28.6149, Lng: 77.2139},
			End:              geo.Coordinate{Lat: 28.6210, Lng: 77.2410},
			DistanceKm:       18,
			EstimatedMinutes: 30,
		},
		OptionConfig{
			Key:              OptionLastWeek,
			Label:            "Last Week's Route",
			Start:            geo.Coordinate{Lat: 28.6100, Lng: 77.2000},
			End:              geo.Coordinate{Lat: 28.6300, Lng: 77.2600},
			DistanceKm:       38,
			EstimatedMinutes: 90,
		},
	)
	return c
}

// Lookup returns the option with the given key.
func (c *Catalog) Lookup(key Option) (OptionConfig, bool) {
	o, ok := c.options[key]
	return o, ok
}

// First returns the first option in catalog order.
func (c *Catalog) First() OptionConfig {
	return c.options[c.order[0]]
}

// Options returns all options in catalog order.
func (c *Catalog) Options() []OptionConfig {
	out := make([]OptionConfig, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.options[k])
	}
	return out
}

// StaticRoutes returns a canned route for every option that defines waypoints.
// Options without waypoints get a straight two-point segment from start to end.
func (c *Catalog) StaticRoutes() []routing.StaticRoute {
	routes := make([]routing.StaticRoute, 0, len(c.order))
	for _, k := range c.order {
		o := c.options[k]
		coords := o.Waypoints
		if len(coords) == 0 {
			coords = []geo.Coordinate{o.Start, o.End}
		}
		routes = append(routes, routing.StaticRoute{
			Start:            o.Start,
			End:              o.End,
			Coordinates:      coords,
			DistanceKm:       o.DistanceKm,
			EstimatedMinutes: o.EstimatedMinutes,
		})
	}
	return routes
}
