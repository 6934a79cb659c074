package openrouteservice

import "github.com/vehicletracker/vehicletracker/internal/routing"

// directionsRequest is the body of POST /v2/directions/{profile}/geojson.
type directionsRequest struct {
	Coordinates      [][2]float64 `json:"coordinates"`
	Instructions     bool         `json:"instructions"`
	GeometrySimplify bool         `json:"geometry_simplify"`
	Units            string       `json:"units"`
}

// newDirectionsRequest orders each point as [lng, lat].
func newDirectionsRequest(req routing.RouteRequest) directionsRequest {
	return directionsRequest{
		Coordinates: [][2]float64{
			{req.Start.Lng, req.Start.Lat},
			{req.End.Lng, req.End.Lat},
		},
		Instructions:     true,
		GeometrySimplify: false,
		Units:            "m",
	}
}

// featureCollection is the GeoJSON response body.
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
	BBox     []float64 `json:"bbox,omitempty"`
}

type feature struct {
	BBox       []float64         `json:"bbox,omitempty"`
	Type       string            `json:"type"`
	Properties featureProperties `json:"properties"`
	Geometry   lineString        `json:"geometry"`
}

type featureProperties struct {
	Segments  []segment `json:"segments,omitempty"`
	Summary   summary   `json:"summary"`
	WayPoints []int     `json:"way_points,omitempty"`
}

// summary totals; distance in meters, duration in seconds.
type summary struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}

type segment struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Steps    []step  `json:"steps,omitempty"`
}

type step struct {
	Distance    float64 `json:"distance"`
	Duration    float64 `json:"duration"`
	Type        int     `json:"type"`
	Instruction string  `json:"instruction"`
	Name        string  `json:"name"`
}

// lineString coordinates are [lng, lat] pairs, optionally with elevation.
type lineString struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

// errorResponse is the ORS error envelope.
type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ORS internal error code for "route could not be found".
const errorCodeRouteNotFound = 2009
