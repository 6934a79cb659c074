// Package geo provides the coordinate type and the small set of planar and geodesic
// helpers used to animate a vehicle along a route.
package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius used for geodesic distances.
const EarthRadiusMeters = 6371008.8

// Coordinate is an immutable (latitude, longitude) pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String formats the coordinate as "lat,lng".
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// Valid reports whether both components are finite and within range.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// BearingDegrees returns the direction of travel from one coordinate to the next as
// atan2(dLat, dLng) in degrees, in the range (-180, 180]. This is a screen-space angle
// (0 points east, 90 north) matching how the marker icon is rotated, not a compass bearing.
//
// The function is total: when from == to it returns 0, which happens whenever two
// consecutive route points coincide.
func BearingDegrees(from, to Coordinate) float64 {
	dy := to.Lat - from.Lat
	dx := to.Lng - from.Lng
	if dy == 0 && dx == 0 {
		return 0
	}
	deg := math.Atan2(dy, dx) * 180 / math.Pi
	if deg == -180 {
		deg = 180
	}
	return deg
}

// Interpolate returns the per-axis linear interpolation between a and b.
// Ratio is clamped to [0, 1].
func Interpolate(a, b Coordinate, ratio float64) Coordinate {
	switch {
	case ratio <= 0:
		return a
	case ratio >= 1:
		return b
	}
	return Coordinate{
		Lat: a.Lat + (b.Lat-a.Lat)*ratio,
		Lng: a.Lng + (b.Lng-a.Lng)*ratio,
	}
}

// Subdivide splits every segment of path into steps equal parts. The result starts at
// path[0] and ends at path[len-1], so a path of n points yields (n-1)*steps+1 points.
// Steps below 2 return a copy of path unchanged.
func Subdivide(path []Coordinate, steps int) []Coordinate {
	if len(path) < 2 || steps < 2 {
		out := make([]Coordinate, len(path))
		copy(out, path)
		return out
	}

	out := make([]Coordinate, 0, (len(path)-1)*steps+1)
	for i := 0; i < len(path)-1; i++ {
		a, b := path[i], path[i+1]
		for j := 0; j < steps; j++ {
			out = append(out, Interpolate(a, b, float64(j)/float64(steps)))
		}
	}
	return append(out, path[len(path)-1])
}

// DistanceMeters returns the great-circle distance between a and b.
func DistanceMeters(a, b Coordinate) float64 {
	la := s2.LatLngFromDegrees(a.Lat, a.Lng)
	lb := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return la.Distance(lb).Radians() * EarthRadiusMeters
}

// PathLengthMeters sums the great-circle distance of consecutive points.
func PathLengthMeters(path []Coordinate) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += DistanceMeters(path[i-1], path[i])
	}
	return total
}
