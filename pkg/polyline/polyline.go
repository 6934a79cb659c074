// Package polyline encodes and decodes route geometry in the encoded polyline format
// (https://developers.google.com/maps/documentation/utilities/polylinealgorithm).
// OSRM and OpenRouteService emit precision 5 by default; OSRM's "polyline6" uses 6.
package polyline

import (
	"errors"
	"math"
)

// Supported precisions.
const (
	Precision5 = 5
	Precision6 = 6
)

// ErrTruncated is returned when the encoded string ends in the middle of a value
// or carries a latitude without its longitude.
var ErrTruncated = errors.New("polyline: truncated input")

// Point is a decoded (lat, lng) pair in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Decode decodes a precision-5 polyline.
func Decode(encoded string) ([]Point, error) {
	return DecodePrecision(encoded, Precision5)
}

// Encode encodes points as a precision-5 polyline.
func Encode(points []Point) string {
	return EncodePrecision(points, Precision5)
}

// DecodePrecision decodes a polyline whose values were scaled by 10^precision.
func DecodePrecision(encoded string, precision int) ([]Point, error) {
	if encoded == "" {
		return nil, nil
	}

	factor := math.Pow10(precision)
	points := make([]Point, 0, len(encoded)/4)
	index, lat, lng := 0, 0, 0

	for index < len(encoded) {
		latDelta, next, err := decodeValue(encoded, index)
		if err != nil {
			return nil, err
		}
		if next >= len(encoded) {
			return nil, ErrTruncated
		}
		lngDelta, next, err := decodeValue(encoded, next)
		if err != nil {
			return nil, err
		}
		index = next
		lat += latDelta
		lng += lngDelta

		points = append(points, Point{
			Lat: float64(lat) / factor,
			Lng: float64(lng) / factor,
		})
	}

	return points, nil
}

// decodeValue reads one zig-zag encoded varint starting at index.
func decodeValue(encoded string, index int) (int, int, error) {
	shift, result := 0, 0

	for {
		if index >= len(encoded) {
			return 0, index, ErrTruncated
		}
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index, nil
	}
	return result >> 1, index, nil
}

// EncodePrecision encodes points scaled by 10^precision.
func EncodePrecision(points []Point, precision int) string {
	if len(points) == 0 {
		return ""
	}

	factor := math.Pow10(precision)
	buf := make([]byte, 0, len(points)*6)
	prevLat, prevLng := 0, 0

	for _, p := range points {
		lat := int(math.Round(p.Lat * factor))
		lng := int(math.Round(p.Lng * factor))

		buf = encodeValue(buf, lat-prevLat)
		buf = encodeValue(buf, lng-prevLng)

		prevLat, prevLng = lat, lng
	}

	return string(buf)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}
