// Package geo holds the coordinate and point types shared by position
// sources, the location display and alert evaluation.
package geo

import (
	"encoding/json"
	"math"
)

const (
	EarthRadiusMeters = 6371000.0
)

// CoordinateType classifies a coordinate the way position providers do.
type CoordinateType int

const (
	InvalidCoordinate CoordinateType = iota
	Coordinate2D
	Coordinate3D
)

func (t CoordinateType) String() string {
	switch t {
	case Coordinate2D:
		return "2d"
	case Coordinate3D:
		return "3d"
	default:
		return "invalid"
	}
}

// Coordinate is a WGS84 position as reported by a position source.
type Coordinate struct {
	Latitude    float64
	Longitude   float64
	Altitude    float64
	hasAltitude bool
}

// NewCoordinate2D returns a coordinate without altitude.
func NewCoordinate2D(lat, lon float64) Coordinate {
	return Coordinate{Latitude: lat, Longitude: lon, Altitude: math.NaN()}
}

// NewCoordinate3D returns a coordinate with altitude. The altitude may be
// NaN when the provider reported a 3-D fix without a usable height.
func NewCoordinate3D(lat, lon, alt float64) Coordinate {
	return Coordinate{Latitude: lat, Longitude: lon, Altitude: alt, hasAltitude: true}
}

// Type returns InvalidCoordinate for NaN or out-of-range components.
func (c Coordinate) Type() CoordinateType {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return InvalidCoordinate
	}
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return InvalidCoordinate
	}
	if c.hasAltitude {
		return Coordinate3D
	}
	return Coordinate2D
}

// IsValid reports whether the coordinate can be placed on the map.
func (c Coordinate) IsValid() bool {
	return c.Type() != InvalidCoordinate
}

// Point is a scene location: X is longitude, Y latitude, Z height in
// meters. The zero value is the empty point.
type Point struct {
	X, Y, Z float64
	set     bool
}

// NewPoint returns a non-empty point.
func NewPoint(x, y, z float64) Point {
	return Point{X: x, Y: y, Z: z, set: true}
}

// IsEmpty reports whether p is the empty sentinel.
func (p Point) IsEmpty() bool {
	return !p.set
}

type pointJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// MarshalJSON encodes the empty point as null.
func (p Point) MarshalJSON() ([]byte, error) {
	if p.IsEmpty() {
		return []byte("null"), nil
	}
	return json.Marshal(pointJSON{X: p.X, Y: p.Y, Z: p.Z})
}

// UnmarshalJSON accepts null as the empty point.
func (p *Point) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Point{}
		return nil
	}
	var v pointJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = NewPoint(v.X, v.Y, v.Z)
	return nil
}

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// DistanceMeters returns the haversine distance between two points,
// ignoring height.
func DistanceMeters(a, b Point) float64 {
	lat1 := degreesToRadians(a.Y)
	lat2 := degreesToRadians(b.Y)
	dLat := lat2 - lat1
	dLon := degreesToRadians(b.X - a.X)

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)

	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Bearing returns the initial course from a to b in degrees [0, 360).
func Bearing(a, b Point) float64 {
	lat1 := degreesToRadians(a.Y)
	lat2 := degreesToRadians(b.Y)
	dLon := degreesToRadians(b.X - a.X)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	return NormalizeDegrees(math.Atan2(y, x) * 180 / math.Pi)
}

// NormalizeDegrees maps any angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
