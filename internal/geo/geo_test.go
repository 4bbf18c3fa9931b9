package geo

import (
	"encoding/json"
	"math"
	"testing"
)

func TestCoordinate_Type(t *testing.T) {
	tests := []struct {
		name string
		c    Coordinate
		want CoordinateType
	}{
		{"2d", NewCoordinate2D(48.1, 11.5), Coordinate2D},
		{"3d", NewCoordinate3D(48.1, 11.5, 520), Coordinate3D},
		{"3d nan altitude", NewCoordinate3D(48.1, 11.5, math.NaN()), Coordinate3D},
		{"latitude out of range", NewCoordinate2D(91, 0), InvalidCoordinate},
		{"longitude out of range", NewCoordinate3D(0, -181, 5), InvalidCoordinate},
		{"nan latitude", NewCoordinate2D(math.NaN(), 0), InvalidCoordinate},
		{"zero value", Coordinate{}, Coordinate2D},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Type(); got != tt.want {
				t.Fatalf("Type() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPoint_EmptySentinel(t *testing.T) {
	var p Point
	if !p.IsEmpty() {
		t.Fatalf("zero point should be empty")
	}
	if NewPoint(0, 0, 0).IsEmpty() {
		t.Fatalf("NewPoint(0,0,0) should not be empty")
	}
}

func TestPoint_JSON(t *testing.T) {
	b, err := json.Marshal(Point{})
	if err != nil {
		t.Fatalf("marshal empty: %v", err)
	}
	if string(b) != "null" {
		t.Fatalf("empty point = %s, want null", b)
	}

	var p Point
	if err := json.Unmarshal([]byte(`{"x":11.5,"y":48.1,"z":10}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p != NewPoint(11.5, 48.1, 10) {
		t.Fatalf("unexpected point %+v", p)
	}
}

func TestDistanceMeters_OneDegreeLatitude(t *testing.T) {
	d := DistanceMeters(NewPoint(0, 0, 0), NewPoint(0, 1, 0))
	if math.Abs(d-111195) > 5 {
		t.Fatalf("distance = %.1f, want ~111195", d)
	}
}

func TestBearing_CardinalDirections(t *testing.T) {
	origin := NewPoint(0, 0, 0)
	tests := []struct {
		name string
		to   Point
		want float64
	}{
		{"north", NewPoint(0, 1, 0), 0},
		{"east", NewPoint(1, 0, 0), 90},
		{"south", NewPoint(0, -1, 0), 180},
		{"west", NewPoint(-1, 0, 0), 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Bearing(origin, tt.to); math.Abs(got-tt.want) > 1e-6 {
				t.Fatalf("Bearing = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestNormalizeDegrees(t *testing.T) {
	if got := NormalizeDegrees(-90); got != 270 {
		t.Fatalf("NormalizeDegrees(-90) = %f", got)
	}
	if got := NormalizeDegrees(725); got != 5 {
		t.Fatalf("NormalizeDegrees(725) = %f", got)
	}
}
