package alerts

import (
	"math"

	"github.com/relabs-tech/dsa_handheld/internal/geo"
)

// Rule decides whether a condition holds at a location.
type Rule interface {
	Matches(location geo.Point) bool
}

// ProximityRule holds while the location is within RadiusMeters of
// Target, measured along the ground.
type ProximityRule struct {
	Target       geo.Point
	RadiusMeters float64
}

func (r ProximityRule) Matches(location geo.Point) bool {
	if location.IsEmpty() || r.Target.IsEmpty() || math.IsNaN(r.RadiusMeters) || r.RadiusMeters < 0 {
		return false
	}
	return geo.DistanceMeters(location, r.Target) <= r.RadiusMeters
}
