package orientation

import (
	"math"
)

// Pose is the canonical representation of orientation for your app.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Source is anything that can provide poses over time.
type Source interface {
	Next() (Pose, error)
}

// Heading returns the yaw as a compass azimuth in [0, 360).
func (p Pose) Heading() float64 {
	h := math.Mod(p.Yaw, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// HeadingFromMag computes a flat (not tilt-compensated) azimuth from the
// horizontal magnetometer components.
//
//	heading = atan2(-my, mx)
func HeadingFromMag(mx, my float64) float64 {
	deg := math.Atan2(-my, mx) * 180.0 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}
