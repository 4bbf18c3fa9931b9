package gps

import (
	nmea "github.com/adrianmo/go-nmea"
)

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Time        string  `json:"time"`                   // e.g. "12:34:56"
	Date        string  `json:"date"`                   // e.g. "23/03/94"
	Latitude    float64 `json:"lat"`                    // decimal degrees
	Longitude   float64 `json:"lon"`                    // decimal degrees
	Altitude    float64 `json:"alt,omitempty"`          // meters above MSL, from GGA
	HasAltitude bool    `json:"has_alt"`                // true once a GGA with a fix was seen
	SpeedKnots  float64 `json:"speed_knots"`            // speed over ground
	CourseDeg   float64 `json:"course_deg"`             // course over ground
	Validity    string  `json:"validity"`               // "A" (valid) / "V" (void)
	FixQuality  string  `json:"fix_quality,omitempty"`  // GGA quality indicator
	Satellites  int64   `json:"satellites,omitempty"`   // satellites in use
}

// Valid reports whether the receiver flagged the fix as usable.
func (f Fix) Valid() bool {
	return f.Validity == nmea.ValidRMC
}

// Accumulator merges RMC and GGA sentences into one Fix. RMC carries the
// position and completes a fix; GGA only contributes altitude and quality.
type Accumulator struct {
	current Fix
}

// Apply folds s into the running fix. It returns the fix and true when s
// completes one (an RMC sentence).
func (a *Accumulator) Apply(s nmea.Sentence) (Fix, bool) {
	switch s.DataType() {
	case nmea.TypeRMC:
		m := s.(nmea.RMC)
		a.current.Time = m.Time.String()
		a.current.Date = m.Date.String()
		a.current.Latitude = m.Latitude
		a.current.Longitude = m.Longitude
		a.current.SpeedKnots = m.Speed
		a.current.CourseDeg = m.Course
		a.current.Validity = m.Validity
		return a.current, true

	case nmea.TypeGGA:
		m := s.(nmea.GGA)
		a.current.FixQuality = m.FixQuality
		a.current.Satellites = m.NumSatellites
		if m.FixQuality == nmea.Invalid {
			a.current.HasAltitude = false
			a.current.Altitude = 0
			return a.current, false
		}
		a.current.Altitude = m.Altitude
		a.current.HasAltitude = true
		return a.current, false

	default:
		// GSA, GSV, VTG, ... are not needed for a position fix
		return a.current, false
	}
}

// Current returns the fix accumulated so far.
func (a *Accumulator) Current() Fix {
	return a.current
}
