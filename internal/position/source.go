// Package position adapts the device's location providers (GPS fixes
// over MQTT, a serial NMEA receiver, GPX track replay) into one stream
// of updates, errors and, for simulated tracks, headings.
package position

import (
	"math"
	"time"

	"github.com/relabs-tech/dsa_handheld/internal/event"
	"github.com/relabs-tech/dsa_handheld/internal/geo"
	"github.com/relabs-tech/dsa_handheld/internal/gps"
)

// Update is one position report.
type Update struct {
	Coordinate geo.Coordinate
	Timestamp  time.Time
}

// Source is a provider of position updates.
type Source interface {
	// StartUpdates begins delivery. Calling it while running is a no-op.
	StartUpdates()
	StopUpdates()
	OnUpdate(fn func(Update)) *event.Subscription
	OnError(fn func(error)) *event.Subscription
}

// HeadingSource is implemented by sources that synthesize their own
// heading, e.g. a replayed track.
type HeadingSource interface {
	OnHeading(fn func(float64)) *event.Subscription
}

// emitter carries the feeds shared by every source.
type emitter struct {
	updates event.Feed[Update]
	errors  event.Feed[error]
}

func (e *emitter) OnUpdate(fn func(Update)) *event.Subscription {
	return e.updates.Subscribe(fn)
}

func (e *emitter) OnError(fn func(error)) *event.Subscription {
	return e.errors.Subscribe(fn)
}

// CoordinateFromFix maps a GPS fix to a coordinate. A void fix is
// invalid; a fix with GGA altitude is 3-D; otherwise 2-D.
func CoordinateFromFix(f gps.Fix) geo.Coordinate {
	if !f.Valid() {
		return geo.NewCoordinate2D(math.NaN(), math.NaN())
	}
	if f.HasAltitude {
		return geo.NewCoordinate3D(f.Latitude, f.Longitude, f.Altitude)
	}
	return geo.NewCoordinate2D(f.Latitude, f.Longitude)
}
