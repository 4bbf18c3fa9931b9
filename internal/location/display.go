// Package location keeps the user's live position marker on the scene,
// fed by a position source and an optional compass.
package location

import (
	"math"
	"sync"

	"github.com/relabs-tech/dsa_handheld/internal/event"
	"github.com/relabs-tech/dsa_handheld/internal/geo"
	"github.com/relabs-tech/dsa_handheld/internal/orientation"
	"github.com/relabs-tech/dsa_handheld/internal/position"
	"github.com/relabs-tech/dsa_handheld/internal/scene"
)

const (
	OverlayID         = "SCENEVIEWLOCATIONOVERLAY"
	HeadingAttribute  = "heading"
	HeadingExpression = "[" + HeadingAttribute + "]"

	// ElevatedZ lifts positions without a reliable altitude 10m off the
	// ground so the marker is not buried in terrain.
	ElevatedZ = 10.0
)

// Display owns the location overlay and its marker graphic.
type Display struct {
	mu sync.Mutex

	overlay  *scene.Overlay
	marker   *scene.Graphic
	renderer *scene.SimpleRenderer
	symbol   scene.Symbol

	source     position.Source
	sourceSubs []*event.Subscription

	compass    orientation.Compass
	compassSub *event.Subscription

	started   bool
	lastKnown geo.Point
	heading   float64

	locationChanged event.Feed[geo.Point]
	headingChanged  event.Feed[float64]
}

func NewDisplay() *Display {
	overlay := scene.NewOverlay(OverlayID)
	overlay.SetSurfacePlacement(scene.SurfaceRelative)
	overlay.SetRenderingMode(scene.RenderingDynamic)
	overlay.SetVisible(false)

	marker := scene.NewGraphic(geo.Point{}, nil)
	marker.SetAttribute(HeadingAttribute, 0.0)
	overlay.AppendGraphic(marker)

	return &Display{overlay: overlay, marker: marker}
}

// Start begins updates on the bound source and shows the marker. The
// source is asked to start on every call.
func (d *Display) Start() {
	d.mu.Lock()
	src := d.source
	d.overlay.SetVisible(true)
	d.started = true
	d.mu.Unlock()

	if src != nil {
		src.StartUpdates()
	}
}

// Stop hides the marker and forgets the last known location.
func (d *Display) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.overlay.SetVisible(false)
	d.lastKnown = geo.Point{}
	d.started = false
}

func (d *Display) IsStarted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

// LastKnownLocation returns the last valid location, or the empty point.
func (d *Display) LastKnownLocation() geo.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastKnown
}

func (d *Display) Heading() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.heading
}

func (d *Display) Overlay() *scene.Overlay {
	return d.overlay
}

func (d *Display) PositionSource() position.Source {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.source
}

// SetPositionSource releases every subscription held on the previous
// source before subscribing to src. A nil src leaves the slot empty.
func (d *Display) SetPositionSource(src position.Source) {
	d.mu.Lock()
	old := d.sourceSubs
	d.sourceSubs = nil
	d.source = src
	started := d.started
	d.mu.Unlock()

	for _, sub := range old {
		sub.Unsubscribe()
	}

	if src == nil {
		return
	}

	subs := []*event.Subscription{
		src.OnError(func(error) { d.postLastKnownLocation() }),
		src.OnUpdate(d.handleUpdate),
	}
	if hs, ok := src.(position.HeadingSource); ok {
		subs = append(subs, hs.OnHeading(d.handleHeading))
	}

	d.mu.Lock()
	if d.source != src {
		// superseded while subscribing
		d.mu.Unlock()
		for _, sub := range subs {
			sub.Unsubscribe()
		}
		return
	}
	d.sourceSubs = subs
	d.mu.Unlock()

	if started {
		src.StartUpdates()
	}
}

func (d *Display) Compass() orientation.Compass {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.compass
}

// SetCompass rebinds the heading stream, independently of the position
// source, and starts the new compass.
func (d *Display) SetCompass(c orientation.Compass) {
	d.mu.Lock()
	old := d.compassSub
	d.compassSub = nil
	d.compass = c
	d.mu.Unlock()

	old.Unsubscribe()

	if c == nil {
		return
	}

	sub := c.OnReading(func(r orientation.Reading) { d.handleHeading(r.Azimuth) })

	d.mu.Lock()
	if d.compass != c {
		d.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	d.compassSub = sub
	d.mu.Unlock()

	c.Start()
}

func (d *Display) DefaultSymbol() scene.Symbol {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.symbol
}

// SetDefaultSymbol sets the marker symbol. The first call installs a
// renderer oriented by the heading attribute; later calls swap the symbol
// on that same renderer.
func (d *Display) SetDefaultSymbol(s scene.Symbol) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.symbol = s

	if d.renderer == nil {
		d.renderer = scene.NewSimpleRenderer(s)
		d.renderer.SetHeadingExpression(HeadingExpression)
		d.overlay.SetRenderer(d.renderer)
		return
	}
	d.renderer.SetSymbol(s)
}

func (d *Display) OnLocationChanged(fn func(geo.Point)) *event.Subscription {
	return d.locationChanged.Subscribe(fn)
}

func (d *Display) OnHeadingChanged(fn func(float64)) *event.Subscription {
	return d.headingChanged.Subscribe(fn)
}

// Close releases the source and compass subscriptions.
func (d *Display) Close() {
	d.SetPositionSource(nil)
	d.SetCompass(nil)
}

func (d *Display) handleUpdate(u position.Update) {
	p, ok := ToPoint(u.Coordinate)
	if !ok {
		d.postLastKnownLocation()
		return
	}

	d.mu.Lock()
	d.lastKnown = p
	d.marker.SetGeometry(p)
	d.mu.Unlock()

	d.locationChanged.Send(p)
}

func (d *Display) handleHeading(heading float64) {
	d.mu.Lock()
	d.heading = heading
	d.marker.SetAttribute(HeadingAttribute, heading)
	d.mu.Unlock()

	d.headingChanged.Send(heading)
}

// postLastKnownLocation re-publishes the last good location so the UI
// stays fresh while the source is failing.
func (d *Display) postLastKnownLocation() {
	d.mu.Lock()
	p := d.lastKnown
	if p.IsEmpty() {
		d.mu.Unlock()
		return
	}
	d.marker.SetGeometry(p)
	d.mu.Unlock()

	d.locationChanged.Send(p)
}

// ToPoint converts a coordinate to a scene point. 2-D coordinates and
// 3-D coordinates whose altitude is non-finite or exactly zero are
// placed at ElevatedZ. Invalid coordinates return false.
func ToPoint(c geo.Coordinate) (geo.Point, bool) {
	switch c.Type() {
	case geo.Coordinate2D:
		return geo.NewPoint(c.Longitude, c.Latitude, ElevatedZ), true
	case geo.Coordinate3D:
		z := c.Altitude
		if math.IsNaN(z) || math.IsInf(z, 0) || z == 0 {
			z = ElevatedZ
		}
		return geo.NewPoint(c.Longitude, c.Latitude, z), true
	default:
		return geo.Point{}, false
	}
}
