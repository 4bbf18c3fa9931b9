// Package scene is the in-process model of what the map view renders:
// overlays of graphics with symbols and renderers. The web UI draws it
// from View.Snapshot.
package scene

import (
	"maps"
	"slices"
	"sync"

	"github.com/relabs-tech/dsa_handheld/internal/event"
	"github.com/relabs-tech/dsa_handheld/internal/geo"
)

// SurfacePlacement controls how graphic heights relate to the terrain.
type SurfacePlacement string

const (
	SurfaceDraped   SurfacePlacement = "draped"
	SurfaceAbsolute SurfacePlacement = "absolute"
	SurfaceRelative SurfacePlacement = "relative"
)

// RenderingMode hints how often an overlay changes.
type RenderingMode string

const (
	RenderingStatic  RenderingMode = "static"
	RenderingDynamic RenderingMode = "dynamic"
)

// Graphic is a geometry, a symbol and a bag of attributes.
type Graphic struct {
	mu         sync.RWMutex
	geometry   geo.Point
	symbol     Symbol
	attributes map[string]any
}

func NewGraphic(geometry geo.Point, symbol Symbol) *Graphic {
	return &Graphic{geometry: geometry, symbol: symbol, attributes: map[string]any{}}
}

func (g *Graphic) Geometry() geo.Point {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.geometry
}

func (g *Graphic) SetGeometry(p geo.Point) {
	g.mu.Lock()
	g.geometry = p
	g.mu.Unlock()
}

func (g *Graphic) Symbol() Symbol {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.symbol
}

func (g *Graphic) Attribute(key string) (any, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.attributes[key]
	return v, ok
}

// SetAttribute inserts or replaces an attribute.
func (g *Graphic) SetAttribute(key string, value any) {
	g.mu.Lock()
	g.attributes[key] = value
	g.mu.Unlock()
}

// SimpleRenderer draws every graphic of an overlay with one symbol,
// optionally rotated by an attribute expression such as "[heading]".
type SimpleRenderer struct {
	mu                sync.RWMutex
	symbol            Symbol
	headingExpression string
}

func NewSimpleRenderer(symbol Symbol) *SimpleRenderer {
	return &SimpleRenderer{symbol: symbol}
}

func (r *SimpleRenderer) Symbol() Symbol {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.symbol
}

func (r *SimpleRenderer) SetSymbol(s Symbol) {
	r.mu.Lock()
	r.symbol = s
	r.mu.Unlock()
}

func (r *SimpleRenderer) HeadingExpression() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.headingExpression
}

func (r *SimpleRenderer) SetHeadingExpression(expr string) {
	r.mu.Lock()
	r.headingExpression = expr
	r.mu.Unlock()
}

// Overlay is an ordered container of graphics drawn above the scene.
type Overlay struct {
	mu        sync.RWMutex
	id        string
	visible   bool
	opacity   float32
	placement SurfacePlacement
	mode      RenderingMode
	renderer  *SimpleRenderer
	graphics  []*Graphic
}

// NewOverlay returns a visible, fully opaque, draped overlay.
func NewOverlay(id string) *Overlay {
	return &Overlay{id: id, visible: true, opacity: 1, placement: SurfaceDraped, mode: RenderingDynamic}
}

func (o *Overlay) ID() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.id
}

func (o *Overlay) Visible() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.visible
}

func (o *Overlay) SetVisible(v bool) {
	o.mu.Lock()
	o.visible = v
	o.mu.Unlock()
}

func (o *Overlay) Opacity() float32 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.opacity
}

func (o *Overlay) SetOpacity(v float32) {
	o.mu.Lock()
	o.opacity = v
	o.mu.Unlock()
}

func (o *Overlay) SurfacePlacement() SurfacePlacement {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.placement
}

func (o *Overlay) SetSurfacePlacement(p SurfacePlacement) {
	o.mu.Lock()
	o.placement = p
	o.mu.Unlock()
}

func (o *Overlay) RenderingMode() RenderingMode {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.mode
}

func (o *Overlay) SetRenderingMode(m RenderingMode) {
	o.mu.Lock()
	o.mode = m
	o.mu.Unlock()
}

func (o *Overlay) Renderer() *SimpleRenderer {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.renderer
}

func (o *Overlay) SetRenderer(r *SimpleRenderer) {
	o.mu.Lock()
	o.renderer = r
	o.mu.Unlock()
}

func (o *Overlay) AppendGraphic(g *Graphic) {
	o.mu.Lock()
	o.graphics = append(o.graphics, g)
	o.mu.Unlock()
}

// RemoveGraphic removes g and reports whether it was present.
func (o *Overlay) RemoveGraphic(g *Graphic) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	before := len(o.graphics)
	o.graphics = slices.DeleteFunc(o.graphics, func(c *Graphic) bool { return c == g })
	return len(o.graphics) != before
}

func (o *Overlay) ClearGraphics() {
	o.mu.Lock()
	o.graphics = nil
	o.mu.Unlock()
}

// FirstGraphic returns the first graphic, or false when empty.
func (o *Overlay) FirstGraphic() (*Graphic, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if len(o.graphics) == 0 {
		return nil, false
	}
	return o.graphics[0], true
}

func (o *Overlay) GraphicCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.graphics)
}

func (o *Overlay) Graphics() []*Graphic {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.graphics)
}

// View is the map/scene view: an ordered stack of overlays.
type View struct {
	mu       sync.RWMutex
	name     string
	overlays []*Overlay
}

func NewView(name string) *View {
	return &View{name: name}
}

func (v *View) Name() string {
	return v.name
}

func (v *View) AppendOverlay(o *Overlay) {
	v.mu.Lock()
	v.overlays = append(v.overlays, o)
	v.mu.Unlock()
}

func (v *View) RemoveOverlay(o *Overlay) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	before := len(v.overlays)
	v.overlays = slices.DeleteFunc(v.overlays, func(c *Overlay) bool { return c == o })
	return len(v.overlays) != before
}

func (v *View) Overlays() []*Overlay {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.overlays)
}

// ViewProvider hands out the current view, which may change or be absent
// while the application runs.
type ViewProvider struct {
	mu      sync.RWMutex
	view    *View
	changed event.Feed[*View]
}

func NewViewProvider(v *View) *ViewProvider {
	return &ViewProvider{view: v}
}

func (p *ViewProvider) View() *View {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.view
}

// SetView replaces the current view (nil allowed) and notifies listeners.
func (p *ViewProvider) SetView(v *View) {
	p.mu.Lock()
	p.view = v
	p.mu.Unlock()
	p.changed.Send(v)
}

func (p *ViewProvider) OnViewChanged(fn func(*View)) *event.Subscription {
	return p.changed.Subscribe(fn)
}

// GraphicSnapshot is the JSON form of a graphic.
type GraphicSnapshot struct {
	Geometry   geo.Point       `json:"geometry"`
	Symbol     *SymbolSnapshot `json:"symbol,omitempty"`
	Attributes map[string]any  `json:"attributes,omitempty"`
}

// OverlaySnapshot is the JSON form of an overlay.
type OverlaySnapshot struct {
	ID                string            `json:"id"`
	Visible           bool              `json:"visible"`
	Opacity           float32           `json:"opacity"`
	SurfacePlacement  SurfacePlacement  `json:"surface_placement"`
	RendererSymbol    *SymbolSnapshot   `json:"renderer_symbol,omitempty"`
	HeadingExpression string            `json:"heading_expression,omitempty"`
	Graphics          []GraphicSnapshot `json:"graphics"`
}

// Snapshot captures the overlays of the view for the UI.
func (v *View) Snapshot() []OverlaySnapshot {
	overlays := v.Overlays()
	out := make([]OverlaySnapshot, 0, len(overlays))
	for _, o := range overlays {
		out = append(out, o.Snapshot())
	}
	return out
}

func (o *Overlay) Snapshot() OverlaySnapshot {
	o.mu.RLock()
	snap := OverlaySnapshot{
		ID:               o.id,
		Visible:          o.visible,
		Opacity:          o.opacity,
		SurfacePlacement: o.placement,
	}
	renderer := o.renderer
	graphics := slices.Clone(o.graphics)
	o.mu.RUnlock()

	if renderer != nil {
		snap.RendererSymbol = snapshotSymbol(renderer.Symbol())
		snap.HeadingExpression = renderer.HeadingExpression()
	}

	snap.Graphics = make([]GraphicSnapshot, 0, len(graphics))
	for _, g := range graphics {
		g.mu.RLock()
		gs := GraphicSnapshot{
			Geometry:   g.geometry,
			Attributes: maps.Clone(g.attributes),
		}
		symbol := g.symbol
		g.mu.RUnlock()
		gs.Symbol = snapshotSymbol(symbol)
		snap.Graphics = append(snap.Graphics, gs)
	}
	return snap
}
