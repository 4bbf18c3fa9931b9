package scene

import "sync"

// Symbol is anything a graphic or renderer can be drawn with.
type Symbol interface {
	Snapshot() SymbolSnapshot
}

// MarkerStyle is the 3-D shape of a marker scene symbol.
type MarkerStyle string

const (
	MarkerSphere   MarkerStyle = "sphere"
	MarkerCone     MarkerStyle = "cone"
	MarkerCube     MarkerStyle = "cube"
	MarkerCylinder MarkerStyle = "cylinder"
	MarkerDiamond  MarkerStyle = "diamond"
)

// AnchorPosition places the symbol relative to its point.
type AnchorPosition string

const (
	AnchorTop    AnchorPosition = "top"
	AnchorCenter AnchorPosition = "center"
	AnchorBottom AnchorPosition = "bottom"
)

// SymbolSnapshot is the JSON form of a symbol.
type SymbolSnapshot struct {
	Kind   string         `json:"kind"`
	Style  MarkerStyle    `json:"style,omitempty"`
	Color  string         `json:"color,omitempty"`
	Width  float64        `json:"width,omitempty"`
	Height float64        `json:"height,omitempty"`
	Depth  float64        `json:"depth,omitempty"`
	Anchor AnchorPosition `json:"anchor,omitempty"`
}

func snapshotSymbol(s Symbol) *SymbolSnapshot {
	if s == nil {
		return nil
	}
	snap := s.Snapshot()
	return &snap
}

// MarkerSceneSymbol is a simple 3-D marker with mutable dimensions.
type MarkerSceneSymbol struct {
	mu     sync.RWMutex
	style  MarkerStyle
	color  string
	width  float64
	height float64
	depth  float64
	anchor AnchorPosition
}

func NewMarkerSceneSymbol(style MarkerStyle, color string, width, height, depth float64, anchor AnchorPosition) *MarkerSceneSymbol {
	return &MarkerSceneSymbol{style: style, color: color, width: width, height: height, depth: depth, anchor: anchor}
}

func (s *MarkerSceneSymbol) Width() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width
}

func (s *MarkerSceneSymbol) SetWidth(v float64) {
	s.mu.Lock()
	s.width = v
	s.mu.Unlock()
}

func (s *MarkerSceneSymbol) Height() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.height
}

func (s *MarkerSceneSymbol) SetHeight(v float64) {
	s.mu.Lock()
	s.height = v
	s.mu.Unlock()
}

func (s *MarkerSceneSymbol) Depth() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.depth
}

func (s *MarkerSceneSymbol) SetDepth(v float64) {
	s.mu.Lock()
	s.depth = v
	s.mu.Unlock()
}

func (s *MarkerSceneSymbol) Snapshot() SymbolSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SymbolSnapshot{
		Kind:   "marker_scene",
		Style:  s.style,
		Color:  s.color,
		Width:  s.width,
		Height: s.height,
		Depth:  s.depth,
		Anchor: s.anchor,
	}
}
