// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package highlight draws a pulsing marker at a point to draw the eye,
// e.g. to the user's own location after a "where am I" request.
package highlight

import (
	"sync"
	"time"

	"github.com/relabs-tech/dsa_handheld/internal/event"
	"github.com/relabs-tech/dsa_handheld/internal/geo"
	"github.com/relabs-tech/dsa_handheld/internal/metrics"
	"github.com/relabs-tech/dsa_handheld/internal/scene"
)

// DefaultTickInterval is the animation period.
const DefaultTickInterval = 10 * time.Millisecond

// OverlayID names the overlay the highlighter adds to the view.
const OverlayID = "POINTHIGHLIGHTOVERLAY"

// session is one running animation. Its stop channel is closed exactly
// once, by whoever ends the session while holding Highlighter.mu.
type session struct {
	stop chan struct{}
}

// Highlighter animates a pulse at the current point. It rebinds its
// overlay whenever the provider's view changes.
type Highlighter struct {
	mu sync.Mutex

	provider *scene.ViewProvider
	viewSub  *event.Subscription
	interval time.Duration

	view    *scene.View
	overlay *scene.Overlay
	symbol  *scene.MarkerSceneSymbol

	point   geo.Point
	session *session

	ticks event.Feed[Pulse]
}

// New binds to the provider's current view and follows its changes. A
// non-positive interval selects DefaultTickInterval.
func New(provider *scene.ViewProvider, interval time.Duration) *Highlighter {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	h := &Highlighter{provider: provider, interval: interval}
	h.viewSub = provider.OnViewChanged(func(*scene.View) { h.onViewChanged() })
	h.onViewChanged()
	return h
}

// OnPointChanged records the target of the next (or running) highlight.
func (h *Highlighter) OnPointChanged(p geo.Point) {
	h.mu.Lock()
	h.point = p
	h.mu.Unlock()
}

func (h *Highlighter) Point() geo.Point {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.point
}

// Active reports whether an animation session is running.
func (h *Highlighter) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session != nil
}

// OnTick is notified with the new pulse state after every applied tick.
func (h *Highlighter) OnTick(fn func(Pulse)) *event.Subscription {
	return h.ticks.Subscribe(fn)
}

// StartHighlight places the highlight graphic at the current point and
// starts the pulse. Without a point, overlay or symbol it does nothing.
func (h *Highlighter) StartHighlight() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.point.IsEmpty() || h.overlay == nil || h.symbol == nil {
		return
	}

	h.endSessionLocked()
	h.overlay.ClearGraphics()
	h.overlay.AppendGraphic(scene.NewGraphic(h.point, h.symbol))

	s := &session{stop: make(chan struct{})}
	h.session = s
	metrics.SetHighlightActive(true)
	go h.run(s)
}

// StopHighlight removes the highlight graphic and cancels the pulse. It
// is safe to call when nothing is running.
func (h *Highlighter) StopHighlight() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.overlay != nil {
		h.overlay.ClearGraphics()
	}
	h.endSessionLocked()
}

// Close stops following the view and ends any running highlight.
func (h *Highlighter) Close() {
	h.viewSub.Unsubscribe()
	h.StopHighlight()
}

func (h *Highlighter) run(s *session) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if !h.tick(s) {
				return
			}
		}
	}
}

// tick applies one pulse step for session s. It returns false when the
// session is over: superseded, stopped, or its overlay/symbol/graphic is
// gone.
func (h *Highlighter) tick(s *session) bool {
	h.mu.Lock()
	if h.session != s {
		h.mu.Unlock()
		return false
	}

	if h.symbol == nil || h.overlay == nil {
		h.endSessionLocked()
		h.mu.Unlock()
		return false
	}
	graphic, ok := h.overlay.FirstGraphic()
	if !ok {
		h.endSessionLocked()
		h.mu.Unlock()
		return false
	}

	graphic.SetGeometry(h.point)

	next := Pulse{Dimension: h.symbol.Width(), Opacity: h.overlay.Opacity()}.Next()
	h.symbol.SetWidth(next.Dimension)
	h.symbol.SetHeight(next.Dimension)
	h.symbol.SetDepth(next.Dimension)
	h.overlay.SetOpacity(next.Opacity)
	h.mu.Unlock()

	h.ticks.Send(next)
	return true
}

func (h *Highlighter) endSessionLocked() {
	if h.session == nil {
		return
	}
	close(h.session.stop)
	h.session = nil
	metrics.SetHighlightActive(false)
}

// onViewChanged drops the overlay and symbol bound to the previous view
// and, when a view is available, creates fresh ones on it.
func (h *Highlighter) onViewChanged() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.endSessionLocked()
	if h.overlay != nil && h.view != nil {
		h.view.RemoveOverlay(h.overlay)
	}
	h.overlay = nil
	h.symbol = nil
	h.view = h.provider.View()

	if h.view == nil {
		return
	}

	h.overlay = scene.NewOverlay(OverlayID)
	h.view.AppendOverlay(h.overlay)
	h.symbol = scene.NewMarkerSceneSymbol(scene.MarkerSphere, "red", MinDimension, MinDimension, MinDimension, scene.AnchorCenter)
}
