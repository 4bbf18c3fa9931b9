// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package event provides typed notification feeds whose subscriptions
// are explicit handles that can be severed synchronously.
package event

import (
	"slices"
	"sync"
)

// Subscription is the handle returned by Feed.Subscribe.
//
// Unsubscribe is synchronous: when it returns, the callback is not
// running and will not run again. It must not be called from inside the
// subscription's own callback.
type Subscription struct {
	mu     sync.Mutex
	active bool
	detach func()
}

// Unsubscribe severs the subscription. Safe on a nil handle and safe to
// call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}

	s.mu.Lock()
	wasActive := s.active
	s.active = false
	s.mu.Unlock()

	if wasActive && s.detach != nil {
		s.detach()
	}
}

// Active reports whether the subscription still receives values.
func (s *Subscription) Active() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

type handler[T any] struct {
	sub *Subscription
	fn  func(T)
}

// Feed fans a value out to its subscribers, in subscription order, on the
// sending goroutine. The zero value is ready to use.
type Feed[T any] struct {
	mu       sync.Mutex
	handlers []*handler[T]
}

// Subscribe registers fn and returns its handle.
func (f *Feed[T]) Subscribe(fn func(T)) *Subscription {
	h := &handler[T]{fn: fn}
	h.sub = &Subscription{
		active: true,
		detach: func() { f.remove(h) },
	}

	f.mu.Lock()
	f.handlers = append(f.handlers, h)
	f.mu.Unlock()

	return h.sub
}

// Send delivers v to every active subscriber and returns how many
// callbacks ran.
func (f *Feed[T]) Send(v T) int {
	f.mu.Lock()
	handlers := slices.Clone(f.handlers)
	f.mu.Unlock()

	delivered := 0
	for _, h := range handlers {
		h.sub.mu.Lock()
		if h.sub.active {
			h.fn(v)
			delivered++
		}
		h.sub.mu.Unlock()
	}
	return delivered
}

// Len returns the number of live subscriptions.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func (f *Feed[T]) remove(h *handler[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = slices.DeleteFunc(f.handlers, func(c *handler[T]) bool { return c == h })
}
