// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"sync"

	"github.com/jeranaias/ragworks-tui/internal/session"
)

// Route is the router's current destination.
type Route struct {
	View   session.View
	Notice string

	// Seq increases on every navigation, so repeated navigation to the
	// same view with the same notice is still observed.
	Seq uint64
}

// Router records navigation requests from any goroutine. The app model
// reads it after each update; OnChange wakes the program for navigation
// that happens outside an update.
type Router struct {
	mu       sync.Mutex
	route    Route
	onChange func()
}

var _ session.Navigator = (*Router)(nil)

// NewRouter starts at initial.
func NewRouter(initial session.View) *Router {
	return &Router{route: Route{View: initial}}
}

// Navigate implements session.Navigator.
func (r *Router) Navigate(view session.View, notice string) {
	r.mu.Lock()
	r.route = Route{View: view, Notice: notice, Seq: r.route.Seq + 1}
	fn := r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Current returns the latest route.
func (r *Router) Current() Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.route
}

// OnChange sets the wake-up hook. It must not block; Navigate may be
// called from inside the program's update loop.
func (r *Router) OnChange(fn func()) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}
