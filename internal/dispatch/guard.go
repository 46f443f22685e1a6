// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Op names a kind of user-initiated operation.
type Op string

// Operation kinds. At most one of each kind is in flight at a time.
const (
	OpChat          Op = "chat"
	OpUpload        Op = "upload"
	OpDeleteUploads Op = "delete_uploads"
	OpLogin         Op = "login"
	OpRegister      Op = "register"
	OpOAuth         Op = "oauth"
)

// ErrBusy is returned when an operation of the same kind is already in
// flight.
var ErrBusy = errors.New("already in progress")

// Guard admits one operation per kind. Different kinds never block each
// other.
type Guard struct {
	mu   sync.Mutex
	sems map[Op]*semaphore.Weighted
}

// NewGuard returns an empty Guard.
func NewGuard() *Guard {
	return &Guard{sems: make(map[Op]*semaphore.Weighted)}
}

func (g *Guard) sem(op Op) *semaphore.Weighted {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sems[op]
	if !ok {
		s = semaphore.NewWeighted(1)
		g.sems[op] = s
	}
	return s
}

// TryAcquire claims op without waiting. The returned release must be called
// exactly once when ok is true.
func (g *Guard) TryAcquire(op Op) (release func(), ok bool) {
	s := g.sem(op)
	if !s.TryAcquire(1) {
		return nil, false
	}
	var once sync.Once
	return func() { once.Do(func() { s.Release(1) }) }, true
}

// Busy reports whether op is in flight.
func (g *Guard) Busy(op Op) bool {
	release, ok := g.TryAcquire(op)
	if !ok {
		return true
	}
	release()
	return false
}
