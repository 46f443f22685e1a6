// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"crypto/sha256"
	"encoding/hex"
)

// =============================================================================
// VIEWPORT OPTIMIZER
// =============================================================================

// ViewportOptimizer keeps rendered transcript entries keyed by message ID
// and remembers the hash of the last content pushed to the viewport, so a
// refresh that changes nothing neither re-renders Markdown nor moves the
// scroll position.
//
// It is owned by a single Model and is not safe for concurrent use.
type ViewportOptimizer struct {
	width    int
	rendered map[string]string
	lastHash string

	hits   uint64
	misses uint64
}

// NewViewportOptimizer returns an empty optimizer.
func NewViewportOptimizer() *ViewportOptimizer {
	return &ViewportOptimizer{rendered: make(map[string]string)}
}

// Entry returns the cached rendering of message id at width, calling
// render on a miss. A width change drops the whole cache.
func (vo *ViewportOptimizer) Entry(id string, width int, render func() string) string {
	if width != vo.width {
		vo.width = width
		vo.rendered = make(map[string]string)
	}
	if out, ok := vo.rendered[id]; ok {
		vo.hits++
		return out
	}
	vo.misses++
	out := render()
	vo.rendered[id] = out
	return out
}

// ShouldUpdate reports whether content differs from what was last set.
func (vo *ViewportOptimizer) ShouldUpdate(content string) bool {
	h := hashContent(content)
	if h == vo.lastHash {
		return false
	}
	vo.lastHash = h
	return true
}

// Reset drops every cached entry and forces the next update.
func (vo *ViewportOptimizer) Reset() {
	vo.rendered = make(map[string]string)
	vo.lastHash = ""
}

// Stats returns the entry cache hit and miss counts.
func (vo *ViewportOptimizer) Stats() (hits, misses uint64) {
	return vo.hits, vo.misses
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
