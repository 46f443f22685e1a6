// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/ragworks-tui/internal/ui/styles"
)

// noMarginStyle removes glamour's document margins so replies line up with
// the transcript labels.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// Renderer turns assistant replies into terminal text. With Markdown
// enabled it uses glamour; otherwise only fenced code is highlighted.
type Renderer struct {
	theme    *styles.Theme
	glamour  *glamour.TermRenderer
	width    int
	markdown bool
}

// NewRenderer builds a renderer wrapping at width. If glamour cannot be
// initialised the renderer falls back to plain mode.
func NewRenderer(theme *styles.Theme, width int, markdown bool) *Renderer {
	r := &Renderer{theme: theme, width: width}
	if !markdown {
		return r
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme.GlamourStyle()),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		r.glamour = tr
		r.markdown = true
	}
	return r
}

// Width returns the wrap width.
func (r *Renderer) Width() int {
	return r.width
}

// Markdown reports whether glamour rendering is active.
func (r *Renderer) Markdown() bool {
	return r.markdown
}

// Render renders text. It never fails; on a glamour error the plain
// rendering is returned.
func (r *Renderer) Render(text string) string {
	if r.markdown {
		if out, err := r.glamour.Render(text); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return RenderCodeFences(text, r.width, r.theme)
}
