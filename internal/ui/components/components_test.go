// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/jeranaias/ragworks-tui/internal/ui/styles"
)

func theme() *styles.Theme { return styles.NewTheme(styles.ModeDark) }

func TestHighlight_UnknownLanguageKeepsText(t *testing.T) {
	out := ansi.Strip(Highlight("plain words here", "no-such-lang", true))
	assert.Equal(t, "plain words here", out)
}

func TestRenderCodeFences(t *testing.T) {
	text := "before\n```go\nfmt.Println(\"hi\")\n```\nafter"
	out := ansi.Strip(RenderCodeFences(text, 60, theme()))

	assert.Contains(t, out, "before")
	assert.Contains(t, out, "after")
	assert.Contains(t, out, "go")
	assert.Contains(t, out, `fmt.Println("hi")`)
	assert.NotContains(t, out, "```")
}

func TestRenderCodeFences_Unterminated(t *testing.T) {
	out := ansi.Strip(RenderCodeFences("```\nx := 1", 60, theme()))
	assert.Contains(t, out, "x := 1")
	assert.NotContains(t, out, "```")
}

func TestRenderCodeFences_NoFencesUnchanged(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching("[a-zA-Z0-9 .,\n]{0,80}").Draw(t, "text")
		if got := RenderCodeFences(text, 60, theme()); got != text {
			t.Fatalf("RenderCodeFences(%q) = %q", text, got)
		}
	})
}

func TestRenderer_PlainMode(t *testing.T) {
	r := NewRenderer(theme(), 60, false)
	assert.False(t, r.Markdown())
	assert.Equal(t, "**bold** stays literal", r.Render("**bold** stays literal"))
}

func TestRenderer_MarkdownMode(t *testing.T) {
	r := NewRenderer(theme(), 60, true)
	require.True(t, r.Markdown())
	out := ansi.Strip(r.Render("# Title\n\nSome **bold** text"))
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "bold")
	assert.NotContains(t, out, "**")
}

func TestHeader_FitsWidth(t *testing.T) {
	th := theme()
	h := Header{
		Identity: strings.Repeat("very-long-username-", 10),
		Hint:     "ctrl+l logout",
		Width:    60,
	}
	out := h.View(th)
	assert.LessOrEqual(t, lipgloss.Width(out), 60)
	assert.Contains(t, ansi.Strip(out), Brand)
	assert.Contains(t, ansi.Strip(out), "ctrl+l logout")
}

func TestHeader_NoIdentity(t *testing.T) {
	out := ansi.Strip(Header{Width: 40}.View(theme()))
	assert.Contains(t, out, Brand)
}
