// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragworks-tui/internal/ui/styles"
	"github.com/jeranaias/ragworks-tui/internal/util"
)

// Brand is the product name shown in the header.
const Brand = "RAGworks"

// Header is the one-line title bar: brand on the left, identity and a key
// hint on the right.
type Header struct {
	Identity string
	Hint     string
	Width    int
}

// View renders the header. A long identity is truncated so the bar never
// wraps.
func (h Header) View(theme *styles.Theme) string {
	width := h.Width
	if width < 20 {
		width = 20
	}
	inner := width - theme.Header.GetHorizontalFrameSize()

	left := theme.HeaderBrand.Render(Brand)

	var rightParts []string
	if h.Identity != "" {
		room := inner - lipgloss.Width(left) - util.StringWidth(h.Hint) - 4
		if room < 4 {
			room = 4
		}
		rightParts = append(rightParts, theme.HeaderIdentity.Render(util.TruncateWidth(h.Identity, room)))
	}
	if h.Hint != "" {
		rightParts = append(rightParts, theme.HeaderHint.Render(h.Hint))
	}
	right := strings.Join(rightParts, "  ")

	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return theme.Header.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}
