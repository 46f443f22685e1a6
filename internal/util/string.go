// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"github.com/mattn/go-runewidth"
)

// Ellipsis is appended by TruncateWidth when text is cut.
const Ellipsis = "…"

// TruncateWidth truncates s to at most maxWidth terminal cells, appending an
// ellipsis when anything was removed. Wide (CJK, emoji) runes count as two
// cells.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= runewidth.StringWidth(Ellipsis) {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, Ellipsis)
}

// StringWidth returns the number of terminal cells s occupies.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// MaskSecret renders a credential for display without revealing it. Only the
// length and the last four characters survive.
func MaskSecret(secret string) string {
	if secret == "" {
		return "[none]"
	}
	if len(secret) <= 8 {
		return "[redacted]"
	}
	return "[redacted …" + secret[len(secret)-4:] + "]"
}
