// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// =============================================================================
// FORMATTING UTILITIES
// =============================================================================

// formatTimestamp formats a timestamp for a transcript label:
//   - Today: "15:04"
//   - This week: "Mon 15:04"
//   - Older: "Jan 2 15:04"
func formatTimestamp(t, now time.Time) string {
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	if now.Sub(t) < 7*24*time.Hour {
		return t.Format("Mon 15:04")
	}
	return t.Format("Jan 2 15:04")
}

// contentWidth is the wrap width for transcript text. Never below 10.
func contentWidth(totalWidth, margin int) int {
	w := totalWidth - margin
	if w < 10 {
		w = 10
	}
	return w
}

// wrapText wraps text at maxWidth display cells, breaking at spaces where
// possible and keeping existing line breaks.
func wrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return text
	}

	var out strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			out.WriteString("\n")
		}
		for runewidth.StringWidth(line) > maxWidth {
			cut := breakPoint(line, maxWidth)
			out.WriteString(strings.TrimRight(line[:cut], " "))
			out.WriteString("\n")
			line = strings.TrimLeft(line[cut:], " ")
		}
		out.WriteString(line)
	}
	return out.String()
}

// breakPoint returns the byte offset to cut line at so the head fits in
// maxWidth cells: the last space if there is one, otherwise a hard cut.
func breakPoint(line string, maxWidth int) int {
	width, lastSpace, hard := 0, -1, 0
	for i, r := range line {
		w := runewidth.RuneWidth(r)
		if width+w > maxWidth {
			hard = i
			break
		}
		if r == ' ' {
			lastSpace = i
		}
		width += w
	}
	if lastSpace > 0 {
		return lastSpace
	}
	if hard == 0 {
		// A single rune wider than maxWidth.
		_, size := utf8.DecodeRuneInString(line)
		return size
	}
	return hard
}
