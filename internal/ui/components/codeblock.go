// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/jeranaias/ragworks-tui/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK
// =============================================================================

// minCodeWidth keeps very narrow terminals from collapsing a block.
const minCodeWidth = 20

// CodeBlock is one fenced code block from an assistant reply.
type CodeBlock struct {
	Language string
	Code     string
	MaxWidth int
}

// Render highlights the code and frames it with line numbers and, when
// known, a language badge.
func (c CodeBlock) Render(theme *styles.Theme) string {
	code := strings.TrimSpace(c.Code)
	highlighted := Highlight(code, c.Language, theme.IsDark)

	lines := strings.Split(highlighted, "\n")
	for i, line := range lines {
		lines[i] = theme.CodeLineNum.Render(strconv.Itoa(i+1)) + line
	}
	body := strings.Join(lines, "\n")
	if c.Language != "" {
		body = theme.CodeLangBadge.Render(c.Language) + "\n" + body
	}

	width := c.MaxWidth - 4
	if width < minCodeWidth {
		width = minCodeWidth
	}
	return theme.CodeBlock.MaxWidth(width).Render(body)
}

// RenderCodeFences replaces every ``` fenced block in text with a rendered
// CodeBlock and leaves the rest of the text untouched. An unterminated
// fence runs to the end of the text.
func RenderCodeFences(text string, maxWidth int, theme *styles.Theme) string {
	var (
		out     []string
		code    []string
		lang    string
		inFence bool
	)
	flush := func() {
		out = append(out, CodeBlock{Language: lang, Code: strings.Join(code, "\n"), MaxWidth: maxWidth}.Render(theme))
		code, lang = nil, ""
	}

	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(strings.TrimSpace(line), "```"):
			if inFence {
				flush()
			} else {
				lang = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "```"))
			}
			inFence = !inFence
		case inFence:
			code = append(code, line)
		default:
			out = append(out, line)
		}
	}
	if inFence && len(code) > 0 {
		flush()
	}
	return strings.Join(out, "\n")
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// Highlight returns code with terminal color escapes. An unknown language
// is guessed from the code; on any failure the code is returned as-is.
func Highlight(code, language string, dark bool) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "github"
	if dark {
		styleName = "monokai"
	}
	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}
