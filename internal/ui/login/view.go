// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package login

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragworks-tui/internal/auth"
	"github.com/jeranaias/ragworks-tui/internal/ui/components"
	"github.com/jeranaias/ragworks-tui/internal/ui/styles"
)

const formWidth = 60

// View renders the centred form.
func (m Model) View() string {
	t := m.theme
	var b strings.Builder

	b.WriteString(t.HeaderBrand.Render(components.Brand))
	b.WriteString("\n")
	b.WriteString(t.FormTitle.Render(m.form.Mode().String()))
	b.WriteString("\n")

	b.WriteString(t.FieldLabel.Render("Username"))
	b.WriteString("\n")
	b.WriteString(m.field(m.username, m.focus == fieldUsername))
	b.WriteString("\n")
	b.WriteString(t.FieldLabel.Render("Password"))
	b.WriteString("\n")
	b.WriteString(m.field(m.password, m.focus == fieldPassword))
	b.WriteString("\n\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	if m.browserURL != "" {
		b.WriteString(t.Hint.Render("Open this URL to continue:"))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(formWidth).Foreground(styles.Cyan).Render(m.browserURL))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(t.Hint.Render(m.switchHint()))

	form := t.FormBox.Width(formWidth + 6).Render(b.String())
	footer := m.help.View(m.keys)

	if m.width == 0 || m.height == 0 {
		return form + "\n" + footer
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, form)
	return body + "\n" + footer
}

func (m Model) field(input interface{ View() string }, focused bool) string {
	style := m.theme.InputContainer
	if focused {
		style = m.theme.InputFocused
	}
	return style.Width(formWidth).Render(input.View())
}

func (m Model) statusLine() string {
	switch {
	case m.busy:
		return m.spinner.View() + " " + m.theme.ThinkingText.Render(MessageProcessing)
	case m.browserCancel != nil:
		return m.spinner.View() + " " + m.theme.ThinkingText.Render(MessageWaitingBrowser)
	case m.errText != "":
		return styles.RenderError(m.errText)
	case m.notice != "":
		return styles.RenderWarning(m.notice)
	default:
		return ""
	}
}

func (m Model) switchHint() string {
	if m.form.Mode() == auth.ModeSignIn {
		return "No account? Press ctrl+t to create one."
	}
	return "Have an account? Press ctrl+t to sign in."
}
