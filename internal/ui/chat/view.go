// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragworks-tui/internal/model"
	"github.com/jeranaias/ragworks-tui/internal/ui/components"
	"github.com/jeranaias/ragworks-tui/internal/ui/styles"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the home view.
func (m Model) View() string {
	sections := []string{
		m.renderHeader(),
		m.renderPanel(),
		m.viewport.View(),
		m.renderInput(),
		m.help.View(m.keys),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	hint := "ctrl+l login"
	if m.snapshot.Authenticated() {
		hint = "ctrl+l logout"
	}
	return components.Header{
		Identity: m.snapshot.Identity,
		Hint:     hint,
		Width:    m.width,
	}.View(m.theme)
}

// renderPanel draws the knowledge-base box: title, path input, status.
func (m Model) renderPanel() string {
	t := m.theme
	title := t.PanelTitle.Render("Knowledge Base") + "  " + t.Hint.Render(model.UploadHint)

	return t.Panel.Width(m.panelWidth()).Render(strings.Join([]string{
		title,
		m.fileInput.View(),
		m.panelStatus(),
	}, "\n"))
}

func (m Model) panelStatus() string {
	t := m.theme
	switch {
	case m.confirming:
		return t.WarningStyle.Render(model.ConfirmClearPrompt) + " " + t.Hint.Render("(y/n)")
	case m.uploadBusy:
		return m.spinner.View() + " " + t.ThinkingText.Render(MessageUploading)
	case m.clearBusy:
		return m.spinner.View() + " " + t.ThinkingText.Render(MessageClearing)
	case m.fileErr != "":
		return t.ErrorStyle.Render(m.fileErr)
	}

	status, msg := m.kb.Status()
	switch status {
	case model.StatusSuccess:
		return t.SuccessStyle.Render(msg)
	case model.StatusError:
		return t.ErrorStyle.Render(msg)
	}
	if sel := m.kb.Selected(); sel != "" {
		return t.Hint.Render("Selected: " + sel)
	}
	return t.Hint.Render("Accepts " + model.AcceptedFileExtension + " files")
}

func (m Model) renderInput() string {
	style := m.theme.InputContainer
	if m.focus == focusChat {
		style = m.theme.InputFocused
	}

	body := m.input.View()
	switch {
	case m.chatBusy:
		body = m.spinner.View() + " " + m.theme.ThinkingText.Render(MessageThinking)
	case m.flash != "":
		body = m.theme.Hint.Render(m.flash)
	}
	return style.Width(m.panelWidth()).Render(body)
}

func (m Model) panelWidth() int {
	w := m.width - 2
	if w < 20 {
		w = 20
	}
	return w
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshViewport rebuilds the transcript content and scrolls to the
// bottom when it changed.
func (m *Model) refreshViewport() {
	content := m.renderTranscript()
	if !m.optimizer.ShouldUpdate(content) {
		return
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript() string {
	if !m.snapshot.Authenticated() {
		return m.renderEmpty(MessagePleaseLogin, "")
	}

	entries := m.conv.Transcript().Entries()
	if len(entries) == 0 {
		return m.renderEmpty(MessageReadyTitle, MessageReadyBody)
	}

	width := m.textWidth()
	now := time.Now()
	parts := make([]string, 0, len(entries))
	for _, msg := range entries {
		parts = append(parts, m.optimizer.Entry(msg.ID, width, func() string {
			return m.renderMessage(msg, width, now)
		}))
	}
	return strings.Join(parts, "\n\n")
}

func (m *Model) renderMessage(msg model.Message, width int, now time.Time) string {
	t := m.theme
	stamp := t.Hint.Render(formatTimestamp(msg.Timestamp, now))

	switch {
	case msg.Role == model.RoleUser:
		label := t.UserLabel.Render(msg.Role.DisplayName()) + " " + stamp
		bubbleWidth := width - t.UserBubble.GetHorizontalFrameSize()
		return label + "\n" + t.UserBubble.Render(wrapText(msg.Content, bubbleWidth))
	case msg.IsError:
		label := t.AssistantLabel.Render(msg.Role.DisplayName()) + " " + stamp
		return label + "\n" + t.ErrorText.Render(wrapText(msg.Content, width-2))
	default:
		label := t.AssistantLabel.Render(msg.Role.DisplayName()) + " " + stamp
		return label + "\n" + m.renderer.Render(msg.Content)
	}
}

func (m *Model) renderEmpty(title, body string) string {
	width := m.viewport.Width
	lines := []string{m.theme.EmptyTitle.Render(title)}
	if body != "" {
		lines = append(lines, "", m.theme.EmptyBody.Render(body))
	}
	block := lipgloss.JoinVertical(lipgloss.Center, lines...)
	return lipgloss.Place(width, m.viewport.Height, lipgloss.Center, lipgloss.Center, block,
		lipgloss.WithWhitespaceForeground(styles.OverlayDim))
}
