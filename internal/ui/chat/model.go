// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"log/slog"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragworks-tui/internal/dispatch"
	"github.com/jeranaias/ragworks-tui/internal/export"
	"github.com/jeranaias/ragworks-tui/internal/logging"
	"github.com/jeranaias/ragworks-tui/internal/model"
	"github.com/jeranaias/ragworks-tui/internal/session"
	"github.com/jeranaias/ragworks-tui/internal/ui/components"
	"github.com/jeranaias/ragworks-tui/internal/ui/styles"
)

// Empty-state and status texts.
const (
	MessagePleaseLogin  = "Please login to access the knowledge base and start chatting."
	MessageReadyTitle   = "How can I help you?"
	MessageReadyBody    = "Upload a PDF to the Knowledge Base to perform intelligent RAG queries."
	MessageThinking     = "Thinking..."
	MessageUploading    = "Uploading..."
	MessageClearing     = "Clearing..."
	MessageCopied       = "Copied to clipboard."
	MessageNothingCopy  = "No reply to copy."
	MessageSavedPrefix  = "Saved to "
	MessageSelectFailed = "Select a PDF file to upload."
)

// reservedLines is the height taken by everything except the transcript:
// header (1), knowledge panel (5), input box (3), help (1).
const reservedLines = 10

const minViewportHeight = 3

type focusArea int

const (
	focusChat focusArea = iota
	focusFile
)

// =============================================================================
// CONFIG
// =============================================================================

// Sessions is the part of *session.Manager the home view uses.
type Sessions interface {
	Snapshot() session.Snapshot
	Clear()
	RequireLogin(notice string)
}

// Config wires the view to the rest of the application.
type Config struct {
	Theme        *styles.Theme
	Sessions     Sessions
	Conversation *model.Conversation
	Knowledge    *model.KnowledgeBase

	// Markdown enables glamour rendering of replies.
	Markdown bool

	// WordWrap caps the transcript width; 0 means the terminal width.
	WordWrap int

	// Copy writes text to the system clipboard. Defaults to
	// clipboard.WriteAll.
	Copy func(string) error

	// ExportDir receives transcripts saved with ctrl+s. Default ".".
	ExportDir string

	// Backend is recorded in saved transcripts.
	Backend string

	Logger *slog.Logger
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the home view.
type Model struct {
	theme    *styles.Theme
	sessions Sessions
	conv     *model.Conversation
	kb       *model.KnowledgeBase
	copyFn   func(string) error
	logger   *slog.Logger

	exportDir string
	backend   string

	markdown  bool
	wordWrap  int
	renderer  *components.Renderer
	optimizer *ViewportOptimizer

	snapshot session.Snapshot

	viewport  viewport.Model
	input     textinput.Model
	fileInput textinput.Model
	focus     focusArea

	chatBusy   bool
	uploadBusy bool
	clearBusy  bool
	confirming bool

	// fileErr is a local selection error shown in place of the panel
	// status until the next selection.
	fileErr string
	flash   string

	spinner spinner.Model
	keys    KeyMap
	help    help.Model
	width   int
	height  int
}

// New builds the home view. Call SetSize before the first View.
func New(cfg Config) Model {
	in := textinput.New()
	in.Placeholder = "Ask about your documents..."
	in.Prompt = "> "
	in.CharLimit = 4000
	in.Focus()

	file := textinput.New()
	file.Placeholder = "path/to/document.pdf"
	file.Prompt = "PDF: "
	file.CharLimit = 1024

	sp := spinner.New()
	sp.Spinner = styles.DotsSpinner.Bubble()
	sp.Style = cfg.Theme.Spinner

	if cfg.ExportDir == "" {
		cfg.ExportDir = "."
	}

	copyFn := cfg.Copy
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}

	m := Model{
		theme:     cfg.Theme,
		sessions:  cfg.Sessions,
		conv:      cfg.Conversation,
		kb:        cfg.Knowledge,
		copyFn:    copyFn,
		exportDir: cfg.ExportDir,
		backend:   cfg.Backend,
		logger:    logging.OrDiscard(cfg.Logger),
		markdown:  cfg.Markdown,
		wordWrap:  cfg.WordWrap,
		optimizer: NewViewportOptimizer(),
		snapshot:  cfg.Sessions.Snapshot(),
		viewport:  viewport.New(80, minViewportHeight),
		input:     in,
		fileInput: file,
		spinner:   sp,
		keys:      DefaultKeyMap(),
		help:      help.New(),
	}
	m.renderer = components.NewRenderer(m.theme, m.textWidth(), m.markdown)
	m.refreshViewport()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// SetSize lays the view out for a width x height terminal.
func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
	m.help.Width = width

	vh := height - reservedLines
	if vh < minViewportHeight {
		vh = minViewportHeight
	}
	m.viewport.Width = width
	m.viewport.Height = vh

	inputWidth := width - m.theme.InputContainer.GetHorizontalFrameSize() - 4
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth
	m.fileInput.Width = inputWidth

	if m.renderer.Width() != m.textWidth() {
		m.renderer = components.NewRenderer(m.theme, m.textWidth(), m.markdown)
	}
	m.refreshViewport()
}

// Refresh re-reads the session and redraws. The root model calls it when
// the session changes or the view is shown. A different identity starts a
// fresh transcript.
func (m *Model) Refresh() {
	snap := m.sessions.Snapshot()
	if snap.Identity != m.snapshot.Identity {
		m.conv.Transcript().Reset()
		m.optimizer.Reset()
		m.confirming = false
		m.fileErr = ""
		m.flash = ""
	}
	m.snapshot = snap
	m.refreshViewport()
}

// Busy reports whether any operation is in flight.
func (m Model) Busy() bool {
	return m.chatBusy || m.uploadBusy || m.clearBusy
}

// Confirming reports whether the clear confirmation is showing.
func (m Model) Confirming() bool { return m.confirming }

func (m Model) textWidth() int {
	w := contentWidth(m.width, 4)
	if m.wordWrap > 0 && m.wordWrap < w {
		w = m.wordWrap
	}
	return w
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles a message.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case chatDoneMsg:
		m.chatBusy = false
		if msg.err != nil {
			m.logger.Debug("chat failed", "error", msg.err)
		}
		m.refreshViewport()
		return m, nil

	case uploadDoneMsg:
		m.uploadBusy = false
		if msg.err == nil {
			m.fileInput.SetValue("")
		} else {
			m.logger.Debug("upload failed", "error", msg.err)
		}
		return m, nil

	case clearDoneMsg:
		m.clearBusy = false
		if msg.err != nil {
			m.logger.Debug("clear failed", "error", msg.err)
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.flash = msg.err.Error()
		} else {
			m.flash = MessageCopied
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.flash = msg.err.Error()
		} else {
			m.flash = MessageSavedPrefix + msg.path
		}
		return m, nil

	case spinner.TickMsg:
		if !m.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.confirming {
		return m.handleConfirm(msg)
	}
	m.flash = ""

	switch {
	case key.Matches(msg, m.keys.SwitchFocus):
		m.toggleFocus()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.focus == focusFile {
			return m.upload()
		}
		return m.send()

	case key.Matches(msg, m.keys.ClearKB):
		if !m.snapshot.Authenticated() {
			m.sessions.RequireLogin(session.NoticeSignInRequired)
			return m, nil
		}
		if !m.clearBusy {
			m.confirming = true
		}
		return m, nil

	case key.Matches(msg, m.keys.Session):
		if m.snapshot.Authenticated() {
			m.sessions.Clear()
		} else {
			m.sessions.RequireLogin("")
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m.copyLastReply()

	case key.Matches(msg, m.keys.Save):
		doc := export.NewDocument(m.snapshot.Identity, m.backend, m.conv.Transcript().Entries())
		return m, saveCmd(doc, m.exportDir)

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	return m.updateFocused(msg)
}

func (m Model) handleConfirm(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.confirming = false
		m.clearBusy = true
		m.fileErr = ""
		return m, tea.Batch(clearCmd(m.kb), m.spinner.Tick)
	case key.Matches(msg, m.keys.Deny):
		m.confirming = false
	}
	return m, nil
}

// send submits the query. The user entry appears at once; the reply is
// appended by chatCmd.
func (m Model) send() (Model, tea.Cmd) {
	if m.chatBusy {
		return m, nil
	}
	query := m.input.Value()
	if err := m.conv.Submit(query); err != nil {
		if !errors.Is(err, model.ErrEmptyQuery) {
			m.logger.Debug("query not sent", "error", err)
		}
		return m, nil
	}

	m.input.SetValue("")
	m.chatBusy = true
	m.refreshViewport()
	return m, tea.Batch(chatCmd(m.conv, query), m.spinner.Tick)
}

func (m Model) upload() (Model, tea.Cmd) {
	if m.uploadBusy {
		return m, nil
	}
	if !m.snapshot.Authenticated() {
		m.sessions.RequireLogin(session.NoticeSignInRequired)
		return m, nil
	}
	if err := m.kb.Select(m.fileInput.Value()); err != nil {
		m.fileErr = selectMessage(err)
		return m, nil
	}

	m.fileErr = ""
	m.uploadBusy = true
	return m, tea.Batch(uploadCmd(m.kb), m.spinner.Tick)
}

func (m Model) copyLastReply() (Model, tea.Cmd) {
	entries := m.conv.Transcript().Entries()
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Role == model.RoleAssistant && !entries[i].IsError {
			return m, copyCmd(m.copyFn, entries[i].Content)
		}
	}
	m.flash = MessageNothingCopy
	return m, nil
}

func (m *Model) toggleFocus() {
	if m.focus == focusChat {
		m.focus = focusFile
		m.input.Blur()
		m.fileInput.Focus()
		return
	}
	m.focus = focusChat
	m.fileInput.Blur()
	m.input.Focus()
}

func (m Model) updateFocused(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusFile:
		if m.uploadBusy {
			return m, nil
		}
		m.fileInput, cmd = m.fileInput.Update(msg)
	default:
		if m.chatBusy {
			return m, nil
		}
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func selectMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrNoFile), errors.Is(err, model.ErrNotPDF):
		return MessageSelectFailed
	default:
		return dispatch.UserMessage(err)
	}
}
