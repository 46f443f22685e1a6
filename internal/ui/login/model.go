// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package login

import (
	"context"
	"errors"
	"log/slog"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragworks-tui/internal/auth"
	"github.com/jeranaias/ragworks-tui/internal/dispatch"
	"github.com/jeranaias/ragworks-tui/internal/logging"
	"github.com/jeranaias/ragworks-tui/internal/session"
	"github.com/jeranaias/ragworks-tui/internal/ui/styles"
)

// Status texts.
const (
	MessageIncomplete     = "Please enter a username and password."
	MessageProcessing     = "Processing..."
	MessageWaitingBrowser = "Waiting for browser sign-in..."
	MessageNoBrowser      = "Browser sign-in is not available."
)

const (
	fieldUsername = iota
	fieldPassword
)

// Config wires the view to the rest of the application.
type Config struct {
	Theme *styles.Theme
	Form  *auth.Form

	// Browser is a template for browser sign-in; nil disables it.
	Browser *auth.BrowserLogin

	// Nav is used for the back key.
	Nav    session.Navigator
	Logger *slog.Logger
}

// Model is the auth view.
type Model struct {
	theme   *styles.Theme
	form    *auth.Form
	browser *auth.BrowserLogin
	nav     session.Navigator
	logger  *slog.Logger

	username textinput.Model
	password textinput.Model
	focus    int

	notice  string
	errText string
	busy    bool

	browserURL    string
	browserCancel context.CancelFunc

	spinner spinner.Model
	keys    KeyMap
	help    help.Model
	width   int
	height  int
}

// New builds the view with the username field focused.
func New(cfg Config) Model {
	user := textinput.New()
	user.Placeholder = "Username"
	user.Prompt = "> "
	user.CharLimit = 256
	user.Focus()

	pass := textinput.New()
	pass.Placeholder = "Password"
	pass.Prompt = "> "
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '*'
	pass.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = styles.LineSpinner.Bubble()
	sp.Style = cfg.Theme.Spinner

	return Model{
		theme:    cfg.Theme,
		form:     cfg.Form,
		browser:  cfg.Browser,
		nav:      cfg.Nav,
		logger:   logging.OrDiscard(cfg.Logger),
		username: user,
		password: pass,
		spinner:  sp,
		keys:     DefaultKeyMap(),
		help:     help.New(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// SetSize records the terminal size.
func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
	m.help.Width = width
}

// SetNotice shows notice above the form and clears any error. Called when
// the router sends the user here.
func (m *Model) SetNotice(notice string) {
	m.notice = notice
	m.errText = ""
}

// Notice returns the current notice.
func (m Model) Notice() string { return m.notice }

// Busy reports whether a submission or browser sign-in is in flight.
func (m Model) Busy() bool { return m.busy || m.browserCancel != nil }

// Mode returns the form mode.
func (m Model) Mode() auth.Mode { return m.form.Mode() }

// =============================================================================
// UPDATE
// =============================================================================

// Update handles a message.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case submitDoneMsg:
		m.busy = false
		return m.handleSubmitDone(msg), nil

	case browserURLMsg:
		m.browserURL = msg.url
		return m, waitBrowserCmd(msg.done)

	case browserDoneMsg:
		return m.handleBrowserDone(msg), nil

	case spinner.TickMsg:
		if !m.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateInputs(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		if m.browserCancel != nil {
			m.browserCancel()
			return m, nil
		}
		if m.nav != nil {
			m.nav.Navigate(session.ViewHome, "")
		}
		return m, nil

	case m.Busy():
		return m, nil

	case key.Matches(msg, m.keys.Next):
		m.setFocus((m.focus + 1) % 2)
		return m, nil

	case key.Matches(msg, m.keys.Prev):
		m.setFocus((m.focus + 1) % 2)
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		m.form.Toggle()
		m.errText = ""
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.focus == fieldUsername && m.password.Value() == "" {
			m.setFocus(fieldPassword)
			return m, nil
		}
		return m.submit()

	case key.Matches(msg, m.keys.Browser):
		return m.startBrowser()
	}

	return m.updateInputs(msg)
}

func (m Model) submit() (Model, tea.Cmd) {
	m.form.Username = m.username.Value()
	m.form.Password = m.password.Value()
	if !m.form.CanSubmit() {
		m.errText = MessageIncomplete
		return m, nil
	}

	m.busy = true
	m.errText = ""
	m.notice = ""
	return m, tea.Batch(submitCmd(m.form), m.spinner.Tick)
}

func (m Model) handleSubmitDone(msg submitDoneMsg) Model {
	if msg.err != nil {
		if errors.Is(msg.err, auth.ErrIncomplete) {
			m.errText = MessageIncomplete
		} else {
			m.errText = dispatch.UserMessage(msg.err)
		}
		return m
	}

	if msg.result.SignedIn {
		m.password.SetValue("")
		m.notice = ""
		return m
	}
	// Registration: the form is now in sign-in mode with fields kept.
	m.notice = msg.result.Notice
	return m
}

func (m Model) startBrowser() (Model, tea.Cmd) {
	if m.browser == nil {
		m.errText = MessageNoBrowser
		return m, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.browserCancel = cancel
	m.browserURL = ""
	m.errText = ""
	m.notice = MessageWaitingBrowser
	m.logger.Info("browser sign-in started")
	return m, tea.Batch(startBrowserCmd(ctx, *m.browser), m.spinner.Tick)
}

func (m Model) handleBrowserDone(msg browserDoneMsg) Model {
	if m.browserCancel != nil {
		m.browserCancel()
		m.browserCancel = nil
	}
	m.browserURL = ""

	switch {
	case msg.err == nil:
		m.notice = ""
	case errors.Is(msg.err, context.Canceled):
		m.notice = ""
	case errors.Is(msg.err, auth.ErrCallbackRejected):
		m.notice = auth.NoticeOAuthFailed
	default:
		m.notice = ""
		m.errText = dispatch.UserMessage(msg.err)
	}
	return m
}

func (m *Model) setFocus(field int) {
	m.focus = field
	if field == fieldUsername {
		m.password.Blur()
		m.username.Focus()
	} else {
		m.username.Blur()
		m.password.Focus()
	}
}

func (m Model) updateInputs(msg tea.Msg) (Model, tea.Cmd) {
	var cmds [2]tea.Cmd
	m.username, cmds[0] = m.username.Update(msg)
	m.password, cmds[1] = m.password.Update(msg)
	return m, tea.Batch(cmds[:]...)
}
