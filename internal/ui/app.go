// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragworks-tui/internal/logging"
	"github.com/jeranaias/ragworks-tui/internal/session"
	"github.com/jeranaias/ragworks-tui/internal/ui/chat"
	"github.com/jeranaias/ragworks-tui/internal/ui/login"
)

// RouteChangedMsg wakes the program after navigation outside an update.
type RouteChangedMsg struct{}

// SessionChangedMsg wakes the program after the session changed outside an
// update, for example in another terminal.
type SessionChangedMsg struct{}

// Config assembles the root model.
type Config struct {
	Router *Router
	Login  login.Model
	Home   chat.Model
	Logger *slog.Logger
}

// Model is the root tea.Model.
type Model struct {
	router *Router
	route  Route
	login  login.Model
	home   chat.Model
	logger *slog.Logger

	width  int
	height int
}

var _ tea.Model = Model{}

// New builds the root model showing the router's current view.
func New(cfg Config) Model {
	m := Model{
		router: cfg.Router,
		route:  cfg.Router.Current(),
		login:  cfg.Login,
		home:   cfg.Home,
		logger: logging.OrDiscard(cfg.Logger),
	}
	if m.route.View == session.ViewAuth {
		m.login.SetNotice(m.route.Notice)
	}
	return m
}

// View returns the active view.
func (m Model) View() string {
	if m.route.View == session.ViewAuth {
		return m.login.View()
	}
	return m.home.View()
}

// Active returns the view being shown.
func (m Model) Active() session.View { return m.route.View }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.login.Init(), m.home.Init())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		if m.route.View == session.ViewAuth {
			m.login, cmd = m.login.Update(msg)
		} else {
			m.home, cmd = m.home.Update(msg)
		}
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.login.SetSize(msg.Width, msg.Height)
		m.home.SetSize(msg.Width, msg.Height)

	case SessionChangedMsg:
		m.home.Refresh()

	case RouteChangedMsg:
		// Handled by syncRoute below.

	default:
		var lc, hc tea.Cmd
		m.login, lc = m.login.Update(msg)
		m.home, hc = m.home.Update(msg)
		cmds = append(cmds, lc, hc)
	}

	m.syncRoute()
	return m, tea.Batch(cmds...)
}

// syncRoute applies any navigation recorded since the last update.
func (m *Model) syncRoute() {
	cur := m.router.Current()
	if cur.Seq == m.route.Seq {
		return
	}
	m.logger.Debug("navigate", "view", cur.View.String(), "notice", cur.Notice)
	m.route = cur

	if cur.View == session.ViewAuth {
		m.login.SetNotice(cur.Notice)
	}
	m.home.Refresh()
}
