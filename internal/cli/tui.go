// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ragworks-tui/internal/auth"
	"github.com/jeranaias/ragworks-tui/internal/model"
	"github.com/jeranaias/ragworks-tui/internal/session"
	"github.com/jeranaias/ragworks-tui/internal/ui"
	"github.com/jeranaias/ragworks-tui/internal/ui/chat"
	"github.com/jeranaias/ragworks-tui/internal/ui/login"
	"github.com/jeranaias/ragworks-tui/internal/ui/styles"
)

// runTUI starts the interactive interface on the home view.
func runTUI(cmd *cobra.Command, opts *globalOptions) error {
	// Query the background colour before the program owns stdin, or the
	// terminal's reply lands in the input.
	_ = lipgloss.HasDarkBackground()

	router := ui.NewRouter(session.ViewHome)
	e, err := openEnv(opts, cmd.ErrOrStderr(), router)
	if err != nil {
		return err
	}
	defer e.Close()
	e.watch()

	cfg := e.cfg
	theme := styles.NewTheme(cfg.UI.Theme)

	completer, err := auth.NewCompleter(cfg.AuthFlow.Variant, e.sessions, e.client, e.logger)
	if err != nil {
		return &ConfigError{Err: err}
	}
	browser := &auth.BrowserLogin{
		AuthURL:      cfg.AuthFlow.URL,
		ClientID:     cfg.AuthFlow.ClientID,
		CallbackAddr: cfg.AuthFlow.CallbackAddr,
		RequireState: cfg.AuthFlow.RequireState,
		Completer:    completer,
		Timeout:      cfg.AuthTimeout(),
		Logger:       e.logger,
	}
	if cfg.AuthFlow.OpenBrowser {
		browser.Open = auth.OpenBrowser
	}

	loginView := login.New(login.Config{
		Theme: theme,
		Form: auth.NewForm(e.client, e.sessions,
			auth.WithGuard(e.dispatcher.Guard()),
			auth.WithFormLogger(e.logger)),
		Browser: browser,
		Nav:     router,
		Logger:  e.logger,
	})
	home := chat.New(chat.Config{
		Theme:        theme,
		Sessions:     e.sessions,
		Conversation: model.NewConversation(e.sessions, e.dispatcher),
		Knowledge:    model.NewKnowledgeBase(e.dispatcher),
		Markdown:     cfg.UI.Markdown,
		WordWrap:     cfg.UI.WordWrap,
		Backend:      cfg.Backend.URL,
		Logger:       e.logger,
	})

	app := ui.New(ui.Config{
		Router: router,
		Login:  loginView,
		Home:   home,
		Logger: e.logger,
	})

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	router.OnChange(func() { go p.Send(ui.RouteChangedMsg{}) })
	unsubscribe := e.sessions.Subscribe(func(session.Snapshot) { go p.Send(ui.SessionChangedMsg{}) })
	defer unsubscribe()

	e.logger.Info("tui started", "version", Version)
	_, err = p.Run()
	return err
}
