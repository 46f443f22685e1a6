// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package login

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragworks-tui/internal/auth"
)

// submitDoneMsg carries the outcome of a form submission.
type submitDoneMsg struct {
	result auth.Result
	err    error
}

// browserURLMsg is sent once the callback listener is up.
type browserURLMsg struct {
	url  string
	done <-chan error
}

// browserDoneMsg ends a browser sign-in.
type browserDoneMsg struct {
	err error
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

func submitCmd(form *auth.Form) tea.Cmd {
	return func() tea.Msg {
		res, err := form.Submit(context.Background())
		return submitDoneMsg{result: res, err: err}
	}
}

// startBrowserCmd runs the browser sign-in in the background and reports
// the authorize URL first, then the result.
func startBrowserCmd(ctx context.Context, b auth.BrowserLogin) tea.Cmd {
	urls := make(chan string, 1)
	done := make(chan error, 1)
	b.OnURL = func(u string) { urls <- u }

	go func() { done <- b.Run(ctx) }()

	return func() tea.Msg {
		select {
		case u := <-urls:
			return browserURLMsg{url: u, done: done}
		case err := <-done:
			return browserDoneMsg{err: err}
		}
	}
}

func waitBrowserCmd(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		return browserDoneMsg{err: <-done}
	}
}
