// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragworks-tui/internal/export"
	"github.com/jeranaias/ragworks-tui/internal/model"
)

// =============================================================================
// RESULT MESSAGES
// =============================================================================

// chatDoneMsg is sent when a query has been resolved. The reply (or error
// entry) is already in the transcript.
type chatDoneMsg struct {
	reply model.Message
	err   error
}

// uploadDoneMsg is sent when an upload finishes.
type uploadDoneMsg struct {
	err error
}

// clearDoneMsg is sent when a knowledge-base clear finishes.
type clearDoneMsg struct {
	err error
}

// copiedMsg reports the result of copying a reply.
type copiedMsg struct {
	err error
}

// savedMsg reports the result of saving the transcript.
type savedMsg struct {
	path string
	err  error
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

func chatCmd(conv *model.Conversation, query string) tea.Cmd {
	return func() tea.Msg {
		reply, err := conv.Resolve(context.Background(), query)
		return chatDoneMsg{reply: reply, err: err}
	}
}

func uploadCmd(kb *model.KnowledgeBase) tea.Cmd {
	return func() tea.Msg {
		return uploadDoneMsg{err: kb.Upload(context.Background())}
	}
}

func clearCmd(kb *model.KnowledgeBase) tea.Cmd {
	return func() tea.Msg {
		return clearDoneMsg{err: kb.Clear(context.Background())}
	}
}

func copyCmd(copyFn func(string) error, text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: copyFn(text)}
	}
}

func saveCmd(doc *export.Document, dir string) tea.Cmd {
	return func() tea.Msg {
		path, err := export.ToFile(doc, export.NewMarkdownExporter(nil), &export.Options{
			OutputDir:         dir,
			IncludeMetadata:   true,
			IncludeTimestamps: true,
		})
		return savedMsg{path: path, err: err}
	}
}
