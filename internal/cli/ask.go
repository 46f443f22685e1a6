// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question against the knowledge base.
//
// Usage: ragworks ask "question"
//
// Examples:
//   ragworks ask "What does the contract say about termination?"
//   ragworks ask summarize chapter three --plain

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ragworks-tui/internal/model"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// stdoutIsTTY is replaced in tests.
var stdoutIsTTY = func(cmd *cobra.Command) bool {
	return IsStdoutTTY()
}

// replyWriter prints assistant replies, rendered as markdown when writing
// to a terminal and plain otherwise so piped output stays clean.
type replyWriter struct {
	out      io.Writer
	renderer *glamour.TermRenderer
}

func newReplyWriter(cmd *cobra.Command, markdown bool) *replyWriter {
	w := &replyWriter{out: cmd.OutOrStdout()}
	if !markdown || !stdoutIsTTY(cmd) {
		return w
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(GetTerminalWidth()-4),
	)
	if err == nil {
		w.renderer = r
	}
	return w
}

// Reply prints one transcript entry.
func (w *replyWriter) Reply(msg model.Message) {
	if msg.IsError {
		fmt.Fprintln(w.out, ErrorStyle.Render(msg.Content))
		return
	}
	if w.renderer != nil {
		if rendered, err := w.renderer.Render(msg.Content); err == nil {
			fmt.Fprint(w.out, rendered)
			return
		}
	}
	fmt.Fprintln(w.out, msg.Content)
}

// =============================================================================
// COMMAND
// =============================================================================

func newAskCommand(g *globalOptions) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Ask a single question and print the answer",
		Args:  minArgs(1, `"What is in my documents?"`),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return &ValidationError{Field: "question", Reason: "must not be empty"}
			}

			e, err := openEnv(g, cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			conv := model.NewConversation(e.sessions, e.dispatcher)
			msg, err := conv.Send(cmd.Context(), query)
			if err != nil {
				return err
			}
			newReplyWriter(cmd, e.cfg.UI.Markdown && !plain).Reply(msg)
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print the answer without markdown rendering")
	return cmd
}
