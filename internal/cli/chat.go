// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat for terminals where the TUI is unwanted.
//
// Usage: ragworks chat
//
// Commands inside the session:
//   /help    Show commands
//   /clear   Forget the conversation so far
//   /save    Save the conversation (/save notes.md, /save log.json)
//   /logout  Sign out and leave
//   /quit    Leave (also /exit, ctrl+d)

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ragworks-tui/internal/config"
	"github.com/jeranaias/ragworks-tui/internal/dispatch"
	"github.com/jeranaias/ragworks-tui/internal/export"
	"github.com/jeranaias/ragworks-tui/internal/model"
)

const chatPrompt = "you> "

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader reads prompted lines. io.EOF ends the session.
type lineReader interface {
	ReadInput(prompt string) (string, error)
	Close()
}

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI and loads saved history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with history navigation.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", io.EOF
		}
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history, readable by the owner only.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// newLineReader is replaced in tests.
var newLineReader = func(cmd *cobra.Command) lineReader {
	return NewChatCLI()
}

// =============================================================================
// COMMAND
// =============================================================================

func newChatCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat line by line without the full-screen interface",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(g, cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			defer e.Close()
			if err := e.requireSession(); err != nil {
				return err
			}
			e.watch()

			in := newLineReader(cmd)
			defer in.Close()
			return runChatLoop(cmd, e, in)
		},
	}
}

func runChatLoop(cmd *cobra.Command, e *env, in lineReader) error {
	out := cmd.OutOrStdout()
	conv := model.NewConversation(e.sessions, e.dispatcher)
	replies := newReplyWriter(cmd, e.cfg.UI.Markdown)

	id, _ := e.sessions.Identity()
	fmt.Fprintln(out, TitleStyle.Render("RAGworks chat"))
	fmt.Fprintf(out, "%s %s\n", DimStyle.Render("Signed in as"), id)
	fmt.Fprintln(out, DimStyle.Render("Type /help for commands, /quit to leave."))
	fmt.Fprintln(out)

	for {
		input, err := in.ReadInput(chatPrompt)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			done, err := chatCommand(out, e, conv, input)
			if done || err != nil {
				return err
			}
			continue
		}

		msg, err := conv.Send(cmd.Context(), input)
		switch {
		case isAuthFailure(err):
			// The session is gone; the dispatcher already cleared it.
			return err
		case errors.Is(err, model.ErrEmptyQuery):
			continue
		}
		replies.Reply(msg)
		fmt.Fprintln(out)
	}
}

// chatCommand handles a slash command. done reports that the loop ends.
func chatCommand(out io.Writer, e *env, conv *model.Conversation, input string) (done bool, err error) {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/clear":
		conv.Transcript().Reset()
		fmt.Fprintln(out, DimStyle.Render("Conversation cleared."))
	case "/save":
		path, err := saveTranscript(e, conv, fields[1:])
		if err != nil {
			fmt.Fprintf(out, "%s %v\n", WarningStyle.Render("[WARN]"), err)
			break
		}
		fmt.Fprintf(out, "%s Saved to %s\n", SuccessStyle.Render("[OK]"), path)
	case "/logout":
		e.sessions.Clear()
		fmt.Fprintf(out, "%s Signed out.\n", SuccessStyle.Render("[OK]"))
		return true, nil
	case "/help":
		printChatHelp(out)
	default:
		fmt.Fprintf(out, "%s unknown command %s (try /help)\n", WarningStyle.Render("[WARN]"), input)
	}
	return false, nil
}

func printChatHelp(out io.Writer) {
	fmt.Fprintln(out, SectionStyle.Render("Commands"))
	fmt.Fprintln(out, RenderField("/help", "show this help"))
	fmt.Fprintln(out, RenderField("/clear", "forget the conversation so far"))
	fmt.Fprintln(out, RenderField("/save [FILE]", "save the conversation (.md or .json)"))
	fmt.Fprintln(out, RenderField("/logout", "sign out and leave"))
	fmt.Fprintln(out, RenderField("/quit", "leave (also /exit, ctrl+d)"))
}

// saveTranscript writes the conversation to args[0], or to a generated
// Markdown file in the current directory.
func saveTranscript(e *env, conv *model.Conversation, args []string) (string, error) {
	id, _ := e.sessions.Identity()
	doc := export.NewDocument(id, e.cfg.Backend.URL, conv.Transcript().Entries())
	if len(args) == 0 {
		return export.ToFile(doc, export.NewMarkdownExporter(nil), nil)
	}
	format := "markdown"
	if strings.EqualFold(filepath.Ext(args[0]), ".json") {
		format = "json"
	}
	exporter, err := export.ForFormat(format, nil)
	if err != nil {
		return "", err
	}
	return export.ToPath(doc, exporter, args[0])
}

// isAuthFailure reports errors after which the session cannot continue.
func isAuthFailure(err error) bool {
	return errors.Is(err, dispatch.ErrNotAuthenticated) ||
		errors.Is(err, dispatch.ErrSessionExpired)
}
