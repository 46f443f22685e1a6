// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// knowledge_cmd.go - Knowledge base commands.
//
// Examples:
//   ragworks upload handbook.pdf
//   ragworks clear-knowledge          Asks for confirmation
//   ragworks clear-knowledge --yes    For scripts

package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragworks-tui/internal/model"
)

func newUploadCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a PDF to the knowledge base",
		Long: fmt.Sprintf(`Upload a PDF to the knowledge base.

Only %s files are accepted. %s.`, model.AcceptedFileExtension, model.UploadHint),
		Args: exactArgs(1, "document.pdf"),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(g, cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			defer e.Close()
			if err := e.requireSession(); err != nil {
				return err
			}

			kb := model.NewKnowledgeBase(e.dispatcher)
			if err := kb.Select(args[0]); err != nil {
				if errors.Is(err, model.ErrNotPDF) || errors.Is(err, model.ErrNoFile) ||
					errors.Is(err, model.ErrNotRegular) {
					return &ValidationError{Field: "file", Value: args[0], Reason: err.Error()}
				}
				return err
			}

			fmt.Fprintln(cmd.ErrOrStderr(), DimStyle.Render("Uploading "+filepath.Base(args[0])+"..."))
			if err := kb.Upload(cmd.Context()); err != nil {
				return err
			}
			_, msg := kb.Status()
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("[OK]"), msg)
			return nil
		},
	}
}

func newClearKnowledgeCommand(g *globalOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear-knowledge",
		Short: "Delete every uploaded document",
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

			ok, err := RequireConfirmation(cmd.InOrStdin(), cmd.ErrOrStderr(), yes,
				stdinIsTTY(cmd), model.ConfirmClearPrompt)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), DimStyle.Render("Cancelled."))
				return nil
			}

			kb := model.NewKnowledgeBase(e.dispatcher)
			if err := kb.Clear(cmd.Context()); err != nil {
				if isAuthFailure(err) {
					return err
				}
				_, msg := kb.Status()
				return &messageError{msg: msg, err: err}
			}
			_, msg := kb.Status()
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("[OK]"), msg)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
