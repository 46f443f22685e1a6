// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Execute runs the command line and returns the process exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		DisplayError(root.ErrOrStderr(), err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// NewRootCommand builds the command tree. Each call returns a fresh tree so
// tests can run commands in isolation.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "ragworks",
		Short: "Chat with your documents from the terminal",
		Long: `ragworks is a terminal client for a RAG backend: sign in, upload PDFs to
your knowledge base and ask questions about them.

Run without arguments to start the interactive TUI.`,
		Version:       Version,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}
	root.SetVersionTemplate(versionText())
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ValidationError{Field: "flags", Reason: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default: ~/.ragworks/config.toml)")
	pf.StringVar(&opts.backendURL, "backend", "", "backend URL (overrides backend.url)")
	pf.BoolVar(&opts.ephemeral, "ephemeral", false, "keep the session in memory only")
	pf.BoolVar(&opts.debug, "debug", false, "log at debug level")

	root.AddCommand(
		newLoginCommand(opts),
		newRegisterCommand(opts),
		newLogoutCommand(opts),
		newStatusCommand(opts),
		newAskCommand(opts),
		newChatCommand(opts),
		newUploadCommand(opts),
		newClearKnowledgeCommand(opts),
		newConfigCommand(opts),
		newDoctorCommand(opts),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printVersion(cmd.OutOrStdout())
			return nil
		},
	}
}

func versionText() string {
	return fmt.Sprintf("ragworks version %s\n  Git commit: %s\n  Build date: %s\n",
		Version, GitCommit, BuildDate)
}

func printVersion(w io.Writer) {
	fmt.Fprint(w, versionText())
}

// =============================================================================
// ARGUMENT VALIDATION
// =============================================================================

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &ValidationError{
			Field:   "arguments",
			Value:   args[0],
			Reason:  "unexpected argument",
			Example: cmd.CommandPath() + " --help",
		}
	}
	return nil
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return &ValidationError{
				Field:   "arguments",
				Reason:  fmt.Sprintf("expected %d, got %d", n, len(args)),
				Example: cmd.CommandPath() + " " + usage,
			}
		}
		return nil
	}
}

func minArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return &ValidationError{
				Field:   "arguments",
				Reason:  fmt.Sprintf("expected at least %d", n),
				Example: cmd.CommandPath() + " " + usage,
			}
		}
		return nil
	}
}

// stdinIsTTY is replaced in tests.
var stdinIsTTY = func(cmd *cobra.Command) bool {
	return cmd.InOrStdin() == os.Stdin && IsTTY()
}
