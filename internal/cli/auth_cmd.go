// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - Session commands: login, register, logout, status.
//
// Examples:
//   ragworks login                          Prompt for username and password
//   ragworks login -u alice --password-stdin < pw.txt
//   ragworks login --browser                Sign in through the browser
//   ragworks login --browser --no-open      Print the URL instead of opening it
//   ragworks register -u alice              Create an account
//   ragworks logout
//   ragworks status --json

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragworks-tui/internal/auth"
	"github.com/jeranaias/ragworks-tui/internal/util"
)

// =============================================================================
// LOGIN
// =============================================================================

type loginOptions struct {
	username      string
	passwordStdin bool
	browser       bool
	noOpen        bool
}

func newLoginCommand(g *globalOptions) *cobra.Command {
	o := &loginOptions{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(g, cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			if o.browser {
				return browserLogin(cmd, e, o.noOpen)
			}
			return passwordLogin(cmd, e, auth.ModeSignIn, o.username, o.passwordStdin)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.username, "username", "u", "", "account username")
	f.BoolVar(&o.passwordStdin, "password-stdin", false, "read the password from stdin")
	f.BoolVar(&o.browser, "browser", false, "sign in through the browser")
	f.BoolVar(&o.noOpen, "no-open", false, "print the sign-in URL instead of opening a browser")
	cmd.MarkFlagsMutuallyExclusive("browser", "password-stdin")
	return cmd
}

func newRegisterCommand(g *globalOptions) *cobra.Command {
	o := &loginOptions{}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(g, cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			defer e.Close()
			return passwordLogin(cmd, e, auth.ModeCreateAccount, o.username, o.passwordStdin)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.username, "username", "u", "", "account username")
	f.BoolVar(&o.passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

// passwordLogin drives the same form the TUI uses.
func passwordLogin(cmd *cobra.Command, e *env, mode auth.Mode, username string, passwordStdin bool) error {
	user, pass, err := credentials(cmd, username, passwordStdin)
	if err != nil {
		return err
	}

	form := auth.NewForm(e.client, e.sessions,
		auth.WithGuard(e.dispatcher.Guard()),
		auth.WithFormLogger(e.logger))
	form.SetMode(mode)
	form.Username, form.Password = user, pass

	res, err := form.Submit(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.SignedIn {
		fmt.Fprintf(out, "%s Signed in as %s\n", SuccessStyle.Render("[OK]"), res.Identity)
		return nil
	}
	fmt.Fprintf(out, "%s %s\n", SuccessStyle.Render("[OK]"), res.Notice)
	return nil
}

// browserLogin runs the loopback callback flow and waits for it.
func browserLogin(cmd *cobra.Command, e *env, noOpen bool) error {
	cfg := e.cfg
	completer, err := auth.NewCompleter(cfg.AuthFlow.Variant, e.sessions, e.client, e.logger)
	if err != nil {
		return &ConfigError{Err: err}
	}

	stderr := cmd.ErrOrStderr()
	b := auth.BrowserLogin{
		AuthURL:      cfg.AuthFlow.URL,
		ClientID:     cfg.AuthFlow.ClientID,
		CallbackAddr: cfg.AuthFlow.CallbackAddr,
		RequireState: cfg.AuthFlow.RequireState,
		Completer:    completer,
		Timeout:      cfg.AuthTimeout(),
		Logger:       e.logger,
		OnURL: func(u string) {
			fmt.Fprintln(stderr, "Open this URL to sign in:")
			fmt.Fprintf(stderr, "  %s\n", u)
			fmt.Fprintln(stderr, DimStyle.Render("Waiting for the browser... (ctrl+c to cancel)"))
		},
	}
	if !noOpen && cfg.AuthFlow.OpenBrowser {
		b.Open = auth.OpenBrowser
	}

	if err := b.Run(cmd.Context()); err != nil {
		return err
	}
	id, _ := e.sessions.Identity()
	fmt.Fprintf(cmd.OutOrStdout(), "%s Signed in as %s\n", SuccessStyle.Render("[OK]"), id)
	return nil
}

// =============================================================================
// LOGOUT
// =============================================================================

func newLogoutCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(g, cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			if !e.sessions.Snapshot().Authenticated() {
				fmt.Fprintln(out, DimStyle.Render("Not signed in."))
				return nil
			}
			e.sessions.Clear()
			fmt.Fprintf(out, "%s Signed out.\n", SuccessStyle.Render("[OK]"))
			return nil
		},
	}
}

// =============================================================================
// STATUS
// =============================================================================

// StatusInfo is the status command's output.
type StatusInfo struct {
	SignedIn bool   `json:"signed_in"`
	Identity string `json:"identity,omitempty"`
	// Credential is masked; only its last characters are shown.
	Credential string `json:"credential,omitempty"`
	Backend    string `json:"backend"`
	AuthURL    string `json:"auth_url"`
	Variant    string `json:"oauth_variant"`
	DeviceID   string `json:"device_id,omitempty"`
	Storage    string `json:"storage"`
	Tracing    bool   `json:"tracing"`
	Version    string `json:"version"`
}

func newStatusCommand(g *globalOptions) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"whoami"},
		Short:   "Show the signed-in identity and backend",
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(g, cmd.ErrOrStderr(), nil)
			if err != nil {
				if jsonOut {
					_ = NewJSONErrorResponse("status", err).Print(cmd.OutOrStdout())
				}
				return err
			}
			defer e.Close()

			info := collectStatus(e)
			if jsonOut {
				return NewJSONResponse("status", info).Print(cmd.OutOrStdout())
			}
			printStatus(cmd.OutOrStdout(), info)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func collectStatus(e *env) StatusInfo {
	snap := e.sessions.Snapshot()
	storage := e.storePath
	if storage == "" {
		storage = "memory"
	}
	info := StatusInfo{
		SignedIn: snap.Authenticated(),
		Identity: snap.Identity,
		Backend:  e.cfg.Backend.URL,
		AuthURL:  e.cfg.AuthFlow.URL,
		Variant:  e.cfg.AuthFlow.Variant,
		DeviceID: e.deviceID,
		Storage:  storage,
		Tracing:  e.tracing.Enabled(),
		Version:  Version,
	}
	if info.SignedIn {
		info.Credential = util.MaskSecret(snap.Credential)
	}
	return info
}

func printStatus(w io.Writer, info StatusInfo) {
	fmt.Fprintln(w, TitleStyle.Render("ragworks status"))

	identity := DimStyle.Render("not signed in")
	if info.SignedIn {
		identity = info.Identity
	}
	fmt.Fprintf(w, "%s %s\n", RenderStatus(info.SignedIn), identity)
	if info.Credential != "" {
		fmt.Fprintln(w, RenderField("Credential:", info.Credential))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, RenderField("Backend:", info.Backend))
	fmt.Fprintln(w, RenderField("Auth service:", info.AuthURL))
	fmt.Fprintln(w, RenderField("OAuth variant:", info.Variant))
	if info.DeviceID != "" {
		fmt.Fprintln(w, RenderField("Device ID:", info.DeviceID))
	}
	fmt.Fprintln(w, RenderField("Session store:", info.Storage))
	fmt.Fprintln(w, RenderField("Tracing:", fmt.Sprint(info.Tracing)))
}
