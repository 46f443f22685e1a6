// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/jeranaias/ragworks-tui/internal/logging"
	"github.com/jeranaias/ragworks-tui/internal/server"
)

// AuthorizePath is appended to the auth service URL to start a browser
// sign-in.
const AuthorizePath = "/auth/google"

// DefaultBrowserTimeout bounds how long Run waits for the callback.
const DefaultBrowserTimeout = 3 * time.Minute

// ErrBrowserTimeout means no callback arrived in time.
var ErrBrowserTimeout = errors.New("timed out waiting for browser sign-in")

// BrowserLogin runs a browser sign-in against the auth service.
type BrowserLogin struct {
	// AuthURL is the auth service base URL.
	AuthURL  string
	ClientID string

	// CallbackAddr is the loopback listen address, e.g. "127.0.0.1:0".
	CallbackAddr string

	// RequireState rejects callbacks that do not echo the state.
	RequireState bool

	Completer Completer
	Timeout   time.Duration

	// Open opens the authorize URL. Nil means do not open anything.
	Open func(url string) error

	// OnURL receives the authorize URL before waiting starts.
	OnURL func(url string)

	Logger *slog.Logger
}

// AuthorizeURL builds the URL the browser is sent to.
func AuthorizeURL(authURL, clientID, redirectURL, state string) string {
	cfg := &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL: strings.TrimRight(authURL, "/") + AuthorizePath,
		},
	}
	return cfg.AuthCodeURL(state)
}

// Run starts the callback listener, opens the authorize URL, and waits for
// the callback to complete or the timeout to expire.
func (b *BrowserLogin) Run(ctx context.Context) error {
	if b.Completer == nil {
		return errors.New("auth: BrowserLogin needs a Completer")
	}
	logger := logging.OrDiscard(b.Logger)

	state := oauth2.GenerateVerifier()
	srv, err := server.NewCallbackServer(server.Config{
		Addr:         b.CallbackAddr,
		Path:         b.Completer.Path(),
		State:        state,
		RequireState: b.RequireState,
		Complete:     b.Completer.Complete,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	srv.Start()
	defer func() {
		if cerr := srv.Close(); cerr != nil {
			logger.Debug("callback listener shutdown", "error", cerr)
		}
	}()

	authorize := AuthorizeURL(b.AuthURL, b.ClientID, srv.URL(), state)
	if b.OnURL != nil {
		b.OnURL(authorize)
	}
	if b.Open != nil {
		if oerr := b.Open(authorize); oerr != nil {
			logger.Warn("could not open browser", "error", oerr)
		}
	}

	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultBrowserTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err = srv.Wait(waitCtx)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w after %s", ErrBrowserTimeout, timeout)
	}
	return err
}

// OpenBrowser opens url with the platform's default handler.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32.exe", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
