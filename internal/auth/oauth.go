// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/jeranaias/ragworks-tui/internal/backend"
	"github.com/jeranaias/ragworks-tui/internal/config"
	"github.com/jeranaias/ragworks-tui/internal/logging"
)

// NoticeOAuthFailed is shown on the auth view when browser sign-in fails.
const NoticeOAuthFailed = "Browser sign-in failed. Please try again."

// Callback routes for each variant.
const (
	DirectCallbackPath   = "/callback"
	ExchangeCallbackPath = "/oauth/callback"
)

var (
	// ErrCallbackRejected wraps every completion failure. The user has
	// already been sent to the auth view with NoticeOAuthFailed.
	ErrCallbackRejected = errors.New("browser sign-in was not completed")

	// ErrMissingParams means the callback lacked a required query parameter.
	ErrMissingParams = errors.New("callback is missing required parameters")
)

// Sessions is the part of *session.Manager used to finish a browser
// sign-in.
type Sessions interface {
	Establish(credential, identity string) error
	RequireLogin(notice string)
}

// Exchanger trades a one-time callback token for a session.
type Exchanger interface {
	ExchangeOAuth(ctx context.Context, oneTimeToken string) (backend.OAuthResult, error)
}

// Completer turns a callback query into a session. On failure it has
// already sent the user to the auth view.
type Completer interface {
	Path() string
	Complete(ctx context.Context, query url.Values) error
}

// CallbackPath returns the route the given variant listens on.
func CallbackPath(variant string) string {
	if variant == config.VariantDirect {
		return DirectCallbackPath
	}
	return ExchangeCallbackPath
}

// NewCompleter builds the completer for a variant. ex may be nil for the
// direct variant.
func NewCompleter(variant string, sessions Sessions, ex Exchanger, logger *slog.Logger) (Completer, error) {
	switch variant {
	case config.VariantDirect:
		return &DirectCompleter{Sessions: sessions, Logger: logger}, nil
	case config.VariantExchange, "":
		if ex == nil {
			return nil, errors.New("auth: exchange variant needs an Exchanger")
		}
		return &ExchangeCompleter{Sessions: sessions, Exchanger: ex, Logger: logger}, nil
	default:
		return nil, fmt.Errorf("auth: unknown variant %q", variant)
	}
}

// ============================================================================
// DIRECT
// ============================================================================

// DirectCompleter accepts a callback carrying token and username. It makes
// no network calls.
type DirectCompleter struct {
	Sessions Sessions
	Logger   *slog.Logger
}

// Path implements Completer.
func (c *DirectCompleter) Path() string { return DirectCallbackPath }

// Complete implements Completer.
func (c *DirectCompleter) Complete(_ context.Context, query url.Values) error {
	token, username := query.Get("token"), query.Get("username")
	if token == "" || username == "" {
		logging.OrDiscard(c.Logger).Info("browser callback incomplete", "variant", config.VariantDirect)
		c.Sessions.RequireLogin(NoticeOAuthFailed)
		return fmt.Errorf("%w: %w", ErrCallbackRejected, ErrMissingParams)
	}
	return c.Sessions.Establish(token, username)
}

// ============================================================================
// EXCHANGE
// ============================================================================

// ExchangeCompleter accepts a callback carrying a one-time token and makes
// exactly one exchange request for it.
type ExchangeCompleter struct {
	Sessions  Sessions
	Exchanger Exchanger
	Logger    *slog.Logger
}

// Path implements Completer.
func (c *ExchangeCompleter) Path() string { return ExchangeCallbackPath }

// Complete implements Completer.
func (c *ExchangeCompleter) Complete(ctx context.Context, query url.Values) error {
	logger := logging.OrDiscard(c.Logger)

	token := query.Get("token")
	if token == "" {
		logger.Info("browser callback incomplete", "variant", config.VariantExchange)
		c.Sessions.RequireLogin(NoticeOAuthFailed)
		return fmt.Errorf("%w: %w", ErrCallbackRejected, ErrMissingParams)
	}

	res, err := c.Exchanger.ExchangeOAuth(ctx, token)
	if err != nil {
		logger.Info("token exchange failed", "error", err)
		c.Sessions.RequireLogin(NoticeOAuthFailed)
		return fmt.Errorf("%w: token exchange: %w", ErrCallbackRejected, err)
	}
	return c.Sessions.Establish(res.AccessToken, res.Username)
}
