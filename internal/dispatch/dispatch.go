// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dispatch sends protected requests on behalf of the signed-in user.
//
// Every protected call follows the same contract: read the credential from
// the session, refuse before touching the network when there is none, attach
// it as a bearer token, and end the session when the backend answers 401.
// Failures are returned once; nothing is retried.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jeranaias/ragworks-tui/internal/backend"
	"github.com/jeranaias/ragworks-tui/internal/logging"
	"github.com/jeranaias/ragworks-tui/internal/session"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotAuthenticated means no credential was present. The user has
	// been sent to the auth view and no request was made.
	ErrNotAuthenticated = errors.New("not signed in")

	// ErrSessionExpired means the backend rejected the credential and the
	// session has been cleared.
	ErrSessionExpired = errors.New("session expired")
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Sessions is the part of *session.Manager the dispatcher uses.
type Sessions interface {
	CurrentCredential() (string, bool)
	RequireLogin(notice string)
	ClearWithNotice(notice string)
}

// Backend is the set of protected backend calls.
type Backend interface {
	Chat(ctx context.Context, credential, query string) (string, error)
	Upload(ctx context.Context, credential, filename string, content io.Reader) error
	DeleteUploads(ctx context.Context, credential string) error
}

var (
	_ Sessions = (*session.Manager)(nil)
	_ Backend  = (*backend.Client)(nil)
)

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher runs protected calls. It is safe for concurrent use.
type Dispatcher struct {
	sessions            Sessions
	backend             Backend
	guard               *Guard
	clearOnUnauthorized bool
	logger              *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithGuard shares an in-flight guard with other components.
func WithGuard(g *Guard) Option {
	return func(d *Dispatcher) { d.guard = g }
}

// WithClearOnUnauthorized controls whether a 401 ends the session. On by
// default.
func WithClearOnUnauthorized(enabled bool) Option {
	return func(d *Dispatcher) { d.clearOnUnauthorized = enabled }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logging.OrDiscard(l) }
}

// New creates a Dispatcher.
func New(sessions Sessions, be Backend, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sessions:            sessions,
		backend:             be,
		clearOnUnauthorized: true,
		logger:              logging.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.guard == nil {
		d.guard = NewGuard()
	}
	return d
}

// Guard returns the in-flight guard.
func (d *Dispatcher) Guard() *Guard {
	return d.guard
}

// Chat asks the knowledge service a question.
func (d *Dispatcher) Chat(ctx context.Context, query string) (string, error) {
	var answer string
	err := d.run(OpChat, func(credential string) error {
		var err error
		answer, err = d.backend.Chat(ctx, credential, query)
		return err
	})
	return answer, err
}

// Upload sends a document to the knowledge base.
func (d *Dispatcher) Upload(ctx context.Context, filename string, content io.Reader) error {
	return d.run(OpUpload, func(credential string) error {
		return d.backend.Upload(ctx, credential, filename, content)
	})
}

// DeleteUploads empties the knowledge base.
func (d *Dispatcher) DeleteUploads(ctx context.Context) error {
	return d.run(OpDeleteUploads, func(credential string) error {
		return d.backend.DeleteUploads(ctx, credential)
	})
}

// run applies the protected-call contract around call.
func (d *Dispatcher) run(op Op, call func(credential string) error) error {
	credential, ok := d.sessions.CurrentCredential()
	if !ok {
		d.logger.Debug("protected call without session", "op", op)
		d.sessions.RequireLogin(session.NoticeSignInRequired)
		return ErrNotAuthenticated
	}

	release, ok := d.guard.TryAcquire(op)
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrBusy)
	}
	defer release()

	err := call(credential)
	if err == nil || !errors.Is(err, backend.ErrUnauthorized) || !d.clearOnUnauthorized {
		return err
	}

	// A sign-in that happened while this call was in flight is not the
	// session the backend rejected.
	if current, ok := d.sessions.CurrentCredential(); ok && current == credential {
		d.logger.Info("credential rejected, clearing session", "op", op)
		d.sessions.ClearWithNotice(session.NoticeSessionExpired)
	}
	return fmt.Errorf("%w: %w", ErrSessionExpired, err)
}
