// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/ragworks-tui/internal/dispatch"
	"github.com/jeranaias/ragworks-tui/internal/logging"
)

// ============================================================================
// TYPES
// ============================================================================

// Mode selects what the form submits.
type Mode int

const (
	ModeSignIn Mode = iota
	ModeCreateAccount
)

// String returns the form title for the mode.
func (m Mode) String() string {
	if m == ModeCreateAccount {
		return "Create Account"
	}
	return "Sign In"
}

// NoticeAccountCreated is shown after a successful registration.
const NoticeAccountCreated = "Account created. Please sign in."

// ErrIncomplete means the username or password is empty.
var ErrIncomplete = errors.New("username and password are required")

// Authenticator is the part of *backend.Client the form calls.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, password string) error
}

// Establisher starts a session.
type Establisher interface {
	Establish(credential, identity string) error
}

// Result describes a successful submission.
type Result struct {
	// SignedIn is true when a session was established.
	SignedIn bool

	// Identity is the normalised username that was submitted.
	Identity string

	// Notice is the message to show, if any.
	Notice string
}

// ============================================================================
// FORM
// ============================================================================

// Form holds the sign-in / create-account form. Username and Password are
// set by the view before Submit.
type Form struct {
	Username string
	Password string

	mode     Mode
	api      Authenticator
	sessions Establisher
	guard    *dispatch.Guard
	logger   *slog.Logger
}

// FormOption configures a Form.
type FormOption func(*Form)

// WithGuard shares an in-flight guard with other callers.
func WithGuard(g *dispatch.Guard) FormOption {
	return func(f *Form) {
		if g != nil {
			f.guard = g
		}
	}
}

// WithFormLogger sets the form's logger.
func WithFormLogger(l *slog.Logger) FormOption {
	return func(f *Form) { f.logger = logging.OrDiscard(l) }
}

// NewForm returns a form in sign-in mode.
func NewForm(api Authenticator, sessions Establisher, opts ...FormOption) *Form {
	f := &Form{
		api:      api,
		sessions: sessions,
		guard:    dispatch.NewGuard(),
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Mode returns the current mode.
func (f *Form) Mode() Mode { return f.mode }

// SetMode switches mode, keeping the entered fields.
func (f *Form) SetMode(m Mode) { f.mode = m }

// Toggle flips between sign-in and create-account.
func (f *Form) Toggle() {
	if f.mode == ModeSignIn {
		f.mode = ModeCreateAccount
	} else {
		f.mode = ModeSignIn
	}
}

// CanSubmit reports whether both fields are filled in.
func (f *Form) CanSubmit() bool {
	return strings.TrimSpace(f.Username) != "" && f.Password != ""
}

// Busy reports whether a submission for the current mode is in flight.
func (f *Form) Busy() bool {
	return f.guard.Busy(f.op())
}

func (f *Form) op() dispatch.Op {
	if f.mode == ModeCreateAccount {
		return dispatch.OpRegister
	}
	return dispatch.OpLogin
}

// Submit signs in or registers depending on the mode. Backend error
// messages are returned unchanged and the fields are kept. A successful
// registration switches the form to sign-in mode without touching the
// session.
func (f *Form) Submit(ctx context.Context) (Result, error) {
	if !f.CanSubmit() {
		return Result{}, ErrIncomplete
	}

	op := f.op()
	release, ok := f.guard.TryAcquire(op)
	if !ok {
		return Result{}, fmt.Errorf("%s: %w", op, dispatch.ErrBusy)
	}
	defer release()

	username := norm.NFC.String(strings.TrimSpace(f.Username))

	if f.mode == ModeCreateAccount {
		if err := f.api.Register(ctx, username, f.Password); err != nil {
			f.logger.Info("registration failed", "username", username, "error", err)
			return Result{}, err
		}
		f.logger.Info("account created", "username", username)
		f.mode = ModeSignIn
		return Result{Identity: username, Notice: NoticeAccountCreated}, nil
	}

	token, err := f.api.Login(ctx, username, f.Password)
	if err != nil {
		f.logger.Info("sign-in failed", "username", username, "error", err)
		return Result{}, err
	}
	if err := f.sessions.Establish(token, username); err != nil {
		return Result{}, err
	}
	f.Password = ""
	return Result{SignedIn: true, Identity: username}, nil
}
