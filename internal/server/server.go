// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jeranaias/ragworks-tui/internal/logging"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// ReadHeaderTimeout bounds how long a browser may take to send headers.
	ReadHeaderTimeout = 10 * time.Second

	// ShutdownTimeout is the default grace period used by Close.
	ShutdownTimeout = 2 * time.Second
)

var (
	// ErrAlreadyCompleted is reported to callbacks that arrive after the
	// first one was handled.
	ErrAlreadyCompleted = errors.New("sign-in already completed")

	// ErrStateMismatch is reported for callbacks carrying a foreign state.
	ErrStateMismatch = errors.New("state parameter does not match")

	// ErrStateMissing is reported for callbacks without a state when one
	// is required.
	ErrStateMissing = errors.New("state parameter is missing")
)

// CompleteFunc consumes the callback query. A nil error means the user is
// signed in.
type CompleteFunc func(ctx context.Context, query url.Values) error

// Config configures a CallbackServer.
type Config struct {
	// Addr is the listen address, e.g. "127.0.0.1:0".
	Addr string

	// Path is the callback route, e.g. "/oauth/callback".
	Path string

	// State, when non-empty, must match the callback's state parameter if
	// the callback carries one.
	State string

	// RequireState rejects callbacks without a state parameter.
	RequireState bool

	Complete CompleteFunc
	Logger   *slog.Logger
}

// ============================================================================
// SERVER
// ============================================================================

// CallbackServer accepts a single browser sign-in callback.
type CallbackServer struct {
	cfg    Config
	ln     net.Listener
	srv    *http.Server
	logger *slog.Logger

	mu      sync.Mutex
	handled bool
	result  chan error

	serveErr chan error
}

// NewCallbackServer binds the listener. Nothing is served until Start.
func NewCallbackServer(cfg Config) (*CallbackServer, error) {
	if cfg.Complete == nil {
		return nil, errors.New("server: Complete is required")
	}
	if cfg.Path == "" || cfg.Path[0] != '/' {
		return nil, fmt.Errorf("server: invalid callback path %q", cfg.Path)
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	s := &CallbackServer{
		cfg:      cfg,
		ln:       ln,
		logger:   logging.OrDiscard(cfg.Logger),
		result:   make(chan error, 1),
		serveErr: make(chan error, 1),
	}
	s.srv = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: ReadHeaderTimeout,
	}
	return s, nil
}

// routes builds the chi router with its middleware chain.
func (s *CallbackServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeadersMiddleware())
	r.Use(LoggingMiddleware(s.logger))

	r.Get(s.cfg.Path, s.handleCallback)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})
	return r
}

// URL returns the full callback URL to register as the redirect target.
func (s *CallbackServer) URL() string {
	return "http://" + s.ln.Addr().String() + s.cfg.Path
}

// Start serves in the background.
func (s *CallbackServer) Start() {
	go func() {
		s.logger.Debug("callback listener started", "addr", s.ln.Addr().String())
		if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.serveErr <- err
		}
	}()
}

// Wait blocks until the first callback has been handled, the listener
// fails, or ctx ends. It returns the completion result.
func (s *CallbackServer) Wait(ctx context.Context) error {
	select {
	case err := <-s.result:
		return err
	case err := <-s.serveErr:
		return fmt.Errorf("callback listener: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the listener, letting an in-progress result page finish.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Close shuts down with the default grace period.
func (s *CallbackServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// ============================================================================
// HANDLER
// ============================================================================

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if s.cfg.RequireState && query.Get("state") == "" {
		s.logger.Warn("callback rejected", "reason", ErrStateMissing.Error())
		writePage(w, http.StatusBadRequest, failurePage, ErrStateMissing.Error())
		return
	}
	if s.cfg.State != "" && query.Has("state") &&
		subtle.ConstantTimeCompare([]byte(query.Get("state")), []byte(s.cfg.State)) != 1 {
		s.logger.Warn("callback rejected", "reason", ErrStateMismatch.Error())
		writePage(w, http.StatusBadRequest, failurePage, ErrStateMismatch.Error())
		return
	}

	s.mu.Lock()
	if s.handled {
		s.mu.Unlock()
		writePage(w, http.StatusGone, failurePage, ErrAlreadyCompleted.Error())
		return
	}
	s.handled = true
	s.mu.Unlock()

	err := s.cfg.Complete(r.Context(), query)
	s.result <- err

	if err != nil {
		s.logger.Info("browser sign-in failed", "error", err)
		writePage(w, http.StatusOK, failurePage, "Sign-in did not complete. Return to the terminal and try again.")
		return
	}
	s.logger.Info("browser sign-in completed")
	writePage(w, http.StatusOK, successPage, "You are signed in. You can close this tab and return to the terminal.")
}
