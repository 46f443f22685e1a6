// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// env.go - Wiring shared by every command that talks to the backend.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jeranaias/ragworks-tui/internal/backend"
	"github.com/jeranaias/ragworks-tui/internal/config"
	"github.com/jeranaias/ragworks-tui/internal/dispatch"
	"github.com/jeranaias/ragworks-tui/internal/logging"
	"github.com/jeranaias/ragworks-tui/internal/session"
	"github.com/jeranaias/ragworks-tui/internal/storage"
	"github.com/jeranaias/ragworks-tui/internal/telemetry"
)

// shutdownTimeout bounds tracing flush on exit.
const shutdownTimeout = 3 * time.Second

// =============================================================================
// GLOBAL OPTIONS
// =============================================================================

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath string
	backendURL string
	ephemeral  bool
	debug      bool
}

// loadConfig reads configuration the way every command does: .env first,
// then the config file (or --config), then flag overrides.
func (o *globalOptions) loadConfig(stderr io.Writer) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "%s %v\n", WarningStyle.Render("[WARN]"), err)
	}

	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFromPath(o.configPath)
		if err != nil {
			return nil, &ConfigError{Err: err}
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return nil, &ConfigError{Err: err}
		}
		if err != nil {
			fmt.Fprintf(stderr, "%s %v (using defaults)\n", WarningStyle.Render("[WARN]"), err)
		}
	}

	if o.backendURL != "" {
		cfg.Backend.URL = o.backendURL
	}
	if o.debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}
	return cfg, nil
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

// env is everything a command needs to run protected calls.
type env struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      storage.Store
	storePath  string
	sessions   *session.Manager
	client     *backend.Client
	dispatcher *dispatch.Dispatcher
	tracing    *telemetry.Provider
	deviceID   string

	closers []func() error
}

// openEnv builds the environment. nav receives navigation decisions; the
// plain commands pass a no-op since they never switch screens.
func openEnv(opts *globalOptions, stderr io.Writer, nav session.Navigator) (*env, error) {
	cfg, err := opts.loadConfig(stderr)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, logger: logging.Discard()}

	if logPath, err := cfg.LogPath(); err == nil {
		if l, c, err := logging.Open(logPath, cfg.Log.Level); err == nil {
			e.logger = l
			e.closers = append(e.closers, c.Close)
		} else {
			fmt.Fprintf(stderr, "%s %v\n", WarningStyle.Render("[WARN]"), err)
		}
	}

	tc, err := telemetry.ConfigFrom(cfg)
	if err != nil {
		e.Close()
		return nil, &ConfigError{Err: err}
	}
	tc.ServiceVersion = Version
	e.tracing, err = telemetry.NewProvider(tc)
	if err != nil {
		e.Close()
		return nil, &ConfigError{Err: fmt.Errorf("tracing: %w", err)}
	}
	e.closers = append(e.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.tracing.Shutdown(ctx)
	})

	if opts.ephemeral {
		e.store = storage.NewMemoryStore()
	} else {
		path, err := cfg.StoragePath()
		if err != nil {
			e.Close()
			return nil, &ConfigError{Err: err}
		}
		sq, err := storage.OpenSQLite(path)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("open session store: %w", err)
		}
		e.store, e.storePath = sq, path
	}
	e.closers = append(e.closers, e.store.Close)

	if id, err := storage.DeviceID(e.store); err == nil {
		e.deviceID = id
	} else {
		e.logger.Warn("device id unavailable", "error", err)
	}

	e.sessions = session.NewManager(e.store, nav, session.WithLogger(e.logger))
	e.sessions.Hydrate()

	e.client = backend.NewClient(cfg.Backend.URL).
		WithAuthURL(cfg.AuthFlow.URL).
		WithTimeout(cfg.RequestTimeout()).
		WithDeviceID(e.deviceID).
		WithUserAgent("ragworks/" + Version).
		WithLogger(e.logger).
		WithTracer(e.tracing.Tracer())

	e.dispatcher = dispatch.New(e.sessions, e.client,
		dispatch.WithClearOnUnauthorized(cfg.Session.ClearOnUnauthorized),
		dispatch.WithLogger(e.logger),
	)

	e.logger.Debug("environment ready",
		"backend", cfg.Backend.URL,
		"auth", cfg.AuthFlow.URL,
		"ephemeral", opts.ephemeral,
		"tracing", e.tracing.Enabled())
	return e, nil
}

// watch starts cross-process session sync when it applies.
func (e *env) watch() {
	if e.storePath == "" || !e.cfg.Session.Watch {
		return
	}
	w, err := session.NewWatcher(e.sessions, e.storePath, e.cfg.WatchDebounce(), e.logger)
	if err == nil {
		err = w.Start()
	}
	if err != nil {
		e.logger.Warn("session watcher unavailable", "error", err)
		return
	}
	e.closers = append(e.closers, w.Close)
}

// Close releases resources in reverse order of acquisition.
func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// requireSession returns dispatch.ErrNotAuthenticated when signed out.
func (e *env) requireSession() error {
	if _, ok := e.sessions.CurrentCredential(); !ok {
		return dispatch.ErrNotAuthenticated
	}
	return nil
}
