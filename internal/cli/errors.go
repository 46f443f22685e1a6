// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for ragworks commands.
//
// Commands always return errors; Execute prints them once and maps them to
// an exit code.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/ragworks-tui/internal/auth"
	"github.com/jeranaias/ragworks-tui/internal/backend"
	"github.com/jeranaias/ragworks-tui/internal/config"
	"github.com/jeranaias/ragworks-tui/internal/dispatch"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates authentication or authorization failure
	ExitAuthError = 4
	// ExitNetworkError indicates network or connectivity error
	ExitNetworkError = 5
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// ConfigError wraps a failure to load, validate or save configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "config: " + e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

// messageError shows a fixed message in place of the underlying error,
// which stays available to errors.Is and the exit code.
type messageError struct {
	msg string
	err error
}

func (e *messageError) Error() string { return e.msg + ": " + e.err.Error() }

func (e *messageError) Unwrap() error { return e.err }

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err in the standard format. The text is the same
// user-facing message the TUI shows.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), errorText(err))
}

func errorText(err error) string {
	var v *ValidationError
	var c *ConfigError
	var t *TTYRequiredError
	var m *messageError
	switch {
	case errors.As(err, &v), errors.As(err, &c), errors.As(err, &t):
		return err.Error()
	case errors.As(err, &m):
		return m.msg
	}
	return dispatch.UserMessage(err)
}

// GetExitCode determines the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var ttyErr *TTYRequiredError
	if errors.As(err, &validationErr) || errors.As(err, &ttyErr) {
		return ExitUsageError
	}

	var configErr *ConfigError
	var cfgValidation config.ValidateErrors
	if errors.As(err, &configErr) || errors.As(err, &cfgValidation) {
		return ExitConfigError
	}

	switch {
	case errors.Is(err, dispatch.ErrNotAuthenticated),
		errors.Is(err, dispatch.ErrSessionExpired),
		errors.Is(err, backend.ErrUnauthorized),
		errors.Is(err, auth.ErrCallbackRejected),
		errors.Is(err, auth.ErrBrowserTimeout),
		errors.Is(err, auth.ErrIncomplete):
		return ExitAuthError
	case errors.Is(err, backend.ErrTransport),
		errors.Is(err, backend.ErrBadResponse),
		errors.Is(err, context.DeadlineExceeded):
		return ExitNetworkError
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && (apiErr.Status == 401 || apiErr.Status == 403) {
		return ExitAuthError
	}

	return ExitGeneralError
}
