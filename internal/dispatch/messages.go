// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"context"
	"errors"

	"github.com/jeranaias/ragworks-tui/internal/backend"
	"github.com/jeranaias/ragworks-tui/internal/session"
)

// Messages shown for failures that carry no backend text.
const (
	MessageUnreachable = "Could not reach the server"
	MessageTimeout     = "The request timed out"
	MessageCanceled    = "Request cancelled"
	MessageBusy        = "Still working on the previous request"
	MessageBadReply    = "The server sent a response that could not be read"
)

// UserMessage maps an error from this package or the backend client to the
// text shown to the user. Backend messages pass through unchanged.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *backend.APIError
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return session.NoticeSignInRequired
	case errors.Is(err, ErrSessionExpired):
		return session.NoticeSessionExpired
	case errors.Is(err, ErrBusy):
		return MessageBusy
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, context.DeadlineExceeded):
		return MessageTimeout
	case errors.Is(err, context.Canceled):
		return MessageCanceled
	case errors.Is(err, backend.ErrBadResponse):
		return MessageBadReply
	case errors.Is(err, backend.ErrTransport):
		return MessageUnreachable
	default:
		return err.Error()
	}
}
