// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"context"
	"errors"
	"strings"

	"github.com/jeranaias/ragworks-tui/internal/dispatch"
	"github.com/jeranaias/ragworks-tui/internal/session"
)

// ErrEmptyQuery means the query was blank and nothing was sent.
var ErrEmptyQuery = errors.New("query is empty")

// Sessions is the part of *session.Manager a Conversation reads.
type Sessions interface {
	CurrentCredential() (string, bool)
	RequireLogin(notice string)
}

// Chatter sends a chat query under the caller's session.
type Chatter interface {
	Chat(ctx context.Context, query string) (string, error)
}

// Conversation sends queries and records each exchange in its transcript.
type Conversation struct {
	sessions   Sessions
	chat       Chatter
	transcript *Transcript
}

// NewConversation returns a conversation with an empty transcript.
func NewConversation(sessions Sessions, chat Chatter) *Conversation {
	return &Conversation{
		sessions:   sessions,
		chat:       chat,
		transcript: NewTranscript(),
	}
}

// Transcript returns the conversation's transcript.
func (c *Conversation) Transcript() *Transcript {
	return c.transcript
}

// Submit validates query and records it as a user entry. A blank query
// returns ErrEmptyQuery. Without a session the user is sent to sign in,
// dispatch.ErrNotAuthenticated is returned and the transcript is unchanged.
func (c *Conversation) Submit(query string) error {
	if strings.TrimSpace(query) == "" {
		return ErrEmptyQuery
	}
	if _, ok := c.sessions.CurrentCredential(); !ok {
		c.sessions.RequireLogin(session.NoticeSignInRequired)
		return dispatch.ErrNotAuthenticated
	}
	c.transcript.AppendUser(query)
	return nil
}

// Resolve sends a query already recorded by Submit and appends the reply,
// or "Error: <message>" when the call fails. The appended entry is
// returned either way; err reports the failure to callers that need it.
func (c *Conversation) Resolve(ctx context.Context, query string) (Message, error) {
	reply, err := c.chat.Chat(ctx, query)
	if err != nil {
		return c.transcript.AppendError(dispatch.UserMessage(err)), err
	}
	return c.transcript.AppendAssistant(reply), nil
}

// Send is Submit followed by Resolve.
func (c *Conversation) Send(ctx context.Context, query string) (Message, error) {
	if err := c.Submit(query); err != nil {
		return Message{}, err
	}
	return c.Resolve(ctx, query)
}
