// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// ErrorPrefix starts the text of an assistant entry recording a failure.
const ErrorPrefix = "Error: "

// Message is a single transcript entry.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// IsError marks an assistant entry that records a failed query.
	IsError bool `json:"is_error,omitempty"`
}

// NewMessage creates a message with a generated ID.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewErrorMessage creates the assistant entry shown when a query fails.
func NewErrorMessage(text string) Message {
	msg := NewMessage(RoleAssistant, ErrorPrefix+text)
	msg.IsError = true
	return msg
}

// Preview returns the first line of the content, truncated to maxLen runes.
func (m Message) Preview(maxLen int) string {
	line, _, _ := strings.Cut(m.Content, "\n")
	runes := []rune(line)
	if maxLen > 3 && len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return line
}

func generateID() string {
	return "msg_" + uuid.NewString()
}
