// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "sync"

// Transcript is the ordered list of messages shown in the chat view. It is
// safe for concurrent use; the UI reads it while a query is in flight.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds msg to the end.
func (t *Transcript) Append(msg Message) {
	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()
}

// AppendUser records a query.
func (t *Transcript) AppendUser(content string) Message {
	msg := NewMessage(RoleUser, content)
	t.Append(msg)
	return msg
}

// AppendAssistant records a response.
func (t *Transcript) AppendAssistant(content string) Message {
	msg := NewMessage(RoleAssistant, content)
	t.Append(msg)
	return msg
}

// AppendError records a failed query as an assistant entry.
func (t *Transcript) AppendError(text string) Message {
	msg := NewErrorMessage(text)
	t.Append(msg)
	return msg
}

// Entries returns a copy of the messages in order.
func (t *Transcript) Entries() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Last returns the most recent message.
func (t *Transcript) Last() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// Reset removes every message.
func (t *Transcript) Reset() {
	t.mu.Lock()
	t.messages = nil
	t.mu.Unlock()
}
