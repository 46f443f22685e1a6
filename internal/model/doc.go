// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the chat and knowledge-base flows shared by the
// terminal UI and the command line.
//
// # Key Types
//
//   - Message: one transcript entry (user or assistant)
//   - Transcript: append-only, concurrency-safe list of messages
//   - Conversation: sends queries and records the exchange in a Transcript
//   - KnowledgeBase: file selection, upload and clearing with status text
//
// # Usage
//
//	conv := model.NewConversation(mgr, dispatcher)
//	reply, err := conv.Send(ctx, "What does chapter 2 say?")
//
//	kb := model.NewKnowledgeBase(dispatcher)
//	_ = kb.Select("notes.pdf")
//	_ = kb.Upload(ctx)
//	status, text := kb.Status()
package model
