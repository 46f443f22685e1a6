// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the ragworks command line.
//
// With no arguments ragworks starts the TUI. The other commands run one
// operation against the same session store, so a sign-in from `ragworks
// login` is picked up by a running TUI and the other way round.
//
// # Commands Overview
//
//   - login, register, logout, status (whoami): session management
//   - ask: single chat query
//   - chat: line-editing chat REPL, /save writes the transcript
//   - upload, clear-knowledge: knowledge base
//   - config: show, get, set, path
//   - doctor: configuration, connectivity and session store checks
//   - version
//
// # Exit codes
//
// Errors are printed once by Execute. Authentication failures exit 4,
// network failures 5, usage errors 2 and configuration errors 3.
package cli
