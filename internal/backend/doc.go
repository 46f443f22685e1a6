// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend is the HTTP client for the RAGworks backend.
//
// Two services are involved. The auth service issues credentials (/login,
// /register, /auth/oauth). The knowledge service answers questions and
// manages uploaded documents (/chat, /upload, /delete_uploads) and requires
// a bearer credential, which callers pass explicitly on each call.
//
// # Key Types
//
//   - Client: one method per backend call, no retries
//   - APIError: a non-2xx response, carrying the backend's message verbatim
//
// # Errors
//
// A 401 from any call matches ErrUnauthorized with errors.Is. Network
// failures wrap ErrTransport; 2xx bodies that do not decode, or lack a
// required field, wrap ErrBadResponse. Everything else is an *APIError whose
// Error() is exactly what the backend said, or a short fallback when it said
// nothing.
//
// # Usage
//
//	client := backend.NewClient(cfg.Backend.URL).
//	    WithAuthURL(cfg.AuthFlow.URL).
//	    WithDeviceID(deviceID)
//
//	token, err := client.Login(ctx, "alice", "secret")
//	answer, err := client.Chat(ctx, token, "What is in the handbook?")
//
// # Security
//
// Request logging records method, path, status and duration. Headers and
// bodies are never logged.
package backend
