// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth implements the ways a user signs in: the username and
// password form, and browser sign-in completed through a loopback callback.
//
// Both paths end in session.Manager.Establish on success. Neither touches the
// session on failure.
//
// # Key Types
//
//   - Form: sign-in / create-account form state and submission
//   - Completer: turns a browser callback query into a session
//   - DirectCompleter: callback carries the session itself
//   - ExchangeCompleter: callback carries a one-time token to exchange
//   - BrowserLogin: opens the authorize URL and waits for the callback
package auth
