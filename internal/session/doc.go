// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the signed-in state of a ragworks process.
//
// A session is a bearer credential and the identity it was issued for. The
// two are always set together and cleared together. The Manager restores
// them from durable storage at startup, persists them on sign-in, wipes them
// on sign-out or when the backend rejects the credential, and tells the
// injected Navigator which view the user should see next.
//
// # Key Types
//
//   - Manager: the single session owner for the process
//   - Navigator: receives navigation decisions (home view or auth view)
//   - Snapshot: an immutable copy of the session fields
//   - Watcher: re-syncs the Manager when another process changes storage
//
// # Usage
//
//	mgr := session.NewManager(store, router, session.WithLogger(logger))
//	mgr.Hydrate()
//
//	if cred, ok := mgr.CurrentCredential(); ok {
//	    req.Header.Set("Authorization", "Bearer "+cred)
//	}
//
// # Storage Failures
//
// Storage is best-effort. Read failures degrade to signed-out, write and
// delete failures are logged, and none of them reach the caller.
package session
