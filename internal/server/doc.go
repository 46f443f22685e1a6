// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the loopback HTTP listener that receives the
// browser redirect at the end of a browser sign-in.
//
// The listener binds to a loopback address, mounts a single GET route, hands
// the query parameters of the first valid callback to a completion function,
// renders a short result page, and reports the outcome through Wait.
//
// # Key Types
//
//   - CallbackServer: one-shot callback listener
//   - CompleteFunc: consumes the callback query
//
// # Usage
//
//	srv, err := server.NewCallbackServer(server.Config{
//	    Addr:     "127.0.0.1:0",
//	    Path:     "/oauth/callback",
//	    State:    state,
//	    Complete: completer.Complete,
//	})
//	srv.Start()
//	defer srv.Shutdown(context.Background())
//	err = srv.Wait(ctx)
//
// # Security
//
// Callback URLs carry credentials in the query string, so responses are
// marked no-store and no-referrer, request logs record the path only, and a
// callback whose state parameter does not match is rejected.
package server
