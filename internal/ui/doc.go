// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui is the root of the terminal interface. Model switches between
// the auth view (package login) and the home view (package chat) following
// a Router, which the session manager drives through session.Navigator.
//
// Navigation can happen on any goroutine: inside an update, in a tea.Cmd,
// or in the session watcher. The router records it and Model picks it up
// at the end of every update. Code outside the program wakes it with
// RouteChangedMsg or SessionChangedMsg.
package ui
