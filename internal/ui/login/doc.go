// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package login provides the sign-in / create-account view of the TUI.
//
// The view owns two text inputs and drives an auth.Form. Browser sign-in
// runs auth.BrowserLogin in the background and shows the authorize URL
// while it waits. Successful sign-in navigates away through the session
// manager; the view itself never switches screens.
package login
