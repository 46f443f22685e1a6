// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the home view of the TUI: the header, the
// knowledge-base panel, the transcript viewport and the query input.
//
// # Focus
//
// The view has two inputs. tab moves focus between the query input and the
// knowledge-base file path. enter acts on whichever has focus: it sends the
// query, or selects and uploads the file.
//
// # In-flight work
//
// Chat, upload and clear each run as a tea.Cmd. While one is in flight its
// input ignores further submits and a spinner is shown. Results arrive as
// chatDoneMsg, uploadDoneMsg and clearDoneMsg; the transcript and panel
// state they describe already live in the model package, so the handlers
// only re-render.
//
// # Signed out
//
// Without a session the transcript area shows a sign-in prompt. Sending a
// query or uploading a file sends the user to the auth view and changes
// nothing here.
package chat
