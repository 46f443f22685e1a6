// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable rendering pieces for the ragworks
// TUI.
//
// # Components
//
//   - Header: brand, signed-in identity and key hints
//   - Renderer: Markdown for assistant replies, glamour or plain
//   - CodeBlock: chroma-highlighted fenced code for the plain renderer
//
// Components are plain structs with Render/View methods; they hold no
// bubbletea state.
package components
