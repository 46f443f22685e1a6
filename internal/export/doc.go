// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export saves a chat transcript to a file.
//
// # Supported Formats
//
//   - Markdown: human-readable, one heading per entry
//   - JSON: the entries as recorded, with metadata
//
// # Usage
//
//	doc := export.NewDocument(identity, backendURL, transcript.Entries())
//	path, err := export.ToFile(doc, export.NewMarkdownExporter(nil), nil)
package export
