// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/ragworks-tui/internal/model"
	"github.com/jeranaias/ragworks-tui/internal/util"
)

// ErrEmpty is returned when there is nothing to export.
var ErrEmpty = errors.New("transcript has no messages")

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is a transcript plus the context it was recorded in.
type Document struct {
	Identity string          `json:"identity"`
	Backend  string          `json:"backend"`
	Exported time.Time       `json:"exported"`
	Messages []model.Message `json:"messages"`
}

// NewDocument captures entries for export.
func NewDocument(identity, backend string, entries []model.Message) *Document {
	return &Document{
		Identity: identity,
		Backend:  backend,
		Exported: time.Now(),
		Messages: entries,
	}
}

// Title is the first user query, or a generic title.
func (d *Document) Title() string {
	for _, m := range d.Messages {
		if m.Role == model.RoleUser {
			return m.Preview(60)
		}
	}
	return "Conversation"
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a document in one format.
type Exporter interface {
	Export(doc *Document) ([]byte, error)

	// FileExtension returns the extension including the dot.
	FileExtension() string
}

// Options configures export behavior.
type Options struct {
	// OutputDir is where files are written. Default: current directory.
	OutputDir string

	// IncludeMetadata adds identity, backend and export time.
	IncludeMetadata bool

	// IncludeTimestamps adds per-message times.
	IncludeTimestamps bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// ForFormat returns the exporter for "markdown"/"md" or "json".
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "markdown", "md", "":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ToFile renders doc and writes it to a generated name in opts.OutputDir.
// It returns the path written.
func ToFile(doc *Document, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	filename := fmt.Sprintf("ragworks_%s_%s%s",
		sanitizeFilename(doc.Title()),
		doc.Exported.Format("20060102_150405"),
		exporter.FileExtension(),
	)
	return ToPath(doc, exporter, filepath.Join(opts.OutputDir, filename))
}

// ToPath renders doc and writes it to path, owner-readable only.
func ToPath(doc *Document, exporter Exporter, path string) (string, error) {
	if doc == nil || len(doc.Messages) == 0 {
		return "", ErrEmpty
	}
	content, err := exporter.Export(doc)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	if err := util.AtomicWriteFile(path, content, 0600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	const maxLen = 50
	runes := []rune(s)
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}

	out := make([]rune, 0, len(runes))
	for _, r := range runes {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			out = append(out, '-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			out = append(out, '_')
		case r < 32 || r == 127:
			out = append(out, '-')
		default:
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "conversation"
	}
	return string(out)
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
