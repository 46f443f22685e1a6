// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragworks-tui/internal/model"
)

func sampleDoc() *Document {
	at := time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC)
	msgs := []model.Message{
		{ID: "1", Role: model.RoleUser, Content: "What is in chapter #2?", Timestamp: at},
		{ID: "2", Role: model.RoleAssistant, Content: "Chapter 2 covers **setup**.", Timestamp: at.Add(time.Second)},
		{ID: "3", Role: model.RoleAssistant, Content: model.ErrorPrefix + "too large", Timestamp: at.Add(2 * time.Second), IsError: true},
	}
	doc := NewDocument("alice", "http://localhost:5000", msgs)
	doc.Exported = at.Add(time.Minute)
	return doc
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "What is in chapter #2?", sampleDoc().Title())
	assert.Equal(t, "Conversation", NewDocument("a", "b", nil).Title())
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleDoc())
	require.NoError(t, err)
	s := string(out)

	assert.True(t, strings.HasPrefix(s, "---\n"))
	assert.Contains(t, s, `title: "What is in chapter #2?"`)
	assert.Contains(t, s, "identity: alice")
	assert.Contains(t, s, "# What is in chapter \\#2?")
	assert.Contains(t, s, "### [You] <sub>14:30:00</sub>")
	assert.Contains(t, s, "### [Assistant] <sub>14:30:01</sub>")
	assert.Contains(t, s, "Chapter 2 covers **setup**.")
	assert.Contains(t, s, "### [Error]")
	assert.Contains(t, s, "> Error: too large")
}

func TestMarkdownExport_NoMetadata(t *testing.T) {
	out, err := NewMarkdownExporter(&Options{}).Export(sampleDoc())
	require.NoError(t, err)
	s := string(out)
	assert.False(t, strings.HasPrefix(s, "---"))
	assert.NotContains(t, s, "<sub>")
	assert.NotContains(t, s, "Exported from")
}

func TestJSONExport(t *testing.T) {
	out, err := NewJSONExporter(nil).Export(sampleDoc())
	require.NoError(t, err)

	var back Document
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, "alice", back.Identity)
	require.Len(t, back.Messages, 3)
	assert.True(t, back.Messages[2].IsError)
}

func TestForFormat(t *testing.T) {
	for _, f := range []string{"", "md", "Markdown"} {
		e, err := ForFormat(f, nil)
		require.NoError(t, err)
		assert.Equal(t, ".md", e.FileExtension())
	}
	e, err := ForFormat("json", nil)
	require.NoError(t, err)
	assert.Equal(t, ".json", e.FileExtension())

	_, err = ForFormat("pdf", nil)
	assert.Error(t, err)
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	path, err := ToFile(sampleDoc(), NewMarkdownExporter(nil), &Options{OutputDir: dir})
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, "ragworks_What_is_in_chapter_#2-_20250301_143100.md", filepath.Base(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestToPath_Empty(t *testing.T) {
	_, err := ToPath(NewDocument("a", "b", nil), NewJSONExporter(nil), filepath.Join(t.TempDir(), "x.json"))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a-b-c_d", sanitizeFilename("a/b:c d"))
	assert.Equal(t, "conversation", sanitizeFilename(""))
	assert.Len(t, []rune(sanitizeFilename(strings.Repeat("x", 80))), 50)
}
