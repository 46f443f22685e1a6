// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jeranaias/ragworks-tui/internal/dispatch"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// Texts shown by the knowledge-base panel.
const (
	MessageUploaded       = "Uploaded successfully."
	MessageCleared        = "Knowledge base cleared."
	MessageClearFailed    = "Error clearing knowledge"
	ConfirmClearPrompt    = "Are you sure you want to delete all uploaded knowledge? This cannot be undone."
	UploadHint            = "Maximum size 10MB"
	AcceptedFileExtension = ".pdf"
)

var (
	// ErrNoFile means Upload was called with nothing selected.
	ErrNoFile = errors.New("no file selected")

	// ErrNotPDF means the selected path does not end in .pdf.
	ErrNotPDF = errors.New("only PDF files can be uploaded")

	// ErrNotRegular means the selected path is a directory or device.
	ErrNotRegular = errors.New("not a regular file")
)

// Status is the outcome shown next to the panel's message.
type Status int

const (
	StatusIdle Status = iota
	StatusSuccess
	StatusError
)

// Uploader is the part of *dispatch.Dispatcher the panel uses.
type Uploader interface {
	Upload(ctx context.Context, filename string, content io.Reader) error
	DeleteUploads(ctx context.Context) error
}

// =============================================================================
// KNOWLEDGE BASE
// =============================================================================

// KnowledgeBase is the state of the upload panel. It is safe for
// concurrent use.
type KnowledgeBase struct {
	uploader Uploader

	mu       sync.Mutex
	selected string
	status   Status
	message  string
}

// NewKnowledgeBase returns an idle panel.
func NewKnowledgeBase(uploader Uploader) *KnowledgeBase {
	return &KnowledgeBase{uploader: uploader}
}

// Select chooses the file to upload and resets the status line. Only
// existing regular .pdf files are accepted; the size is not checked.
func (k *KnowledgeBase) Select(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return ErrNoFile
	}
	if !strings.EqualFold(filepath.Ext(path), AcceptedFileExtension) {
		return ErrNotPDF
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", path, ErrNotRegular)
	}

	k.mu.Lock()
	k.selected = path
	k.status, k.message = StatusIdle, ""
	k.mu.Unlock()
	return nil
}

// Selected returns the chosen path, or "" if none.
func (k *KnowledgeBase) Selected() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.selected
}

// Status returns the outcome of the last upload or clear.
func (k *KnowledgeBase) Status() (Status, string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.status, k.message
}

// Upload sends the selected file. On success the selection is cleared.
// On failure the backend's message is shown as-is.
func (k *KnowledgeBase) Upload(ctx context.Context) error {
	path := k.Selected()
	if path == "" {
		return ErrNoFile
	}

	f, err := os.Open(path)
	if err != nil {
		k.set(StatusError, err.Error())
		return err
	}
	defer f.Close()

	if err := k.uploader.Upload(ctx, filepath.Base(path), f); err != nil {
		k.set(StatusError, dispatch.UserMessage(err))
		return err
	}

	k.mu.Lock()
	k.selected = ""
	k.status, k.message = StatusSuccess, MessageUploaded
	k.mu.Unlock()
	return nil
}

// Clear deletes every uploaded document. The caller confirms first.
func (k *KnowledgeBase) Clear(ctx context.Context) error {
	if err := k.uploader.DeleteUploads(ctx); err != nil {
		k.set(StatusError, MessageClearFailed)
		return err
	}
	k.set(StatusSuccess, MessageCleared)
	return nil
}

func (k *KnowledgeBase) set(status Status, message string) {
	k.mu.Lock()
	k.status, k.message = status, message
	k.mu.Unlock()
}
