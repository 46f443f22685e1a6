// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/ragworks-tui/internal/logging"
)

// DefaultWatchDebounce groups the burst of events one SQLite commit causes.
const DefaultWatchDebounce = 250 * time.Millisecond

// Watcher calls Manager.Sync when the session database is changed by any
// process. It watches the database directory because SQLite writes to the
// -wal and -journal side files as well as the main file.
type Watcher struct {
	mgr      *Manager
	fs       *fsnotify.Watcher
	dbPath   string
	debounce time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewWatcher creates a watcher for the database at dbPath. Start begins
// delivering changes.
func NewWatcher(mgr *Manager, dbPath string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		mgr:      mgr,
		fs:       fsw,
		dbPath:   filepath.Clean(dbPath),
		debounce: debounce,
		logger:   logging.OrDiscard(logger),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start adds the database directory to the watch list and starts the event
// loop.
func (w *Watcher) Start() error {
	if err := w.fs.Add(filepath.Dir(w.dbPath)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.dbPath), err)
	}
	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		w.cancel()
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("session watcher panicked", "panic", r)
		}
	}()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("session storage changed", "file", filepath.Base(event.Name), "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("session watcher error", "error", err)

		case <-timer.C:
			w.mgr.Sync()
		}
	}
}

// relevant reports whether event touches the database or its side files.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return strings.HasPrefix(filepath.Clean(event.Name), w.dbPath)
}
