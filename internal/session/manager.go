// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/jeranaias/ragworks-tui/internal/logging"
	"github.com/jeranaias/ragworks-tui/internal/storage"
)

// =============================================================================
// NAVIGATION
// =============================================================================

// View is a top-level screen the user can be sent to.
type View int

const (
	// ViewAuth is the sign-in / create-account entry view.
	ViewAuth View = iota
	// ViewHome is the chat and knowledge-base view.
	ViewHome
)

// String returns the view name.
func (v View) String() string {
	switch v {
	case ViewAuth:
		return "auth"
	case ViewHome:
		return "home"
	default:
		return "unknown"
	}
}

// Navigator receives navigation decisions. notice is an optional line of
// text for the destination view (empty when there is nothing to say).
type Navigator interface {
	Navigate(view View, notice string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(view View, notice string)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(view View, notice string) { f(view, notice) }

// Notices shown on the auth view.
const (
	NoticeSessionExpired = "Your session has expired. Please sign in again."
	NoticeSignInRequired = "Please sign in to continue."
	NoticeSignedOutElse  = "You were signed out from another terminal."
)

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a copy of the session fields.
type Snapshot struct {
	Credential string
	Identity   string
}

// Authenticated reports whether the snapshot holds a session.
func (s Snapshot) Authenticated() bool {
	return s.Credential != "" && s.Identity != ""
}

// ErrInvalidSession is returned by Establish when either field is empty.
var ErrInvalidSession = errors.New("session: credential and identity are both required")

// =============================================================================
// MANAGER
// =============================================================================

// Manager holds the session for one process. All methods are safe for
// concurrent use. Storage I/O never happens while mu is held, so
// CurrentCredential cannot block on disk.
type Manager struct {
	mu         sync.RWMutex
	credential string
	identity   string

	// writeMu orders storage writes so the last Establish/Clear wins on disk
	// as well as in memory.
	writeMu sync.Mutex

	store  storage.Store
	nav    Navigator
	logger *slog.Logger

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = logging.OrDiscard(l) }
}

// NewManager creates an empty Manager. Call Hydrate to restore a stored
// session. A nil navigator drops navigation decisions.
func NewManager(store storage.Store, nav Navigator, opts ...Option) *Manager {
	if nav == nil {
		nav = NavigatorFunc(func(View, string) {})
	}
	m := &Manager{
		store:  store,
		nav:    nav,
		logger: logging.Discard(),
		subs:   make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Hydrate restores the session from storage without navigating. A missing,
// partial, or unreadable stored session leaves the Manager signed out.
func (m *Manager) Hydrate() {
	snap, err := m.readStored()
	if err != nil {
		m.logger.Warn("session storage unreadable, starting signed out", "error", err)
		return
	}
	if !snap.Authenticated() {
		m.logger.Debug("no stored session")
		return
	}

	m.mu.Lock()
	m.credential, m.identity = snap.Credential, snap.Identity
	m.mu.Unlock()

	m.logger.Info("session restored", "identity", snap.Identity)
	m.notify(snap)
}

// Establish starts a session and navigates to the home view. Persisting is
// best-effort; a storage failure is logged and the in-memory session stands.
// Calling Establish again with the same pair is harmless.
func (m *Manager) Establish(credential, identity string) error {
	if credential == "" || identity == "" {
		return ErrInvalidSession
	}

	m.writeMu.Lock()
	m.mu.Lock()
	m.credential, m.identity = credential, identity
	m.mu.Unlock()
	m.persist(credential, identity)
	m.writeMu.Unlock()

	m.logger.Info("session established", "identity", identity)
	m.notify(Snapshot{Credential: credential, Identity: identity})
	m.nav.Navigate(ViewHome, "")
	return nil
}

// Clear ends the session and navigates to the auth view. It always succeeds.
func (m *Manager) Clear() {
	m.ClearWithNotice("")
}

// ClearWithNotice is Clear with a message for the auth view, used when the
// session ends for a reason other than the user signing out.
func (m *Manager) ClearWithNotice(notice string) {
	m.writeMu.Lock()
	m.mu.Lock()
	m.credential, m.identity = "", ""
	m.mu.Unlock()
	if m.store != nil {
		if err := m.store.Delete(storage.KeyToken, storage.KeyUsername); err != nil {
			m.logger.Warn("failed to delete stored session", "error", err)
		}
	}
	m.writeMu.Unlock()

	m.logger.Info("session cleared", "notice", notice)
	m.notify(Snapshot{})
	m.nav.Navigate(ViewAuth, notice)
}

// RequireLogin sends the user to the auth view without touching the
// session. Protected call-sites use it when no credential is present.
func (m *Manager) RequireLogin(notice string) {
	m.nav.Navigate(ViewAuth, notice)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// CurrentCredential returns the bearer credential, or ok=false when signed
// out. It reads memory only.
func (m *Manager) CurrentCredential() (credential string, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.credential, m.credential != ""
}

// Identity returns the signed-in identity, or ok=false when signed out.
func (m *Manager) Identity() (identity string, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity, m.identity != ""
}

// Snapshot returns a copy of the session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{Credential: m.credential, Identity: m.identity}
}

// Subscribe registers fn to be called after every session change. The
// returned function unregisters it. fn must not call back into Subscribe.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

// =============================================================================
// STORAGE SYNC
// =============================================================================

// Sync re-reads storage after an outside change. A stored session that
// differs from memory is adopted silently; a stored session that vanished
// signs this process out and sends it to the auth view.
func (m *Manager) Sync() {
	stored, err := m.readStored()
	if err != nil {
		m.logger.Warn("session sync skipped", "error", err)
		return
	}

	m.mu.Lock()
	current := Snapshot{Credential: m.credential, Identity: m.identity}
	if stored == current || (!stored.Authenticated() && !current.Authenticated()) {
		m.mu.Unlock()
		return
	}
	if stored.Authenticated() {
		m.credential, m.identity = stored.Credential, stored.Identity
	} else {
		m.credential, m.identity = "", ""
	}
	m.mu.Unlock()

	if stored.Authenticated() {
		m.logger.Info("session replaced by another process", "identity", stored.Identity)
		m.notify(stored)
		return
	}
	m.logger.Info("session removed by another process")
	m.notify(Snapshot{})
	m.nav.Navigate(ViewAuth, NoticeSignedOutElse)
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Manager) readStored() (Snapshot, error) {
	if m.store == nil {
		return Snapshot{}, nil
	}
	token, okT, err := m.store.Get(storage.KeyToken)
	if err != nil {
		return Snapshot{}, err
	}
	user, okU, err := m.store.Get(storage.KeyUsername)
	if err != nil {
		return Snapshot{}, err
	}
	if !okT || !okU {
		return Snapshot{}, nil
	}
	return Snapshot{Credential: token, Identity: user}, nil
}

// persist writes both keys. If the second write fails the first is rolled
// back so storage never holds half a session.
func (m *Manager) persist(credential, identity string) {
	if m.store == nil {
		return
	}
	if err := m.store.Set(storage.KeyToken, credential); err != nil {
		m.logger.Warn("failed to persist session", "error", err)
		return
	}
	if err := m.store.Set(storage.KeyUsername, identity); err != nil {
		m.logger.Warn("failed to persist session", "error", err)
		if derr := m.store.Delete(storage.KeyToken); derr != nil {
			m.logger.Warn("failed to roll back partial session", "error", derr)
		}
	}
}

func (m *Manager) notify(s Snapshot) {
	m.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
