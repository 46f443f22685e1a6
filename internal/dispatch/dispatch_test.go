// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragworks-tui/internal/backend"
	"github.com/jeranaias/ragworks-tui/internal/session"
	"github.com/jeranaias/ragworks-tui/internal/storage"
)

type navRecord struct {
	view   session.View
	notice string
}

type recordingNavigator struct {
	mu    sync.Mutex
	calls []navRecord
}

func (r *recordingNavigator) Navigate(v session.View, notice string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, navRecord{v, notice})
}

func (r *recordingNavigator) last() (navRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return navRecord{}, false
	}
	return r.calls[len(r.calls)-1], true
}

type fixture struct {
	mgr   *session.Manager
	store *storage.MemoryStore
	nav   *recordingNavigator
	calls *atomic.Int32
	d     *Dispatcher
}

func newFixture(t *testing.T, h http.HandlerFunc, opts ...Option) *fixture {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	store := storage.NewMemoryStore()
	nav := &recordingNavigator{}
	mgr := session.NewManager(store, nav)
	return &fixture{
		mgr:   mgr,
		store: store,
		nav:   nav,
		calls: &calls,
		d:     New(mgr, backend.NewClient(srv.URL), opts...),
	}
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// =============================================================================
// NO SESSION
// =============================================================================

func TestNoSession_RedirectsWithoutNetwork(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]string{"response": "should not happen"})
	})
	ctx := context.Background()

	_, err := f.d.Chat(ctx, "hi")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.ErrorIs(t, f.d.Upload(ctx, "a.pdf", strings.NewReader("x")), ErrNotAuthenticated)
	assert.ErrorIs(t, f.d.DeleteUploads(ctx), ErrNotAuthenticated)

	assert.EqualValues(t, 0, f.calls.Load())
	last, ok := f.nav.last()
	require.True(t, ok)
	assert.Equal(t, navRecord{session.ViewAuth, session.NoticeSignInRequired}, last)
	assert.Len(t, f.nav.calls, 3)
}

// =============================================================================
// WITH SESSION
// =============================================================================

func TestChat_BearerMatchesStoredCredential(t *testing.T) {
	var gotAuth atomic.Value
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		respond(w, http.StatusOK, map[string]string{"response": "hello"})
	})
	require.NoError(t, f.store.Set(storage.KeyToken, "T1"))
	require.NoError(t, f.store.Set(storage.KeyUsername, "a"))
	f.mgr.Hydrate()

	answer, err := f.d.Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", answer)
	assert.Equal(t, "Bearer T1", gotAuth.Load())
}

func TestUnauthorized_ClearsSession(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "Token has expired"})
	})
	require.NoError(t, f.mgr.Establish("T1", "a"))

	_, err := f.d.Chat(context.Background(), "hi")

	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.ErrorIs(t, err, backend.ErrUnauthorized)
	_, ok := f.mgr.CurrentCredential()
	assert.False(t, ok)
	assert.Empty(t, f.store.Keys())
	last, _ := f.nav.last()
	assert.Equal(t, navRecord{session.ViewAuth, session.NoticeSessionExpired}, last)
}

func TestUnauthorized_ClearDisabled(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "Token has expired"})
	}, WithClearOnUnauthorized(false))
	require.NoError(t, f.mgr.Establish("T1", "a"))

	err := f.d.DeleteUploads(context.Background())

	assert.EqualError(t, err, "Token has expired")
	assert.NotErrorIs(t, err, ErrSessionExpired)
	_, ok := f.mgr.CurrentCredential()
	assert.True(t, ok)
}

func TestUnauthorized_DoesNotClearNewerSession(t *testing.T) {
	var f *fixture
	f = newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		// The user signs in again while the old request is in flight.
		require.NoError(t, f.mgr.Establish("T2", "a"))
		respond(w, http.StatusUnauthorized, map[string]string{"error": "expired"})
	})
	require.NoError(t, f.mgr.Establish("T1", "a"))

	_, err := f.d.Chat(context.Background(), "hi")

	assert.ErrorIs(t, err, ErrSessionExpired)
	cred, ok := f.mgr.CurrentCredential()
	require.True(t, ok)
	assert.Equal(t, "T2", cred)
}

func TestOtherErrors_SurfaceVerbatim(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusBadRequest, map[string]string{"error": "too large"})
	})
	require.NoError(t, f.mgr.Establish("T1", "a"))

	err := f.d.Upload(context.Background(), "big.pdf", strings.NewReader("x"))

	assert.EqualError(t, err, "too large")
	assert.True(t, f.mgr.Snapshot().Authenticated())
	assert.EqualValues(t, 1, f.calls.Load())
}

// =============================================================================
// IN-FLIGHT GUARD
// =============================================================================

func TestBusy_SameKindRejected_OtherKindsProceed(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/chat" {
			close(entered)
			<-unblock
			respond(w, http.StatusOK, map[string]string{"response": "done"})
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, f.mgr.Establish("T1", "a"))

	done := make(chan error, 1)
	go func() {
		_, err := f.d.Chat(context.Background(), "first")
		done <- err
	}()
	<-entered

	_, err := f.d.Chat(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)
	assert.True(t, f.d.Guard().Busy(OpChat))

	assert.NoError(t, f.d.DeleteUploads(context.Background()), "other kinds are not blocked")

	close(unblock)
	require.NoError(t, <-done)
	assert.False(t, f.d.Guard().Busy(OpChat))
}

func TestGuard_ReleaseIsIdempotent(t *testing.T) {
	g := NewGuard()
	release, ok := g.TryAcquire(OpLogin)
	require.True(t, ok)
	release()
	release()

	r1, ok := g.TryAcquire(OpLogin)
	require.True(t, ok)
	_, ok = g.TryAcquire(OpLogin)
	assert.False(t, ok, "double release must not admit two holders")
	r1()
}

// =============================================================================
// FAKE BACKEND
// =============================================================================

type fakeBackend struct {
	err error
}

func (f fakeBackend) Chat(context.Context, string, string) (string, error) { return "", f.err }
func (f fakeBackend) Upload(context.Context, string, string, io.Reader) error {
	return f.err
}
func (f fakeBackend) DeleteUploads(context.Context, string) error { return f.err }

func TestTransportError_KeepsSession(t *testing.T) {
	mgr := session.NewManager(storage.NewMemoryStore(), nil)
	require.NoError(t, mgr.Establish("T1", "a"))
	d := New(mgr, fakeBackend{err: errors.Join(backend.ErrTransport, errors.New("connection refused"))})

	_, err := d.Chat(context.Background(), "hi")

	assert.ErrorIs(t, err, backend.ErrTransport)
	assert.True(t, mgr.Snapshot().Authenticated())
}
