// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

// exerciseStore runs the Store contract against any implementation.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	_, ok, err := s.Get(KeyToken)
	require.NoError(t, err)
	assert.False(t, ok, "missing key should report ok=false")

	require.NoError(t, s.Set(KeyToken, "T1"))
	require.NoError(t, s.Set(KeyUsername, "alice"))
	require.NoError(t, s.Set(KeyToken, "T2"))

	v, ok, err := s.Get(KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "T2", v, "Set should overwrite")

	require.NoError(t, s.Delete(KeyToken, KeyUsername, "never-set"))
	_, ok, _ = s.Get(KeyToken)
	assert.False(t, ok)
	_, ok, _ = s.Get(KeyUsername)
	assert.False(t, ok)

	require.NoError(t, s.Delete())
}

func TestMemoryStore_Contract(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore_Contract(t *testing.T) {
	s, _ := openTemp(t)
	exerciseStore(t, s)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	s, path := openTemp(t)
	require.NoError(t, s.Set(KeyToken, "tok"))
	require.NoError(t, s.Set(KeyUsername, "bob"))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get(KeyUsername)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bob", v)
}

func TestSQLiteStore_FilesArePrivate(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	dir := filepath.Join(t.TempDir(), "shared")
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, "session.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Set(KeyToken, "SECRET-TOKEN"))

	for _, name := range []string{path, path + "-wal", path + "-shm"} {
		info, err := os.Stat(name)
		require.NoError(t, err, name)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), name)
	}
}

func TestOpenSQLite_TightensExistingFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "session.db")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	require.NoError(t, os.Chmod(path, 0644))

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSQLiteStore_SharedBetweenHandles(t *testing.T) {
	a, path := openTemp(t)
	b, err := OpenSQLite(path)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Set(KeyToken, "from-a"))
	v, ok, err := b.Get(KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "from-a", v)

	require.NoError(t, b.Delete(KeyToken))
	_, ok, err = a.Get(KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStores_ClosedReturnErrClosed(t *testing.T) {
	s, _ := openTemp(t)
	m := NewMemoryStore()
	for _, st := range []Store{s, m} {
		require.NoError(t, st.Close())
		_, _, err := st.Get(KeyToken)
		assert.True(t, errors.Is(err, ErrClosed))
		assert.True(t, errors.Is(st.Set(KeyToken, "x"), ErrClosed))
		assert.True(t, errors.Is(st.Delete(KeyToken), ErrClosed))
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}

// =============================================================================
// DEVICE ID
// =============================================================================

func TestDeviceID_StableAcrossReopen(t *testing.T) {
	s, path := openTemp(t)

	first, err := DeviceID(s)
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err, "device id should be a UUID")

	again, err := DeviceID(s)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	require.NoError(t, s.Close())
	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	afterReopen, err := DeviceID(reopened)
	require.NoError(t, err)
	assert.Equal(t, first, afterReopen)
}

func TestDeviceID_ReplacesGarbage(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.Set(KeyDeviceID, "not-a-uuid"))

	id, err := DeviceID(m)
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", id)

	stored, _, _ := m.Get(KeyDeviceID)
	assert.Equal(t, id, stored)
}

func TestDeviceID_SurvivesSessionKeyDeletion(t *testing.T) {
	m := NewMemoryStore()
	id, err := DeviceID(m)
	require.NoError(t, err)

	require.NoError(t, m.Delete(KeyToken, KeyUsername))
	again, err := DeviceID(m)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, []string{KeyDeviceID}, m.Keys())
}
