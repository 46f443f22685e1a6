// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides durable client-side key/value storage for ragworks.
//
// It holds the small amount of state that must survive restarts: the session
// credential, the identity it belongs to, and the anonymous device id.
// Values are plain strings.
//
// # Key Types
//
//   - Store: the key/value interface the session layer depends on
//   - SQLiteStore: on-disk store shared by every ragworks process of a user
//   - MemoryStore: in-process store for tests and --ephemeral runs
//
// # Usage
//
//	store, err := storage.OpenSQLite(path)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	id, err := storage.DeviceID(store)
//
// # Storage Location
//
// The database lives at ~/.ragworks/session.db unless storage.path is set.
package storage
