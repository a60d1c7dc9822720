// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local key/value store behind folio's
// persisted state.
//
// # Key Types
//
//   - Store: Key/value persistence interface
//   - FileStore: JSON object file with atomic writes (default)
//   - SQLiteStore: Single-table SQLite database
//   - MemoryStore: Process-local store for tests and --ephemeral runs
//
// # Usage
//
// Open the configured backend:
//
//	store, err := storage.Open(storage.KindFile, "~/.folio/state.json")
//	defer store.Close()
//
//	id, ok, err := store.Get("chat_id")
//	err = store.Set("chat_id", "abc123")
//
// # Storage Location
//
// The file backend writes ~/.folio/state.json by default.
package storage
