// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// SHARED BEHAVIOR
// =============================================================================

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	fileStore, err := NewFileStore(filepath.Join(dir, "state.json"))
	require.NoError(t, err)

	sqliteStore, err := NewSQLiteStore(filepath.Join(dir, "state.db"))
	require.NoError(t, err)

	return map[string]Store{
		"file":   fileStore,
		"sqlite": sqliteStore,
		"memory": NewMemoryStore(),
	}
}

func TestStore_GetSetDelete(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			_, ok, err := store.Get("chat_id")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Set("chat_id", "abc"))
			v, ok, err := store.Get("chat_id")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "abc", v)

			require.NoError(t, store.Set("chat_id", "def"))
			v, _, _ = store.Get("chat_id")
			assert.Equal(t, "def", v)

			require.NoError(t, store.Delete("chat_id"))
			_, ok, err = store.Get("chat_id")
			require.NoError(t, err)
			assert.False(t, ok)

			// Deleting again is fine
			assert.NoError(t, store.Delete("chat_id"))
		})
	}
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	s1, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set("chat_id", "persisted"))
	require.NoError(t, s1.Close())

	s2, err := NewFileStore(path)
	require.NoError(t, err)
	v, ok, err := s2.Get("chat_id")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", v)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestFileStore_ClosedRejectsWrites(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.True(t, errors.Is(s.Set("k", "v"), ErrClosed))
	_, _, err = s.Get("k")
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s1, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set("chat_id", "persisted"))
	require.NoError(t, s1.Close())

	s2, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s2.Close()
	v, ok, err := s2.Get("chat_id")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", v)
}

// =============================================================================
// OPEN / KIND
// =============================================================================

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"", KindFile, false},
		{"file", KindFile, false},
		{" SQLite ", KindSQLite, false},
		{"memory", KindMemory, false},
		{"redis", "", true},
	}

	for _, tc := range tests {
		got, err := ParseKind(tc.in)
		if tc.wantErr {
			assert.True(t, errors.Is(err, ErrUnknownKind), "ParseKind(%q)", tc.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(KindMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(KindFile, filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(KindSQLite, filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	_, err = Open(Kind("bogus"), "")
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".folio", "state.json"), ExpandHome("~/.folio/state.json"))
	assert.Equal(t, "/tmp/x", ExpandHome("/tmp/x"))
	assert.Equal(t, "relative/x", ExpandHome("relative/x"))
}
