// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jeranaias/folio/internal/storage"
)

// DefaultKey is the storage key the session id is persisted under.
const DefaultKey = "chat_id"

// =============================================================================
// SESSION
// =============================================================================

// Session is the nullable backend session id, persisted through a Store.
// It is safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	store storage.Store
	key   string
	id    string

	// Callbacks
	onChange []func(id string)
}

// New creates a session backed by store, reading any persisted id eagerly.
func New(store storage.Store, key string) (*Session, error) {
	if key == "" {
		key = DefaultKey
	}

	id, ok, err := store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read session id: %w", err)
	}
	if !ok {
		id = ""
	}

	return &Session{
		store: store,
		key:   key,
		id:    strings.TrimSpace(id),
	}, nil
}

// NewEphemeral creates a session that is never written to disk.
func NewEphemeral() *Session {
	s, _ := New(storage.NewMemoryStore(), DefaultKey)
	return s
}

// ID returns the current session id, or "" if none is known.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// HasID reports whether a session id is known.
func (s *Session) HasID() bool {
	return s.ID() != ""
}

// Key returns the storage key.
func (s *Session) Key() string {
	return s.key
}

// Set records and persists a new session id. An empty id is ignored.
// The in-memory id is updated even if persisting fails.
func (s *Session) Set(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}

	s.mu.Lock()
	if s.id == id {
		s.mu.Unlock()
		return nil
	}
	s.id = id
	callbacks := s.onChange
	s.mu.Unlock()

	err := s.store.Set(s.key, id)
	for _, fn := range callbacks {
		fn(id)
	}
	if err != nil {
		return fmt.Errorf("failed to persist session id: %w", err)
	}
	return nil
}

// Clear forgets the session id and removes it from the store.
func (s *Session) Clear() error {
	s.mu.Lock()
	had := s.id != ""
	s.id = ""
	callbacks := s.onChange
	s.mu.Unlock()

	if err := s.store.Delete(s.key); err != nil {
		return fmt.Errorf("failed to remove session id: %w", err)
	}
	if had {
		for _, fn := range callbacks {
			fn("")
		}
	}
	return nil
}

// OnChange registers fn to be called after the id changes.
// fn receives "" when the session is cleared.
func (s *Session) OnChange(fn func(id string)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}
