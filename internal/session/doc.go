// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the persisted chat session identifier.
//
// The backend assigns a session id on the first send. The id is persisted
// the moment it arrives, read once at startup to decide whether history can
// be restored, and removed when the user clears the conversation. Nothing
// else reads the underlying store directly.
//
// # Key Types
//
//   - Session: The session id plus the store it is persisted in
//
// # Usage
//
//	sess, err := session.New(store, session.DefaultKey)
//	if id := sess.ID(); id != "" {
//	    // restore history
//	}
//	sess.OnChange(func(id string) { log.Printf("SESSION | id=%s", id) })
package session
