// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the conversation state machine.
//
// A Machine owns the transcript and the flags derived from it (sending,
// send enabled, backend availability). It applies streamed chunks to the
// transcript in order and decides what the user sees when the backend fails.
//
// # Key Types
//
//   - Machine: The conversation state machine
//   - State: Immutable snapshot of everything a UI renders
//   - Transport: The backend calls the machine needs (*backend.Client)
//   - Options: Notice texts, suggestion prompts and collapse delay
//   - Confirmer: Asks the user before the conversation is cleared
//
// # Usage
//
//	m := chat.NewMachine(client, sess, markdown.NewHTMLRenderer(), chat.DefaultOptions())
//	defer m.Close()
//
//	unsubscribe := m.Subscribe(func(s chat.State) { redraw(s) })
//	defer unsubscribe()
//
//	m.Initialize(ctx)
//	if err := m.Submit(ctx, "Tell me about your projects"); err != nil {
//	    // ErrBusy, ErrSendDisabled, ErrEmptyMessage or a backend error
//	}
//
// # State Transitions
//
// A conversation is idle or sending. Submit moves idle to sending and back.
// Only one send can be in flight; a second Submit while sending returns
// ErrBusy without touching the transcript. Every change replaces the whole
// State, so a snapshot never shows a half-applied update.
package chat
