// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "errors"

// Precondition errors. None of them change the state.
var (
	ErrEmptyMessage       = errors.New("chat: message is empty")
	ErrBusy               = errors.New("chat: a message is already being sent")
	ErrSendDisabled       = errors.New("chat: sending is disabled")
	ErrAlreadyInitialized = errors.New("chat: already initialized")
	ErrClosed             = errors.New("chat: machine is closed")
)
