// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	convo "github.com/jeranaias/folio/internal/chat"
)

// =============================================================================
// MACHINE MESSAGES
// =============================================================================

// StateMsg delivers a conversation snapshot published by the machine.
type StateMsg struct {
	State convo.State
}

// InitDoneMsg reports that startup (health check and history load) finished.
// Err is informational; the snapshot already carries any notice.
type InitDoneMsg struct {
	Err error
}

// SendDoneMsg reports that a Submit call returned.
type SendDoneMsg struct {
	Err error
}

// ClearDoneMsg reports the result of a confirmed clear.
type ClearDoneMsg struct {
	Cleared bool
}

// ExportDoneMsg reports the result of Ctrl+S.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// =============================================================================
// UI MESSAGES
// =============================================================================

// flashExpiredMsg hides a transient status message.
type flashExpiredMsg struct {
	seq int
}
