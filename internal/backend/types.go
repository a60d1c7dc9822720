// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import "github.com/jeranaias/folio/internal/model"

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

// SendRequest is the body of POST /chat.
type SendRequest struct {
	Message   string `json:"message"`
	ChatID    string `json:"chat_id,omitempty"`
	UseOpenAI bool   `json:"use_openai,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthStatusOK is the only status value treated as healthy.
const HealthStatusOK = "ok"

// HistoryResponse is the body of GET /chats/{id}/messages.
// Messages is nil when the key is absent or null.
type HistoryResponse struct {
	Messages *[]model.HistoryEntry `json:"messages"`
}
