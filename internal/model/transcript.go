// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the ordered list of messages, oldest first.
type Transcript []Message

// Clone returns a copy that shares no backing array with t.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return nil
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

// IndexOf returns the position of the message with the given ID, or -1.
func (t Transcript) IndexOf(id string) int {
	for i := range t {
		if t[i].ID == id {
			return i
		}
	}
	return -1
}

// Last returns the most recent message and true, or false if empty.
func (t Transcript) Last() (Message, bool) {
	if len(t) == 0 {
		return Message{}, false
	}
	return t[len(t)-1], true
}

// LastAssistant returns the most recent assistant message.
func (t Transcript) LastAssistant() (Message, bool) {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Speaker == SpeakerAssistant {
			return t[i], true
		}
	}
	return Message{}, false
}

// =============================================================================
// HISTORY RECONSTRUCTION
// =============================================================================

// Wire roles and message types used by the history endpoint.
const (
	HistoryRoleUser       = "user"
	HistoryRoleAssistant  = "assistant"
	HistoryRoleReasoning  = "reasoning"
	HistoryTypeNormal     = "normal"
	HistoryTypeReasoning  = "reasoning"
	reasoningSegmentJoint = "\n\n"
)

// HistoryEntry is one stored message as returned by the backend.
type HistoryEntry struct {
	Role        string `json:"role"`
	Content     string `json:"content"`
	MessageType string `json:"message_type,omitempty"`
}

// IsReasoning reports whether the entry belongs to the reasoning channel.
func (e HistoryEntry) IsReasoning() bool {
	return e.Role == HistoryRoleReasoning || e.MessageType == HistoryTypeReasoning
}

// BuildTranscript rebuilds a transcript from stored history.
//
// Consecutive reasoning entries accumulate into a pending buffer that is
// attached to the next assistant entry, then reset. User entries pass
// through without touching the buffer. Reasoning with no following assistant
// entry is dropped, as are entries with unknown roles.
func BuildTranscript(entries []HistoryEntry) Transcript {
	out := make(Transcript, 0, len(entries))
	var pending []string

	for _, entry := range entries {
		switch {
		case entry.IsReasoning():
			pending = append(pending, entry.Content)
		case entry.Role == HistoryRoleUser:
			out = append(out, NewUserMessage(entry.Content))
		case entry.Role == HistoryRoleAssistant:
			msg := NewMessage(SpeakerAssistant, entry.Content)
			if len(pending) > 0 {
				msg.ReasoningText = strings.Join(pending, reasoningSegmentJoint)
				pending = pending[:0]
			}
			out = append(out, msg)
		}
	}

	return out
}
