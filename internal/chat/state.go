// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/jeranaias/folio/internal/model"

// State is an immutable snapshot of the conversation.
// Holders must not modify Messages or Suggestions.
type State struct {
	Messages     model.Transcript
	Sending      bool
	SendEnabled  bool
	Availability model.Availability
	Suggestions  []string
	SessionID    string

	// Version increases with every change.
	Version uint64
}

// IsEmpty reports whether the transcript has no messages.
func (s State) IsEmpty() bool {
	return len(s.Messages) == 0
}

// InProgress returns the assistant message being streamed, if any.
func (s State) InProgress() (model.Message, bool) {
	if !s.Sending {
		return model.Message{}, false
	}
	last, ok := s.Messages.Last()
	if !ok || last.Speaker != model.SpeakerAssistant {
		return model.Message{}, false
	}
	return last, true
}

// CanSend reports whether Submit would currently be accepted.
func (s State) CanSend() bool {
	return s.SendEnabled && !s.Sending
}
