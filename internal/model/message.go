// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the chat transcript.
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/folio/internal/util"
)

// =============================================================================
// SPEAKER TYPE
// =============================================================================

// Speaker identifies the author of a message.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// String returns the string representation of the speaker.
func (s Speaker) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the speaker.
func (s Speaker) DisplayName() string {
	switch s {
	case SpeakerUser:
		return "You"
	case SpeakerAssistant:
		return "Assistant"
	default:
		return string(s)
	}
}

// =============================================================================
// AVAILABILITY
// =============================================================================

// Availability is the last known health of the chat backend.
type Availability int

const (
	AvailabilityUnknown Availability = iota
	AvailabilityHealthy
	AvailabilityUnhealthy
)

// String returns a lowercase name for the availability state.
func (a Availability) String() string {
	switch a {
	case AvailabilityHealthy:
		return "healthy"
	case AvailabilityUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single turn in the conversation.
//
// RenderedHTML and RenderedReasoningHTML are derived from RawText and
// ReasoningText and are recomputed whenever the source text changes.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Speaker   Speaker   `json:"speaker"`
	CreatedAt time.Time `json:"created_at"`

	// Answer channel
	RawText      string `json:"raw_text"`
	RenderedHTML string `json:"rendered_html,omitempty"`

	// Reasoning channel
	ReasoningText         string `json:"reasoning_text,omitempty"`
	RenderedReasoningHTML string `json:"rendered_reasoning_html,omitempty"`

	// UI state (not persisted)
	ReasoningVisible bool `json:"-"`

	// Static marks notices generated by the client itself (backend down,
	// history unavailable) rather than text produced by the backend.
	Static bool `json:"static,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(speaker Speaker, text string) Message {
	return Message{
		ID:        generateID(),
		Speaker:   speaker,
		RawText:   text,
		CreatedAt: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(text string) Message {
	return NewMessage(SpeakerUser, text)
}

// NewAssistantPlaceholder creates the empty assistant message that receives
// streamed content. Its reasoning panel starts open.
func NewAssistantPlaceholder() Message {
	msg := NewMessage(SpeakerAssistant, "")
	msg.ReasoningVisible = true
	return msg
}

// NewStaticMessage creates a client-generated assistant notice.
func NewStaticMessage(text string) Message {
	msg := NewMessage(SpeakerAssistant, text)
	msg.Static = true
	return msg
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// HasReasoning reports whether the message carries reasoning text.
func (m Message) HasReasoning() bool {
	return m.ReasoningText != ""
}

// IsEmpty reports whether neither channel has received any content.
func (m Message) IsEmpty() bool {
	return m.RawText == "" && m.ReasoningText == ""
}

// Preview returns the answer text on one line, cut to maxWidth terminal
// columns.
func (m Message) Preview(maxWidth int) string {
	return util.TruncateWidth(util.SingleLine(m.RawText), maxWidth)
}

// generateID creates a unique message ID.
func generateID() string {
	return "msg_" + uuid.New().String()
}
