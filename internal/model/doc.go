// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the chat transcript.
//
// This package defines the domain types shared by the backend client and the
// conversation state machine. Messages are plain values: once a message has
// been published in a transcript it is never modified in place, only replaced.
//
// # Key Types
//
//   - Message: One turn in the conversation, with optional reasoning text
//   - Speaker: Message author enumeration (user, assistant)
//   - Transcript: Chronological sequence of messages
//   - HistoryEntry: Wire form of a stored message returned by the backend
//   - Availability: Tri-state backend health (unknown, healthy, unhealthy)
//
// # Usage
//
// Rebuild a transcript from stored history:
//
//	transcript := model.BuildTranscript(entries)
//	for _, msg := range transcript {
//	    fmt.Println(msg.Speaker.DisplayName(), msg.RawText)
//	}
package model
