// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

// =============================================================================
// CHUNK TYPE
// =============================================================================

// ChunkKind tags a decoded stream event.
type ChunkKind int

const (
	// KindOther is any payload that is neither answer, reasoning nor a
	// session assignment. It is logged, never shown.
	KindOther ChunkKind = iota

	// KindReasoning carries reasoning-channel text.
	KindReasoning

	// KindAnswer carries answer-channel text.
	KindAnswer

	// KindSession carries a newly assigned session id. The id has already
	// been persisted when the chunk is delivered.
	KindSession
)

// String returns the wire name of the kind.
func (k ChunkKind) String() string {
	switch k {
	case KindReasoning:
		return "reasoning"
	case KindAnswer:
		return "answer"
	case KindSession:
		return "session"
	default:
		return "other"
	}
}

// Chunk is one decoded unit of a chat stream.
type Chunk struct {
	Kind ChunkKind
	Text string
}

// IsVisible reports whether the chunk contributes to a displayed message.
func (c Chunk) IsVisible() bool {
	return c.Kind == KindAnswer || c.Kind == KindReasoning
}
