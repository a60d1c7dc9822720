// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts to shareable formats.
//
// # Key Types
//
//   - Conversation: A transcript plus the metadata printed with it
//   - Exporter: Format-specific encoder
//   - Options: Export configuration options
//
// # Supported Formats
//
//   - Text: Plain transcript for terminals and pipes
//   - Markdown: Human-readable with frontmatter
//   - HTML: Standalone page with embedded CSS
//   - JSON: Machine-readable with full message data
//
// # Usage
//
//	conv := export.FromTranscript(sess.ID(), state.Messages)
//	exporter, err := export.ForFormat("markdown", nil)
//	data, err := exporter.Export(conv)
//
// Or write straight to a file:
//
//	path, err := export.ExportToFile(conv, exporter, opts)
package export
