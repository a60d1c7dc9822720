// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
)

// =============================================================================
// TEXT EXPORTER
// =============================================================================

// TextExporter writes the transcript as plain text, one block per message.
type TextExporter struct {
	options *Options
}

// NewTextExporter creates a new plain text exporter.
func NewTextExporter(opts *Options) *TextExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &TextExporter{options: opts}
}

// Export converts a conversation to plain text.
func (e *TextExporter) Export(conv *Conversation) ([]byte, error) {
	if err := validate(conv); err != nil {
		return nil, err
	}

	var sb strings.Builder

	if e.options.IncludeMetadata && conv.SessionID != "" {
		sb.WriteString(fmt.Sprintf("chat_id: %s\n\n", conv.SessionID))
	}

	for i, msg := range conv.Messages {
		if i > 0 {
			sb.WriteString("\n")
		}

		header := msg.Speaker.DisplayName()
		if e.options.IncludeTimestamps && !msg.CreatedAt.IsZero() {
			header = fmt.Sprintf("%s [%s]", header, formatTimestamp(msg.CreatedAt))
		}
		sb.WriteString(header)
		sb.WriteString(":\n")

		if e.options.IncludeReasoning && strings.TrimSpace(msg.ReasoningText) != "" {
			for _, line := range strings.Split(strings.TrimSpace(msg.ReasoningText), "\n") {
				sb.WriteString("  | ")
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}

		sb.WriteString(strings.TrimSpace(msg.RawText))
		sb.WriteString("\n")
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for plain text.
func (e *TextExporter) FileExtension() string {
	return ".txt"
}

// MimeType returns the MIME type for plain text.
func (e *TextExporter) MimeType() string {
	return "text/plain"
}
