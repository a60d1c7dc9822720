// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// printer.go - Plain-text output of conversation state.

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jeranaias/folio/internal/chat"
	"github.com/jeranaias/folio/internal/model"
)

// =============================================================================
// STREAM PRINTER
// =============================================================================

// streamPrinter writes the growing reply to out as new text arrives.
// Reasoning goes to reasoningOut when it is set.
type streamPrinter struct {
	mu           sync.Mutex
	out          io.Writer
	reasoningOut io.Writer

	// gap writes a blank line between reasoning and the answer
	gap bool

	id        string
	answer    int
	reasoning int
}

// Observe is a chat.Machine subscriber.
func (p *streamPrinter) Observe(s chat.State) {
	msg, ok := s.InProgress()
	if !ok {
		return
	}
	p.write(msg)
}

// Finish writes whatever of the reply is still unprinted and reports
// whether any answer text was printed.
func (p *streamPrinter) Finish(s chat.State) bool {
	p.mu.Lock()
	id := p.id
	p.mu.Unlock()

	if id == "" {
		if last, ok := s.Messages.Last(); ok && last.Speaker == model.SpeakerAssistant {
			id = last.ID
		}
	}
	if idx := s.Messages.IndexOf(id); idx >= 0 && !s.Messages[idx].Static {
		p.write(s.Messages[idx])
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.answer > 0
}

func (p *streamPrinter) write(msg model.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if msg.ID != p.id {
		p.id = msg.ID
		p.answer = 0
		p.reasoning = 0
	}

	if p.reasoningOut != nil && len(msg.ReasoningText) > p.reasoning {
		io.WriteString(p.reasoningOut, RenderConditional(DimStyle, msg.ReasoningText[p.reasoning:]))
		p.reasoning = len(msg.ReasoningText)
	}
	if len(msg.RawText) > p.answer {
		if p.gap && p.answer == 0 && p.reasoning > 0 {
			io.WriteString(p.out, "\n\n")
		}
		io.WriteString(p.out, msg.RawText[p.answer:])
		p.answer = len(msg.RawText)
	}
}

// =============================================================================
// TRANSCRIPT OUTPUT
// =============================================================================

// printMessage writes one message with a speaker label.
func printMessage(w io.Writer, msg model.Message, withReasoning bool) {
	label := RenderConditional(UserStyle, msg.Speaker.DisplayName()+":")
	if msg.Speaker == model.SpeakerAssistant {
		label = RenderConditional(AssistantStyle, msg.Speaker.DisplayName()+":")
	}
	fmt.Fprintln(w, label)

	if withReasoning && msg.HasReasoning() {
		for _, line := range strings.Split(strings.TrimSpace(msg.ReasoningText), "\n") {
			fmt.Fprintln(w, RenderConditional(DimStyle, "  | "+line))
		}
	}

	text := strings.TrimSpace(msg.RawText)
	if msg.Static {
		text = RenderConditional(WarningStyle, text)
	}
	fmt.Fprintln(w, text)
}

// printTranscript writes every message separated by blank lines.
func printTranscript(w io.Writer, transcript model.Transcript, withReasoning bool) {
	for i, msg := range transcript {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printMessage(w, msg, withReasoning)
	}
}

// printNotices writes any client notices in the transcript.
func printNotices(w io.Writer, transcript model.Transcript) {
	for _, msg := range transcript {
		if msg.Static {
			fmt.Fprintln(w, RenderConditional(WarningStyle, msg.RawText))
		}
	}
}
