// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	convo "github.com/jeranaias/folio/internal/chat"
	"github.com/jeranaias/folio/internal/model"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full screen.
func (m Model) View() string {
	if !m.ready {
		return "\n  Starting folio..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("folio")
	status := m.theme.Availability(m.state.Availability.String())

	meta := "new conversation"
	if m.state.SessionID != "" {
		meta = "chat " + shortID(m.state.SessionID)
	}

	left := title + "  " + m.theme.HeaderMeta.Render(meta)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(status) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + status)
}

// =============================================================================
// MESSAGES
// =============================================================================

// renderMessages renders the transcript, or the suggestions when it is empty.
func (m *Model) renderMessages() string {
	if m.state.IsEmpty() {
		return m.renderEmptyState()
	}

	inProgress, streaming := m.state.InProgress()

	var b strings.Builder
	for i, msg := range m.state.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderMessage(msg, streaming && msg.ID == inProgress.ID))
	}
	return b.String()
}

func (m *Model) renderMessage(msg model.Message, streaming bool) string {
	var b strings.Builder

	label := m.theme.AssistantLabel.Render(msg.Speaker.DisplayName())
	switch {
	case msg.Static:
		label = m.theme.NoticeLabel.Render("Notice")
	case msg.Speaker == model.SpeakerUser:
		label = m.theme.UserLabel.Render(msg.Speaker.DisplayName())
	}
	b.WriteString(label)
	if !msg.CreatedAt.IsZero() {
		b.WriteString(" " + m.theme.Timestamp.Render(msg.CreatedAt.Format("15:04")))
	}
	b.WriteString("\n")

	if msg.HasReasoning() {
		if msg.ReasoningVisible {
			b.WriteString(m.theme.Reasoning.Width(m.bodyWidth()).Render(msg.ReasoningText))
		} else {
			b.WriteString(m.theme.ReasoningHint.Render("[+] reasoning hidden (ctrl+r to show)"))
		}
		b.WriteString("\n")
	}

	switch {
	case msg.RawText != "":
		b.WriteString(m.renderBody(msg))
	case streaming:
		b.WriteString(m.spinner.View() + " " + m.theme.ReasoningHint.Render("Thinking..."))
	}

	return strings.TrimRight(b.String(), "\n")
}

// renderBody renders a message body with glamour, caching by content.
func (m *Model) renderBody(msg model.Message) string {
	if msg.Speaker == model.SpeakerUser || msg.Static || m.renderer == nil {
		return m.theme.MessageBody.Width(m.bodyWidth()).Render(msg.RawText)
	}

	width := m.renderer.Width()
	if cached, ok := m.cache[msg.ID]; ok && cached.raw == msg.RawText && cached.width == width {
		return cached.out
	}

	out, err := m.renderer.Render(msg.RawText)
	if err != nil {
		out = m.theme.MessageBody.Width(m.bodyWidth()).Render(msg.RawText)
	}
	m.cache[msg.ID] = renderedBody{raw: msg.RawText, width: width, out: out}
	return out
}

func (m Model) renderEmptyState() string {
	var b strings.Builder

	if m.initializing {
		b.WriteString(m.spinner.View() + " Connecting to the assistant...")
		return b.String()
	}

	b.WriteString(m.theme.SuggestionTitle.Render("Try asking:"))
	b.WriteString("\n\n")
	for i, s := range m.state.Suggestions {
		b.WriteString("  ")
		b.WriteString(m.theme.SuggestionIndex.Render(fmt.Sprintf("%d.", i+1)))
		b.WriteString(" ")
		b.WriteString(m.theme.SuggestionText.Render(s))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.theme.ReasoningHint.Render("Type a number to pick a suggestion."))
	return b.String()
}

// =============================================================================
// INPUT AND STATUS
// =============================================================================

func (m Model) renderInput() string {
	style := m.theme.InputContainer
	if !m.state.CanSend() {
		style = m.theme.InputDisabled
	}
	return style.Width(max(m.width-inputChrome, minBodyWidth)).Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	var left string
	switch {
	case m.confirming:
		left = m.theme.Confirm.Render(convo.ClearPrompt + " (y/n)")
	case m.flash != "" && m.flashIsError:
		left = m.theme.Error.Render(m.flash)
	case m.flash != "":
		left = m.theme.Flash.Render(m.flash)
	case m.state.Sending:
		left = m.spinner.View() + " Receiving reply... " + m.help.ShortHelpView(m.keys.streamingHelp())
	case !m.state.SendEnabled && !m.initializing:
		left = m.theme.Error.Render("Assistant unavailable.") + " " + m.help.ShortHelpView([]key.Binding{m.keys.Quit})
	default:
		left = m.help.ShortHelpView(m.keys.ShortHelp())
	}
	if m.confirming {
		left += "  " + m.help.ShortHelpView(m.keys.confirmHelp())
	}

	return m.theme.StatusBar.Width(m.width).Render(truncateToWidth(left, m.width-2))
}

// =============================================================================
// HELPERS
// =============================================================================

// shortID abbreviates a session id for the header.
func shortID(id string) string {
	if runewidth.StringWidth(id) <= 12 {
		return id
	}
	return runewidth.Truncate(id, 12, "...")
}

// truncateToWidth truncates styled text to width cells.
func truncateToWidth(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}
