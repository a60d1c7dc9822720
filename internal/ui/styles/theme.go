// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components used by the chat view.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderMeta  lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	NoticeLabel    lipgloss.Style
	Timestamp      lipgloss.Style
	Reasoning      lipgloss.Style
	ReasoningHint  lipgloss.Style
	MessageBody    lipgloss.Style

	// ==========================================================================
	// SUGGESTION STYLES
	// ==========================================================================

	SuggestionTitle lipgloss.Style
	SuggestionIndex lipgloss.Style
	SuggestionText  lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	InputDisabled  lipgloss.Style
	StatusBar      lipgloss.Style
	StatusHealthy  lipgloss.Style
	StatusDown     lipgloss.Style
	StatusUnknown  lipgloss.Style
	ShortcutKey    lipgloss.Style
	ShortcutDesc   lipgloss.Style
	Spinner        lipgloss.Style
	Confirm        lipgloss.Style
	Flash          lipgloss.Style
	Error          lipgloss.Style
}

// NewTheme creates a theme for the current terminal.
func NewTheme() *Theme {
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.HeaderMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.UserLabel = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.NoticeLabel = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)
	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Reasoning = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Overlay).
		PaddingLeft(1)
	t.ReasoningHint = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.MessageBody = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.SuggestionTitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true)
	t.SuggestionIndex = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.SuggestionText = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)
	t.InputDisabled = t.InputContainer.
		BorderForeground(Overlay)
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.StatusHealthy = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)
	t.StatusDown = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)
	t.StatusUnknown = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan)
	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)
	t.Confirm = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)
	t.Flash = lipgloss.NewStyle().
		Foreground(Emerald)
	t.Error = lipgloss.NewStyle().
		Foreground(Rose)
}

// Availability renders a status indicator for the backend state name
// ("healthy", "unhealthy" or anything else for unknown).
func (t *Theme) Availability(state string) string {
	switch state {
	case "healthy":
		return t.StatusHealthy.Render(StatusIndicators.Success + " online")
	case "unhealthy":
		return t.StatusDown.Render(StatusIndicators.Error + " offline")
	default:
		return t.StatusUnknown.Render(StatusIndicators.Pending + " connecting")
	}
}

// Shortcut renders a "key desc" pair for the status bar.
func (t *Theme) Shortcut(key, desc string) string {
	return t.ShortcutKey.Render(key) + " " + t.ShortcutDesc.Render(desc)
}
