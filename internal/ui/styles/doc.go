// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the color palette and lipgloss styles for the folio
terminal UI.

All colors use lipgloss AdaptiveColor so they follow the terminal's light or
dark background. Status is never conveyed by color alone: every indicator
carries an ASCII marker from StatusIndicators.

# Usage

	theme := styles.NewTheme()
	fmt.Println(theme.Availability("healthy"))
*/
package styles
