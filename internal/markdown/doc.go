// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown renders message text.
//
// # Key Types
//
//   - Renderer: Converts Markdown source into display text
//   - HTMLRenderer: GitHub-flavored Markdown to sanitized HTML
//   - TerminalRenderer: Markdown to ANSI-styled terminal text
//   - Plain: Returns text unchanged, for pipes and dumb terminals
//
// # Usage
//
//	r := markdown.NewHTMLRenderer()
//	html, err := r.Render("**hello**")
//
// Renderers are safe for concurrent use.
package markdown
