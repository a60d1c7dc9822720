// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts Markdown source into its display form.
type Renderer interface {
	Render(source string) (string, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(source string) (string, error)

func (f RendererFunc) Render(source string) (string, error) {
	return f(source)
}

// Plain returns source unchanged.
type Plain struct{}

func (Plain) Render(source string) (string, error) {
	return source, nil
}

// =============================================================================
// HTML RENDERER
// =============================================================================

// languageClass matches the class goldmark puts on fenced code blocks.
var languageClass = regexp.MustCompile(`^language-[\w+#.-]+$`)

// HTMLRenderer converts GitHub-flavored Markdown into sanitized HTML.
// Raw HTML in the source is dropped and links are limited to safe schemes.
type HTMLRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewHTMLRenderer creates an HTML renderer. Single newlines inside a
// paragraph become <br>, matching how chat text is typed.
func NewHTMLRenderer() *HTMLRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(languageClass).OnElements("code")
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	return &HTMLRenderer{md: md, policy: policy}
}

// Render converts source to HTML. Empty source renders as "".
func (r *HTMLRenderer) Render(source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return r.policy.Sanitize(buf.String()), nil
}

// =============================================================================
// TERMINAL RENDERER
// =============================================================================

// Glamour style names accepted by NewTerminalRenderer.
const (
	StyleAuto  = "auto"
	StyleDark  = "dark"
	StyleLight = "light"
	StyleNoTTY = "notty"
	StyleASCII = "ascii"
)

// DefaultWordWrap is the wrap width used when none is configured.
const DefaultWordWrap = 80

// TerminalRenderer renders Markdown as styled terminal output using glamour.
type TerminalRenderer struct {
	mu    sync.Mutex
	tr    *glamour.TermRenderer
	style string
	width int
}

// NewTerminalRenderer creates a renderer for the given glamour style and
// wrap width. A zero width uses DefaultWordWrap.
func NewTerminalRenderer(style string, width int) (*TerminalRenderer, error) {
	if width <= 0 {
		width = DefaultWordWrap
	}
	style = strings.ToLower(strings.TrimSpace(style))
	if style == "" {
		style = StyleAuto
	}

	styleOpt := glamour.WithStandardStyle(style)
	if style == StyleAuto {
		styleOpt = glamour.WithAutoStyle()
	}

	tr, err := glamour.NewTermRenderer(
		styleOpt,
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create terminal renderer: %w", err)
	}

	return &TerminalRenderer{tr: tr, style: style, width: width}, nil
}

// Width returns the configured wrap width.
func (r *TerminalRenderer) Width() int {
	return r.width
}

// Style returns the configured glamour style.
func (r *TerminalRenderer) Style() string {
	return r.style
}

// Render converts source to ANSI-styled text without surrounding blank lines.
func (r *TerminalRenderer) Render(source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out, err := r.tr.Render(source)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return strings.Trim(out, "\n"), nil
}

// Fallback returns r, or Plain if r is nil.
func Fallback(r Renderer) Renderer {
	if r == nil {
		return Plain{}
	}
	return r
}
