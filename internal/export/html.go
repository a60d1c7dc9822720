// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jeranaias/folio/internal/markdown"
	"github.com/jeranaias/folio/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML page with embedded CSS.
//
// Messages that already carry rendered HTML reuse it; anything else is
// rendered through the sanitizing Markdown renderer.
type HTMLExporter struct {
	options  *Options
	renderer markdown.Renderer
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{
		options:  opts,
		renderer: markdown.NewHTMLRenderer(),
	}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv *Conversation) ([]byte, error) {
	if err := validate(conv); err != nil {
		return nil, err
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(conv.Title)))
	sb.WriteString("    <meta name=\"generator\" content=\"folio\">\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", conv.ExportedAt.Format(time.RFC3339)))
	sb.WriteString(htmlStyle)
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", theme))
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(conv))
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range conv.Messages {
		sb.WriteString(e.renderMessage(msg))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported from <strong>folio</strong> on %s</p>\n",
		conv.ExportedAt.Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

// renderHeader renders the header section with metadata.
func (e *HTMLExporter) renderHeader(conv *Conversation) string {
	var sb strings.Builder

	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", html.EscapeString(conv.Title)))
	sb.WriteString("            <div class=\"metadata\">\n")
	if conv.SessionID != "" {
		sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Chat:</strong> %s</span>\n", html.EscapeString(conv.SessionID)))
	}
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Exported:</strong> %s</span>\n", formatTimestamp(conv.ExportedAt)))
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(conv.Messages)))
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")

	return sb.String()
}

// renderMessage renders a single message.
func (e *HTMLExporter) renderMessage(msg model.Message) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("            <div class=\"message %s-message\">\n", html.EscapeString(msg.Speaker.String())))

	sb.WriteString("                <div class=\"message-header\">\n")
	sb.WriteString(fmt.Sprintf("                    <span class=\"role-label\">%s</span>\n", html.EscapeString(roleLabel(msg.Speaker))))
	if e.options.IncludeTimestamps && !msg.CreatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.CreatedAt)))
	}
	sb.WriteString("                </div>\n")

	if e.options.IncludeReasoning && strings.TrimSpace(msg.ReasoningText) != "" {
		sb.WriteString("                <details class=\"reasoning\">\n")
		sb.WriteString("                    <summary>Reasoning</summary>\n")
		sb.WriteString(e.body(msg.ReasoningText, msg.RenderedReasoningHTML))
		sb.WriteString("                </details>\n")
	}

	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString(e.body(msg.RawText, msg.RenderedHTML))
	sb.WriteString("                </div>\n")
	sb.WriteString("            </div>\n")

	return sb.String()
}

// body returns rendered, falling back to rendering raw, then to escaped raw.
func (e *HTMLExporter) body(raw, rendered string) string {
	if rendered != "" {
		return rendered + "\n"
	}
	if e.renderer != nil {
		if out, err := e.renderer.Render(raw); err == nil {
			return out + "\n"
		}
	}
	return "<pre>" + html.EscapeString(raw) + "</pre>\n"
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const htmlStyle = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        .dark-theme {
            --bg: #1e1e2e; --fg: #cdd6f4; --muted: #6c7086; --surface: #313244;
            --user: #89b4fa; --assistant: #a6e3a1; --code-bg: #11111b; --border: #45475a;
        }
        .light-theme {
            --bg: #eff1f5; --fg: #4c4f69; --muted: #8c8fa1; --surface: #ffffff;
            --user: #1e66f5; --assistant: #40a02b; --code-bg: #e6e9ef; --border: #ccd0da;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            background: var(--bg); color: var(--fg); line-height: 1.6;
        }
        .container { max-width: 900px; margin: 0 auto; padding: 2rem 1rem; }
        .header { border-bottom: 1px solid var(--border); margin-bottom: 2rem; padding-bottom: 1rem; }
        .header h1 { font-size: 1.6rem; margin-bottom: 0.5rem; }
        .metadata { display: flex; flex-wrap: wrap; gap: 1rem; color: var(--muted); font-size: 0.9rem; }
        .message {
            background: var(--surface); border: 1px solid var(--border);
            border-radius: 8px; margin-bottom: 1.25rem; padding: 1rem 1.25rem;
        }
        .user-message { border-left: 4px solid var(--user); }
        .assistant-message { border-left: 4px solid var(--assistant); }
        .message-header { display: flex; justify-content: space-between; margin-bottom: 0.5rem; }
        .role-label { font-weight: 600; }
        .user-message .role-label { color: var(--user); }
        .assistant-message .role-label { color: var(--assistant); }
        .timestamp { color: var(--muted); font-size: 0.85rem; }
        .message-content p { margin-bottom: 0.75rem; }
        .reasoning { color: var(--muted); margin-bottom: 0.75rem; font-size: 0.9rem; }
        .reasoning summary { cursor: pointer; margin-bottom: 0.25rem; }
        pre { background: var(--code-bg); border-radius: 6px; overflow-x: auto; padding: 0.75rem; margin-bottom: 0.75rem; }
        code { font-family: "JetBrains Mono", Consolas, monospace; font-size: 0.9em; }
        a { color: var(--user); }
        table { border-collapse: collapse; margin-bottom: 0.75rem; }
        th, td { border: 1px solid var(--border); padding: 0.25rem 0.5rem; }
        .footer { color: var(--muted); font-size: 0.85rem; margin-top: 2rem; text-align: center; }
    </style>
`
