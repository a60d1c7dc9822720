// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the full-screen chat view for folio.

The package is a Bubble Tea front end over the conversation state machine in
internal/chat. It never mutates conversation state itself: every user action
is forwarded to the machine, and the view is redrawn from the snapshots the
machine publishes.

# Key Components

## Model (model.go)

The Model struct holds the widgets (textarea input, scrolling viewport,
spinner, help line) together with the latest machine snapshot and a cache of
glamour-rendered message bodies.

## Update Loop (update.go)

Handles keyboard input, window resizes, snapshot delivery and the results of
blocking machine calls, which always run inside tea.Cmd goroutines.

## View Rendering (view.go)

Header with session and backend status, message list with collapsible
reasoning, suggestion list for empty conversations, input box and status bar.

## Relay (relay.go)

Bridges machine observers into the Bubble Tea program. Snapshots are coalesced
and paced with a token bucket so a fast stream redraws at most MaxFPS times
per second, while the final snapshot of a reply is always delivered.

# Usage

	err := chat.Run(ctx, machine, chat.Config{Style: "dark", MaxFPS: 30})

# Keyboard Shortcuts

	Enter       Send message (a bare number picks a suggestion)
	Alt+Enter   Insert newline
	Ctrl+R      Show or hide reasoning for the latest reply
	Ctrl+L      Clear the conversation (asks for confirmation)
	Ctrl+S      Export the conversation as Markdown
	Esc         Stop the reply being received
	PgUp/PgDn   Scroll
	Ctrl+C      Stop the reply, or quit when idle
*/
package chat
