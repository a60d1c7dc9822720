// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the folio command tree.
//
// Every command builds an App from the loaded configuration: the session
// store, the persisted session, the backend client and, for commands that
// converse, a chat.Machine.
//
// # Commands Overview
//
//   - tui: Full-screen chat (default)
//   - chat: Line-mode chat with input history
//   - ask: Single question, answer printed to stdout
//   - health: Backend health check (exit status reflects the result)
//   - history: Restore and print or export the saved conversation
//   - clear: Forget the saved session
//   - config: Show, initialize or edit the configuration
//
// # Usage
//
//	os.Exit(cli.Execute())
package cli
