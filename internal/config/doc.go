// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for folio.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: Chat API location and timeouts
//   - SessionConfig: Where the session id is persisted
//   - ChatConfig: Conversation notices, suggestions and reasoning collapse
//   - Duration: time.Duration written as a string in TOML
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Command-line flags (applied by the cli package)
//   - Environment variables (FOLIO_*)
//   - ~/.folio/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	timeout := cfg.Backend.Timeout.Duration
package config
