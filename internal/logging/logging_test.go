// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestInitWriter_FiltersByLevel(t *testing.T) {
	defer SetLogger(nil)

	var buf bytes.Buffer
	InitWriter(&buf, "warn")

	Info("hidden_event")
	Warn("shown_event", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden_event")
	assert.Contains(t, out, "shown_event")
	assert.Contains(t, out, "key=value")
}

func TestInit_File(t *testing.T) {
	defer SetLogger(nil)

	path := filepath.Join(t.TempDir(), "logs", "folio.log")
	closer, err := Init("debug", path)
	require.NoError(t, err)

	Debug("file_event", "n", 1)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "file_event")
}
