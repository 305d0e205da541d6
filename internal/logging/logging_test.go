// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"info":    zerolog.InfoLevel,
		"DEBUG":   zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestSetup_JSONOutputFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := Setup(Options{Level: "warn"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info().Msg("DROPPED")
	logger.Warn().Str("model", "m1").Msg("CANDIDATE_FAILED")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "CANDIDATE_FAILED", entry["message"])
	assert.Equal(t, "m1", entry["model"])
}

func TestSetup_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "chat.log")
	logger, closer, err := Setup(Options{Level: "info", File: path, Pretty: true}, nil)
	require.NoError(t, err)

	logger.Info().Msg("CHAT_STARTED")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"CHAT_STARTED"`)
}
