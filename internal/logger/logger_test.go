package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/personal-context-builder/internal/logger"
)

func TestSetupWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger.Logger{Level: "warn", Format: "json"}.SetupWriter(&buf)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Info().Msg("hidden")
	log.Warn().Str("user_id", "alice").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "alice", entry["user_id"])
	assert.Equal(t, "shown", entry["message"])
}

func TestSetupWriterBadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger.Logger{Level: "loud", Format: "json"}.SetupWriter(&buf)

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
