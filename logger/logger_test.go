package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONAtLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Out: &buf})

	l.Info().Msg("dropped")
	l.Warn().Str("tool", "maps_service").Msg("kept")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "maps_service", entry["tool"])
	assert.Equal(t, "kept", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNewFallsBackToInfo(t *testing.T) {
	l := New(Config{Level: "chatty", Out: &bytes.Buffer{}})
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
}

func TestNewRedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Redaction: true, Out: &buf})

	l.Debug().Str("key", "sk-abcdefghijklmnopqrstuvwxyz").Msg("calling provider")

	assert.NotContains(t, buf.String(), "sk-abcdefghijklmnopqrstuvwxyz")
	assert.Contains(t, buf.String(), redacted)
}

func TestPrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Pretty: true, Out: &buf})
	l.Info().Msg("server started")
	assert.Contains(t, buf.String(), "server started")
	assert.Contains(t, buf.String(), "INF")
}
