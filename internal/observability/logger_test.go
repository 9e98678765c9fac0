package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Level: "info", Output: &buf, ServiceName: "test-svc"})

	log.Info().Str("query", "houston").Msg("answered")
	log.Debug().Msg("dropped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "answered", entry["message"])
	assert.Equal(t, "test-svc", entry["service"])
	assert.Equal(t, "houston", entry["query"])
	assert.Equal(t, "info", entry["level"])
}

func TestNewLogger_DefaultService(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Output: &buf})
	log.Warn().Msg("x")
	assert.Contains(t, buf.String(), `"service":"keystone"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}
