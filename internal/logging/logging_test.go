package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clockko/focus/internal/config"
)

func TestJSONLoggerHonoursLevel(t *testing.T) {
	var out bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "warn", Format: "json"}, &out)

	logger.Info().Msg("hidden")
	assert.Zero(t, out.Len())

	logger.Warn().Str("component", "timer").Msg("visible")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "timer", entry["component"])
	assert.Equal(t, "visible", entry["message"])
}

func TestTextLoggerIsNotJSON(t *testing.T) {
	var out bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "debug", Format: "text"}, &out)

	logger.Debug().Msg("hello")
	assert.Contains(t, out.String(), "hello")
	assert.False(t, json.Valid(out.Bytes()))
}
