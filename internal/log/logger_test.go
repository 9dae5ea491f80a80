package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{LogLevel: zerolog.DebugLevel, Type: JSONLogger, Out: &buf})
	t.Cleanup(func() { Init(Options{LogLevel: zerolog.Disabled, Out: &bytes.Buffer{}}) })

	DB.Debug().Str("op", "put").Msg("engine failure")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "db", line["component"])
	assert.Equal(t, "put", line["op"])
	assert.Equal(t, "debug", line["level"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{LogLevel: zerolog.WarnLevel, Type: ConsoleLogger, Out: &buf})
	t.Cleanup(func() { Init(Options{LogLevel: zerolog.Disabled, Out: &bytes.Buffer{}}) })

	Storage.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	Storage.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "component=")
}

func TestParse(t *testing.T) {
	lvl, err := ParseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	typ, err := ParseLoggerType("JSON")
	require.NoError(t, err)
	assert.Equal(t, JSONLogger, typ)

	_, err = ParseLoggerType("xml")
	assert.Error(t, err)
}
