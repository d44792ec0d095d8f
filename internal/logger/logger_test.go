package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)

	log.Debug().Msg("hidden")
	log.Info().Str("job", "7").Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "7", line["job"])
	assert.Contains(t, line, "time")
}

func TestNewDebugUsesConsole(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, true).Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.False(t, json.Valid(buf.Bytes()))
}
