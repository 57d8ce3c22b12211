package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, false)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	assert.False(t, DebugEnabled())
	log.Debug().Msg("hidden")
	log.Info().Int("steps", 3).Msg("search finished")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "search finished", entry["message"])
	assert.InDelta(t, 3, entry["steps"], 0)
	assert.Contains(t, entry, "time")

	buf.Reset()
	Setup(&buf, true)
	assert.True(t, DebugEnabled())
	log.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}
