package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadReadsFile(t *testing.T) {
	path := writeConfig(t, `{
		"search": {"heuristic": "divided", "workers": 4, "max_steps": 500, "timeout": "2s"},
		"history": {"enabled": false, "keep_last": 10}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "divided", cfg.Search.Heuristic)
	assert.Equal(t, 4, cfg.Search.Workers)
	assert.Equal(t, 500, cfg.Search.MaxSteps)
	assert.Equal(t, 2*time.Second, cfg.Search.Timeout)
	assert.Equal(t, 20, cfg.Search.SwitchThreshold, "default kept")
	assert.InDelta(t, 2.0, cfg.Search.StepFactor, 1e-9)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, 10, cfg.History.KeepLast)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("COSTPLAN_SEARCH_WORKERS", "8")
	t.Setenv("COSTPLAN_SEARCH_TIMEOUT", "1m30s")

	cfg, err := Load(writeConfig(t, `{"search": {"workers": 2}}`))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Search.Workers)
	assert.Equal(t, 90*time.Second, cfg.Search.Timeout)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := map[string]string{
		"unknown heuristic": `{"search": {"heuristic": "greedy"}}`,
		"zero workers":      `{"search": {"workers": 0}}`,
		"bad timeout":       `{"search": {"timeout": "soon"}}`,
		"shrinking budget":  `{"search": {"step_factor": 0.5}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.NotEmpty(t, schemaErr.Problems)
		})
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	_, err := Load(writeConfig(t, `{"search":`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestValidateSettingsRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	err := ValidateSettings(map[string]any{"agents": map[string]any{}})
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Error(), "agents")

	require.NoError(t, ValidateSettings(map[string]any{
		"search": map[string]any{"heuristic": "transitive", "workers": 2},
	}))
}
