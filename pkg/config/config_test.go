package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boristopalov/laneavoid/pkg/core"
	"github.com/boristopalov/laneavoid/pkg/environment"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, environment.DefaultConfig(), cfg.Environment)
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(strings.NewReader(`
environment:
  num_obstacles: 3
evaluation:
  episodes: 10
  policies: [hold, llm]
agent:
  provider: gemini
  model: gemini-1.5-flash
logging:
  level: debug
  encoding: json
`))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Environment.NumObstacles)
	assert.Equal(t, environment.DefaultDT, cfg.Environment.DT)
	assert.Equal(t, environment.DefaultMaxSteps, cfg.Environment.MaxSteps)
	assert.Equal(t, 10, cfg.Evaluation.Episodes)
	assert.Equal(t, []string{PolicyHold, PolicyLLM}, cfg.Evaluation.Policies)
	assert.True(t, cfg.Evaluation.Shield)
	assert.Equal(t, "gemini", cfg.Agent.Provider)
	assert.Equal(t, 8, cfg.Agent.MemorySize)
	assert.Equal(t, "json", cfg.Logging.Encoding)
}

func TestLoadEmpty(t *testing.T) {
	cfg, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero dt", "environment: {dt: 0}"},
		{"negative obstacles", "environment: {num_obstacles: -1}"},
		{"no episodes", "evaluation: {episodes: 0}"},
		{"unknown policy", "evaluation: {policies: [dqn]}"},
		{"bad level", "logging: {level: loud}"},
		{"bad encoding", "logging: {encoding: xml}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.yaml))
			require.ErrorIs(t, err, core.ErrInvalidConfig)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "laneavoid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("evaluation:\n  seed: 7\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Evaluation.Seed)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestMalformedYAML(t *testing.T) {
	_, err := Load(strings.NewReader("environment: [1, 2"))
	require.Error(t, err)
}
