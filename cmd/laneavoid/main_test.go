package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boristopalov/laneavoid/internal/log"
	"github.com/boristopalov/laneavoid/pkg/config"
	"github.com/boristopalov/laneavoid/pkg/core"
	"github.com/boristopalov/laneavoid/pkg/environment"
)

func TestSettingName(t *testing.T) {
	assert.Equal(t, "RANDOM", settingName("random", false))
	assert.Equal(t, "HOLD + SHIELD", settingName("hold", true))
}

func TestPolicyFactory(t *testing.T) {
	cfg := config.Default()

	f, err := policyFactory(context.Background(), cfg, log.Nop(), config.PolicyHold)
	require.NoError(t, err)
	p, err := f(1)
	require.NoError(t, err)
	a, err := p.Act(context.Background(), core.Observation{0, 0})
	require.NoError(t, err)
	assert.Equal(t, core.ActionHold, a)

	_, err = policyFactory(context.Background(), cfg, log.Nop(), "dqn")
	require.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestRandomTrace(t *testing.T) {
	env, err := environment.NewLaneAvoidEnv(environment.DefaultConfig(), environment.WithSeed(3))
	require.NoError(t, err)

	cmd := newRandomCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())

	require.NoError(t, runRandom(cmd, env, 3))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.True(t, strings.HasPrefix(lines[0], "step 000 | action="))
	last := lines[len(lines)-1]
	assert.True(t, strings.HasPrefix(last, "Episode finished") || strings.HasPrefix(last, "Stopped after"), last)
	assert.LessOrEqual(t, len(lines)-1, maxRandomSteps)
}

func TestRolloutThenPlot(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Environment.MaxSteps = 30
	cfg.Evaluation.Episodes = 5
	cfg.Evaluation.MonitorPath = filepath.Join(dir, "logs", "monitor.csv")

	require.NoError(t, runRollout(context.Background(), cfg, log.Nop(), config.PolicyHold, true))

	data, err := os.ReadFile(cfg.Evaluation.MonitorPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2+5)

	out := filepath.Join(dir, "charts", "curve.html")
	require.NoError(t, renderPlot(cfg.Evaluation.MonitorPath, out, 2))
	html, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Reward per episode")
}

func TestRolloutWritesEveryEpisode(t *testing.T) {
	cfg := config.Default()
	cfg.Evaluation.MonitorPath = filepath.Join(t.TempDir(), "monitor.csv")
	require.Greater(t, cfg.Evaluation.Episodes, 64, "run must outnumber the monitor channel buffer")

	require.NoError(t, runRollout(context.Background(), cfg, log.Nop(), config.PolicyRandom, false))

	data, err := os.ReadFile(cfg.Evaluation.MonitorPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2+cfg.Evaluation.Episodes)
}
