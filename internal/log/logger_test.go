package log

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"loud":    LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &Logger{zapLogger: zap.New(core), level: zap.NewAtomicLevelAt(zap.DebugLevel)}

	l.With(String("run", "r1")).Info("episode finished",
		Int("steps", 12),
		Float64("reward", -4.5),
		Bool("terminated", true),
		Duration("took", time.Millisecond),
		Err(errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "episode finished", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "r1", fields["run"])
	assert.Equal(t, int64(12), fields["steps"])
	assert.Equal(t, -4.5, fields["reward"])
	assert.Equal(t, true, fields["terminated"])
	assert.Equal(t, "boom", fields["error"])
}

func TestLoggerLevel(t *testing.T) {
	l, err := New(LevelWarn, "json")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, l.GetLevel())
	l.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, l.GetLevel())

	assert.NotPanics(t, func() { Nop().Info("dropped") })
}
