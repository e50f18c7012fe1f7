package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestGetBeforeInit(t *testing.T) {
	mu.Lock()
	logger = nil
	mu.Unlock()

	l := Get()
	require.NotNil(t, l)
	assert.NotPanics(t, func() { l.Infow("ignored", "k", 1) })
	assert.NotPanics(t, Sync)
}

func TestInitLevels(t *testing.T) {
	require.NoError(t, Init(false))
	assert.False(t, Get().Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Get().Desugar().Core().Enabled(zapcore.WarnLevel))

	require.NoError(t, Init(true))
	assert.True(t, Get().Desugar().Core().Enabled(zapcore.DebugLevel))
}
