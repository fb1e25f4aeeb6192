package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { level.SetLevel(zapcore.InfoLevel) })

	assert.NoError(t, SetLevel("debug"))
	assert.True(t, L.Core().Enabled(zapcore.DebugLevel))

	assert.Error(t, SetLevel("loud"))
	assert.True(t, L.Core().Enabled(zapcore.DebugLevel))

	assert.NoError(t, SetLevel("warn"))
	assert.False(t, L.Core().Enabled(zapcore.InfoLevel))
}

func TestWithComponent(t *testing.T) {
	assert.NotNil(t, WithComponent("ledger"))
}
