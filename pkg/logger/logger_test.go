package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLogUsableBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() {
		Log.Info("before init")
		Named("test").Warn("still fine")
	})
}

func TestInitModes(t *testing.T) {
	previous := Log
	defer func() { Log = previous }()

	require.NoError(t, Init(true))
	assert.True(t, Log.Core().Enabled(zapcore.DebugLevel), "development logger should enable debug")

	require.NoError(t, Init(false))
	assert.False(t, Log.Core().Enabled(zapcore.DebugLevel), "production logger should not enable debug")
}
