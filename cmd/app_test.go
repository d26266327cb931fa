package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"searchlens/config"
	"searchlens/coordinator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(config.Log{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = newLogger(config.Log{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = newLogger(config.Log{Level: "loud"})
	assert.Error(t, err)
}

func TestNewApp_WiresServices(t *testing.T) {
	configPath = filepath.Join(t.TempDir(), "absent.yaml")
	t.Setenv("SEARCHLENS_HISTORY_PATH", filepath.Join(t.TempDir(), "history.db"))

	a, err := newApp(true)
	require.NoError(t, err)
	require.NotNil(t, a.coordinator)
	require.NotNil(t, a.history)
	assert.Equal(t, coordinator.Stats{}, a.coordinator.Stats())
	assert.NoError(t, a.close())
}

func TestWriteResult(t *testing.T) {
	var buf bytes.Buffer
	outputJSON = false
	require.NoError(t, writeResult(&buf, nil, "plain"))
	assert.Equal(t, "plain\n", buf.String())

	buf.Reset()
	outputJSON = true
	t.Cleanup(func() { outputJSON = false })
	require.NoError(t, writeResult(&buf, map[string]bool{"success": true}, "ignored"))
	assert.JSONEq(t, `{"success": true}`, buf.String())
}
