package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("chatty"))
}

func TestNewLoggerWritesExtraOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	log, err := NewLogger("info", path)
	require.NoError(t, err)

	log.With("lot", 12).Infow("invoice rendered", "file", "MHP12 Bill Jun 2024.xlsx")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "invoice rendered")
	assert.Contains(t, string(data), "INFO")
}
