// =============================================================================
// Tenant Invoicer - Logger
// =============================================================================
//
// Thin wrapper over zap's SugaredLogger. Library packages receive a *Logger
// through their constructors; only the cmd package builds one.
//
// =============================================================================

package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
}

// NewLogger builds a console logger at the given level ("debug", "info",
// "warn", "error"). Unknown levels fall back to info. Output goes to stderr
// and to every extra path given (files are created, directories are not).
func NewLogger(level string, extraOutputs ...string) (*Logger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = append([]string{"stderr"}, extraOutputs...)
	config.Encoding = "console"
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))
	config.Sampling = nil

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...)}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
