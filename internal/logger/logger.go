// Package logger builds the application's zap logger. Logs go to a rotating
// JSON file only: the terminal belongs to the UI.
package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps a zap logger and the file it rotates
type Logger struct {
	*zap.Logger
	rotator *lumberjack.Logger
}

// New creates a file-only logger at logFilePath. An empty path discards
// everything. debug lowers the level from info to debug.
func New(logFilePath string, debug bool) (*Logger, error) {
	if logFilePath == "" {
		return &Logger{Logger: zap.NewNop()}, nil
	}
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
		return nil, err
	}

	rotator := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    10, // Megabytes
		MaxBackups: 3,
		MaxAge:     14, // Days
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		level,
	)

	return &Logger{
		Logger:  zap.New(core, zap.AddCaller()),
		rotator: rotator,
	}, nil
}

// Close flushes buffered entries and closes the log file
func (l *Logger) Close() error {
	_ = l.Logger.Sync()
	if l.rotator == nil {
		return nil
	}
	return l.rotator.Close()
}
