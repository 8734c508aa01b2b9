// Package logger holds the process-wide structured logger.
package logger

import (
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the global logger. It discards everything until Initialize is
// called, so packages may log unconditionally.
var Logger = zap.NewNop().Sugar()

// Initialize replaces the global logger. With json set, output is
// zap's production JSON encoding; otherwise it is a console encoding without
// timestamps, written to stderr so generated output on stdout stays clean.
func Initialize(json bool, level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}

	if json {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(lvl)
		config.OutputPaths = []string{"stderr"}
		zapLogger, err := config.Build()
		if err != nil {
			return err
		}
		Logger = zapLogger.Sugar()
		return nil
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = ""
	zapLogger := zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		lvl,
	))
	Logger = zapLogger.Sugar()
	return nil
}

// Sync flushes the global logger. Errors from syncing a terminal are
// ignored.
func Sync() {
	_ = Logger.Sync()
}
