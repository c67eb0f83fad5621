// Package log provides the logging setup shared by confload's packages.
// It wraps go.uber.org/zap with the same production encoder everywhere and
// a few helpers for the CLI.
package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the global logger instance.
// Its level comes from LOG_LEVEL (debug, info, warn, error); info by default.
var Logger = newLogger(levelFromEnv())

func levelFromEnv() zapcore.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

func newLogger(level zapcore.Level) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableCaller = true

	l, err := cfg.Build()
	if err != nil {
		// Building from the production defaults does not fail in practice.
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// Named returns a child of the global logger. With debug set, the child is
// rebuilt at debug level so diagnostics show regardless of LOG_LEVEL.
func Named(name string, debug bool) *zap.SugaredLogger {
	if debug && !Logger.Desugar().Core().Enabled(zap.DebugLevel) {
		return newLogger(zap.DebugLevel).Named(name)
	}
	return Logger.Named(name)
}

// Debugf logs a formatted message at debug level.
func Debugf(format string, a ...any) { Logger.Debugf(format, a...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, a ...any) { Logger.Warnf(format, a...) }

// Fatalf logs a formatted message at fatal level, then calls os.Exit(1).
func Fatalf(format string, a ...any) { Logger.Fatalf(format, a...) }
