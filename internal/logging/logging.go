// Package logging builds the zap logger used by the engine and CLI.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log levels accepted by New. Any other zap level name (warn, error) also works.
const (
	LevelNone  = "none"
	LevelInfo  = "info"
	LevelDebug = "debug"
)

// New returns a logger writing JSON to stderr at the given level.
// LevelNone and the empty string return a no-op logger.
func New(level string) (*zap.Logger, error) {
	if level == "" || level == LevelNone {
		return zap.NewNop(), nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// ValidLevel reports whether New accepts level.
func ValidLevel(level string) bool {
	if level == "" || level == LevelNone {
		return true
	}
	var lvl zapcore.Level
	return lvl.UnmarshalText([]byte(level)) == nil
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
