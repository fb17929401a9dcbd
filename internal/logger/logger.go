package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger on stderr. Runs log JSON at the level
// named by LOG_LEVEL; debug switches to the console encoder at debug level.
// Sampling is off so every failed dispatch is logged.
func NewLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	level := levelFromEnv()
	if debug {
		config = zap.NewDevelopmentConfig()
		level = zapcore.DebugLevel
	}

	config.Level = zap.NewAtomicLevelAt(level)
	config.Sampling = nil
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config.Build()
}

// levelFromEnv maps LOG_LEVEL to a level; unknown or empty means info.
func levelFromEnv() zapcore.Level {
	name := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if name == "warning" {
		name = "warn"
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil || name == "" {
		return zapcore.InfoLevel
	}
	return level
}
