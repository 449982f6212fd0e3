// ABOUTME: Zap logger construction
// ABOUTME: Maps a log level name to a development or production zap config
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds a logger for level ("debug", "info", "warn", "error"). Unknown
// levels fall back to info. Output goes to stderr unless paths are given,
// which keeps stdout free for PCM written by the writer backend.
func New(level string, paths ...string) (*zap.Logger, error) {
	var zapConfig zap.Config
	switch level {
	case "debug":
		zapConfig = zap.NewDevelopmentConfig()
	case "warn":
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	if len(paths) > 0 {
		zapConfig.OutputPaths = paths
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create zap logger: %w", err)
	}
	return logger, nil
}
