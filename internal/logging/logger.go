// Package logging provides zap logger helpers.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity names a logging preset persisted in configuration.
type Verbosity string

// Supported verbosity presets, from least to most chatty.
const (
	VerbosityRegular     Verbosity = "regular"
	VerbosityMaintenance Verbosity = "maintenance"
	VerbosityDebug       Verbosity = "debug"
)

// ParseVerbosity normalizes and validates a preset name.
func ParseVerbosity(name string) (Verbosity, error) {
	switch Verbosity(strings.ToLower(strings.TrimSpace(name))) {
	case VerbosityRegular:
		return VerbosityRegular, nil
	case VerbosityMaintenance:
		return VerbosityMaintenance, nil
	case VerbosityDebug:
		return VerbosityDebug, nil
	}
	return "", fmt.Errorf("unknown verbosity %q (want regular, maintenance, or debug)", name)
}

func (v Verbosity) level() zapcore.Level {
	switch v {
	case VerbosityMaintenance, VerbosityDebug:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a zap.Logger for the given verbosity preset. The debug preset
// uses the development encoder with caller annotations; the others use the
// production encoder.
func New(v Verbosity) (*zap.Logger, error) {
	if v == VerbosityDebug {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build dev logger: %w", err)
		}
		return logger, nil
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(v.level())
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build prod logger: %w", err)
	}
	return logger, nil
}
