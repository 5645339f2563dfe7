// Package logging builds the bridge's structured logger and adapts it to
// the session engine's logging interface.
package logging

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config mirrors the `logging` section of config.yaml, spec.md §6.
type Config struct {
	FilePath       string
	MaxSize        string // e.g. "20m"
	MaxFiles       int
	ConsoleEnabled bool
	LogLevel       string // debug|info|warn|error
}

// New builds a zap.Logger that writes JSON to a rotated file
// (gopkg.in/natefinch/lumberjack.v2) and, when ConsoleEnabled, tees
// human-readable output to stderr. With no FilePath configured it always
// logs to stderr so the bridge never runs silent.
func New(cfg Config) (*zap.Logger, error) {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	var cores []zapcore.Core
	if cfg.FilePath != "" {
		sizeMB, err := parseSizeMB(cfg.MaxSize)
		if err != nil {
			return nil, err
		}
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    sizeMB,
			MaxBackups: cfg.MaxFiles,
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), w, level))
	}
	if cfg.ConsoleEnabled || len(cores) == 0 {
		enc := zap.NewDevelopmentEncoderConfig()
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(os.Stderr), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("logging: unknown log_level %q", s)
}

// parseSizeMB parses a lumberjack-style size string ("20m", "512k", "1g")
// into whole megabytes, lumberjack.Logger.MaxSize's unit.
func parseSizeMB(s string) (int, error) {
	if s == "" {
		return 20, nil
	}
	s = strings.TrimSpace(strings.ToLower(s))
	unit := s[len(s)-1]
	var mult float64
	numPart := s
	switch unit {
	case 'k':
		mult, numPart = 1.0/1024, s[:len(s)-1]
	case 'm':
		mult, numPart = 1, s[:len(s)-1]
	case 'g':
		mult, numPart = 1024, s[:len(s)-1]
	default:
		mult = 1
	}
	n, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("logging: invalid max_size %q: %w", s, err)
	}
	mb := int(n * mult)
	if mb < 1 {
		mb = 1
	}
	return mb, nil
}

// SMPPAdapter implements internal/smpp.Logger (InfoF/ErrorF) over a
// *zap.Logger, satisfied structurally without importing internal/smpp.
type SMPPAdapter struct {
	Logger *zap.Logger
}

// InfoF implements smpp.Logger.
func (a SMPPAdapter) InfoF(msg string, params ...interface{}) {
	a.Logger.Sugar().Infof(msg, params...)
}

// ErrorF implements smpp.Logger.
func (a SMPPAdapter) ErrorF(msg string, params ...interface{}) {
	a.Logger.Sugar().Errorf(msg, params...)
}
