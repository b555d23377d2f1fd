// Package logger wraps zap with the handful of constructors tadash needs.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls where and how verbosely logs are written.
type Config struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Logger is a thin wrapper around *zap.Logger.
type Logger struct {
	*zap.Logger
}

// New builds a logger from cfg. Logs never go to stdout: the REPL and the
// MCP stdio transport own it.
func New(cfg Config) (*Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var sink zapcore.WriteSyncer
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		sink = zapcore.AddSync(f)
	} else {
		sink = zapcore.Lock(os.Stderr)
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, level)
	return &Logger{Logger: zap.New(core)}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// WithFields returns a child logger carrying the given fields.
func (l *Logger) WithFields(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Component is shorthand for WithFields(zap.String("component", name)).
func (l *Logger) Component(name string) *Logger {
	return l.WithFields(zap.String("component", name))
}

func parseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.WarnLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
