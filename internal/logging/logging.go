// Package logging builds the process logger.
//
// Stdout belongs to command output and the TUI, so logs go to a JSON file
// under the config dir.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const FileName = "tasksync.log"

type Options struct {
	// Path is the log file. Empty means no file logging (Nop).
	Path string
	// Level is debug|info|warn|error. Defaults to info.
	Level string
}

func ParseLevel(s string) (zapcore.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

func New(opts Options) (*zap.Logger, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return Nop(), nil
	}
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{opts.Path}
	cfg.ErrorOutputPaths = []string{opts.Path}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Sampling = nil

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.With(zap.Int("pid", os.Getpid())), nil
}

func Nop() *zap.Logger { return zap.NewNop() }
