// Package logging builds the application logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parkinsons-variant-viewer/internal/domain"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Output targets
const (
	OutputStdout = "stdout"
	OutputStderr = "stderr"
	OutputFile   = "file"
	OutputBoth   = "both"
)

// New creates a logrus logger for cfg. The returned closer releases the log
// file, if one was opened, and is always non-nil.
func New(cfg domain.LoggingConfig) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	output := strings.ToLower(cfg.Output)
	switch output {
	case "", OutputStdout:
		logger.SetOutput(os.Stdout)
		return logger, nopCloser{}, nil
	case OutputStderr:
		logger.SetOutput(os.Stderr)
		return logger, nopCloser{}, nil
	case OutputFile, OutputBoth:
	default:
		return nil, nil, fmt.Errorf("unsupported log output %q", cfg.Output)
	}

	if cfg.Filename == "" {
		return nil, nil, fmt.Errorf("log output %q requires a filename", cfg.Output)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Filename), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	if output == OutputBoth {
		logger.SetOutput(io.MultiWriter(os.Stdout, rotator))
	} else {
		logger.SetOutput(rotator)
	}

	return logger, rotator, nil
}

// Discard returns a logger that drops everything; handy for tests and quiet commands
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
