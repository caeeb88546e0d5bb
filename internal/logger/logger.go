// Package logger builds the zap logger shared by the CLI, the MCP server
// and the reconciliation engine.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"marginalia/internal/config"
)

// ParseLevel maps DEBUG, INFO, WARN and ERROR to zap levels
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zapcore.DebugLevel, nil
	case "INFO", "":
		return zapcore.InfoLevel, nil
	case "WARN":
		return zapcore.WarnLevel, nil
	case "ERROR":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// New builds a logger from cfg. The returned cleanup syncs the logger and
// closes the output file when one was opened.
func New(cfg config.LoggingConfig) (*zap.Logger, func(), error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	sink, closeSink, err := openSink(cfg.Output)
	if err != nil {
		return nil, nil, err
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), sink, level)
	l := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	cleanup := func() {
		_ = l.Sync()
		closeSink()
	}
	return l, cleanup, nil
}

func newEncoder(format string) zapcore.Encoder {
	if strings.EqualFold(format, "json") {
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(ec)
	}
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

func openSink(output string) (zapcore.WriteSyncer, func(), error) {
	switch strings.ToLower(output) {
	case "", "stderr":
		return zapcore.Lock(os.Stderr), func() {}, nil
	case "stdout":
		return zapcore.Lock(os.Stdout), func() {}, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return zapcore.Lock(f), func() { f.Close() }, nil
}
