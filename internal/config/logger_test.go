package config

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"DEBUG":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"WaRn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"ERROR":   zapcore.ErrorLevel,
		"trace":   zapcore.InfoLevel, // неизвестный уровень падает в info
		"":        zapcore.InfoLevel,
	}

	for level, want := range cases {
		if got := parseLogLevel(level); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", level, got, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", ""} {
		logger, err := NewLogger(LogConfig{Level: level})
		if err != nil {
			t.Errorf("NewLogger(%q) error = %v", level, err)
			continue
		}
		if logger == nil {
			t.Errorf("NewLogger(%q) returned nil logger", level)
			continue
		}
		logger.Sync()
	}
}

func TestNewLoggerDebugIsVerbose(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "debug"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug logger must accept debug-level entries")
	}

	prod, err := NewLogger(LogConfig{Level: "info"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if prod.Core().Enabled(zapcore.DebugLevel) {
		t.Error("info logger must filter debug-level entries")
	}
}
