package common

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/lugondev/go-anvil/internal/config"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(&buf, config.LogConfig{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info to be disabled at warn level")
	}

	logger.Warn("heap exhausted", "size", 64)
	if !strings.Contains(buf.String(), `"msg":"heap exhausted"`) {
		t.Errorf("expected json output, got %q", buf.String())
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger(&bytes.Buffer{}, config.LogConfig{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLoggerMixin(t *testing.T) {
	var m LoggerMixin
	if m.GetLogger() != slog.Default() {
		t.Error("expected default logger")
	}

	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	m.SetLogger(custom)
	m.SetLogger(nil)
	if m.GetLogger() != custom {
		t.Error("expected nil logger to be ignored")
	}
}
