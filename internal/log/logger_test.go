package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestDefaultConfigComponent(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Component != ComponentApp {
		t.Errorf("Component = %q, want %q", cfg.Component, ComponentApp)
	}
	if cfg.Handler != nil {
		t.Error("DefaultConfig should leave the handler to New")
	}
}

func TestNewFallsBackToAppComponent(t *testing.T) {
	logger := New(Config{})
	if logger.Component() != ComponentApp {
		t.Errorf("Component() = %q, want %q", logger.Component(), ComponentApp)
	}
}

func TestLoggerEmitsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: ComponentWorker,
		Handler:   slog.NewTextHandler(&buf, nil),
	})

	logger.Info("started")

	out := buf.String()
	if !strings.Contains(out, "component="+ComponentWorker) {
		t.Errorf("log line missing component field: %q", out)
	}
	if !strings.Contains(out, "started") {
		t.Errorf("log line missing message: %q", out)
	}
}

func TestWithComponent(t *testing.T) {
	logger := New(Config{Component: ComponentApp})
	scoped := logger.WithComponent(ComponentAMQP)

	if scoped.Component() != ComponentAMQP {
		t.Errorf("Component() = %q, want %q", scoped.Component(), ComponentAMQP)
	}
	if logger.Component() != ComponentApp {
		t.Error("WithComponent must not mutate the parent logger")
	}
}
