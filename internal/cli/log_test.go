package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, log.InfoLevel)

	l.Debug("hidden")
	l.Info("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message leaked at info level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("info message missing")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"bogus", log.InfoLevel}, // unknown falls back to info
		{"", log.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.name); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLoggerContext(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, log.DebugLevel)

	ctx := withLogger(context.Background(), l)
	if got := loggerFromContext(ctx); got != l {
		t.Error("logger not round-tripped through context")
	}
	if got := loggerFromContext(context.Background()); got == nil {
		t.Error("missing logger must fall back to the default, not nil")
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, log.DebugLevel)

	p := newProgress(l)
	p.done("Scanned 42 packages")

	if !strings.Contains(buf.String(), "Scanned 42 packages") {
		t.Errorf("progress output = %q, missing message", buf.String())
	}
}
