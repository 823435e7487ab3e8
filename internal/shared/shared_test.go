package shared

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tc := []struct {
		name  string
		level string
		want  log.Level
	}{
		{name: "debug", level: "debug", want: log.DebugLevel},
		{name: "mixed case warn", level: " Warn ", want: log.WarnLevel},
		{name: "warning alias", level: "warning", want: log.WarnLevel},
		{name: "error", level: "error", want: log.ErrorLevel},
		{name: "empty defaults to info", level: "", want: log.InfoLevel},
		{name: "unknown defaults to info", level: "chatty", want: log.InfoLevel},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.level); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := WithLogger(NewLogger(&buf), "component", "test")
	logger.Info("hello")

	if !strings.Contains(buf.String(), "hello") || !strings.Contains(buf.String(), "component=test") {
		t.Errorf("unexpected log output %q", buf.String())
	}
}

func TestGenerateToken(t *testing.T) {
	a, b := GenerateToken(), GenerateToken()
	if a == b {
		t.Error("tokens should be unique")
	}
	if len(a) != 64 || strings.Contains(a, "-") {
		t.Errorf("unexpected token format %q", a)
	}
	if GenerateID() == GenerateID() {
		t.Error("IDs should be unique")
	}
}
