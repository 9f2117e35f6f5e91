package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, slog.LevelInfo, "json").Info("payday set", "user_id", 7)

		var line map[string]any
		if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
			t.Fatalf("Expected a JSON line, got %q: %v", buf.String(), err)
		}
		if line["msg"] != "payday set" || line["user_id"] != float64(7) {
			t.Errorf("Unexpected line %v", line)
		}
	})

	t.Run("text drops below level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, slog.LevelWarn, "text")
		logger.Info("hidden")
		logger.Warn("shown")
		if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
			t.Errorf("Unexpected output %q", buf.String())
		}
	})
}
