package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/eilgug/profile-api/internal/platform/config"
)

func TestNew_JSONByDefault(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter(config.LogConfig{Level: "info"}, &buf)
	log.Info("hello", "k", "v")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "hello" || rec["k"] != "v" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestNew_TextAndLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	log.Info("dropped")
	log.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "msg=kept") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", in, got, want)
		}
	}
}
