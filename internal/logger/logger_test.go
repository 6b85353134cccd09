package logger

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
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestInit_JSONWithComponent(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	cfg, err := FromStrings("debug", "json")
	if err != nil {
		t.Fatalf("FromStrings: %v", err)
	}
	cfg.Output = &buf
	Init(cfg)

	ForComponent("api").Debug("hello", "kind", "text")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	if entry["component"] != "api" || entry["kind"] != "text" || entry["msg"] != "hello" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestInit_TextFiltersLevel(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	Init(Config{Level: slog.LevelWarn, Format: "text", Output: &buf})
	slog.Info("dropped")
	slog.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestFromStrings_BadFormat(t *testing.T) {
	if _, err := FromStrings("info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
