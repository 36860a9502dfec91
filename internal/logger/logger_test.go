package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"  nonsense ", zerolog.InfoLevel},
	}
	for _, c := range cases {
		if got := ParseLevel(c.in); got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "info", Format: "json", Service: "mudra-test", Writer: &buf})

	l.Debug().Msg("hidden")
	l.Info().Str("label", "Thumb_Up").Msg("volume changed")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %s", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("failed to decode log line: %v", err)
	}
	if entry["service"] != "mudra-test" {
		t.Errorf("expected service field, got %v", entry["service"])
	}
	if entry["label"] != "Thumb_Up" {
		t.Errorf("expected label field, got %v", entry["label"])
	}
	if entry["message"] != "volume changed" {
		t.Errorf("expected message, got %v", entry["message"])
	}
}

func TestNamed_AddsComponent(t *testing.T) {
	if Named("") != Get() {
		t.Error("Named(\"\") should return the root logger")
	}
	if Named("dispatcher") == nil {
		t.Fatal("Named returned nil")
	}
}
