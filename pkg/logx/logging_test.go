package logx

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" warn ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in, zerolog.InfoLevel); got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatAlertJSON(t *testing.T) {
	t.Parallel()

	got := formatAlertJSON([]byte(`{"level":"warn","time":"x","message":"send failed","to":"62811@c.us"}`))
	if !strings.HasPrefix(got, "[WARN] send failed") {
		t.Fatalf("formatted = %q", got)
	}
	if !strings.Contains(got, "to=62811@c.us") {
		t.Fatalf("missing structured field: %q", got)
	}

	// Non-JSON input passes through trimmed.
	if got := formatAlertJSON([]byte("  plain line \n")); got != "plain line" {
		t.Fatalf("plain passthrough = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	if got := truncate("abcdef", 0); got != "abcdef" {
		t.Fatalf("no-limit = %q", got)
	}
	if got := truncate(strings.Repeat("x", 50), 20); len(got) != 20 || !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated = %q", got)
	}
}

func TestZeroLoggerIsSafe(t *testing.T) {
	t.Parallel()
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero value not reported as zero")
	}
	// Must not panic.
	l.Info("nothing happens", String("k", "v"))
	l.With(Int("n", 1)).Error("still nothing")
}
