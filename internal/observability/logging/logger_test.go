package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"  DEBUG ", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.raw); got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestNewJSONLoggerHonorsLevel(t *testing.T) {
	logger := NewJSONLogger("api", "error")
	if logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Fatalf("warn must be suppressed at error level")
	}
	if !logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error level must stay enabled")
	}
}
