package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestSetLevelAdjustsDefaultLogger(t *testing.T) {
	SetLevel("debug")
	if !Get().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug to be enabled after SetLevel(debug)")
	}

	SetLevel("error")
	if Get().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug to be disabled after SetLevel(error)")
	}
	if !Get().Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected error to remain enabled")
	}

	SetLevel("info")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
