package axlelog_test

import (
	"log/slog"
	"testing"

	"github.com/axle-run/axle/axlelog"
)

func TestParseLevel_KnownLevels(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"DEBUG":   slog.LevelDebug,
	}
	for in, want := range cases {
		got, err := axlelog.ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q): unexpected error %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseLevel_UnknownFallsBackToWarn(t *testing.T) {
	got, err := axlelog.ParseLevel("not-a-level")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != slog.LevelWarn {
		t.Errorf("expected fallback to warn, got %v", got)
	}
}

func TestGetLogger_ReturnsNonNilWithoutInit(t *testing.T) {
	if axlelog.GetLogger() == nil {
		t.Fatal("expected a default logger even without explicit Init")
	}
}
