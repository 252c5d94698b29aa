package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesConsoleAndFile(t *testing.T) {
	t.Parallel()

	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "senseai.log")

	logger, err := New(Options{Level: "debug", File: path, Console: true, Out: &console})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	component := logger.Component("assistant")
	component.Info().Str("state", "awake").Msg("activated")
	if err := logger.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if !strings.Contains(console.String(), "activated") {
		t.Fatalf("expected console output, got %q", console.String())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(raw)
	for _, want := range []string{`"component":"assistant"`, `"app":"senseai"`, `"message":"activated"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %q", want, line)
		}
	}
}

func TestNewFiltersBelowLevel(t *testing.T) {
	t.Parallel()

	var console bytes.Buffer
	logger, err := New(Options{Level: "WARN", Console: true, Out: &console})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	if strings.Contains(console.String(), "hidden") || !strings.Contains(console.String(), "shown") {
		t.Fatalf("unexpected filtering: %q", console.String())
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("close without file failed: %v", err)
	}
}

func TestNewDefaultsEmptyLevelToInfo(t *testing.T) {
	t.Parallel()

	var console bytes.Buffer
	logger, err := New(Options{Console: true, Out: &console})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	logger.Debug().Msg("debug line")
	logger.Info().Msg("info line")

	if strings.Contains(console.String(), "debug line") || !strings.Contains(console.String(), "info line") {
		t.Fatalf("unexpected output: %q", console.String())
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{Level: "chatty"}); err == nil {
		t.Fatalf("expected level error")
	}
}
