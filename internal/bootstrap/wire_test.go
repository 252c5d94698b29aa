package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"senseai/internal/browser"
	"senseai/internal/config"
)

func noBrowser(context.Context, browser.Options, zerolog.Logger) (*browser.Session, error) {
	return nil, errors.New("no chrome here")
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig(t.TempDir())
	cfg.Deepgram.APIKey = "test-key"
	return cfg
}

type recordedStatus struct {
	mu     sync.Mutex
	labels []string
}

func (r *recordedStatus) Report(label string, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labels = append(r.labels, label)
}

func (r *recordedStatus) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.labels)
}

func TestBuildSuccessWithoutBrowser(t *testing.T) {
	t.Parallel()

	services, err := build(context.Background(), testConfig(t), zerolog.Nop(), nil, noBrowser)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if services.Assistant == nil || services.Rules == nil {
		t.Fatalf("expected assistant and rules")
	}
	if services.Browser != nil {
		t.Fatalf("expected no browser session")
	}
	if err := services.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestBuildFailsOnInvalidRules(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Rules.Path = filepath.Join(t.TempDir(), "bad.rules")
	if err := os.WriteFile(cfg.Rules.Path, []byte("not a valid rule\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := build(context.Background(), cfg, zerolog.Nop(), nil, noBrowser); err == nil {
		t.Fatalf("expected build error due to invalid rules")
	}
}

func TestBuildFailsOnInvalidWakePattern(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Assistant.WakePatterns = []string{"(unclosed"}

	_, err := build(context.Background(), cfg, zerolog.Nop(), nil, noBrowser)
	if err == nil || !strings.Contains(err.Error(), "wake pattern") {
		t.Fatalf("expected wake pattern error, got %v", err)
	}
}

func TestRunWithoutBrowserStartsAssistant(t *testing.T) {
	t.Parallel()

	status := &recordedStatus{}
	cfg := testConfig(t)
	cfg.Audio.RecorderCommand = filepath.Join(t.TempDir(), "missing-ffmpeg")

	services, err := build(context.Background(), cfg, zerolog.Nop(), status, noBrowser)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- services.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for status.count() == 0 {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("expected the assistant to report a status")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop")
	}
}

func TestAssistantConfigMapsSettings(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig("/home/test")
	cfg.Assistant.Awake = "45s"
	cfg.Assistant.NoSpeech = "4s"
	cfg.Assistant.FailureCeiling = 3
	cfg.Assistant.Language = "en-GB"

	got := assistantConfig(cfg)
	if got.AwakeTimeout != 45*time.Second || got.Command.NoSpeechTimeout != 4*time.Second {
		t.Fatalf("unexpected timings: %+v", got)
	}
	if got.WakeBackoff.Ceiling != 3 || got.CommandBackoff.Ceiling != 3 {
		t.Fatalf("unexpected ceilings: %+v %+v", got.WakeBackoff, got.CommandBackoff)
	}
	if got.Wake.Language != "en-GB" || got.Command.Language != "en-GB" {
		t.Fatalf("unexpected language: %q %q", got.Wake.Language, got.Command.Language)
	}
	if !got.Wake.Continuous || got.Command.Continuous {
		t.Fatalf("session shapes should keep their defaults")
	}
}

func TestAssistantLanguageFallsBack(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig("/home/test")
	cfg.Assistant.Language = " "
	cfg.Deepgram.Language = "de"
	if got := assistantLanguage(cfg); got != "de" {
		t.Fatalf("expected deepgram language, got %q", got)
	}
	cfg.Deepgram.Language = ""
	if got := assistantLanguage(cfg); got != "en-US" {
		t.Fatalf("expected en-US fallback, got %q", got)
	}
}

func TestStatusFanout(t *testing.T) {
	t.Parallel()

	a := &recordedStatus{}
	b := &recordedStatus{}
	StatusFanout{a, nil, b}.Report("Awake", "🧠")

	if a.count() != 1 || b.count() != 1 || b.labels[0] != "Awake" {
		t.Fatalf("unexpected fanout: %v %v", a.labels, b.labels)
	}
}
