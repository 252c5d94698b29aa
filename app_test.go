package main

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"senseai/internal/config"
	"senseai/internal/domain"
)

func TestRequireReady(t *testing.T) {
	t.Parallel()

	app := NewApp(config.DefaultConfig("/home/test"), zerolog.Nop(), false)
	if err := app.requireReady(); err == nil {
		t.Fatalf("expected uninitialized error")
	}
	if err := app.Toggle(); err == nil {
		t.Fatalf("expected toggle to fail before startup")
	}

	bootErr := errors.New("boot")
	app.bootErr = bootErr
	if err := app.requireReady(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error, got %v", err)
	}
}

func TestGetStatusWhenNotInitialized(t *testing.T) {
	t.Parallel()

	app := NewApp(config.DefaultConfig("/home/test"), zerolog.Nop(), false)
	status := app.GetStatus()
	if status.State != string(domain.StateAsleep) || status.Message != "" {
		t.Fatalf("unexpected status: %+v", status)
	}

	app.bootErr = errors.New("boot")
	status = app.GetStatus()
	if status.Message != "boot" {
		t.Fatalf("unexpected boot status: %+v", status)
	}
	if info := app.GetRuntimeInfo(); info["error"] != "boot" {
		t.Fatalf("unexpected runtime info: %v", info)
	}
}

func TestReportStoresAndEmits(t *testing.T) {
	t.Parallel()

	app := NewApp(config.DefaultConfig("/home/test"), zerolog.Nop(), false)
	var emitted []string
	app.emit = func(_ context.Context, name string, data ...interface{}) {
		payload := data[0].(map[string]string)
		emitted = append(emitted, name+":"+payload["label"])
	}

	app.Report("before startup", "🔄")
	if len(emitted) != 0 {
		t.Fatalf("expected no emit without a context")
	}

	app.ctx = context.Background()
	app.Report("Awake", domain.StateAwake.Icon())

	status := app.GetStatus()
	if status.Label != "Awake" || status.Icon != "🧠" {
		t.Fatalf("unexpected status: %+v", status)
	}
	if len(emitted) != 1 || emitted[0] != eventStatus+":Awake" {
		t.Fatalf("unexpected emits: %v", emitted)
	}
}

func TestGetRuntimeInfoDescribesBrowser(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig("/home/test")
	cfg.Browser.ControlURL = "ws://127.0.0.1:9222/devtools/browser/x"
	app := NewApp(cfg, zerolog.Nop(), false)

	info := app.GetRuntimeInfo()
	if info["browser"] != "attached" || info["model"] != "nova-2" || info["provider"] != "Deepgram" {
		t.Fatalf("unexpected runtime info: %v", info)
	}
}
