package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"senseai/internal/bootstrap"
	"senseai/internal/config"
	"senseai/internal/domain"
)

const eventStatus = "senseai:status"

// Status is the assistant view returned to the window.
type Status struct {
	Label     string `json:"label"`
	Icon      string `json:"icon"`
	State     string `json:"state"`
	Speaking  bool   `json:"speaking"`
	Suspended bool   `json:"suspended"`
	Fatal     bool   `json:"fatal"`
	Message   string `json:"message,omitempty"`
}

// App is the Wails application root. Without a window it runs the same
// services under a signal context.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    config.Config
	base   zerolog.Logger
	logger zerolog.Logger
	emit   func(ctx context.Context, name string, data ...interface{})

	services *bootstrap.Services
	done     chan struct{}
	bootErr  error

	mu    sync.RWMutex
	label string
	icon  string
}

func NewApp(cfg config.Config, logger zerolog.Logger, window bool) *App {
	a := &App{
		cfg:    cfg,
		base:   logger,
		logger: logger.With().Str("component", "app").Logger(),
	}
	if window {
		a.emit = runtime.EventsEmit
	}
	return a
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(ctx, a.cfg, a.base, a)
	if err != nil {
		a.bootErr = err
		a.logger.Error().Err(err).Msg("startup failed")
		a.Report("Startup failed: "+err.Error(), domain.IconWarning)
		return
	}
	a.services = services

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	go func() {
		defer close(a.done)
		if err := services.Run(runCtx); err != nil {
			a.logger.Error().Err(err).Msg("assistant stopped with error")
		}
	}()
}

func (a *App) shutdown(_ context.Context) {
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}
	if a.services != nil {
		if err := a.services.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("browser close failed")
		}
	}
}

// Report implements ports.StatusReporter for the window.
func (a *App) Report(label string, icon string) {
	a.mu.Lock()
	a.label = label
	a.icon = icon
	a.mu.Unlock()

	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, eventStatus, map[string]string{"label": label, "icon": icon})
}

// Toggle wakes or sleeps the assistant, like Ctrl+Shift+S on the page.
func (a *App) Toggle() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.services.Assistant.Toggle()
	return nil
}

// GetStatus returns the last reported status and the machine flags.
func (a *App) GetStatus() Status {
	a.mu.RLock()
	status := Status{Label: a.label, Icon: a.icon}
	a.mu.RUnlock()

	if a.services == nil {
		status.State = string(domain.StateAsleep)
		if a.bootErr != nil {
			status.Message = a.bootErr.Error()
		}
		return status
	}
	snap := a.services.Assistant.Snapshot()
	status.State = string(snap.Display())
	status.Speaking = snap.Speaking
	status.Suspended = snap.Suspended
	status.Fatal = snap.Fatal
	return status
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	browser := "launched"
	if a.cfg.Browser.ControlURL != "" {
		browser = "attached"
	}
	if a.services != nil && a.services.Browser == nil {
		browser = "unavailable"
	}
	return map[string]string{
		"provider":   "Deepgram",
		"model":      a.cfg.Deepgram.Model,
		"language":   a.cfg.Assistant.Language,
		"rulesFile":  a.cfg.Rules.Path,
		"audioInput": a.cfg.Audio.InputDevice,
		"browser":    browser,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}
