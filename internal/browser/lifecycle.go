package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
	"github.com/ysmood/gson"

	"senseai/internal/ports"
)

const signalBinding = "__senseaiSignal"

type signal string

const (
	signalHidden  signal = "hidden"
	signalVisible signal = "visible"
	signalToggle  signal = "toggle"
)

func parseSignal(raw string) (signal, bool) {
	switch s := signal(strings.ToLower(strings.TrimSpace(raw))); s {
	case signalHidden, signalVisible, signalToggle:
		return s, true
	default:
		return "", false
	}
}

func dispatchSignal(s signal, lc ports.Lifecycle) {
	switch s {
	case signalHidden:
		lc.PageHidden()
	case signalVisible:
		lc.PageVisible()
	case signalToggle:
		lc.Toggle()
	}
}

// Watch forwards page signals of the session's tab to lc until ctx ends:
// document loads, visibility changes and the Ctrl+Shift+S shortcut. onLoad
// hooks run before lc.PageLoaded on every load.
func Watch(ctx context.Context, source pageSource, lc ports.Lifecycle, logger zerolog.Logger, onLoad ...func()) error {
	logger = logger.With().Str("component", "lifecycle").Logger()
	page, err := source.Page()
	if err != nil {
		return err
	}

	if _, err := page.Expose(signalBinding, func(payload gson.JSON) (interface{}, error) {
		s, ok := parseSignal(payload.Str())
		if !ok {
			logger.Debug().Str("signal", payload.Str()).Msg("ignoring page signal")
			return nil, nil
		}
		logger.Debug().Str("signal", string(s)).Msg("page signal")
		dispatchSignal(s, lc)
		return nil, nil
	}); err != nil {
		return fmt.Errorf("failed to expose page signals: %w", err)
	}

	install, err := listenerScript()
	if err != nil {
		return err
	}
	if _, err := page.EvalOnNewDocument(install); err != nil {
		return fmt.Errorf("failed to install page listeners: %w", err)
	}
	if _, err := page.Context(ctx).Eval(signalListenersJS, signalBinding); err != nil {
		return fmt.Errorf("failed to install page listeners: %w", err)
	}

	loaded := func() {
		for _, hook := range onLoad {
			hook()
		}
		lc.PageLoaded()
	}

	wait := page.Context(ctx).EachEvent(func(e *proto.PageLoadEventFired) {
		logger.Debug().Msg("page loaded")
		loaded()
	})
	go wait()

	if state, err := page.Context(ctx).Eval(readyStateJS); err == nil && state.Value.Str() == "complete" {
		loaded()
	}
	return nil
}

// listenerScript wraps signalListenersJS for EvalOnNewDocument, which takes
// a plain script instead of a function.
func listenerScript() (string, error) {
	name, err := json.Marshal(signalBinding)
	if err != nil {
		return "", err
	}
	return "(" + signalListenersJS + ")(" + string(name) + ");", nil
}
