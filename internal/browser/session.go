// Package browser drives the assisted Chrome tab over the DevTools protocol
// with go-rod: page actions, speech synthesis, the on-page status overlay and
// page lifecycle signals.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

var (
	// ErrNoBrowser is returned when no page is attached.
	ErrNoBrowser = errors.New("browser session not connected")
	// ErrElementGone is returned when an indexed element disappeared from the page.
	ErrElementGone = errors.New("element no longer on the page")
)

// Options selects how the browser is reached.
type Options struct {
	// ControlURL attaches to a running Chrome. Empty launches a new one.
	ControlURL  string
	Bin         string
	Headless    bool
	UserDataDir string
	StartURL    string
}

// Session owns the DevTools connection and the assisted tab.
type Session struct {
	logger   zerolog.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser

	mu   sync.RWMutex
	page *rod.Page
}

// Open connects to (or launches) Chrome and selects the tab to assist.
func Open(ctx context.Context, opts Options, logger zerolog.Logger) (*Session, error) {
	s := &Session{logger: logger.With().Str("component", "browser").Logger()}

	controlURL := strings.TrimSpace(opts.ControlURL)
	launched := false
	if controlURL == "" {
		l := launcher.New().
			Headless(opts.Headless).
			Set(flags.Flag("autoplay-policy"), "no-user-gesture-required")
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		}
		if opts.UserDataDir != "" {
			l = l.UserDataDir(opts.UserDataDir)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		s.launcher = l
		controlURL = u
		launched = true
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	s.browser = browser

	page, err := s.selectPage(opts.StartURL, launched)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.page = page

	s.logger.Info().
		Bool("launched", launched).
		Str("control_url", controlURL).
		Msg("browser session ready")
	return s, nil
}

func (s *Session) selectPage(startURL string, launched bool) (*rod.Page, error) {
	pages, err := s.browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	if len(pages) > 0 {
		page := pages.First()
		if launched && startURL != "" {
			if err := page.Navigate(startURL); err != nil {
				return nil, fmt.Errorf("failed to open %s: %w", startURL, err)
			}
		}
		return page, nil
	}
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: startURL})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return page, nil
}

// Page returns the assisted tab.
func (s *Session) Page() (*rod.Page, error) {
	if s == nil {
		return nil, ErrNoBrowser
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.page == nil {
		return nil, ErrNoBrowser
	}
	return s.page, nil
}

// Close detaches from the tab and shuts down a launched browser. An attached
// browser is left running.
func (s *Session) Close() error {
	s.mu.Lock()
	s.page = nil
	s.mu.Unlock()

	var err error
	if s.launcher != nil && s.browser != nil {
		err = s.browser.Close()
	}
	s.cleanup()
	return err
}

func (s *Session) cleanup() {
	if s.launcher == nil {
		return
	}
	s.launcher.Kill()
	s.launcher.Cleanup()
	s.launcher = nil
}
