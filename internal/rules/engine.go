package rules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultPassLimit = 30

// Engine rewrites command transcripts with user-editable correction rules
// before they are matched. Rules are re-applied until the text is stable or
// the pass limit is reached.
type Engine struct {
	path      string
	passLimit int
	parsers   []RuleParser
	logger    zerolog.Logger

	mu    sync.RWMutex
	rules []Rule
}

// NewEngine loads path. A blank path or a missing file yields an engine with
// no rules; the file is picked up later by Watch once it appears.
func NewEngine(path string, passLimit int, logger zerolog.Logger) (*Engine, error) {
	return NewEngineWithParsers(path, passLimit, DefaultParsers(), logger)
}

func NewEngineWithParsers(path string, passLimit int, parsers []RuleParser, logger zerolog.Logger) (*Engine, error) {
	if passLimit <= 0 {
		passLimit = defaultPassLimit
	}
	if len(parsers) == 0 {
		parsers = DefaultParsers()
	}

	e := &Engine{
		path:      strings.TrimSpace(path),
		passLimit: passLimit,
		parsers:   parsers,
		logger:    logger.With().Str("component", "rules").Logger(),
	}
	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// Apply rewrites text.
func (e *Engine) Apply(text string) (string, error) {
	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	if len(rules) == 0 {
		return text, nil
	}

	result := text
	for pass := 0; pass < e.passLimit; pass++ {
		changed := false
		for _, rule := range rules {
			if next, ok := rule.Apply(result); ok {
				result = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return result, nil
}

// Len returns the number of loaded rules.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// Reload re-reads the rules file. On a parse error the previous rules stay
// active.
func (e *Engine) Reload() error {
	if e.path == "" {
		return nil
	}

	contents, err := os.ReadFile(e.path)
	if errors.Is(err, os.ErrNotExist) {
		e.swap(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read rules file %q: %w", e.path, err)
	}

	parsed, err := Parse(string(contents), e.parsers)
	if err != nil {
		return fmt.Errorf("failed to parse rules file %q: %w", e.path, err)
	}
	e.swap(parsed)
	return nil
}

func (e *Engine) swap(rules []Rule) {
	e.mu.Lock()
	e.rules = rules
	e.mu.Unlock()
}

// Watch reloads the rules whenever the file changes, until ctx is done.
// The parent directory is watched so editors that replace the file on save
// are handled.
func (e *Engine) Watch(ctx context.Context) error {
	if e.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create rules watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(e.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	name := filepath.Clean(e.path)
	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				debounce = time.After(100 * time.Millisecond)
			}
		case <-debounce:
			debounce = nil
			if err := e.Reload(); err != nil {
				e.logger.Warn().Err(err).Msg("rules reload failed; keeping previous rules")
				continue
			}
			e.logger.Info().Int("rules", e.Len()).Msg("rules reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn().Err(err).Msg("rules watcher error")
		}
	}
}
