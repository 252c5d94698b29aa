package browser

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/ysmood/gson"
)

const speechBinding = "__senseaiSpeechDone"

const (
	speechRate     = 0.95
	speechBaseWait = 3 * time.Second
	speechPerWord  = 600 * time.Millisecond
	speechMaxWait  = 3 * time.Minute
)

// Speech speaks through the tab's speechSynthesis. Completion is reported by
// the page through an exposed binding, with a timer per utterance in case
// the page never answers (navigation, tab closed).
type Speech struct {
	source   pageSource
	logger   zerolog.Logger
	language string
	queue    *serialQueue
	pending  *pendingSpeech
}

// NewSpeech creates speech output for the session's tab.
func NewSpeech(source pageSource, language string, logger zerolog.Logger) *Speech {
	if language == "" {
		language = "en-US"
	}
	return &Speech{
		source:   source,
		logger:   logger.With().Str("component", "speech").Logger(),
		language: language,
		queue:    newSerialQueue(32),
		pending:  newPendingSpeech(afterFunc),
	}
}

// Attach exposes the completion binding on the tab.
func (s *Speech) Attach() error {
	page, err := s.source.Page()
	if err != nil {
		return err
	}
	_, err = page.Expose(speechBinding, func(id gson.JSON) (interface{}, error) {
		s.pending.complete(uint64(id.Int()))
		return nil, nil
	})
	return err
}

// Speak cancels any current utterance and speaks text.
func (s *Speech) Speak(text string, onComplete func()) {
	id := s.pending.register(onComplete, speechTimeout(text))
	ok := s.queue.submit(func() {
		page, err := s.source.Page()
		if err == nil {
			_, err = page.Context(context.Background()).Timeout(5*time.Second).
				Eval(speakJS, text, id, speechBinding, speechRate, s.language)
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("speech failed")
			s.pending.complete(id)
		}
	})
	if !ok {
		s.logger.Warn().Msg("speech queue full")
		s.pending.complete(id)
	}
}

// Stop cancels speech in progress.
func (s *Speech) Stop() {
	s.queue.submit(func() {
		page, err := s.source.Page()
		if err != nil {
			return
		}
		if _, err := page.Context(context.Background()).Timeout(5*time.Second).Eval(cancelSpeechJS); err != nil {
			s.logger.Debug().Err(err).Msg("speech cancel failed")
		}
	})
}

// Flush completes every outstanding utterance. Called when the document is
// replaced and its callbacks can no longer fire.
func (s *Speech) Flush() {
	s.pending.flush()
}

// Close stops the worker and completes outstanding utterances.
func (s *Speech) Close() {
	s.queue.close()
	s.pending.flush()
}

// speechTimeout estimates how long text may take to speak.
func speechTimeout(text string) time.Duration {
	wait := speechBaseWait + time.Duration(len(strings.Fields(text)))*speechPerWord
	if wait > speechMaxWait {
		return speechMaxWait
	}
	return wait
}

type stopper interface {
	Stop() bool
}

func afterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

type pendingSpeech struct {
	afterFunc func(time.Duration, func()) stopper

	mu      sync.Mutex
	seq     uint64
	waiting map[uint64]pendingUtterance
}

type pendingUtterance struct {
	done  func()
	timer stopper
}

func newPendingSpeech(schedule func(time.Duration, func()) stopper) *pendingSpeech {
	return &pendingSpeech{afterFunc: schedule, waiting: make(map[uint64]pendingUtterance)}
}

func (p *pendingSpeech) register(done func(), timeout time.Duration) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	id := p.seq
	u := pendingUtterance{done: done}
	if timeout > 0 && p.afterFunc != nil {
		u.timer = p.afterFunc(timeout, func() { p.complete(id) })
	}
	p.waiting[id] = u
	return id
}

// complete runs the callback for id at most once.
func (p *pendingSpeech) complete(id uint64) {
	p.mu.Lock()
	u, ok := p.waiting[id]
	delete(p.waiting, id)
	p.mu.Unlock()
	if !ok {
		return
	}
	if u.timer != nil {
		u.timer.Stop()
	}
	if u.done != nil {
		u.done()
	}
}

func (p *pendingSpeech) flush() {
	p.mu.Lock()
	ids := make([]uint64, 0, len(p.waiting))
	for id := range p.waiting {
		ids = append(ids, id)
	}
	p.mu.Unlock()
	for _, id := range ids {
		p.complete(id)
	}
}

func (p *pendingSpeech) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiting)
}

// LogSpeech stands in for speech when no browser is attached; it logs the
// text and completes at once.
type LogSpeech struct {
	logger zerolog.Logger
}

func NewLogSpeech(logger zerolog.Logger) *LogSpeech {
	return &LogSpeech{logger: logger.With().Str("component", "speech").Logger()}
}

func (s *LogSpeech) Speak(text string, onComplete func()) {
	s.logger.Info().Str("text", text).Msg("speak")
	if onComplete != nil {
		onComplete()
	}
}

func (s *LogSpeech) Stop() {}
