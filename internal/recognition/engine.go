package recognition

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"senseai/internal/domain"
	"senseai/internal/ports"
)

// Config tunes the engine.
type Config struct {
	Audio          ports.AudioConfig
	ChunkSize      int
	EndpointingMs  int
	AcquireTimeout time.Duration
	StreamTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = 1
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 4096
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = 3 * time.Second
	}
	if c.StreamTimeout <= 0 {
		c.StreamTimeout = 2 * time.Second
	}
	return c
}

// configurable is implemented by providers that can report a missing key up front.
type configurable interface {
	Configured() bool
}

// Engine implements ports.Recognizer on top of microphone capture and a
// streaming transcription provider. Only one engine session holds the
// microphone at a time.
type Engine struct {
	capture  ports.AudioCapture
	provider ports.TranscriptionProvider
	cfg      Config
	logger   zerolog.Logger

	sem chan struct{}
}

func NewEngine(capture ports.AudioCapture, provider ports.TranscriptionProvider, cfg Config, logger zerolog.Logger) *Engine {
	return &Engine{
		capture:  capture,
		provider: provider,
		cfg:      cfg.withDefaults(),
		logger:   logger.With().Str("component", "recognition").Logger(),
		sem:      make(chan struct{}, 1),
	}
}

// Start begins a recognition run in the background. It fails synchronously
// only when the engine cannot run at all.
func (e *Engine) Start(ctx context.Context, cfg domain.RecognitionConfig, listener ports.RecognitionListener) (ports.RecognitionSession, error) {
	if e.capture == nil || e.provider == nil {
		return nil, newError(domain.ErrorKindUnavailable, ErrNotConfigured)
	}
	if c, ok := e.provider.(configurable); ok && !c.Configured() {
		return nil, newError(domain.ErrorKindUnavailable, ErrNotConfigured)
	}

	s := &session{
		id:       uuid.NewString(),
		engine:   e,
		cfg:      cfg,
		listener: listener,
		stopCh:   make(chan struct{}),
	}
	s.logger = e.logger.With().Str("session", s.id).Str("kind", string(cfg.Kind)).Logger()

	go s.run(ctx)
	return s, nil
}

type session struct {
	id       string
	engine   *Engine
	cfg      domain.RecognitionConfig
	listener ports.RecognitionListener
	logger   zerolog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

func (s *session) ID() string { return s.id }

// Stop ends the run; any failure observed afterwards is reported as aborted.
func (s *session) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *session) stopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *session) run(ctx context.Context) {
	defer s.listener.OnSessionEnded()

	if !s.acquire(ctx) {
		return
	}
	defer func() { <-s.engine.sem }()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-runCtx.Done():
		}
	}()

	audioSession, err := s.engine.capture.Start(runCtx, s.engine.cfg.Audio)
	if err != nil {
		s.fail(classifyCaptureError(err), err)
		return
	}
	defer func() { _ = audioSession.Stop() }()

	stream, err := s.engine.provider.StartStreaming(runCtx, ports.StreamingConfig{
		SampleRate:      s.engine.cfg.Audio.SampleRate,
		Channels:        s.engine.cfg.Audio.Channels,
		Encoding:        "linear16",
		InterimResults:  s.cfg.InterimResults,
		MaxAlternatives: s.cfg.MaxAlternatives,
		Language:        s.cfg.Language,
		EndpointingMs:   s.engine.cfg.EndpointingMs,
	})
	if err != nil {
		s.fail(classifyStreamError(err), err)
		return
	}

	s.logger.Debug().Msg("recognition started")
	s.listener.OnSessionStarted()

	failed := make(chan *Error, 1)
	go pumpAudioChunks(audioSession, stream, s.engine.cfg.ChunkSize, failed)

	finished := s.consume(stream, failed)

	if stopErr := audioSession.Stop(); stopErr != nil {
		s.logger.Debug().Err(stopErr).Msg("capture stop")
	}
	_ = stream.CloseSend()
	waitErr := waitForStream(stream, s.engine.cfg.StreamTimeout)
	if waitErr != nil && !finished {
		s.fail(classifyStreamError(waitErr), waitErr)
	}
	s.logger.Debug().Msg("recognition ended")
}

func (s *session) acquire(ctx context.Context) bool {
	timer := time.NewTimer(s.engine.cfg.AcquireTimeout)
	defer timer.Stop()

	select {
	case s.engine.sem <- struct{}{}:
		return true
	case <-s.stopCh:
		return false
	case <-ctx.Done():
		return false
	case <-timer.C:
		s.fail(domain.ErrorKindUnavailable, ErrSessionActive)
		return false
	}
}

// consume forwards results until the stream ends, the run is stopped, or a
// single-shot run receives its final result. It reports whether the run
// finished on its own terms, so late stream errors can be ignored.
func (s *session) consume(stream ports.StreamingSession, failed <-chan *Error) bool {
	agg := newResultAggregator()

	var noSpeech <-chan time.Time
	if !s.cfg.Continuous && s.cfg.NoSpeechTimeout > 0 {
		timer := time.NewTimer(s.cfg.NoSpeechTimeout)
		defer timer.Stop()
		noSpeech = timer.C
	}

	events := stream.Events()
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			result, changed := agg.Add(event)
			if !changed {
				continue
			}
			s.listener.OnResult(result)
			if !s.cfg.Continuous && agg.Finals() > 0 {
				return true
			}
		case err := <-failed:
			s.fail(err.Kind(), err.Unwrap())
			return true
		case <-noSpeech:
			s.listener.OnError(domain.ErrorKindNoSpeech, newError(domain.ErrorKindNoSpeech, nil))
			return true
		case <-s.stopCh:
			return true
		}
	}
}

func (s *session) fail(kind domain.RecognitionErrorKind, err error) {
	if s.stopped() {
		kind = domain.ErrorKindAborted
	}
	s.logger.Debug().Err(err).Str("error", string(kind)).Msg("recognition failed")
	s.listener.OnError(kind, newError(kind, err))
}
