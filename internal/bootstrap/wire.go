package bootstrap

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"senseai/internal/audio"
	"senseai/internal/browser"
	"senseai/internal/command"
	"senseai/internal/config"
	"senseai/internal/ports"
	"senseai/internal/providers/deepgram"
	"senseai/internal/recognition"
	"senseai/internal/rules"
	"senseai/internal/usecase"
	"senseai/internal/wake"
)

// Services is the assembled runtime graph.
type Services struct {
	Assistant *usecase.Assistant
	Rules     *rules.Engine
	Config    config.Config

	// Browser is nil when no browser could be reached; page commands then
	// fail and speech goes to the log.
	Browser *browser.Session
	speech  *browser.Speech
	overlay *browser.Overlay
	logger  zerolog.Logger

	closeOnce sync.Once
}

type browserOpener func(ctx context.Context, opts browser.Options, logger zerolog.Logger) (*browser.Session, error)

// Build wires all backend dependencies. status receives every assistant
// status change in addition to the page overlay.
func Build(ctx context.Context, cfg config.Config, logger zerolog.Logger, status ports.StatusReporter) (*Services, error) {
	return build(ctx, cfg, logger, status, browser.Open)
}

func build(ctx context.Context, cfg config.Config, logger zerolog.Logger, status ports.StatusReporter, open browserOpener) (*Services, error) {
	rulesEngine, err := rules.NewEngine(cfg.Rules.Path, cfg.Rules.PassLimit, logger)
	if err != nil {
		return nil, err
	}

	wakeMatcher, err := wake.NewMatcher(cfg.Assistant.WakePhrases, cfg.Assistant.WakePatterns)
	if err != nil {
		return nil, err
	}

	audioCfg := ports.AudioConfig{
		SampleRate:  cfg.Audio.SampleRate,
		Channels:    cfg.Audio.Channels,
		InputFormat: cfg.Audio.InputFormat,
		InputDevice: cfg.Audio.InputDevice,
	}
	capture := audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand, audioCfg, logger)
	provider := deepgram.NewProvider(deepgram.Config{
		APIKey:      cfg.Deepgram.APIKey,
		APIBaseURL:  cfg.Deepgram.APIBaseURL,
		Model:       cfg.Deepgram.Model,
		Language:    cfg.Deepgram.Language,
		SmartFormat: cfg.Deepgram.SmartFormat,
	}, logger)
	if !provider.Configured() {
		logger.Warn().Msg("DEEPGRAM_API_KEY is not set; speech recognition is unavailable")
	}
	recognizer := recognition.NewEngine(capture, provider, recognition.Config{
		Audio:         audioCfg,
		ChunkSize:     cfg.Audio.ChunkSize,
		EndpointingMs: cfg.Deepgram.EndpointingMs,
	}, logger)

	s := &Services{Rules: rulesEngine, Config: cfg, logger: logger}

	session, err := open(ctx, browser.Options{
		ControlURL:  cfg.Browser.ControlURL,
		Bin:         cfg.Browser.Bin,
		Headless:    cfg.Browser.Headless,
		UserDataDir: cfg.Browser.UserDataDir,
		StartURL:    cfg.Browser.StartURL,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("browser unavailable; continuing without page control")
		session = nil
	}
	s.Browser = session

	language := assistantLanguage(cfg)
	var speech ports.SpeechOutput = browser.NewLogSpeech(logger)
	reporters := StatusFanout{newLogStatus(logger)}
	if status != nil {
		reporters = append(reporters, status)
	}
	if session != nil {
		s.speech = browser.NewSpeech(session, language, logger)
		if err := s.speech.Attach(); err != nil {
			logger.Warn().Err(err).Msg("speech completion binding failed")
		}
		speech = s.speech
		if cfg.Browser.Overlay {
			s.overlay = browser.NewOverlay(session, logger)
			reporters = append(reporters, s.overlay)
		}
	}

	clock := usecase.SystemClock{}
	s.Assistant = usecase.NewAssistant(usecase.Dependencies{
		Recognizer: recognizer,
		Microphone: capture,
		Wake:       wakeMatcher,
		Resolver:   command.NewResolver(command.DefaultRules()),
		Rules:      rulesEngine,
		Dispatcher: command.NewDispatcher(browser.NewPage(session), clock, cfg.Assistant.Sites, logger),
		Speech:     speech,
		Status:     reporters,
		Clock:      clock,
		Logger:     logger,
	}, assistantConfig(cfg))

	return s, nil
}

// Run starts the rules watcher and page signal forwarding, then runs the
// assistant until ctx is cancelled.
func (s *Services) Run(ctx context.Context) error {
	go func() {
		if err := s.Rules.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn().Err(err).Msg("rules watcher stopped")
		}
	}()

	if s.Browser != nil {
		var hooks []func()
		if s.overlay != nil {
			hooks = append(hooks, s.overlay.Refresh)
		}
		if s.speech != nil {
			hooks = append(hooks, s.speech.Flush)
		}
		if err := browser.Watch(ctx, s.Browser, s.Assistant, s.logger, hooks...); err != nil {
			s.logger.Warn().Err(err).Msg("page signals unavailable")
			s.Assistant.PageLoaded()
		}
	} else {
		s.Assistant.PageLoaded()
	}

	return s.Assistant.Run(ctx)
}

// Close releases the browser side. The assistant stops with its context.
func (s *Services) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.speech != nil {
			s.speech.Close()
		}
		if s.overlay != nil {
			s.overlay.Close()
		}
		if s.Browser != nil {
			err = s.Browser.Close()
		}
	})
	return err
}

func assistantConfig(cfg config.Config) usecase.Config {
	out := usecase.DefaultConfig()
	a := cfg.Assistant
	out.AwakeTimeout = a.AwakeTimeout()
	out.WatchdogInterval = a.WatchdogInterval()
	out.ProbeTimeout = a.ProbeTimeout()
	out.ActionTimeout = a.ActionTimeout()
	if a.FailureCeiling > 0 {
		out.WakeBackoff.Ceiling = a.FailureCeiling
		out.CommandBackoff.Ceiling = a.FailureCeiling
	}
	language := assistantLanguage(cfg)
	out.Wake.Language = language
	out.Command.Language = language
	out.Command.NoSpeechTimeout = a.NoSpeechTimeout()
	return out
}

func assistantLanguage(cfg config.Config) string {
	for _, value := range []string{cfg.Assistant.Language, cfg.Deepgram.Language} {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return "en-US"
}
