package ports

import (
	"context"
	"io"
	"time"

	"senseai/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// Microphone checks that audio capture is permitted at all.
type Microphone interface {
	Probe(ctx context.Context) error
}

// StreamingConfig describes provider-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate      int
	Channels        int
	Encoding        string
	InterimResults  bool
	MaxAlternatives int
	Language        string
	EndpointingMs   int
}

// StreamingSession is an active provider websocket session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.StreamEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming transcription sessions.
type TranscriptionProvider interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}

// RecognitionListener receives the notifications of one recognition run.
// Implementations must not block.
type RecognitionListener interface {
	OnSessionStarted()
	OnResult(event domain.ResultEvent)
	OnError(kind domain.RecognitionErrorKind, err error)
	OnSessionEnded()
}

// RecognitionSession is a started recognition run.
type RecognitionSession interface {
	ID() string
	Stop()
}

// Recognizer starts recognition runs. Start may fail synchronously when the
// engine is unavailable; otherwise failures arrive through the listener.
type Recognizer interface {
	Start(ctx context.Context, cfg domain.RecognitionConfig, listener RecognitionListener) (RecognitionSession, error)
}

// RulesEngine transforms transcripts using deterministic rules.
type RulesEngine interface {
	Apply(text string) (string, error)
}

// SpeechOutput produces spoken feedback. Speak cancels any utterance in
// flight and always eventually calls onComplete, on natural end or error.
type SpeechOutput interface {
	Speak(text string, onComplete func())
	Stop()
}

// StatusReporter displays the assistant status.
type StatusReporter interface {
	Report(label string, icon string)
}

// Lifecycle receives page and manual trigger signals.
type Lifecycle interface {
	PageLoaded()
	PageHidden()
	PageVisible()
	Toggle()
}

// Page exposes the page-manipulation capabilities used by the dispatcher.
// Collections are re-enumerated by the page on every call.
type Page interface {
	Scroll(ctx context.Context, target domain.ScrollTarget) error
	History(ctx context.Context, delta int) error
	Reload(ctx context.Context) error
	Navigate(ctx context.Context, url string) error

	Info(ctx context.Context) (domain.PageInfo, error)
	MainText(ctx context.Context, limit int) (string, error)
	Selection(ctx context.Context) (string, error)
	Headings(ctx context.Context) ([]domain.Heading, error)
	Elements(ctx context.Context, collection domain.Collection) ([]domain.Element, error)
	LinkCount(ctx context.Context) (int, error)
	Focus(ctx context.Context, collection domain.Collection, index int) error
	Click(ctx context.Context, collection domain.Collection, index int) error

	SearchInPage(ctx context.Context, query string) (bool, error)
	FirstVideo(ctx context.Context) (domain.VideoCard, bool, error)
	OpenFirstVideo(ctx context.Context) (bool, error)
	VideoTitles(ctx context.Context, limit int) ([]string, int, error)
	WatchInfo(ctx context.Context) (domain.WatchInfo, error)
	Media(ctx context.Context, cmd domain.MediaCommand) (domain.MediaState, error)
	Zoom(ctx context.Context, delta float64, reset bool) (float64, error)
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// Clock abstracts time for the state machine.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}
