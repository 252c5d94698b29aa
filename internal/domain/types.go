package domain

import "time"

// AssistantState models the wake/listen/command/sleep lifecycle.
type AssistantState string

const (
	StateAsleep           AssistantState = "asleep"
	StateWakeListening    AssistantState = "wake_listening"
	StateAwake            AssistantState = "awake"
	StateCommandListening AssistantState = "command_listening"
	// StateSpeaking is only used for display; the machine tracks speech as a flag.
	StateSpeaking AssistantState = "speaking"
)

// Label returns the status text shown for the state.
func (s AssistantState) Label() string {
	switch s {
	case StateAsleep:
		return "Assistant paused"
	case StateWakeListening:
		return "Say 'Hey Sense' to wake me"
	case StateAwake:
		return "Awake"
	case StateCommandListening:
		return "Listening for command..."
	case StateSpeaking:
		return "Speaking..."
	default:
		return ""
	}
}

// Icon returns the status glyph for the state.
func (s AssistantState) Icon() string {
	switch s {
	case StateAsleep:
		return "⏸"
	case StateWakeListening:
		return "😴"
	case StateAwake:
		return "🧠"
	case StateCommandListening:
		return "🎤"
	case StateSpeaking:
		return "🔊"
	default:
		return "🤖"
	}
}

// Status glyphs used outside the plain state mapping.
const (
	IconStarting   = "🔄"
	IconReady      = "✅"
	IconDenied     = "❌"
	IconProcessing = "🧠"
	IconWarning    = "⚠️"
)

// Snapshot is a read-only view of the state machine.
type Snapshot struct {
	State         AssistantState `json:"state"`
	Speaking      bool           `json:"speaking"`
	Suspended     bool           `json:"suspended"`
	Fatal         bool           `json:"fatal"`
	Hidden        bool           `json:"hidden"`
	HeadingCursor int            `json:"headingCursor"`
	LinkCursor    int            `json:"linkCursor"`
}

// Display returns the state to show, preferring Speaking while audio plays.
func (s Snapshot) Display() AssistantState {
	if s.Speaking {
		return StateSpeaking
	}
	return s.State
}

// Awake reports whether commands are currently accepted.
func (s Snapshot) Awake() bool {
	return s.State == StateAwake || s.State == StateCommandListening
}

// SessionKind identifies the recognition session configuration.
type SessionKind string

const (
	SessionKindWake    SessionKind = "wake"
	SessionKindCommand SessionKind = "command"
)

// RecognitionConfig configures a single recognition run.
type RecognitionConfig struct {
	Kind            SessionKind
	Continuous      bool
	InterimResults  bool
	MaxAlternatives int
	Language        string
	// NoSpeechTimeout bounds how long a single-shot session waits for a final result.
	NoSpeechTimeout time.Duration
}

// Alternative is one transcript hypothesis.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// RecognitionResult is one result slot; interim hypotheses are replaced until Final.
type RecognitionResult struct {
	Alternatives []Alternative `json:"alternatives"`
	Final        bool          `json:"final"`
}

// ResultEvent carries the results that became available since the previous event.
// ResultIndex is the index of Results[0] within the session.
type ResultEvent struct {
	ResultIndex int                 `json:"resultIndex"`
	Results     []RecognitionResult `json:"results"`
}

// RecognitionErrorKind classifies recognition failures.
type RecognitionErrorKind string

const (
	ErrorKindAborted      RecognitionErrorKind = "aborted"
	ErrorKindNoSpeech     RecognitionErrorKind = "no-speech"
	ErrorKindNetwork      RecognitionErrorKind = "network"
	ErrorKindAudioCapture RecognitionErrorKind = "audio-capture"
	ErrorKindNotAllowed   RecognitionErrorKind = "not-allowed"
	ErrorKindUnavailable  RecognitionErrorKind = "unavailable"
)

// Counted reports whether the error counts against the failure ceiling.
func (k RecognitionErrorKind) Counted() bool {
	return k != ErrorKindAborted && k != ErrorKindNotAllowed
}

// Fatal reports whether retrying cannot succeed without user action.
func (k RecognitionErrorKind) Fatal() bool {
	return k == ErrorKindNotAllowed
}

// ActionID names one entry of the command catalog.
type ActionID string

const (
	ActionStopSpeech      ActionID = "stop-speech"
	ActionSleep           ActionID = "sleep"
	ActionHelp            ActionID = "help"
	ActionReadPage        ActionID = "read-page"
	ActionReadHeadings    ActionID = "read-headings"
	ActionReadLinks       ActionID = "read-links"
	ActionReadSelection   ActionID = "read-selection"
	ActionNextHeading     ActionID = "next-heading"
	ActionPrevHeading     ActionID = "previous-heading"
	ActionNextLink        ActionID = "next-link"
	ActionPrevLink        ActionID = "previous-link"
	ActionClick           ActionID = "click"
	ActionYouTubeSearch   ActionID = "youtube-search"
	ActionPlayFirstVideo  ActionID = "play-first-video"
	ActionFirstVideoViews ActionID = "first-video-views"
	ActionScrollDown      ActionID = "scroll-down"
	ActionScrollUp        ActionID = "scroll-up"
	ActionScrollTop       ActionID = "go-to-top"
	ActionScrollBottom    ActionID = "go-to-bottom"
	ActionHistoryBack     ActionID = "history-back"
	ActionHistoryForward  ActionID = "history-forward"
	ActionReload          ActionID = "reload"
	ActionPlay            ActionID = "play"
	ActionPause           ActionID = "pause"
	ActionSkipForward     ActionID = "skip-forward"
	ActionSkipBackward    ActionID = "skip-backward"
	ActionVolumeUp        ActionID = "volume-up"
	ActionVolumeDown      ActionID = "volume-down"
	ActionToggleMute      ActionID = "toggle-mute"
	ActionFullscreen      ActionID = "toggle-fullscreen"
	ActionSummarize       ActionID = "summarize-page"
	ActionWhereAmI        ActionID = "where-am-i"
	ActionTime            ActionID = "time"
	ActionDate            ActionID = "date"
	ActionZoomIn          ActionID = "zoom-in"
	ActionZoomOut         ActionID = "zoom-out"
	ActionZoomReset       ActionID = "zoom-reset"
	ActionOpenSite        ActionID = "open-site"
	ActionGreeting        ActionID = "greeting"
	ActionNotUnderstood   ActionID = "not-understood"
)

// Argument is the optional payload extracted from a transcript.
type Argument struct {
	Text   string `json:"text,omitempty"`
	Number int    `json:"number,omitempty"`
}

// Command is a resolved transcript.
type Command struct {
	Action     ActionID `json:"action"`
	Rule       string   `json:"rule"`
	Transcript string   `json:"transcript"`
	Arg        Argument `json:"arg"`
}

// ScrollTarget selects a scroll movement.
type ScrollTarget string

const (
	ScrollDown   ScrollTarget = "down"
	ScrollUp     ScrollTarget = "up"
	ScrollTop    ScrollTarget = "top"
	ScrollBottom ScrollTarget = "bottom"
)

// Collection names an element set that the page re-enumerates on every call.
type Collection string

const (
	CollectionHeadings   Collection = "headings"
	CollectionLinks      Collection = "links"
	CollectionClickables Collection = "clickables"
)

// Heading is one h1..h6 element in document order.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Element is one link or clickable in document order.
type Element struct {
	Text string `json:"text"`
}

// PageInfo identifies the current page.
type PageInfo struct {
	Title string `json:"title"`
	Host  string `json:"host"`
	URL   string `json:"url"`
}

// MediaCommand is a media control request.
type MediaCommand struct {
	Kind    MediaCommandKind
	Seconds int
	Volume  float64
}

// MediaCommandKind enumerates media controls.
type MediaCommandKind string

const (
	MediaPlay       MediaCommandKind = "play"
	MediaPause      MediaCommandKind = "pause"
	MediaSkip       MediaCommandKind = "skip"
	MediaVolume     MediaCommandKind = "volume"
	MediaMute       MediaCommandKind = "mute"
	MediaFullscreen MediaCommandKind = "fullscreen"
)

// MediaState describes the first video/audio element after a control was applied.
type MediaState struct {
	Present    bool    `json:"present"`
	Video      bool    `json:"video"`
	Paused     bool    `json:"paused"`
	Muted      bool    `json:"muted"`
	Volume     float64 `json:"volume"`
	Duration   float64 `json:"duration"`
	Position   float64 `json:"position"`
	Fullscreen bool    `json:"fullscreen"`
	// Denied is set when the page refused the request (fullscreen without gesture).
	Denied bool `json:"denied"`
}

// VideoCard is the first video of a listing page.
type VideoCard struct {
	Title string `json:"title"`
	Views string `json:"views"`
}

// WatchInfo describes a video watch page.
type WatchInfo struct {
	Title   string `json:"title"`
	Channel string `json:"channel"`
	// Duration and Position are zero when no video metadata is loaded.
	Duration float64 `json:"duration"`
	Position float64 `json:"position"`
}

// StreamEvent is one decoded message from a streaming transcription provider.
type StreamEvent struct {
	Alternatives []Alternative `json:"alternatives"`
	IsFinal      bool          `json:"isFinal"`
	SpeechFinal  bool          `json:"speechFinal"`
}

// Text returns the top hypothesis.
func (e StreamEvent) Text() string {
	if len(e.Alternatives) == 0 {
		return ""
	}
	return e.Alternatives[0].Transcript
}
