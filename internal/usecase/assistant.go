package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"senseai/internal/domain"
	"senseai/internal/ports"
)

const (
	msgActivated     = "Ready! What can I help you with?"
	msgSleeping      = "Going to sleep."
	msgSleepCommand  = "Going to sleep. Say 'Hey Sense' to wake me."
	msgStopped       = "Stopped."
	msgReady         = "SenseAI voice assistant ready. Say 'Hey Sense' to activate, or press Control Shift S."
	msgMicRequired   = "Microphone access is required. Please allow microphone access and refresh the page."
	statusRequesting = "Requesting microphone access..."
	statusReady      = "Voice Assistant Ready"
	statusDenied     = "Microphone access denied"
	statusSuspended  = "Voice assistant paused after repeated errors. Press Control Shift S to retry."
	statusProcessing = "Processing: "
	statusTextLimit  = 60
)

// WakeMatcher detects wake phrases in recognition results.
type WakeMatcher interface {
	MatchesAny(results []domain.RecognitionResult) (string, bool)
}

// CommandResolver maps a transcript to a command.
type CommandResolver interface {
	Resolve(text string) domain.Command
}

// CommandDispatcher executes commands against the page.
type CommandDispatcher interface {
	Execute(ctx context.Context, cmd domain.Command) string
	ResetCursors()
	Cursors() (heading int, link int)
}

// Config controls timing and recognition behavior of the assistant.
type Config struct {
	AwakeTimeout        time.Duration
	WatchdogInterval    time.Duration
	WakeRestartDelay    time.Duration
	CommandRestartDelay time.Duration
	ResumeDelay         time.Duration
	ProbeTimeout        time.Duration
	ActionTimeout       time.Duration
	WakeBackoff         Backoff
	CommandBackoff      Backoff
	Wake                domain.RecognitionConfig
	Command             domain.RecognitionConfig
}

// DefaultConfig returns the stock timings.
func DefaultConfig() Config {
	return Config{
		AwakeTimeout:        30 * time.Second,
		WatchdogInterval:    20 * time.Second,
		WakeRestartDelay:    300 * time.Millisecond,
		CommandRestartDelay: 500 * time.Millisecond,
		ResumeDelay:         time.Second,
		ProbeTimeout:        5 * time.Second,
		ActionTimeout:       15 * time.Second,
		WakeBackoff:         Backoff{Base: time.Second, Step: time.Second, Ceiling: defaultCeiling},
		CommandBackoff:      Backoff{Base: 800 * time.Millisecond, Ceiling: defaultCeiling},
		Wake: domain.RecognitionConfig{
			Kind:            domain.SessionKindWake,
			Continuous:      true,
			InterimResults:  true,
			MaxAlternatives: 5,
			Language:        "en-US",
		},
		Command: domain.RecognitionConfig{
			Kind:            domain.SessionKindCommand,
			MaxAlternatives: 3,
			Language:        "en-US",
			NoSpeechTimeout: 8 * time.Second,
		},
	}
}

// Dependencies are the ports the assistant drives.
type Dependencies struct {
	Recognizer ports.Recognizer
	Microphone ports.Microphone
	Wake       WakeMatcher
	Resolver   CommandResolver
	Rules      ports.RulesEngine
	Dispatcher CommandDispatcher
	Speech     ports.SpeechOutput
	Status     ports.StatusReporter
	Clock      ports.Clock
	Logger     zerolog.Logger
	// Async runs blocking work off the event loop. Defaults to a goroutine.
	Async func(func())
}

type pendingTimer struct {
	gen   uint64
	timer ports.Timer
}

// Assistant is the voice interaction state machine. All state is owned by the
// event loop; public methods only post events.
type Assistant struct {
	deps      Dependencies
	cfg       Config
	logger    zerolog.Logger
	finalizer transcriptFinalizer
	mailbox   *mailbox
	ctx       context.Context

	awake     bool
	session   *recognitionRun
	runSeq    uint64
	speaking  bool
	utterance uint64
	onSpoken  func()

	hidden    bool
	suspended bool
	fatal     bool
	announced bool

	failures map[domain.SessionKind]int
	timers   map[timerSlot]*pendingTimer
	timerGen uint64

	actionSeq      uint64
	actionInFlight bool
	probeSeq       uint64

	// watching is set while Run owns the watchdog; hiding the page only
	// parks the timer.
	watching bool

	snapMu   sync.RWMutex
	snapshot domain.Snapshot
}

// NewAssistant builds an assistant. Zero durations in cfg fall back to DefaultConfig.
func NewAssistant(deps Dependencies, cfg Config) *Assistant {
	cfg = withDefaults(cfg)
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Async == nil {
		deps.Async = func(f func()) { go f() }
	}
	logger := deps.Logger.With().Str("component", "assistant").Logger()
	a := &Assistant{
		deps:      deps,
		cfg:       cfg,
		logger:    logger,
		finalizer: newTranscriptFinalizer(deps.Rules, deps.Resolver, logger),
		mailbox:   newMailbox(),
		ctx:       context.Background(),
		failures:  map[domain.SessionKind]int{},
		timers:    map[timerSlot]*pendingTimer{},
	}
	a.snapshot = a.buildSnapshot()
	return a
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.AwakeTimeout <= 0 {
		cfg.AwakeTimeout = def.AwakeTimeout
	}
	if cfg.WatchdogInterval <= 0 {
		cfg.WatchdogInterval = def.WatchdogInterval
	}
	if cfg.WakeRestartDelay <= 0 {
		cfg.WakeRestartDelay = def.WakeRestartDelay
	}
	if cfg.CommandRestartDelay <= 0 {
		cfg.CommandRestartDelay = def.CommandRestartDelay
	}
	if cfg.ResumeDelay <= 0 {
		cfg.ResumeDelay = def.ResumeDelay
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = def.ActionTimeout
	}
	if cfg.WakeBackoff.Base <= 0 {
		cfg.WakeBackoff = def.WakeBackoff
	}
	if cfg.CommandBackoff.Base <= 0 {
		cfg.CommandBackoff = def.CommandBackoff
	}
	if cfg.Wake.Kind == "" {
		cfg.Wake = def.Wake
	}
	if cfg.Command.Kind == "" {
		cfg.Command = def.Command
	}
	return cfg
}

// Run processes events until ctx is cancelled.
func (a *Assistant) Run(ctx context.Context) error {
	a.ctx = ctx
	a.armWatchdog()
	a.logger.Info().Msg("assistant started")

	for {
		select {
		case <-ctx.Done():
			a.drain()
			a.shutdown()
			a.logger.Info().Msg("assistant stopped")
			return nil
		case <-a.mailbox.signal:
			a.drain()
		}
	}
}

// PageLoaded resets the assistant for a freshly loaded page.
func (a *Assistant) PageLoaded() { a.mailbox.post(pageLoadedEvent{}) }

// PageHidden makes the assistant dormant.
func (a *Assistant) PageHidden() { a.mailbox.post(pageHiddenEvent{}) }

// PageVisible resumes wake listening.
func (a *Assistant) PageVisible() { a.mailbox.post(pageVisibleEvent{}) }

// Toggle wakes a sleeping assistant or puts an awake one to sleep.
func (a *Assistant) Toggle() { a.mailbox.post(toggleEvent{}) }

// Snapshot returns the state as of the last processed event batch.
func (a *Assistant) Snapshot() domain.Snapshot {
	a.snapMu.RLock()
	defer a.snapMu.RUnlock()
	return a.snapshot
}

func (a *Assistant) drain() {
	for {
		batch := a.mailbox.take()
		if len(batch) == 0 {
			return
		}
		for _, ev := range batch {
			a.handle(ev)
		}
		a.publish()
	}
}

func (a *Assistant) handle(ev event) {
	switch e := ev.(type) {
	case pageLoadedEvent:
		a.onPageLoaded()
	case pageHiddenEvent:
		a.onPageHidden()
	case pageVisibleEvent:
		a.onPageVisible()
	case toggleEvent:
		a.onToggle()
	case sessionStartedEvent:
		a.onSessionStarted(e)
	case resultEvent:
		a.onResult(e)
	case recognitionErrorEvent:
		a.onRecognitionError(e)
	case sessionEndedEvent:
		a.onSessionEnded(e)
	case speechDoneEvent:
		a.onSpeechDone(e)
	case actionDoneEvent:
		a.onActionDone(e)
	case probeDoneEvent:
		a.onProbeDone(e)
	case timerFiredEvent:
		a.onTimer(e)
	default:
		a.logger.Warn().Msgf("unknown event %T", ev)
	}
}

func (a *Assistant) publish() {
	snap := a.buildSnapshot()
	a.snapMu.Lock()
	a.snapshot = snap
	a.snapMu.Unlock()
}

func (a *Assistant) buildSnapshot() domain.Snapshot {
	snap := domain.Snapshot{
		State:         a.state(),
		Speaking:      a.speaking,
		Suspended:     a.suspended,
		Fatal:         a.fatal,
		Hidden:        a.hidden,
		HeadingCursor: -1,
		LinkCursor:    -1,
	}
	if a.deps.Dispatcher != nil {
		snap.HeadingCursor, snap.LinkCursor = a.deps.Dispatcher.Cursors()
	}
	return snap
}

func (a *Assistant) state() domain.AssistantState {
	switch {
	case a.awake && a.session != nil && a.session.kind == domain.SessionKindCommand:
		return domain.StateCommandListening
	case a.awake:
		return domain.StateAwake
	case a.session != nil && a.session.kind == domain.SessionKindWake:
		return domain.StateWakeListening
	default:
		return domain.StateAsleep
	}
}

// --- external triggers ---

func (a *Assistant) onPageLoaded() {
	a.logger.Info().Bool("announced", a.announced).Msg("page loaded")
	a.stopSession()
	a.stopSpeech()
	a.cancelTimers(slotAwake, slotRetryWake, slotRetryCommand, slotResume)
	a.goAsleep()
	a.resetFailures()
	a.unhide()
	a.suspended = false
	a.fatal = false

	if a.announced {
		a.startWakeIfIdle()
		return
	}

	a.report(statusRequesting, domain.IconStarting)
	a.probeSeq++
	seq := a.probeSeq
	if a.deps.Microphone == nil {
		a.mailbox.post(probeDoneEvent{seq: seq})
		return
	}
	ctx, timeout := a.ctx, a.cfg.ProbeTimeout
	a.deps.Async(func() {
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		a.mailbox.post(probeDoneEvent{seq: seq, err: a.deps.Microphone.Probe(probeCtx)})
	})
}

func (a *Assistant) onProbeDone(e probeDoneEvent) {
	if e.seq != a.probeSeq {
		return
	}
	if e.err != nil {
		a.logger.Error().Err(e.err).Msg("microphone probe failed")
		a.enterFatal()
		return
	}
	a.announced = true
	a.report(statusReady, domain.IconReady)
	a.speak(msgReady, a.startWakeIfIdle)
}

func (a *Assistant) onPageHidden() {
	a.logger.Info().Msg("page hidden")
	a.hidden = true
	a.stopSession()
	a.stopSpeech()
	a.cancelTimers(slotAwake, slotRetryWake, slotRetryCommand, slotResume, slotWatchdog)
	a.goAsleep()
	a.reportState(domain.StateAsleep)
}

func (a *Assistant) onPageVisible() {
	a.logger.Info().Msg("page visible")
	a.unhide()
	a.suspended = false
	a.resetFailures()
	if a.awake || a.session != nil {
		return
	}
	a.schedule(slotResume, a.cfg.ResumeDelay)
}

func (a *Assistant) onToggle() {
	if a.awake {
		a.logger.Info().Msg("manual toggle: sleep")
		a.cancelTimers(slotAwake, slotRetryCommand)
		a.stopSpeech()
		a.stopSession()
		a.goAsleep()
		a.speak(msgSleeping, a.startWakeIfIdle)
		return
	}

	a.logger.Info().Msg("manual toggle: wake")
	a.stopSession()
	a.unhide()
	a.suspended = false
	a.fatal = false
	a.resetFailures()
	a.activate()
}

// --- recognition ---

func (a *Assistant) startSession(kind domain.SessionKind) {
	if a.session != nil {
		a.stopSession()
	}
	if a.deps.Recognizer == nil {
		a.recognitionFailed(kind, domain.ErrorKindUnavailable, nil)
		return
	}

	cfg := a.cfg.Wake
	if kind == domain.SessionKindCommand {
		cfg = a.cfg.Command
	}

	a.runSeq++
	run := &recognitionRun{id: a.runSeq, kind: kind}
	a.session = run

	handle, err := a.deps.Recognizer.Start(a.ctx, cfg, runListener{id: run.id, post: a.mailbox.post})
	if err != nil {
		a.session = nil
		a.logger.Warn().Err(err).Str("kind", string(kind)).Msg("recognition start failed")
		a.recognitionFailed(kind, classifyStartError(err), err)
		return
	}
	run.handle = handle
	a.logger.Debug().Str("kind", string(kind)).Str("session", handle.ID()).Msg("recognition requested")
}

func (a *Assistant) stopSession() {
	if a.session == nil {
		return
	}
	run := a.session
	a.session = nil
	run.stop()
}

func (a *Assistant) current(run uint64) *recognitionRun {
	if a.session == nil || a.session.id != run {
		return nil
	}
	return a.session
}

func (a *Assistant) onSessionStarted(e sessionStartedEvent) {
	run := a.current(e.run)
	if run == nil {
		return
	}
	run.started = true
	a.failures[run.kind] = 0
	if a.suspended {
		a.logger.Info().Str("kind", string(run.kind)).Msg("recognition recovered; auto-restart resumed")
		a.suspended = false
	}
	if run.kind == domain.SessionKindWake {
		a.reportState(domain.StateWakeListening)
	} else {
		a.reportState(domain.StateCommandListening)
	}
}

func (a *Assistant) onResult(e resultEvent) {
	run := a.current(e.run)
	if run == nil || run.handled {
		return
	}

	if run.kind == domain.SessionKindWake {
		if a.awake {
			return
		}
		phrase, ok := a.deps.Wake.MatchesAny(e.result.Results)
		if !ok {
			return
		}
		run.handled = true
		a.logger.Info().Str("phrase", phrase).Msg("wake phrase detected")
		a.stopSession()
		a.activate()
		return
	}

	text, ok := commandTranscript(e.result.Results)
	if !ok || !a.awake {
		return
	}
	run.handled = true
	a.dispatch(text)
}

func (a *Assistant) onRecognitionError(e recognitionErrorEvent) {
	run := a.current(e.run)
	if run == nil {
		return
	}
	if e.kind == domain.ErrorKindAborted {
		a.logger.Debug().Str("kind", string(run.kind)).Msg("recognition aborted")
		return
	}
	a.logger.Warn().Err(e.err).Str("kind", string(run.kind)).Str("error", string(e.kind)).Msg("recognition error")
	a.recognitionFailed(run.kind, e.kind, e.err)
}

func (a *Assistant) recognitionFailed(kind domain.SessionKind, errKind domain.RecognitionErrorKind, err error) {
	if errKind.Fatal() {
		a.enterFatal()
		return
	}
	if !errKind.Counted() {
		return
	}

	a.failures[kind]++
	n := a.failures[kind]
	policy := a.cfg.WakeBackoff
	slot := slotRetryWake
	if kind == domain.SessionKindCommand {
		policy = a.cfg.CommandBackoff
		slot = slotRetryCommand
	}

	delay, ok := policy.Delay(n)
	if !ok {
		if !a.suspended {
			a.logger.Error().Err(err).Str("kind", string(kind)).Int("failures", n).Msg("auto-restart suspended")
			a.suspended = true
			a.report(statusSuspended, domain.IconWarning)
		}
		return
	}
	if a.timers[slot] != nil {
		return
	}
	a.logger.Debug().Str("kind", string(kind)).Int("failures", n).Dur("delay", delay).Msg("retry scheduled")
	a.schedule(slot, delay)
}

func (a *Assistant) onSessionEnded(e sessionEndedEvent) {
	run := a.current(e.run)
	if run == nil {
		return
	}
	a.session = nil
	if a.hidden || a.suspended || a.fatal {
		return
	}

	switch run.kind {
	case domain.SessionKindWake:
		if a.awake || a.timers[slotRetryWake] != nil {
			return
		}
		a.schedule(slotRetryWake, a.cfg.WakeRestartDelay)
	case domain.SessionKindCommand:
		if !a.awake || a.speaking || a.actionInFlight || a.timers[slotRetryCommand] != nil {
			return
		}
		a.schedule(slotRetryCommand, a.cfg.CommandRestartDelay)
	}
}

// --- activation and commands ---

func (a *Assistant) activate() {
	a.cancelTimers(slotRetryWake, slotRetryCommand, slotResume)
	a.awake = true
	a.resetAwakeTimer()
	a.speak(msgActivated, a.resumeCommand)
}

func (a *Assistant) dispatch(text string) {
	a.report(statusProcessing+text, domain.IconProcessing)
	cmd := a.finalizer.Finalize(text)
	a.logger.Info().Str("transcript", text).Str("action", string(cmd.Action)).Str("rule", cmd.Rule).Msg("command resolved")
	a.resetAwakeTimer()

	switch cmd.Action {
	case domain.ActionSleep:
		a.cancelTimers(slotAwake, slotRetryCommand)
		a.stopSession()
		a.goAsleep()
		a.speak(msgSleepCommand, a.startWakeIfIdle)
		return
	case domain.ActionStopSpeech:
		a.stopSpeech()
		a.speak(msgStopped, a.resumeCommand)
		return
	}

	a.actionSeq++
	seq := a.actionSeq
	a.actionInFlight = true
	ctx, timeout, dispatcher := a.ctx, a.cfg.ActionTimeout, a.deps.Dispatcher
	a.deps.Async(func() {
		actionCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		a.mailbox.post(actionDoneEvent{seq: seq, reply: dispatcher.Execute(actionCtx, cmd)})
	})
}

func (a *Assistant) onActionDone(e actionDoneEvent) {
	if e.seq != a.actionSeq || !a.actionInFlight {
		return
	}
	a.actionInFlight = false
	if !a.awake {
		return
	}
	a.speak(e.reply, a.resumeCommand)
}

func (a *Assistant) resumeCommand() {
	if !a.awake || a.hidden || a.fatal || a.session != nil {
		return
	}
	a.startSession(domain.SessionKindCommand)
}

func (a *Assistant) startWakeIfIdle() {
	if a.awake || a.hidden || a.fatal || a.session != nil || a.speaking {
		return
	}
	a.startSession(domain.SessionKindWake)
}

func (a *Assistant) resetAwakeTimer() {
	a.cancelTimers(slotAwake)
	a.schedule(slotAwake, a.cfg.AwakeTimeout)
}

func (a *Assistant) onAwakeExpired() {
	if !a.awake {
		return
	}
	a.logger.Info().Msg("awake timeout")
	a.stopSpeech()
	a.cancelTimers(slotRetryCommand)
	a.stopSession()
	a.goAsleep()
	a.speak(msgSleeping, func() {
		if a.suspended {
			return
		}
		a.startWakeIfIdle()
	})
}

// goAsleep clears the awake flag and everything tied to it.
func (a *Assistant) goAsleep() {
	a.awake = false
	a.cancelTimers(slotAwake)
	a.actionSeq++
	a.actionInFlight = false
	if a.deps.Dispatcher != nil {
		a.deps.Dispatcher.ResetCursors()
	}
}

func (a *Assistant) enterFatal() {
	a.stopSession()
	a.cancelTimers(slotAwake, slotRetryWake, slotRetryCommand, slotResume)
	a.goAsleep()
	if a.fatal {
		return
	}
	a.fatal = true
	a.speak(msgMicRequired, nil)
	a.report(statusDenied, domain.IconDenied)
}

// --- speech ---

func (a *Assistant) speak(text string, then func()) {
	a.utterance++
	id := a.utterance
	a.speaking = true
	a.onSpoken = then
	a.report(truncateStatus(text), domain.StateSpeaking.Icon())
	if a.deps.Speech == nil {
		a.mailbox.post(speechDoneEvent{utterance: id})
		return
	}
	a.deps.Speech.Speak(text, func() {
		a.mailbox.post(speechDoneEvent{utterance: id})
	})
}

func (a *Assistant) stopSpeech() {
	a.utterance++
	a.onSpoken = nil
	if !a.speaking {
		return
	}
	a.speaking = false
	if a.deps.Speech != nil {
		a.deps.Speech.Stop()
	}
}

func (a *Assistant) onSpeechDone(e speechDoneEvent) {
	if e.utterance != a.utterance || !a.speaking {
		return
	}
	a.speaking = false
	then := a.onSpoken
	a.onSpoken = nil
	if !a.fatal && !a.hidden {
		if a.awake {
			a.reportState(domain.StateCommandListening)
		} else {
			a.reportState(domain.StateWakeListening)
		}
	}
	if then != nil {
		then()
	}
}

// --- timers ---

func (a *Assistant) schedule(slot timerSlot, d time.Duration) {
	a.cancelTimers(slot)
	a.timerGen++
	gen := a.timerGen
	a.timers[slot] = &pendingTimer{
		gen: gen,
		timer: a.deps.Clock.AfterFunc(d, func() {
			a.mailbox.post(timerFiredEvent{slot: slot, gen: gen})
		}),
	}
}

func (a *Assistant) cancelTimers(slots ...timerSlot) {
	for _, slot := range slots {
		if pending := a.timers[slot]; pending != nil {
			pending.timer.Stop()
			delete(a.timers, slot)
		}
	}
}

func (a *Assistant) armWatchdog() {
	a.watching = true
	a.schedule(slotWatchdog, a.cfg.WatchdogInterval)
}

// unhide clears the hidden flag and puts back a watchdog parked by onPageHidden.
func (a *Assistant) unhide() {
	a.hidden = false
	if a.watching && a.timers[slotWatchdog] == nil {
		a.armWatchdog()
	}
}

func (a *Assistant) onTimer(e timerFiredEvent) {
	pending := a.timers[e.slot]
	if pending == nil || pending.gen != e.gen {
		return
	}
	delete(a.timers, e.slot)

	switch e.slot {
	case slotAwake:
		a.onAwakeExpired()
	case slotRetryWake:
		if a.hidden || a.fatal || a.awake || a.session != nil || a.speaking {
			return
		}
		a.startSession(domain.SessionKindWake)
	case slotRetryCommand:
		if a.hidden || a.fatal || a.session != nil || a.speaking {
			return
		}
		if a.awake {
			a.startSession(domain.SessionKindCommand)
		} else {
			a.startSession(domain.SessionKindWake)
		}
	case slotResume:
		if !a.announced {
			return
		}
		a.startWakeIfIdle()
	case slotWatchdog:
		a.armWatchdog()
		if a.hidden || a.suspended || !a.announced {
			return
		}
		a.startWakeIfIdle()
	}
}

func (a *Assistant) shutdown() {
	a.stopSession()
	a.stopSpeech()
	a.watching = false
	a.cancelTimers(slotAwake, slotRetryWake, slotRetryCommand, slotResume, slotWatchdog)
	a.publish()
}

// --- status ---

func (a *Assistant) resetFailures() {
	a.failures[domain.SessionKindWake] = 0
	a.failures[domain.SessionKindCommand] = 0
}

func (a *Assistant) reportState(state domain.AssistantState) {
	a.report(state.Label(), state.Icon())
}

func (a *Assistant) report(label string, icon string) {
	if a.deps.Status == nil {
		return
	}
	a.deps.Status.Report(label, icon)
}

func truncateStatus(text string) string {
	runes := []rune(text)
	if len(runes) <= statusTextLimit {
		return text
	}
	return string(runes[:statusTextLimit]) + "..."
}
