package usecase

import "senseai/internal/domain"

type event interface{}

type pageLoadedEvent struct{}

type pageHiddenEvent struct{}

type pageVisibleEvent struct{}

type toggleEvent struct{}

type sessionStartedEvent struct {
	run uint64
}

type resultEvent struct {
	run    uint64
	result domain.ResultEvent
}

type recognitionErrorEvent struct {
	run  uint64
	kind domain.RecognitionErrorKind
	err  error
}

type sessionEndedEvent struct {
	run uint64
}

type speechDoneEvent struct {
	utterance uint64
}

type actionDoneEvent struct {
	seq   uint64
	reply string
}

type probeDoneEvent struct {
	seq uint64
	err error
}

type timerSlot int

const (
	slotAwake timerSlot = iota
	slotRetryWake
	slotRetryCommand
	slotResume
	slotWatchdog
)

type timerFiredEvent struct {
	slot timerSlot
	gen  uint64
}
