package usecase

import (
	"errors"
	"sync"

	"senseai/internal/domain"
	"senseai/internal/ports"
)

// recognitionRun is the loop-owned record of one recognition session. Events
// carrying another run id are stale and dropped.
type recognitionRun struct {
	id      uint64
	kind    domain.SessionKind
	handle  ports.RecognitionSession
	started bool
	handled bool
}

func (r *recognitionRun) stop() {
	if r.handle != nil {
		r.handle.Stop()
	}
}

// runListener forwards recognizer callbacks onto the event loop.
type runListener struct {
	id   uint64
	post func(event)
}

func (l runListener) OnSessionStarted() {
	l.post(sessionStartedEvent{run: l.id})
}

func (l runListener) OnResult(result domain.ResultEvent) {
	l.post(resultEvent{run: l.id, result: result})
}

func (l runListener) OnError(kind domain.RecognitionErrorKind, err error) {
	l.post(recognitionErrorEvent{run: l.id, kind: kind, err: err})
}

func (l runListener) OnSessionEnded() {
	l.post(sessionEndedEvent{run: l.id})
}

// kindedError is implemented by adapter errors that know their classification.
type kindedError interface {
	Kind() domain.RecognitionErrorKind
}

func classifyStartError(err error) domain.RecognitionErrorKind {
	var kinded kindedError
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}
	return domain.ErrorKindUnavailable
}

// mailbox is an unbounded event queue. post never blocks.
type mailbox struct {
	mu     sync.Mutex
	queue  []event
	signal chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

func (m *mailbox) post(ev event) {
	m.mu.Lock()
	m.queue = append(m.queue, ev)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *mailbox) take() []event {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch := m.queue
	m.queue = nil
	return batch
}
