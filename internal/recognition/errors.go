package recognition

import (
	"errors"
	"fmt"

	"senseai/internal/audio"
	"senseai/internal/domain"
	"senseai/internal/providers/deepgram"
)

var (
	// ErrSessionActive is reported when the previous engine session did not
	// release the microphone in time.
	ErrSessionActive = errors.New("another recognition session is still active")
	// ErrNotConfigured is returned synchronously when the provider cannot be used.
	ErrNotConfigured = errors.New("speech recognition provider is not configured")
)

// Error is a recognition failure with its classification.
type Error struct {
	kind domain.RecognitionErrorKind
	err  error
}

func newError(kind domain.RecognitionErrorKind, err error) *Error {
	return &Error{kind: kind, err: err}
}

func (e *Error) Error() string {
	if e.err == nil {
		return string(e.kind)
	}
	return fmt.Sprintf("%s: %v", e.kind, e.err)
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the classification used by the state machine.
func (e *Error) Kind() domain.RecognitionErrorKind { return e.kind }

func classifyCaptureError(err error) domain.RecognitionErrorKind {
	if errors.Is(err, audio.ErrPermissionDenied) {
		return domain.ErrorKindNotAllowed
	}
	return domain.ErrorKindAudioCapture
}

func classifyStreamError(err error) domain.RecognitionErrorKind {
	switch {
	case errors.Is(err, deepgram.ErrUnauthorized):
		return domain.ErrorKindNotAllowed
	case errors.Is(err, deepgram.ErrMissingAPIKey), errors.Is(err, ErrNotConfigured):
		return domain.ErrorKindUnavailable
	case errors.Is(err, audio.ErrPermissionDenied):
		return domain.ErrorKindNotAllowed
	default:
		return domain.ErrorKindNetwork
	}
}
