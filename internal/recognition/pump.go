package recognition

import (
	"errors"
	"fmt"
	"io"
	"time"

	"senseai/internal/domain"
	"senseai/internal/ports"
)

// pumpAudioChunks copies microphone audio into the provider stream until the
// capture ends. It closes the send side so the provider can flush.
func pumpAudioChunks(audioSession ports.AudioSession, stream ports.StreamingSession, chunkSize int, failed chan<- *Error) {
	defer func() { _ = stream.CloseSend() }()

	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audioSession.Read(buf)
		if n > 0 {
			if sendErr := stream.SendAudio(buf[:n]); sendErr != nil {
				report(failed, newError(domain.ErrorKindNetwork, fmt.Errorf("failed to stream audio: %w", sendErr)))
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				report(failed, newError(classifyCaptureError(err), fmt.Errorf("audio capture error: %w", err)))
				return
			}
			// ffmpeg exited; its stop error explains why.
			if stopErr := audioSession.Stop(); stopErr != nil {
				report(failed, newError(classifyCaptureError(stopErr), fmt.Errorf("audio capture ended: %w", stopErr)))
			}
			return
		}
	}
}

func report(failed chan<- *Error, err *Error) {
	select {
	case failed <- err:
	default:
	}
}

func waitForStream(session ports.StreamingSession, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = session.Close()
		return <-done
	}
}
