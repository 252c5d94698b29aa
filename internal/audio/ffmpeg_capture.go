package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"senseai/internal/ports"
)

// ErrPermissionDenied reports that the OS refused microphone access.
var ErrPermissionDenied = errors.New("microphone permission denied")

var permissionMarkers = []string{
	"permission denied",
	"operation not permitted",
	"access denied",
	"not authorized",
}

// FFMPEGCapture streams microphone PCM audio using ffmpeg.
type FFMPEGCapture struct {
	command  string
	defaults ports.AudioConfig
	logger   zerolog.Logger
}

func NewFFMPEGCapture(command string, defaults ports.AudioConfig, logger zerolog.Logger) *FFMPEGCapture {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFMPEGCapture{
		command:  command,
		defaults: normalizeConfig(defaults),
		logger:   logger.With().Str("component", "ffmpeg").Logger(),
	}
}

func normalizeConfig(cfg ports.AudioConfig) ports.AudioConfig {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	return cfg
}

func (c *FFMPEGCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	if cfg == (ports.AudioConfig{}) {
		cfg = c.defaults
	}
	cfg = normalizeConfig(cfg)

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	stderr := &syncBuffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		detail := stringsTrimSpaceSafe(stderr.String())
		if isPermissionDenied(detail) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, detail)
		}
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, detail)
		}
		return nil, errors.New("ffmpeg exited before capture started")
	case <-time.After(250 * time.Millisecond):
	}

	c.logger.Debug().Str("format", cfg.InputFormat).Str("device", cfg.InputDevice).Int("rate", cfg.SampleRate).Msg("capture started")
	return &ffmpegSession{
		stdout:  stdout,
		stderr:  stderr,
		process: cmd.Process,
		waitErr: waitErr,
	}, nil
}

// Probe captures a single chunk to confirm the microphone is usable.
func (c *FFMPEGCapture) Probe(ctx context.Context) error {
	session, err := c.Start(ctx, c.defaults)
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := session.Stop(); stopErr != nil {
			c.logger.Debug().Err(stopErr).Msg("probe capture stop")
		}
	}()

	read := make(chan error, 1)
	go func() {
		buf := make([]byte, 512)
		n, err := session.Read(buf)
		if n > 0 {
			read <- nil
			return
		}
		if err == nil || errors.Is(err, io.EOF) {
			err = errors.New("no audio captured")
		}
		read <- err
	}()

	select {
	case err := <-read:
		if err != nil {
			if stopErr := session.Stop(); stopErr != nil && errors.Is(stopErr, ErrPermissionDenied) {
				return stopErr
			}
			return fmt.Errorf("microphone probe failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("microphone probe timed out: %w", ctx.Err())
	}
}

type ffmpegSession struct {
	stdout io.ReadCloser
	stderr *syncBuffer

	process *os.Process
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *ffmpegSession) Close() error {
	return s.Stop()
}

func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-time.After(1200 * time.Millisecond):
			if s.process != nil {
				_ = s.process.Kill()
			}
			err, ok := <-s.waitErr
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		}

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			if s.stopErr == nil {
				s.stopErr = closeErr
			}
		}

		detail := stringsTrimSpaceSafe(s.stderr.String())
		if isPermissionDenied(detail) {
			s.stopErr = fmt.Errorf("%w: %s", ErrPermissionDenied, detail)
			return
		}
		if s.stopErr != nil && detail != "" {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, detail)
		}
	})

	return s.stopErr
}

// syncBuffer guards stderr, which ffmpeg writes while Stop reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func isPermissionDenied(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, marker := range permissionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func stringsTrimSpaceSafe(input string) string {
	if input == "" {
		return input
	}
	return string(bytes.TrimSpace([]byte(input)))
}
