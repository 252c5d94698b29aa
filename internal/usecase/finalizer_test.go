package usecase

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"senseai/internal/command"
	"senseai/internal/domain"
)

func TestTranscriptFinalizerRulesFailureFallsBackToRaw(t *testing.T) {
	t.Parallel()

	f := newTranscriptFinalizer(&fakeRules{err: errors.New("rules")}, command.NewResolver(nil), zerolog.Nop())

	cmd := f.Finalize("scroll down")
	if cmd.Action != domain.ActionScrollDown {
		t.Fatalf("unexpected action: %s", cmd.Action)
	}
}

func TestTranscriptFinalizerAppliesRules(t *testing.T) {
	t.Parallel()

	f := newTranscriptFinalizer(&fakeRules{transform: "go to top"}, command.NewResolver(nil), zerolog.Nop())

	cmd := f.Finalize("top please")
	if cmd.Action != domain.ActionScrollTop || cmd.Transcript != "go to top" {
		t.Fatalf("unexpected command: %+v", cmd)
	}
}

func TestCommandTranscriptPicksLongestAlternativeOfFirstFinal(t *testing.T) {
	t.Parallel()

	results := []domain.RecognitionResult{
		{Alternatives: []domain.Alternative{{Transcript: "interim only"}}},
		{Final: true, Alternatives: []domain.Alternative{
			{Transcript: "Scroll", Confidence: 0.9},
			{Transcript: " Scroll Down ", Confidence: 0.4},
			{Transcript: "scroll dow", Confidence: 0.2},
		}},
		{Final: true, Alternatives: []domain.Alternative{{Transcript: "a much longer second final result"}}},
	}

	got, ok := commandTranscript(results)
	if !ok || got != "scroll down" {
		t.Fatalf("unexpected transcript: %q ok=%v", got, ok)
	}

	if _, ok := commandTranscript(results[:1]); ok {
		t.Fatalf("expected no transcript without a final result")
	}
}
