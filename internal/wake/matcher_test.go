package wake

import (
	"testing"

	"senseai/internal/domain"
)

func TestMatcherLiteralPhrasesWithSurroundingWords(t *testing.T) {
	t.Parallel()

	m := Default()
	for _, phrase := range m.Phrases() {
		for _, text := range []string{
			phrase,
			"  " + phrase + "  ",
			"uh " + phrase + " please",
			"Okay, " + phrase + "!",
		} {
			if !m.Matches(text) {
				t.Fatalf("expected %q to match (phrase %q)", text, phrase)
			}
		}
	}
}

func TestMatcherIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	m := Default()
	for _, text := range []string{"HEY SENSE", "Hey Sense.", "hEy SeNsEi"} {
		if !m.Matches(text) {
			t.Fatalf("expected %q to match", text)
		}
	}
}

func TestMatcherFuzzyPatterns(t *testing.T) {
	t.Parallel()

	m := Default()
	for _, text := range []string{"heysens", "assistance please", "the voices", "wakey", "listening now", "senc ai"} {
		if !m.Matches(text) {
			t.Fatalf("expected fuzzy match for %q", text)
		}
	}
}

func TestMatcherRejectsUnrelatedText(t *testing.T) {
	t.Parallel()

	m := Default()
	for _, text := range []string{"please close this tab", "", "   ", "nonsense about the weather", "thinking"} {
		if m.Matches(text) {
			t.Fatalf("expected %q not to match", text)
		}
	}
}

func TestMatcherExtraPhrases(t *testing.T) {
	t.Parallel()

	m, err := NewMatcher([]string{"Okay Jarvis"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Matches("okay jarvis open youtube") {
		t.Fatalf("expected extra phrase to match")
	}
	if Default().Matches("okay jarvis") {
		t.Fatalf("default set must not include extra phrase")
	}
}

func TestMatcherInvalidPattern(t *testing.T) {
	t.Parallel()

	if _, err := NewMatcher(nil, []string{"("}); err == nil {
		t.Fatalf("expected invalid pattern error")
	}
}

func TestMatchesAnyChecksEveryAlternative(t *testing.T) {
	t.Parallel()

	m := Default()
	results := []domain.RecognitionResult{
		{Alternatives: []domain.Alternative{{Transcript: "close the tab"}}},
		{Alternatives: []domain.Alternative{
			{Transcript: "a sense of"},
			{Transcript: "hey sense"},
		}},
	}
	got, ok := m.MatchesAny(results)
	if !ok {
		t.Fatalf("expected a match in the second result")
	}
	if got != "a sense of" && got != "hey sense" {
		t.Fatalf("unexpected matching alternative: %q", got)
	}

	if _, ok := m.MatchesAny([]domain.RecognitionResult{{Alternatives: []domain.Alternative{{Transcript: "scroll down"}}}}); ok {
		t.Fatalf("expected no match")
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	if got := Normalize("  Hey,   SENSE!  what's up "); got != "hey sense whats up" {
		t.Fatalf("unexpected normalized text: %q", got)
	}
}
