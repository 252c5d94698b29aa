// Package wake decides whether a transcript fragment is a wake phrase.
package wake

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"senseai/internal/domain"
)

var defaultPhrases = []string{
	"hey sense", "hey senseai", "hey sensai", "hey sense ai",
	"hey since ai", "hey sensi", "hey sansei", "hey senchai",
	"hey sent say i", "hey sensei", "hey assistant", "hey voice",
	"sense ai", "sensai", "sense", "senseai", "sen say", "sen sai",
	"assistant", "voice", "activate", "start", "wake up",
	"listen", "hello", "hi", "computer",
}

var defaultPatterns = []string{
	`hey\s*sen[sc]`,
	`\bsen[sc]e?\s*a?i?\b`,
	`assist`,
	`voice`,
	`wake`,
	`activate`,
	`listen`,
	`hello`,
	`\bhi\b`,
	`computer`,
}

// Matcher holds an immutable wake phrase set.
type Matcher struct {
	phrases  []string
	patterns []*regexp.Regexp
}

// NewMatcher builds the default set extended with extra phrases and patterns.
func NewMatcher(extraPhrases []string, extraPatterns []string) (*Matcher, error) {
	m := &Matcher{}
	seen := map[string]bool{}
	for _, phrase := range append(append([]string{}, defaultPhrases...), extraPhrases...) {
		normalized := Normalize(phrase)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		m.phrases = append(m.phrases, normalized)
	}

	for _, pattern := range append(append([]string{}, defaultPatterns...), extraPatterns...) {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid wake pattern %q: %w", pattern, err)
		}
		m.patterns = append(m.patterns, re)
	}
	return m, nil
}

// Default returns the built-in set.
func Default() *Matcher {
	m, err := NewMatcher(nil, nil)
	if err != nil {
		panic(err)
	}
	return m
}

// Matches reports whether text contains a wake phrase as whole words or
// satisfies a fallback pattern.
func (m *Matcher) Matches(text string) bool {
	normalized := Normalize(text)
	if normalized == "" {
		return false
	}

	padded := " " + normalized + " "
	for _, phrase := range m.phrases {
		if strings.Contains(padded, " "+phrase+" ") {
			return true
		}
	}
	for _, re := range m.patterns {
		if re.MatchString(normalized) {
			return true
		}
	}
	return false
}

// MatchesAny checks every alternative of every result. A match on any
// alternative is authoritative.
func (m *Matcher) MatchesAny(results []domain.RecognitionResult) (string, bool) {
	for _, result := range results {
		for _, alt := range result.Alternatives {
			if m.Matches(alt.Transcript) {
				return alt.Transcript, true
			}
		}
	}
	return "", false
}

// Phrases returns a copy of the literal phrase set.
func (m *Matcher) Phrases() []string {
	return append([]string(nil), m.phrases...)
}

// Normalize lowercases, folds punctuation to spaces and collapses whitespace.
func Normalize(text string) string {
	folded := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		if r == '\'' {
			return -1
		}
		return ' '
	}, text)
	return strings.Join(strings.Fields(folded), " ")
}
