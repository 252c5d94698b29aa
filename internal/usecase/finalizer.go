package usecase

import (
	"strings"

	"github.com/rs/zerolog"

	"senseai/internal/domain"
	"senseai/internal/ports"
)

// transcriptFinalizer turns a recognized command transcript into a resolved
// command. Rule failures fall back to the raw transcript.
type transcriptFinalizer struct {
	rules    ports.RulesEngine
	resolver CommandResolver
	logger   zerolog.Logger
}

func newTranscriptFinalizer(rules ports.RulesEngine, resolver CommandResolver, logger zerolog.Logger) transcriptFinalizer {
	return transcriptFinalizer{rules: rules, resolver: resolver, logger: logger}
}

func (f transcriptFinalizer) Finalize(raw string) domain.Command {
	text := raw
	if f.rules != nil {
		transformed, err := f.rules.Apply(raw)
		if err != nil {
			f.logger.Warn().Err(err).Str("transcript", raw).Msg("rules failed, using raw transcript")
		} else {
			text = transformed
		}
	}
	return f.resolver.Resolve(text)
}

// commandTranscript returns the longest alternative of the first final
// result, lowercased and trimmed.
func commandTranscript(results []domain.RecognitionResult) (string, bool) {
	for _, result := range results {
		if !result.Final {
			continue
		}
		best := ""
		for _, alt := range result.Alternatives {
			text := strings.ToLower(strings.TrimSpace(alt.Transcript))
			if len(text) > len(best) {
				best = text
			}
		}
		return best, true
	}
	return "", false
}
