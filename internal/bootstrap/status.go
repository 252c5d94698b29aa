package bootstrap

import (
	"github.com/rs/zerolog"

	"senseai/internal/ports"
)

// StatusFanout reports every status to each reporter in order.
type StatusFanout []ports.StatusReporter

func (f StatusFanout) Report(label string, icon string) {
	for _, reporter := range f {
		if reporter != nil {
			reporter.Report(label, icon)
		}
	}
}

type logStatus struct {
	logger zerolog.Logger
}

func newLogStatus(logger zerolog.Logger) logStatus {
	return logStatus{logger: logger.With().Str("component", "status").Logger()}
}

func (s logStatus) Report(label string, icon string) {
	s.logger.Debug().Str("icon", icon).Msg(label)
}
