package usecase

import "time"

const defaultCeiling = 5

// Backoff computes retry delays for consecutive recognition failures.
type Backoff struct {
	Base    time.Duration
	Step    time.Duration
	Ceiling int
}

// Delay returns the wait before retrying after the n-th consecutive failure.
// It reports false once n reaches the ceiling; auto-restart is then suspended.
func (b Backoff) Delay(n int) (time.Duration, bool) {
	ceiling := b.Ceiling
	if ceiling <= 0 {
		ceiling = defaultCeiling
	}
	if n < 1 {
		n = 1
	}
	if n >= ceiling {
		return 0, false
	}
	return b.Base + b.Step*time.Duration(n-1), true
}
