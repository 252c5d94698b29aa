package command

import (
	"strings"

	"senseai/internal/domain"
)

// SelectClickTarget picks the element to click for a spoken target. An exact
// case-insensitive match wins; otherwise the shortest text containing the
// target, earliest in document order on ties. Returns -1 when nothing matches.
func SelectClickTarget(elements []domain.Element, target string) int {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		return -1
	}

	best := -1
	bestLen := 0
	for i, el := range elements {
		text := strings.ToLower(strings.TrimSpace(el.Text))
		if text == target {
			return i
		}
		if !strings.Contains(text, target) {
			continue
		}
		if best == -1 || len(text) < bestLen {
			best = i
			bestLen = len(text)
		}
	}
	return best
}

func isCursorTarget(target string) bool {
	switch strings.TrimSpace(target) {
	case "", "it", "this":
		return true
	default:
		return false
	}
}

func truncate(text string, limit int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit])
}
