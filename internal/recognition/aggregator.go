package recognition

import "senseai/internal/domain"

// resultAggregator numbers provider events into result slots. An interim
// hypothesis replaces the open slot; a final one closes it.
type resultAggregator struct {
	results []domain.RecognitionResult
	current int
}

func newResultAggregator() *resultAggregator {
	return &resultAggregator{}
}

// Add records the event and returns the changed slot.
func (a *resultAggregator) Add(event domain.StreamEvent) (domain.ResultEvent, bool) {
	if len(event.Alternatives) == 0 {
		return domain.ResultEvent{}, false
	}

	result := domain.RecognitionResult{
		Alternatives: append([]domain.Alternative(nil), event.Alternatives...),
		Final:        event.IsFinal,
	}

	index := a.current
	if index == len(a.results) {
		a.results = append(a.results, result)
	} else {
		a.results[index] = result
	}
	if result.Final {
		a.current++
	}

	return domain.ResultEvent{
		ResultIndex: index,
		Results:     []domain.RecognitionResult{result},
	}, true
}

// Finals returns how many slots are closed.
func (a *resultAggregator) Finals() int {
	return a.current
}

