package browser

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Overlay renders the assistant status as a fixed bar on the page. The last
// status is kept so it can be redrawn after navigation.
type Overlay struct {
	source pageSource
	logger zerolog.Logger
	queue  *serialQueue

	mu    sync.Mutex
	label string
	icon  string
}

func NewOverlay(source pageSource, logger zerolog.Logger) *Overlay {
	return &Overlay{
		source: source,
		logger: logger.With().Str("component", "overlay").Logger(),
		queue:  newSerialQueue(16),
	}
}

// Report implements ports.StatusReporter.
func (o *Overlay) Report(label string, icon string) {
	o.mu.Lock()
	o.label = label
	o.icon = icon
	o.mu.Unlock()
	o.Refresh()
}

// Refresh redraws the last reported status.
func (o *Overlay) Refresh() {
	o.queue.submit(o.render)
}

// Last returns the most recently reported status.
func (o *Overlay) Last() (label string, icon string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.label, o.icon
}

func (o *Overlay) render() {
	label, icon := o.Last()
	if label == "" {
		return
	}
	page, err := o.source.Page()
	if err != nil {
		return
	}
	if _, err := page.Context(context.Background()).Timeout(5*time.Second).Eval(overlayJS, label, icon); err != nil {
		o.logger.Debug().Err(err).Msg("overlay render failed")
	}
}

func (o *Overlay) Close() {
	o.queue.close()
}
