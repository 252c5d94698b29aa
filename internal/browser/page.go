package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/ysmood/gson"

	"senseai/internal/domain"
)

const (
	minZoom = 0.3
	maxZoom = 3.0
)

type pageSource interface {
	Page() (*rod.Page, error)
}

// Page implements the assistant's page capabilities by evaluating scripts in
// the assisted tab.
type Page struct {
	source pageSource
}

// NewPage returns page actions bound to the session's tab.
func NewPage(source pageSource) *Page {
	return &Page{source: source}
}

func (p *Page) eval(ctx context.Context, js string, args ...interface{}) (gson.JSON, error) {
	page, err := p.source.Page()
	if err != nil {
		return gson.JSON{}, err
	}
	res, err := page.Context(ctx).Eval(js, args...)
	if err != nil {
		return gson.JSON{}, fmt.Errorf("page script failed: %w", err)
	}
	return res.Value, nil
}

func (p *Page) evalInto(ctx context.Context, out interface{}, js string, args ...interface{}) error {
	value, err := p.eval(ctx, js, args...)
	if err != nil {
		return err
	}
	return decode(value, out)
}

func decode(value gson.JSON, out interface{}) error {
	raw, err := value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode page result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unexpected page result %s: %w", raw, err)
	}
	return nil
}

func (p *Page) Scroll(ctx context.Context, target domain.ScrollTarget) error {
	_, err := p.eval(ctx, scrollJS, string(target))
	return err
}

func (p *Page) History(ctx context.Context, delta int) error {
	_, err := p.eval(ctx, historyJS, delta)
	return err
}

func (p *Page) Reload(ctx context.Context) error {
	_, err := p.eval(ctx, reloadJS)
	return err
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	_, err := p.eval(ctx, navigateJS, url)
	return err
}

func (p *Page) Info(ctx context.Context) (domain.PageInfo, error) {
	var info domain.PageInfo
	err := p.evalInto(ctx, &info, infoJS)
	return info, err
}

// MainText returns the readable text of the main content region, roughly
// capped at limit characters.
func (p *Page) MainText(ctx context.Context, limit int) (string, error) {
	value, err := p.eval(ctx, mainTextJS, limit)
	if err != nil {
		return "", err
	}
	return value.Str(), nil
}

func (p *Page) Selection(ctx context.Context) (string, error) {
	value, err := p.eval(ctx, selectionJS)
	if err != nil {
		return "", err
	}
	return value.Str(), nil
}

func (p *Page) Headings(ctx context.Context) ([]domain.Heading, error) {
	var headings []domain.Heading
	err := p.evalInto(ctx, &headings, headingsJS)
	return headings, err
}

func (p *Page) Elements(ctx context.Context, collection domain.Collection) ([]domain.Element, error) {
	var elements []domain.Element
	err := p.evalInto(ctx, &elements, elementsJS, string(collection))
	return elements, err
}

func (p *Page) LinkCount(ctx context.Context) (int, error) {
	value, err := p.eval(ctx, linkCountJS)
	if err != nil {
		return 0, err
	}
	return value.Int(), nil
}

func (p *Page) Focus(ctx context.Context, collection domain.Collection, index int) error {
	return p.indexed(ctx, focusJS, collection, index)
}

func (p *Page) Click(ctx context.Context, collection domain.Collection, index int) error {
	return p.indexed(ctx, clickJS, collection, index)
}

func (p *Page) indexed(ctx context.Context, js string, collection domain.Collection, index int) error {
	value, err := p.eval(ctx, js, string(collection), index)
	if err != nil {
		return err
	}
	if !value.Bool() {
		return fmt.Errorf("%s %d: %w", collection, index, ErrElementGone)
	}
	return nil
}

// SearchInPage submits query through the page's own search box.
func (p *Page) SearchInPage(ctx context.Context, query string) (bool, error) {
	value, err := p.eval(ctx, searchJS, query)
	if err != nil {
		return false, err
	}
	return value.Bool(), nil
}

func (p *Page) FirstVideo(ctx context.Context) (domain.VideoCard, bool, error) {
	var res struct {
		Found bool `json:"found"`
		domain.VideoCard
	}
	if err := p.evalInto(ctx, &res, firstVideoJS); err != nil {
		return domain.VideoCard{}, false, err
	}
	return res.VideoCard, res.Found, nil
}

func (p *Page) OpenFirstVideo(ctx context.Context) (bool, error) {
	value, err := p.eval(ctx, openFirstVideoJS)
	if err != nil {
		return false, err
	}
	return value.Bool(), nil
}

// VideoTitles returns up to limit titles and the number of video cards listed.
func (p *Page) VideoTitles(ctx context.Context, limit int) ([]string, int, error) {
	var res struct {
		Titles []string `json:"titles"`
		Total  int      `json:"total"`
	}
	if err := p.evalInto(ctx, &res, videoTitlesJS, limit); err != nil {
		return nil, 0, err
	}
	return res.Titles, res.Total, nil
}

func (p *Page) WatchInfo(ctx context.Context) (domain.WatchInfo, error) {
	var info domain.WatchInfo
	err := p.evalInto(ctx, &info, watchInfoJS)
	return info, err
}

func (p *Page) Media(ctx context.Context, cmd domain.MediaCommand) (domain.MediaState, error) {
	var state domain.MediaState
	err := p.evalInto(ctx, &state, mediaJS, string(cmd.Kind), cmd.Seconds, cmd.Volume)
	return state, err
}

// Zoom changes the body zoom by delta, or resets it, and returns the new level.
func (p *Page) Zoom(ctx context.Context, delta float64, reset bool) (float64, error) {
	value, err := p.eval(ctx, zoomJS, delta, reset, minZoom, maxZoom)
	if err != nil {
		return 0, err
	}
	return clampZoom(value.Num()), nil
}

func clampZoom(level float64) float64 {
	switch {
	case level <= 0:
		return 1
	case level < minZoom:
		return minZoom
	case level > maxZoom:
		return maxZoom
	default:
		return level
	}
}
