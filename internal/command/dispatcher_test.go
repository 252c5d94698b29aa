package command

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"senseai/internal/domain"
	"senseai/internal/ports"
)

func TestDispatcherHeadingNavigationWrapsAround(t *testing.T) {
	t.Parallel()

	page := &fakePage{headings: []domain.Heading{{Level: 1, Text: "Intro"}, {Level: 2, Text: "Usage"}, {Level: 2, Text: "FAQ"}}}
	d := newTestDispatcher(page)
	ctx := context.Background()

	replies := []string{
		d.Execute(ctx, domain.Command{Action: domain.ActionNextHeading}),
		d.Execute(ctx, domain.Command{Action: domain.ActionNextHeading}),
		d.Execute(ctx, domain.Command{Action: domain.ActionNextHeading}),
		d.Execute(ctx, domain.Command{Action: domain.ActionNextHeading}),
	}
	want := []string{
		"Heading 1 of 3. Level 1: Intro",
		"Heading 2 of 3. Level 2: Usage",
		"Heading 3 of 3. Level 2: FAQ",
		"Heading 1 of 3. Level 1: Intro",
	}
	for i := range want {
		if replies[i] != want[i] {
			t.Fatalf("reply %d: expected %q, got %q", i, want[i], replies[i])
		}
	}

	d.ResetCursors()
	if got := d.Execute(ctx, domain.Command{Action: domain.ActionPrevHeading}); got != "Heading 3 of 3. Level 2: FAQ" {
		t.Fatalf("unexpected previous heading reply: %q", got)
	}
	if focus := page.lastFocus(); focus.collection != domain.CollectionHeadings || focus.index != 2 {
		t.Fatalf("unexpected focus: %+v", focus)
	}
}

func TestDispatcherEmptyCollectionKeepsCursor(t *testing.T) {
	t.Parallel()

	page := &fakePage{links: []domain.Element{{Text: "Home"}, {Text: "Docs"}}}
	d := newTestDispatcher(page)
	ctx := context.Background()

	d.Execute(ctx, domain.Command{Action: domain.ActionNextLink})
	if _, link := d.Cursors(); link != 0 {
		t.Fatalf("expected link cursor 0, got %d", link)
	}

	page.setLinks(nil)
	if got := d.Execute(ctx, domain.Command{Action: domain.ActionNextLink}); got != "No links on this page." {
		t.Fatalf("unexpected reply: %q", got)
	}
	if _, link := d.Cursors(); link != 0 {
		t.Fatalf("expected link cursor unchanged, got %d", link)
	}
	if got := d.Execute(ctx, domain.Command{Action: domain.ActionNextHeading}); got != "No headings on this page." {
		t.Fatalf("unexpected reply: %q", got)
	}
	if heading, _ := d.Cursors(); heading != -1 {
		t.Fatalf("expected heading cursor -1, got %d", heading)
	}
}

func TestDispatcherLinkReplyAndClickUnderCursor(t *testing.T) {
	t.Parallel()

	page := &fakePage{links: []domain.Element{{Text: "Home"}, {Text: "Docs"}}}
	d := newTestDispatcher(page)
	ctx := context.Background()

	if got := d.Execute(ctx, Resolve("click")); !strings.HasPrefix(got, "No element to click.") {
		t.Fatalf("expected no-target reply, got %q", got)
	}

	d.Execute(ctx, domain.Command{Action: domain.ActionNextLink})
	got := d.Execute(ctx, domain.Command{Action: domain.ActionNextLink})
	if got != "Link 2 of 2: Docs. Say 'click' to open it." {
		t.Fatalf("unexpected link reply: %q", got)
	}

	if got := d.Execute(ctx, Resolve("click it")); got != "Clicked Docs" {
		t.Fatalf("unexpected click reply: %q", got)
	}
	if click := page.lastClick(); click.collection != domain.CollectionLinks || click.index != 1 {
		t.Fatalf("unexpected click: %+v", click)
	}
}

func TestDispatcherFuzzyClick(t *testing.T) {
	t.Parallel()

	page := &fakePage{clickables: []domain.Element{
		{Text: "Sign in to your account"},
		{Text: "Sign in"},
		{Text: "Register"},
	}}
	d := newTestDispatcher(page)

	if got := d.Execute(context.Background(), Resolve("click sign")); got != "Clicked Sign in" {
		t.Fatalf("unexpected reply: %q", got)
	}
	if click := page.lastClick(); click.collection != domain.CollectionClickables || click.index != 1 {
		t.Fatalf("unexpected click: %+v", click)
	}

	if got := d.Execute(context.Background(), Resolve("click logout")); got != `Couldn't find a clickable element matching "logout".` {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestSelectClickTarget(t *testing.T) {
	t.Parallel()

	elements := []domain.Element{{Text: "Read more about cats"}, {Text: "More"}, {Text: "more"}, {Text: "Learn more"}}
	if got := SelectClickTarget(elements, "more"); got != 1 {
		t.Fatalf("expected exact match at 1, got %d", got)
	}
	if got := SelectClickTarget(elements, "ore"); got != 1 {
		t.Fatalf("expected shortest earliest containing match at 1, got %d", got)
	}
	if got := SelectClickTarget(elements, "dogs"); got != -1 {
		t.Fatalf("expected no match, got %d", got)
	}
}

func TestDispatcherSearch(t *testing.T) {
	t.Parallel()

	page := &fakePage{}
	d := newTestDispatcher(page)
	ctx := context.Background()

	if got := d.Execute(ctx, Resolve("search for cats")); got != "Searching YouTube for cats" {
		t.Fatalf("unexpected reply: %q", got)
	}
	if got := page.lastNavigate(); got != "https://www.youtube.com/results?search_query=cats" {
		t.Fatalf("unexpected navigation: %q", got)
	}

	page.searchBox = true
	if got := d.Execute(ctx, Resolve("search for lo fi")); got != "Searching for lo fi" {
		t.Fatalf("unexpected reply: %q", got)
	}
	if got := d.Execute(ctx, Resolve("search for")); got != "What should I search for?" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestDispatcherMediaReplies(t *testing.T) {
	t.Parallel()

	page := &fakePage{media: domain.MediaState{Present: true, Video: true, Volume: 0.6}}
	d := newTestDispatcher(page)
	ctx := context.Background()

	if got := d.Execute(ctx, Resolve("skip")); got != "Forward 10 seconds." {
		t.Fatalf("unexpected reply: %q", got)
	}
	if got := page.lastMedia(); got.Seconds != 10 {
		t.Fatalf("expected skip of 10 seconds, got %d", got.Seconds)
	}
	if got := d.Execute(ctx, Resolve("rewind 30")); got != "Backward 30 seconds." {
		t.Fatalf("unexpected reply: %q", got)
	}
	if got := d.Execute(ctx, Resolve("volume up")); got != "Volume 80 percent." {
		t.Fatalf("unexpected reply: %q", got)
	}
	if got := page.lastMedia(); got.Kind != domain.MediaVolume || got.Volume != 0.2 {
		t.Fatalf("unexpected media command: %+v", got)
	}

	page.media = domain.MediaState{}
	if got := d.Execute(ctx, Resolve("play")); got != "No video found on this page." {
		t.Fatalf("unexpected reply: %q", got)
	}
	if got := d.Execute(ctx, Resolve("volume down")); got != "No media found to adjust volume." {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestDispatcherReadingReplies(t *testing.T) {
	t.Parallel()

	headings := make([]domain.Heading, 17)
	for i := range headings {
		headings[i] = domain.Heading{Level: 2, Text: "H"}
	}
	page := &fakePage{headings: headings, text: strings.Repeat("a", 3500)}
	d := newTestDispatcher(page)
	ctx := context.Background()

	got := d.Execute(ctx, Resolve("read headings"))
	if !strings.HasPrefix(got, "Found 17 headings. Level 2: H.") || !strings.HasSuffix(got, "And 2 more. Say 'next heading' to navigate.") {
		t.Fatalf("unexpected headings reply: %q", got)
	}

	got = d.Execute(ctx, Resolve("read page"))
	if !strings.HasSuffix(got, "... Content truncated. Say 'scroll down' and 'read page' for more.") {
		t.Fatalf("expected truncated reply, got %q", got[len(got)-80:])
	}

	if got := d.Execute(ctx, Resolve("read selection")); got != "No text is selected." {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestDispatcherWhereAmIAndClock(t *testing.T) {
	t.Parallel()

	page := &fakePage{info: domain.PageInfo{Title: "Docs", Host: "example.com"}}
	d := newTestDispatcher(page)
	ctx := context.Background()

	if got := d.Execute(ctx, Resolve("where am i")); got != "You are on Docs, on example.com." {
		t.Fatalf("unexpected reply: %q", got)
	}
	if got := d.Execute(ctx, Resolve("what time is it")); got != "The time is 2:05:09 PM" {
		t.Fatalf("unexpected reply: %q", got)
	}
	if got := d.Execute(ctx, Resolve("what is the date")); got != "Today is Tuesday, March 4, 2025" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestDispatcherSummarizesYouTubeWatchPage(t *testing.T) {
	t.Parallel()

	page := &fakePage{
		info:  domain.PageInfo{URL: "https://www.youtube.com/watch?v=1"},
		watch: domain.WatchInfo{Title: "Go Concurrency", Channel: "Gophers", Duration: 125, Position: 61},
	}
	d := newTestDispatcher(page)

	want := "You are watching a YouTube video. Title: Go Concurrency. By Gophers. Duration: 2 minutes and 5 seconds. You are at 1 minutes and 1 seconds."
	if got := d.Execute(context.Background(), Resolve("summarize")); got != want {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestDispatcherSummarizesRegularPage(t *testing.T) {
	t.Parallel()

	page := &fakePage{
		info:      domain.PageInfo{Title: "Guide", URL: "https://example.com"},
		headings:  []domain.Heading{{Level: 1, Text: "Guide"}, {Level: 3, Text: "Minor"}, {Level: 2, Text: "Setup"}},
		linkCount: 4,
	}
	d := newTestDispatcher(page)

	want := "Page: Guide. Main sections: Guide. Setup. There are 4 links on this page."
	if got := d.Execute(context.Background(), Resolve("describe page")); got != want {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestDispatcherOpenSite(t *testing.T) {
	t.Parallel()

	page := &fakePage{}
	d := NewDispatcher(page, fixedClock{}, map[string]string{"docs": "https://docs.example.com"}, zerolog.Nop())
	ctx := context.Background()

	cases := []struct {
		text  string
		reply string
		url   string
	}{
		{"open youtube", "Opening youtube.", "https://www.youtube.com"},
		{"open the docs", "Opening docs.", "https://docs.example.com"},
		{"open example.com", "Opening example.com.", "https://example.com"},
		{"open cute cats", "Searching Google for cute cats.", "https://www.google.com/search?q=cute+cats"},
	}
	for _, tc := range cases {
		if got := d.Execute(ctx, Resolve(tc.text)); got != tc.reply {
			t.Fatalf("%q: unexpected reply %q", tc.text, got)
		}
		if got := page.lastNavigate(); got != tc.url {
			t.Fatalf("%q: unexpected url %q", tc.text, got)
		}
	}
}

func TestDispatcherPageErrorBecomesApology(t *testing.T) {
	t.Parallel()

	page := &fakePage{err: errors.New("target closed")}
	d := newTestDispatcher(page)

	if got := d.Execute(context.Background(), Resolve("scroll down")); got != ReplyActionFailed {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestDispatcherStaticReplies(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(&fakePage{})
	ctx := context.Background()
	if got := d.Execute(ctx, Resolve("banana")); got != ReplyNotUnderstood {
		t.Fatalf("unexpected reply: %q", got)
	}
	if got := d.Execute(ctx, Resolve("hi")); got != ReplyGreeting {
		t.Fatalf("unexpected reply: %q", got)
	}
	if got := d.Execute(ctx, Resolve("help")); !strings.HasPrefix(got, "I can help you with:") {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func newTestDispatcher(page ports.Page) *Dispatcher {
	return NewDispatcher(page, fixedClock{}, nil, zerolog.Nop())
}

type fixedClock struct{}

func (fixedClock) Now() time.Time {
	return time.Date(2025, time.March, 4, 14, 5, 9, 0, time.UTC)
}

func (fixedClock) AfterFunc(d time.Duration, f func()) ports.Timer {
	return time.AfterFunc(d, f)
}

type indexCall struct {
	collection domain.Collection
	index      int
}

type fakePage struct {
	mu sync.Mutex

	err        error
	info       domain.PageInfo
	text       string
	selection  string
	headings   []domain.Heading
	links      []domain.Element
	clickables []domain.Element
	linkCount  int
	searchBox  bool
	media      domain.MediaState
	watch      domain.WatchInfo

	focuses    []indexCall
	clicks     []indexCall
	navigated  []string
	mediaCalls []domain.MediaCommand
}

func (f *fakePage) setLinks(links []domain.Element) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links = links
}

func (f *fakePage) lastFocus() indexCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.focuses) == 0 {
		return indexCall{index: -1}
	}
	return f.focuses[len(f.focuses)-1]
}

func (f *fakePage) lastClick() indexCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.clicks) == 0 {
		return indexCall{index: -1}
	}
	return f.clicks[len(f.clicks)-1]
}

func (f *fakePage) lastNavigate() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.navigated) == 0 {
		return ""
	}
	return f.navigated[len(f.navigated)-1]
}

func (f *fakePage) lastMedia() domain.MediaCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.mediaCalls) == 0 {
		return domain.MediaCommand{}
	}
	return f.mediaCalls[len(f.mediaCalls)-1]
}

func (f *fakePage) Scroll(context.Context, domain.ScrollTarget) error { return f.err }
func (f *fakePage) History(context.Context, int) error                { return f.err }
func (f *fakePage) Reload(context.Context) error                      { return f.err }

func (f *fakePage) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated = append(f.navigated, url)
	return f.err
}

func (f *fakePage) Info(context.Context) (domain.PageInfo, error) { return f.info, f.err }

func (f *fakePage) MainText(context.Context, int) (string, error) { return f.text, f.err }

func (f *fakePage) Selection(context.Context) (string, error) { return f.selection, f.err }

func (f *fakePage) Headings(context.Context) ([]domain.Heading, error) { return f.headings, f.err }

func (f *fakePage) Elements(_ context.Context, collection domain.Collection) ([]domain.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if collection == domain.CollectionLinks {
		return f.links, f.err
	}
	return f.clickables, f.err
}

func (f *fakePage) LinkCount(context.Context) (int, error) { return f.linkCount, f.err }

func (f *fakePage) Focus(_ context.Context, collection domain.Collection, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.focuses = append(f.focuses, indexCall{collection: collection, index: index})
	return f.err
}

func (f *fakePage) Click(_ context.Context, collection domain.Collection, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, indexCall{collection: collection, index: index})
	return f.err
}

func (f *fakePage) SearchInPage(context.Context, string) (bool, error) { return f.searchBox, f.err }

func (f *fakePage) FirstVideo(context.Context) (domain.VideoCard, bool, error) {
	return domain.VideoCard{}, false, f.err
}

func (f *fakePage) OpenFirstVideo(context.Context) (bool, error) { return false, f.err }

func (f *fakePage) VideoTitles(context.Context, int) ([]string, int, error) { return nil, 0, f.err }

func (f *fakePage) WatchInfo(context.Context) (domain.WatchInfo, error) { return f.watch, f.err }

func (f *fakePage) Media(_ context.Context, cmd domain.MediaCommand) (domain.MediaState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mediaCalls = append(f.mediaCalls, cmd)
	state := f.media
	if cmd.Kind == domain.MediaVolume && state.Present {
		state.Volume = min(1, max(0, state.Volume+cmd.Volume))
	}
	return state, f.err
}

func (f *fakePage) Zoom(context.Context, float64, bool) (float64, error) { return 1, f.err }
