package command

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"senseai/internal/domain"
	"senseai/internal/ports"
)

var errUnknownAction = errors.New("unknown action")

// Dispatcher executes resolved commands against the page and composes the
// spoken reply.
type Dispatcher struct {
	page   ports.Page
	clock  ports.Clock
	sites  SiteMap
	logger zerolog.Logger

	headings *Cursor
	links    *Cursor
}

// NewDispatcher wires a dispatcher. extraSites extends the built-in site map.
func NewDispatcher(page ports.Page, clock ports.Clock, extraSites map[string]string, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		page:     page,
		clock:    clock,
		sites:    NewSiteMap(extraSites),
		logger:   logger.With().Str("component", "dispatcher").Logger(),
		headings: newCursor(),
		links:    newCursor(),
	}
}

// ResetCursors clears the heading and link positions.
func (d *Dispatcher) ResetCursors() {
	d.headings.Reset()
	d.links.Reset()
}

// Cursors returns the heading and link positions.
func (d *Dispatcher) Cursors() (int, int) {
	return d.headings.Position(), d.links.Position()
}

// Execute runs cmd and returns the reply to speak. Page failures are logged
// and turned into a generic apology.
func (d *Dispatcher) Execute(ctx context.Context, cmd domain.Command) string {
	reply, err := d.execute(ctx, cmd)
	if err != nil {
		d.logger.Warn().Err(err).Str("action", string(cmd.Action)).Str("rule", cmd.Rule).Msg("action failed")
		return ReplyActionFailed
	}
	d.logger.Debug().Str("action", string(cmd.Action)).Str("rule", cmd.Rule).Msg("action executed")
	return reply
}

func (d *Dispatcher) execute(ctx context.Context, cmd domain.Command) (string, error) {
	switch cmd.Action {
	case domain.ActionStopSpeech:
		return ReplyStopped, nil
	case domain.ActionSleep:
		return ReplyGoingToSleep, nil
	case domain.ActionHelp:
		return ReplyHelp, nil
	case domain.ActionGreeting:
		return ReplyGreeting, nil
	case domain.ActionNotUnderstood:
		return ReplyNotUnderstood, nil

	case domain.ActionReadPage:
		text, err := d.page.MainText(ctx, pageTextLimit)
		if err != nil {
			return "", err
		}
		return readPageReply(text), nil
	case domain.ActionReadHeadings:
		headings, err := d.page.Headings(ctx)
		if err != nil {
			return "", err
		}
		return headingsReply(headings), nil
	case domain.ActionReadLinks:
		links, err := d.page.Elements(ctx, domain.CollectionLinks)
		if err != nil {
			return "", err
		}
		return linksReply(links), nil
	case domain.ActionReadSelection:
		selection, err := d.page.Selection(ctx)
		if err != nil {
			return "", err
		}
		if selection = strings.TrimSpace(selection); selection == "" {
			return "No text is selected.", nil
		}
		return selection, nil

	case domain.ActionNextHeading:
		return d.navigateHeadings(ctx, 1)
	case domain.ActionPrevHeading:
		return d.navigateHeadings(ctx, -1)
	case domain.ActionNextLink:
		return d.navigateLinks(ctx, 1)
	case domain.ActionPrevLink:
		return d.navigateLinks(ctx, -1)
	case domain.ActionClick:
		return d.click(ctx, cmd.Arg.Text)

	case domain.ActionYouTubeSearch:
		return d.search(ctx, cmd.Arg.Text)
	case domain.ActionPlayFirstVideo:
		ok, err := d.page.OpenFirstVideo(ctx)
		if err != nil {
			return "", err
		}
		if !ok {
			return "No videos found on this page.", nil
		}
		return "Playing first video.", nil
	case domain.ActionFirstVideoViews:
		card, ok, err := d.page.FirstVideo(ctx)
		if err != nil {
			return "", err
		}
		if !ok {
			return "No videos found.", nil
		}
		if strings.TrimSpace(card.Views) == "" {
			return "View count not available.", nil
		}
		return "The first video has " + strings.TrimSpace(card.Views), nil

	case domain.ActionScrollDown:
		return "Scrolled down.", d.page.Scroll(ctx, domain.ScrollDown)
	case domain.ActionScrollUp:
		return "Scrolled up.", d.page.Scroll(ctx, domain.ScrollUp)
	case domain.ActionScrollTop:
		return "At the top of the page.", d.page.Scroll(ctx, domain.ScrollTop)
	case domain.ActionScrollBottom:
		return "At the bottom of the page.", d.page.Scroll(ctx, domain.ScrollBottom)
	case domain.ActionHistoryBack:
		return "Going back.", d.page.History(ctx, -1)
	case domain.ActionHistoryForward:
		return "Going forward.", d.page.History(ctx, 1)
	case domain.ActionReload:
		return "Refreshing the page.", d.page.Reload(ctx)

	case domain.ActionPlay, domain.ActionPause, domain.ActionSkipForward, domain.ActionSkipBackward,
		domain.ActionVolumeUp, domain.ActionVolumeDown, domain.ActionToggleMute, domain.ActionFullscreen:
		return d.media(ctx, cmd)

	case domain.ActionSummarize:
		return d.summarize(ctx)
	case domain.ActionWhereAmI:
		info, err := d.page.Info(ctx)
		if err != nil {
			return "", err
		}
		return whereAmIReply(info), nil
	case domain.ActionTime:
		return "The time is " + d.clock.Now().Format(timeLayout), nil
	case domain.ActionDate:
		return "Today is " + d.clock.Now().Format(dateLayout), nil

	case domain.ActionZoomIn:
		_, err := d.page.Zoom(ctx, 0.1, false)
		return "Zoomed in.", err
	case domain.ActionZoomOut:
		_, err := d.page.Zoom(ctx, -0.1, false)
		return "Zoomed out.", err
	case domain.ActionZoomReset:
		_, err := d.page.Zoom(ctx, 0, true)
		return "Zoom reset to normal.", err

	case domain.ActionOpenSite:
		target, reply := d.sites.Resolve(cmd.Arg.Text)
		return reply, d.page.Navigate(ctx, target)
	}
	return "", fmt.Errorf("%w: %s", errUnknownAction, cmd.Action)
}

func (d *Dispatcher) navigateHeadings(ctx context.Context, dir int) (string, error) {
	headings, err := d.page.Headings(ctx)
	if err != nil {
		return "", err
	}
	index, ok := d.headings.Step(len(headings), dir)
	if !ok {
		return replyNoHeadingsHere, nil
	}
	if err := d.page.Focus(ctx, domain.CollectionHeadings, index); err != nil {
		return "", err
	}
	return headingPositionReply(index, headings), nil
}

func (d *Dispatcher) navigateLinks(ctx context.Context, dir int) (string, error) {
	links, err := d.page.Elements(ctx, domain.CollectionLinks)
	if err != nil {
		return "", err
	}
	index, ok := d.links.Step(len(links), dir)
	if !ok {
		return replyNoLinksHere, nil
	}
	if err := d.page.Focus(ctx, domain.CollectionLinks, index); err != nil {
		return "", err
	}
	return linkPositionReply(index, links), nil
}

func (d *Dispatcher) click(ctx context.Context, target string) (string, error) {
	if isCursorTarget(target) {
		links, err := d.page.Elements(ctx, domain.CollectionLinks)
		if err != nil {
			return "", err
		}
		index := d.links.Position()
		if index < 0 || index >= len(links) {
			return replyNoClickTarget, nil
		}
		if err := d.page.Click(ctx, domain.CollectionLinks, index); err != nil {
			return "", err
		}
		return "Clicked " + strings.TrimSpace(links[index].Text), nil
	}

	clickables, err := d.page.Elements(ctx, domain.CollectionClickables)
	if err != nil {
		return "", err
	}
	index := SelectClickTarget(clickables, target)
	if index < 0 {
		return fmt.Sprintf("Couldn't find a clickable element matching %q.", target), nil
	}
	if err := d.page.Click(ctx, domain.CollectionClickables, index); err != nil {
		return "", err
	}
	label := clickables[index].Text
	if strings.TrimSpace(label) == "" {
		label = target
	}
	return "Clicked " + truncate(label, clickReplyLimit), nil
}

func (d *Dispatcher) search(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "What should I search for?", nil
	}
	submitted, err := d.page.SearchInPage(ctx, query)
	if err != nil {
		return "", err
	}
	if submitted {
		return "Searching for " + query, nil
	}
	if err := d.page.Navigate(ctx, youtubeResultsURL+url.QueryEscape(query)); err != nil {
		return "", err
	}
	return "Searching YouTube for " + query, nil
}

func (d *Dispatcher) media(ctx context.Context, cmd domain.Command) (string, error) {
	var request domain.MediaCommand
	switch cmd.Action {
	case domain.ActionPlay:
		request = domain.MediaCommand{Kind: domain.MediaPlay}
	case domain.ActionPause:
		request = domain.MediaCommand{Kind: domain.MediaPause}
	case domain.ActionSkipForward:
		request = domain.MediaCommand{Kind: domain.MediaSkip, Seconds: cmd.Arg.Number}
	case domain.ActionSkipBackward:
		request = domain.MediaCommand{Kind: domain.MediaSkip, Seconds: -cmd.Arg.Number}
	case domain.ActionVolumeUp:
		request = domain.MediaCommand{Kind: domain.MediaVolume, Volume: 0.2}
	case domain.ActionVolumeDown:
		request = domain.MediaCommand{Kind: domain.MediaVolume, Volume: -0.2}
	case domain.ActionToggleMute:
		request = domain.MediaCommand{Kind: domain.MediaMute}
	case domain.ActionFullscreen:
		request = domain.MediaCommand{Kind: domain.MediaFullscreen}
	}
	if request.Kind == domain.MediaSkip && request.Seconds == 0 {
		request.Seconds = DefaultSkipSeconds
		if cmd.Action == domain.ActionSkipBackward {
			request.Seconds = -DefaultSkipSeconds
		}
	}

	state, err := d.page.Media(ctx, request)
	if err != nil {
		return "", err
	}

	switch request.Kind {
	case domain.MediaPlay:
		if !state.Present {
			return "No video found on this page.", nil
		}
		return "Playing.", nil
	case domain.MediaPause:
		if !state.Present {
			return replyNoVideo, nil
		}
		return "Paused.", nil
	case domain.MediaSkip:
		if !state.Present || !state.Video {
			return replyNoVideo, nil
		}
		return skipReply(request.Seconds), nil
	case domain.MediaVolume:
		if !state.Present {
			return "No media found to adjust volume.", nil
		}
		return volumeReply(state.Volume), nil
	case domain.MediaMute:
		if !state.Present {
			return replyNoMedia, nil
		}
		if state.Muted {
			return "Muted.", nil
		}
		return "Unmuted.", nil
	default:
		if !state.Present || !state.Video {
			return replyNoVideo, nil
		}
		if state.Denied {
			return "Fullscreen not allowed on this page.", nil
		}
		if state.Fullscreen {
			return "Fullscreen.", nil
		}
		return "Exited fullscreen.", nil
	}
}

func (d *Dispatcher) summarize(ctx context.Context) (string, error) {
	info, err := d.page.Info(ctx)
	if err != nil {
		return "", err
	}

	if strings.Contains(info.URL, "youtube.com") {
		if strings.Contains(info.URL, "watch") {
			watch, err := d.page.WatchInfo(ctx)
			if err != nil {
				return "", err
			}
			return watchReply(watch), nil
		}
		titles, total, err := d.page.VideoTitles(ctx, summaryItemLimit)
		if err != nil {
			return "", err
		}
		return listingReply(titles, total), nil
	}

	headings, err := d.page.Headings(ctx)
	if err != nil {
		return "", err
	}
	var sections []string
	for _, h := range headings {
		if h.Level > 2 {
			continue
		}
		sections = append(sections, h.Text)
		if len(sections) == summaryItemLimit {
			break
		}
	}
	links, err := d.page.LinkCount(ctx)
	if err != nil {
		return "", err
	}
	return pageSummaryReply(info.Title, sections, links), nil
}
