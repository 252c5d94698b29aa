package command

import (
	"fmt"
	"math"
	"strings"

	"senseai/internal/domain"
)

const (
	ReplyStopped       = "Stopped."
	ReplyGoingToSleep  = "Going to sleep. Say 'Hey Sense' to wake me."
	ReplyGreeting      = "Hello! I'm here to help. Say 'help' for a list of commands."
	ReplyNotUnderstood = "I didn't catch that. Say 'help' for available commands."
	ReplyActionFailed  = "Sorry, that didn't work on this page."

	ReplyHelp = "I can help you with: " +
		"Page reading: say 'read page', 'read headings', or 'read links'. " +
		"Navigation: say 'scroll down', 'scroll up', 'go to top', 'go to bottom', or 'go back'. " +
		"Heading navigation: say 'next heading' or 'previous heading'. " +
		"Link navigation: say 'next link' or 'previous link'. " +
		"YouTube: say 'search for' something, 'play first video', 'play', 'pause', 'forward', or 'backward'. " +
		"Media: say 'volume up', 'volume down', 'mute', or 'fullscreen'. " +
		"Utilities: say 'what time is it', 'what is the date', 'where am I', or 'zoom in', 'zoom out'. " +
		"Websites: say 'open' followed by a website name. " +
		"Say 'stop' to interrupt me, or 'go to sleep' when done."

	replyNoHeadingsHere = "No headings on this page."
	replyNoLinksHere    = "No links on this page."
	replyNoClickTarget  = "No element to click. Say 'next link' first, or say 'click' followed by the text you want to click."
	replyNoVideo        = "No video found."
	replyNoMedia        = "No media found."
)

const (
	pageTextLimit     = 3000
	headingReadLimit  = 15
	linkReadLimit     = 10
	summaryItemLimit  = 5
	clickReplyLimit   = 50
	timeLayout        = "3:04:05 PM"
	dateLayout        = "Monday, January 2, 2006"
	youtubeResultsURL = "https://www.youtube.com/results?search_query="
)

func readPageReply(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "I couldn't find readable content on this page."
	}
	runes := []rune(text)
	if len(runes) < pageTextLimit {
		return "Reading page content. " + text
	}
	return "Reading page content. " + string(runes[:pageTextLimit]) +
		"... Content truncated. Say 'scroll down' and 'read page' for more."
}

func headingsReply(headings []domain.Heading) string {
	if len(headings) == 0 {
		return "No headings found on this page."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d headings. ", len(headings))
	limit := min(len(headings), headingReadLimit)
	for _, h := range headings[:limit] {
		fmt.Fprintf(&b, "Level %d: %s. ", h.Level, strings.TrimSpace(h.Text))
	}
	if len(headings) > limit {
		fmt.Fprintf(&b, "And %d more. Say 'next heading' to navigate.", len(headings)-limit)
	}
	return strings.TrimSpace(b.String())
}

func linksReply(links []domain.Element) string {
	if len(links) == 0 {
		return "No links found on this page."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d links. ", len(links))
	limit := min(len(links), linkReadLimit)
	for i, link := range links[:limit] {
		fmt.Fprintf(&b, "%d: %s. ", i+1, strings.TrimSpace(link.Text))
	}
	if len(links) > limit {
		fmt.Fprintf(&b, "And %d more. Say 'next link' to navigate through them.", len(links)-limit)
	}
	return strings.TrimSpace(b.String())
}

func headingPositionReply(index int, headings []domain.Heading) string {
	h := headings[index]
	return fmt.Sprintf("Heading %d of %d. Level %d: %s", index+1, len(headings), h.Level, strings.TrimSpace(h.Text))
}

func linkPositionReply(index int, links []domain.Element) string {
	return fmt.Sprintf("Link %d of %d: %s. Say 'click' to open it.", index+1, len(links), strings.TrimSpace(links[index].Text))
}

func skipReply(seconds int) string {
	if seconds > 0 {
		return fmt.Sprintf("Forward %d seconds.", seconds)
	}
	return fmt.Sprintf("Backward %d seconds.", -seconds)
}

func volumeReply(volume float64) string {
	return fmt.Sprintf("Volume %d percent.", int(math.Round(volume*100)))
}

func watchReply(info domain.WatchInfo) string {
	var b strings.Builder
	b.WriteString("You are watching a YouTube video. ")
	if info.Title != "" {
		fmt.Fprintf(&b, "Title: %s. ", info.Title)
	}
	if info.Channel != "" {
		fmt.Fprintf(&b, "By %s. ", info.Channel)
	}
	if info.Duration > 0 {
		fmt.Fprintf(&b, "Duration: %d minutes and %d seconds. ", int(info.Duration)/60, int(info.Duration)%60)
		fmt.Fprintf(&b, "You are at %d minutes and %d seconds.", int(info.Position)/60, int(info.Position)%60)
	}
	return strings.TrimSpace(b.String())
}

func listingReply(titles []string, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "YouTube page with %d videos. ", total)
	for i, title := range titles {
		if i >= summaryItemLimit {
			break
		}
		if title = strings.TrimSpace(title); title != "" {
			fmt.Fprintf(&b, "%d: %s. ", i+1, title)
		}
	}
	return strings.TrimSpace(b.String())
}

func pageSummaryReply(title string, sections []string, links int) string {
	if title == "" {
		title = "Untitled"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Page: %s. ", title)
	if len(sections) > 0 {
		b.WriteString("Main sections: ")
		for _, section := range sections {
			b.WriteString(strings.TrimSpace(section) + ". ")
		}
	}
	fmt.Fprintf(&b, "There are %d links on this page.", links)
	return b.String()
}

func whereAmIReply(info domain.PageInfo) string {
	title := info.Title
	if title == "" {
		title = "Untitled page"
	}
	host := info.Host
	if host == "" {
		host = "unknown site"
	}
	return fmt.Sprintf("You are on %s, on %s.", title, host)
}
