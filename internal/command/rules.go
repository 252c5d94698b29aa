// Package command resolves spoken commands and executes them against the page.
package command

import (
	"regexp"
	"strconv"
	"strings"

	"senseai/internal/domain"
)

// DefaultSkipSeconds is used when a skip command carries no number.
const DefaultSkipSeconds = 10

// Rule maps a transcript predicate to an action. Rules are evaluated in
// order and the first match wins.
type Rule struct {
	Name    string
	Action  domain.ActionID
	Match   func(cmd string) bool
	Extract func(cmd string) domain.Argument
}

// Resolver evaluates an ordered rule table.
type Resolver struct {
	rules []Rule
}

// NewResolver creates a resolver over rules. A nil table selects DefaultRules.
func NewResolver(rules []Rule) *Resolver {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Resolver{rules: rules}
}

// Resolve returns the command of the first matching rule, or ActionNotUnderstood.
func (r *Resolver) Resolve(text string) domain.Command {
	cmd := Normalize(text)
	for _, rule := range r.rules {
		if !rule.Match(cmd) {
			continue
		}
		resolved := domain.Command{Action: rule.Action, Rule: rule.Name, Transcript: cmd}
		if rule.Extract != nil {
			resolved.Arg = rule.Extract(cmd)
		}
		return resolved
	}
	return domain.Command{Action: domain.ActionNotUnderstood, Rule: "fallback", Transcript: cmd}
}

var defaultResolver = NewResolver(nil)

// Resolve resolves text against the default rule table.
func Resolve(text string) domain.Command {
	return defaultResolver.Resolve(text)
}

// Normalize lowercases, trims trailing sentence punctuation and collapses
// whitespace. Inner dots are kept so domain names survive.
func Normalize(text string) string {
	cmd := strings.ToLower(strings.Join(strings.Fields(text), " "))
	return strings.TrimRight(cmd, ".!?,;: ")
}

// DefaultRules returns the command table. Narrow phrases precede the broad
// substrings that would otherwise shadow them.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "stop-video", Action: domain.ActionPause, Match: anyOf("stop video")},
		{Name: "volume-down-soft", Action: domain.ActionVolumeDown, Match: anyOf("quieter", "softer")},
		{Name: "stop", Action: domain.ActionStopSpeech, Match: anyOf("stop", "shut up", "quiet", "cancel")},
		{Name: "sleep", Action: domain.ActionSleep, Match: either(anyOf("go to sleep", "sleep"), exactly("bye", "goodbye"))},
		{Name: "help", Action: domain.ActionHelp, Match: anyOf("help", "commands", "what can you do")},
		{Name: "read-page", Action: domain.ActionReadPage, Match: anyOf("read page", "read this page", "read content", "read everything")},
		{Name: "next-heading", Action: domain.ActionNextHeading, Match: anyOf("next heading")},
		{Name: "previous-heading", Action: domain.ActionPrevHeading, Match: anyOf("previous heading", "last heading")},
		{Name: "next-link", Action: domain.ActionNextLink, Match: anyOf("next link")},
		{Name: "previous-link", Action: domain.ActionPrevLink, Match: anyOf("previous link", "last link")},
		{Name: "read-headings", Action: domain.ActionReadHeadings, Match: anyOf("read headings", "list headings", "headings")},
		{Name: "read-links", Action: domain.ActionReadLinks, Match: anyOf("read links", "list links", "show links")},
		{Name: "read-selection", Action: domain.ActionReadSelection, Match: anyOf("read selection", "read selected")},
		{Name: "click", Action: domain.ActionClick, Match: isClick, Extract: clickTarget},
		{Name: "search", Action: domain.ActionYouTubeSearch, Match: anyOf("search for", "search youtube"), Extract: searchQuery},
		{Name: "play-first-video", Action: domain.ActionPlayFirstVideo, Match: anyOf("play first video", "play first")},
		{Name: "first-video-views", Action: domain.ActionFirstVideoViews, Match: allOf("views", "first")},
		{Name: "scroll-down", Action: domain.ActionScrollDown, Match: anyOf("scroll down", "go down", "page down")},
		{Name: "scroll-up", Action: domain.ActionScrollUp, Match: anyOf("scroll up", "go up", "page up")},
		{Name: "go-to-top", Action: domain.ActionScrollTop, Match: anyOf("go to top", "top of page", "scroll to top")},
		{Name: "go-to-bottom", Action: domain.ActionScrollBottom, Match: anyOf("go to bottom", "bottom of page", "scroll to bottom")},
		{Name: "go-back", Action: domain.ActionHistoryBack, Match: either(anyOf("go back"), exactly("back"))},
		{Name: "go-forward", Action: domain.ActionHistoryForward, Match: either(anyOf("go forward"), exactly("forward page"))},
		{Name: "reload", Action: domain.ActionReload, Match: anyOf("refresh", "reload")},
		{Name: "play", Action: domain.ActionPlay, Match: isPlay},
		{Name: "pause", Action: domain.ActionPause, Match: anyOf("pause")},
		{Name: "skip-forward", Action: domain.ActionSkipForward, Match: anyOf("forward", "skip"), Extract: seconds},
		{Name: "skip-backward", Action: domain.ActionSkipBackward, Match: anyOf("backward", "rewind"), Extract: seconds},
		{Name: "volume-up", Action: domain.ActionVolumeUp, Match: anyOf("volume up", "louder")},
		{Name: "volume-down", Action: domain.ActionVolumeDown, Match: anyOf("volume down")},
		{Name: "mute", Action: domain.ActionToggleMute, Match: anyOf("mute", "unmute")},
		{Name: "fullscreen", Action: domain.ActionFullscreen, Match: anyOf("fullscreen", "full screen")},
		{Name: "summarize", Action: domain.ActionSummarize, Match: anyOf("summarize", "summary", "describe page")},
		{Name: "where-am-i", Action: domain.ActionWhereAmI, Match: anyOf("where am i", "what page", "current page", "what website")},
		{Name: "time", Action: domain.ActionTime, Match: anyOf("time", "what time")},
		{Name: "date", Action: domain.ActionDate, Match: anyOf("date", "what date", "today")},
		{Name: "zoom-in", Action: domain.ActionZoomIn, Match: anyOf("zoom in", "make bigger", "increase size")},
		{Name: "zoom-out", Action: domain.ActionZoomOut, Match: anyOf("zoom out", "make smaller", "decrease size")},
		{Name: "zoom-reset", Action: domain.ActionZoomReset, Match: anyOf("reset zoom", "normal size")},
		{Name: "open-site", Action: domain.ActionOpenSite, Match: anyOf("open "), Extract: siteName},
		{Name: "greeting", Action: domain.ActionGreeting, Match: either(exactly("hello", "hi"), anyOf("how are you"))},
	}
}

func anyOf(needles ...string) func(string) bool {
	return func(cmd string) bool {
		for _, needle := range needles {
			if strings.Contains(cmd, needle) {
				return true
			}
		}
		return false
	}
}

func allOf(needles ...string) func(string) bool {
	return func(cmd string) bool {
		for _, needle := range needles {
			if !strings.Contains(cmd, needle) {
				return false
			}
		}
		return true
	}
}

func exactly(values ...string) func(string) bool {
	return func(cmd string) bool {
		for _, value := range values {
			if cmd == value {
				return true
			}
		}
		return false
	}
}

func either(a, b func(string) bool) func(string) bool {
	return func(cmd string) bool { return a(cmd) || b(cmd) }
}

func isClick(cmd string) bool {
	return cmd == "click" || strings.HasPrefix(cmd, "click ")
}

func isPlay(cmd string) bool {
	if !strings.Contains(cmd, "play") && !strings.Contains(cmd, "resume") {
		return false
	}
	return !strings.Contains(cmd, "pause") && !strings.Contains(cmd, "first") && !strings.Contains(cmd, "search")
}

var (
	numberPattern = regexp.MustCompile(`\d+`)
	searchPattern = regexp.MustCompile(`search for|search youtube|search`)
)

// ExtractNumber returns the first run of digits in text, or def.
func ExtractNumber(text string, def int) int {
	match := numberPattern.FindString(text)
	if match == "" {
		return def
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return def
	}
	return n
}

func seconds(cmd string) domain.Argument {
	return domain.Argument{Number: ExtractNumber(cmd, DefaultSkipSeconds)}
}

// SearchQuery strips the search verbs from cmd.
func SearchQuery(cmd string) string {
	return strings.Join(strings.Fields(searchPattern.ReplaceAllString(cmd, "")), " ")
}

func searchQuery(cmd string) domain.Argument {
	return domain.Argument{Text: SearchQuery(cmd)}
}

func clickTarget(cmd string) domain.Argument {
	return domain.Argument{Text: strings.TrimSpace(strings.TrimPrefix(cmd, "click"))}
}

func siteName(cmd string) domain.Argument {
	return domain.Argument{Text: strings.TrimSpace(strings.Replace(cmd, "open ", "", 1))}
}
