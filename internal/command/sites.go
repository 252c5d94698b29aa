package command

import (
	"net/url"
	"sort"
	"strings"
)

// Site is a spoken name and the address it opens.
type Site struct {
	Name string
	URL  string
}

var defaultSites = []Site{
	{Name: "youtube", URL: "https://www.youtube.com"},
	{Name: "google", URL: "https://www.google.com"},
	{Name: "wikipedia", URL: "https://www.wikipedia.org"},
	{Name: "gmail", URL: "https://mail.google.com"},
	{Name: "twitter", URL: "https://www.twitter.com"},
	{Name: "reddit", URL: "https://www.reddit.com"},
	{Name: "facebook", URL: "https://www.facebook.com"},
	{Name: "amazon", URL: "https://www.amazon.com"},
	{Name: "netflix", URL: "https://www.netflix.com"},
	{Name: "github", URL: "https://www.github.com"},
}

// SiteMap resolves spoken site names. Extra sites are consulted before the
// built-in ones.
type SiteMap struct {
	sites []Site
}

// NewSiteMap builds a map from extra name/url pairs plus the defaults.
func NewSiteMap(extra map[string]string) SiteMap {
	m := SiteMap{}
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	// longest first so "google maps" wins over "google"
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || strings.TrimSpace(extra[name]) == "" {
			continue
		}
		m.sites = append(m.sites, Site{Name: key, URL: strings.TrimSpace(extra[name])})
	}
	m.sites = append(m.sites, defaultSites...)
	return m
}

// Resolve returns the URL to open and the reply to speak.
func (m SiteMap) Resolve(site string) (string, string) {
	site = strings.TrimSpace(site)
	for _, known := range m.sites {
		if strings.Contains(site, known.Name) {
			return known.URL, "Opening " + known.Name + "."
		}
	}
	if strings.Contains(site, ".") {
		target := site
		if !strings.HasPrefix(target, "http") {
			target = "https://" + strings.ReplaceAll(target, " ", "")
		}
		return target, "Opening " + site + "."
	}
	return "https://www.google.com/search?q=" + url.QueryEscape(site), "Searching Google for " + site + "."
}
