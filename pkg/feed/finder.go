package feed

import (
	"bytes"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/umputun/feedsync/pkg/domain"
)

// feed mime types of <link rel="alternate"> elements
var feedTypes = []string{"application/rss+xml", "application/atom+xml", "application/feed+json", "application/json",
	"application/rdf+xml", "application/x.atom+xml", "text/xml"}

// url endings of body links that usually point to feeds
var feedSuffixes = []string{".rss", ".atom", ".xml", "/rss", "/rss/", "/feed", "/feed/", "/atom", "/atom/", "/feed.json"}

// ErrHTMLPage is returned by Fetch for an html page, with the feed urls the page links to
type ErrHTMLPage struct {
	URL      string
	FeedURLs []string
}

func (e *ErrHTMLPage) Error() string {
	return fmt.Sprintf("%s is a web page with %d feed links", e.URL, len(e.FeedURLs))
}

// Unwrap makes errors.Is(err, domain.ErrNoFeedFound) work
func (e *ErrHTMLPage) Unwrap() error { return domain.ErrNoFeedFound }

// FeedLinks returns feed urls of an html page, best first. Feeds declared in the head win. Without them
// body links looking like feeds are used, and with none of those the usual /feed/ and /index.xml
// locations under the page are suggested.
func FeedLinks(page []byte, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("parse page url %q: %w", pageURL, domain.ErrInvalidParameter)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("create document from reader: %w", err)
	}

	var res []string
	seen := make(map[string]bool)
	add := func(href string) {
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		u := base.ResolveReference(ref)
		if u.Scheme != "http" && u.Scheme != "https" {
			return
		}
		u.Fragment = ""
		if s := u.String(); !seen[s] {
			seen[s] = true
			res = append(res, s)
		}
	}

	doc.Find(`link[rel~="alternate"]`).Each(func(_ int, s *goquery.Selection) {
		if isFeedType(s.AttrOr("type", "")) {
			add(s.AttrOr("href", ""))
		}
	})
	if len(res) > 0 {
		return res, nil
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if looksLikeFeed(s.AttrOr("href", "")) {
			add(s.AttrOr("href", ""))
		}
	})
	if len(res) > 0 {
		return res, nil
	}

	dir := *base
	dir.RawQuery, dir.Fragment = "", ""
	wordpress := dir.JoinPath("feed")
	wordpress.Path += "/"
	add(wordpress.String())
	add(dir.JoinPath("index.xml").String())
	return res, nil
}

// isHTML checks the start of data for html markup
func isHTML(data []byte) bool {
	head := bytes.ToLower(data[:min(len(data), 1024)])
	for _, marker := range []string{"<!doctype html", "<html", "<head", "<body"} {
		if bytes.Contains(head, []byte(marker)) {
			return true
		}
	}
	return false
}

func isFeedType(t string) bool {
	t = strings.ToLower(strings.TrimSpace(t))
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return slices.Contains(feedTypes, t)
}

func looksLikeFeed(href string) bool {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return false
	}
	p := strings.ToLower(u.Path)
	for _, suffix := range feedSuffixes {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(u.Host), "feedburner")
}
