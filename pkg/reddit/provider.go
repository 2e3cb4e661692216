// Package reddit is a feed provider for subreddit and user pages, it reads the public json listings.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/feedsync/pkg/domain"
	"github.com/umputun/feedsync/pkg/feed"
	"github.com/umputun/feedsync/pkg/htmlentity"
	"github.com/umputun/feedsync/pkg/transport"
)

// DefaultBaseURL of the reddit json listings
const DefaultBaseURL = "https://www.reddit.com/"

var sorts = map[string]bool{"hot": true, "new": true, "rising": true, "top": true, "best": true, "controversial": true}

// Listing is a page of things
type Listing struct {
	Data struct {
		Children []Thing `json:"children"`
		After    string  `json:"after"`
	} `json:"data"`
}

// Thing wraps a link
type Thing struct {
	Kind string `json:"kind"`
	Data Link   `json:"data"`
}

// Link is a post
type Link struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name"`
	Title                 string  `json:"title"`
	Permalink             string  `json:"permalink"`
	URL                   string  `json:"url"`
	SubredditNamePrefixed string  `json:"subreddit_name_prefixed"`
	SelfTextHTML          string  `json:"selftext_html"`
	Author                string  `json:"author"`
	CreatedUTC            float64 `json:"created_utc"`
	Thumbnail             string  `json:"thumbnail"`
	PostHint              string  `json:"post_hint"`
	IsSelf                bool    `json:"is_self"`
}

// Params for New
type Params struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Provider fetches reddit listings as feeds
type Provider struct {
	caller *transport.Caller
}

// New makes a provider
func New(p Params) (*Provider, error) {
	if p.BaseURL == "" {
		p.BaseURL = DefaultBaseURL
	}
	caller, err := transport.NewCaller(transport.Params{BaseURL: p.BaseURL, Timeout: p.Timeout, UserAgent: p.UserAgent})
	if err != nil {
		return nil, fmt.Errorf("make reddit caller: %w", err)
	}
	return &Provider{caller: caller}, nil
}

// Accepts reports if the url is a reddit page the provider can read
func (p *Provider) Accepts(feedURL string) bool {
	_, _, err := listingPath(feedURL)
	return err == nil
}

// Fetch reads the listing of the page url. A not modified answer gives an unchanged result.
func (p *Provider) Fetch(ctx context.Context, req feed.Request) (feed.Result, error) {
	path, title, err := listingPath(req.URL)
	if err != nil {
		return feed.Result{}, err
	}
	resp, err := p.caller.Do(ctx, transport.Request{Path: path, ConditionalGet: req.ConditionalGet})
	if errors.Is(err, transport.ErrNotModified) {
		return feed.Result{ConditionalGet: req.ConditionalGet, ContentHash: req.ContentHash, Unchanged: true}, nil
	}
	if errors.Is(err, transport.ErrNotFound) {
		return feed.Result{}, fmt.Errorf("reddit listing %s: %w", path, domain.ErrNoFeedFound)
	}
	if err != nil {
		return feed.Result{}, fmt.Errorf("reddit listing %s: %w", path, err)
	}
	res := feed.Result{ConditionalGet: resp.ConditionalGet, ContentHash: feed.ContentHash(resp.Body)}
	if req.ContentHash != "" && req.ContentHash == res.ContentHash {
		res.Unchanged = true
		return res, nil
	}
	var listing Listing
	if err := json.Unmarshal(resp.Body, &listing); err != nil {
		return feed.Result{}, fmt.Errorf("decode reddit listing %s: %w", path, err)
	}
	res.Feed = feed.ParsedFeed{Title: title, HomePageURL: homePage(path), Items: toItems(listing, !strings.HasPrefix(path, "r/"))}
	log.Printf("[DEBUG] reddit %s: %d posts", path, len(res.Feed.Items))
	return res, nil
}

// listingPath maps a page url to the json listing path and a feed title.
// Subreddits are r/{name}[/{sort}], users are u/{name} or user/{name}.
func listingPath(pageURL string) (path, title string, err error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", "", fmt.Errorf("parse %q: %w", pageURL, domain.ErrInvalidParameter)
	}
	host := strings.ToLower(u.Hostname())
	if host != "reddit.com" && !strings.HasSuffix(host, ".reddit.com") {
		return "", "", fmt.Errorf("not a reddit url %q: %w", pageURL, domain.ErrInvalidParameter)
	}
	parts := strings.Split(strings.Trim(strings.TrimSuffix(u.Path, ".json"), "/"), "/")
	if len(parts) < 2 || parts[1] == "" {
		return "", "", fmt.Errorf("no subreddit or user in %q: %w", pageURL, domain.ErrInvalidParameter)
	}
	switch strings.ToLower(parts[0]) {
	case "r":
		sort := "hot"
		if len(parts) > 2 && sorts[strings.ToLower(parts[2])] {
			sort = strings.ToLower(parts[2])
		}
		return "r/" + parts[1] + "/" + sort + ".json", "r/" + parts[1], nil
	case "u", "user":
		return "user/" + parts[1] + "/submitted.json", "u/" + parts[1], nil
	default:
		return "", "", fmt.Errorf("no subreddit or user in %q: %w", pageURL, domain.ErrInvalidParameter)
	}
}

func homePage(path string) string {
	p := strings.TrimSuffix(path, ".json")
	if strings.HasPrefix(p, "r/") {
		p = strings.Join(strings.Split(p, "/")[:2], "/")
	}
	return DefaultBaseURL + p
}

func toItems(listing Listing, identifySubreddit bool) []domain.ParsedItem {
	res := make([]domain.ParsedItem, 0, len(listing.Data.Children))
	for _, th := range listing.Data.Children {
		if th.Kind != "t3" {
			continue
		}
		l := th.Data
		item := domain.ParsedItem{
			UniqueID:    l.Name,
			URL:         "https://www.reddit.com" + l.Permalink,
			ExternalURL: l.URL,
			Title:       htmlentity.Decode(l.Title),
			ContentHTML: renderHTML(l, identifySubreddit),
		}
		if item.UniqueID == "" {
			item.UniqueID = "t3_" + l.ID
		}
		if l.CreatedUTC > 0 {
			t := time.Unix(int64(l.CreatedUTC), 0).UTC()
			item.DatePublished = &t
		}
		if l.Author != "" {
			item.Authors = []string{"u/" + l.Author}
		}
		if strings.HasPrefix(l.Thumbnail, "http") {
			item.ImageURL = l.Thumbnail
		}
		res = append(res, item)
	}
	return res
}

func renderHTML(l Link, identifySubreddit bool) string {
	var sb strings.Builder
	if identifySubreddit && l.SubredditNamePrefixed != "" {
		fmt.Fprintf(&sb, `<h3><a href="https://www.reddit.com/%s">%s</a></h3>`, l.SubredditNamePrefixed, l.SubredditNamePrefixed)
	}
	if l.SelfTextHTML != "" {
		sb.WriteString(htmlentity.Decode(l.SelfTextHTML))
	}
	if l.IsSelf || l.URL == "" {
		return sb.String()
	}
	switch {
	case l.PostHint == "image" || strings.HasSuffix(l.URL, ".gif") || strings.HasSuffix(l.URL, ".jpg") || strings.HasSuffix(l.URL, ".png"):
		fmt.Fprintf(&sb, `<img src="%s">`, html.EscapeString(l.URL))
	default:
		u, err := url.Parse(l.URL)
		if err != nil || u.Host == "" {
			return sb.String()
		}
		fmt.Fprintf(&sb, `<div><a href="%s">%s</a></div>`, html.EscapeString(l.URL), html.EscapeString(u.Host))
	}
	return sb.String()
}
