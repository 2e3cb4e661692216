// Package feed downloads and parses RSS, Atom and JSON feeds for the local account.
package feed

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // content fingerprint, not a security hash
	"encoding/hex"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/umputun/feedsync/pkg/dateparser"
	"github.com/umputun/feedsync/pkg/domain"
)

const maxFeedSize = 32 << 20

// acceptLanguages contains common browser Accept-Language values
var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-US,en;q=0.9,es;q=0.8",
	"en-US,en;q=0.9,de;q=0.8",
}

// Parser downloads feeds with conditional requests and parses them with gofeed
type Parser struct {
	client    *http.Client
	userAgent string
	policy    *bluemonday.Policy
}

// NewParser creates a new feed parser
func NewParser(timeout time.Duration, userAgent string) *Parser {
	if userAgent == "" {
		userAgent = "feedsync"
	}
	return &Parser{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: userAgent,
		policy:    bluemonday.UGCPolicy(),
	}
}

// Fetch downloads the feed and parses it unless the server or the content hash says nothing changed
func (p *Parser) Fetch(ctx context.Context, req Request) (Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, http.NoBody)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", p.userAgent)
	addBrowserHeaders(httpReq)
	if req.ConditionalGet.ETag != "" {
		httpReq.Header.Set("If-None-Match", req.ConditionalGet.ETag)
	}
	if req.ConditionalGet.LastModified != "" {
		httpReq.Header.Set("If-Modified-Since", req.ConditionalGet.LastModified)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("fetch %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return Result{ConditionalGet: req.ConditionalGet, ContentHash: req.ContentHash, Unchanged: true}, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return Result{}, fmt.Errorf("fetch %s: status %d: %w", req.URL, resp.StatusCode, domain.ErrNoFeedFound)
	case resp.StatusCode != http.StatusOK:
		return Result{}, fmt.Errorf("fetch %s: unexpected status code: %d", req.URL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", req.URL, err)
	}
	res := Result{
		ConditionalGet: domain.ConditionalGetInfo{ETag: resp.Header.Get("ETag"), LastModified: resp.Header.Get("Last-Modified")},
		ContentHash:    ContentHash(data),
	}
	if req.ContentHash != "" && res.ContentHash == req.ContentHash {
		log.Printf("[DEBUG] feed %s content unchanged", req.URL)
		res.Unchanged = true
		return res, nil
	}
	if res.Feed, err = p.Parse(data); err != nil {
		if isHTML(data) {
			links, lerr := FeedLinks(data, req.URL)
			if lerr == nil {
				return Result{}, &ErrHTMLPage{URL: req.URL, FeedURLs: links}
			}
			log.Printf("[DEBUG] can't read feed links of %s: %v", req.URL, lerr)
		}
		return Result{}, fmt.Errorf("parse %s: %w", req.URL, err)
	}
	return res, nil
}

// Parse converts feed data to a parsed feed with sanitized html
func (p *Parser) Parse(data []byte) (ParsedFeed, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return ParsedFeed{}, err
	}

	res := ParsedFeed{Title: strings.TrimSpace(feed.Title), HomePageURL: feed.Link, Items: make([]domain.ParsedItem, 0, len(feed.Items))}
	if feed.Image != nil {
		res.IconURL = feed.Image.URL
	}
	for _, item := range feed.Items {
		parsed := domain.ParsedItem{
			UniqueID:      uniqueID(feed, item),
			URL:           item.Link,
			Title:         strings.TrimSpace(item.Title),
			ContentHTML:   p.policy.Sanitize(item.Content),
			Summary:       p.policy.Sanitize(item.Description),
			DatePublished: itemDate(item.PublishedParsed, item.Published),
			DateModified:  itemDate(item.UpdatedParsed, item.Updated),
			Tags:          item.Categories,
		}
		if parsed.ContentHTML == "" {
			parsed.ContentHTML, parsed.Summary = parsed.Summary, ""
		}
		if parsed.DatePublished == nil {
			parsed.DatePublished = parsed.DateModified
		}
		for _, a := range item.Authors {
			if a != nil && a.Name != "" {
				parsed.Authors = append(parsed.Authors, a.Name)
			}
		}
		if len(parsed.Authors) == 0 && item.Author != nil && item.Author.Name != "" {
			parsed.Authors = []string{item.Author.Name}
		}
		parsed.ImageURL = imageURL(item)
		res.Items = append(res.Items, parsed)
	}
	return res, nil
}

// ContentHash is the md5 fingerprint of feed data
func ContentHash(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec // fingerprint only
	return hex.EncodeToString(sum[:])
}

// uniqueID is guid, link, or title with date as the last resort
func uniqueID(feed *gofeed.Feed, item *gofeed.Item) string {
	switch {
	case item.GUID != "":
		return item.GUID
	case item.Link != "":
		return item.Link
	default:
		return fmt.Sprintf("%s-%s-%s", feed.Title, item.Title, item.Published)
	}
}

// itemDate takes the date gofeed parsed, or tries the raw value with the dateparser
func itemDate(parsed *time.Time, raw string) *time.Time {
	if parsed != nil {
		t := parsed.UTC()
		return &t
	}
	if raw == "" {
		return nil
	}
	t, ok := dateparser.ParseString(raw)
	if !ok {
		return nil
	}
	return &t
}

func imageURL(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

// addBrowserHeaders makes feed requests look like a browser, some hosts reject bare clients
func addBrowserHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/rss+xml,application/atom+xml,application/feed+json,application/xml;q=0.9,text/xml;q=0.8,*/*;q=0.5")
	req.Header.Set("Accept-Language", acceptLanguages[rand.Intn(len(acceptLanguages))]) //nolint:gosec // header variation only
}
