// Package favicon discovers feed icons from home pages and keeps the downloaded images in a disk cache
package favicon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	log "github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"
)

const (
	maxPageSize   = 2 << 20
	maxIconSize   = 1 << 20
	prefetchLimit = 4
)

// ErrNoIcon is returned when neither the page nor the site root has an icon
var ErrNoIcon = errors.New("no icon")

// icon link selectors in order of preference
var selectors = []string{
	`link[rel~="icon"]`,
	`link[rel="shortcut icon"]`,
	`link[rel="apple-touch-icon"]`,
	`link[rel="apple-touch-icon-precomposed"]`,
}

// Cache is the blob store for icon urls and images, implemented by diskcache.Cache
type Cache interface {
	Get(key string) []byte
	Set(key string, data []byte)
}

// Finder discovers and downloads icons
type Finder struct {
	client    *http.Client
	cache     Cache
	userAgent string
}

// New makes a finder
func New(cache Cache, timeout time.Duration, userAgent string) *Finder {
	if userAgent == "" {
		userAgent = "feedsync"
	}
	return &Finder{client: &http.Client{Timeout: timeout}, cache: cache, userAgent: userAgent}
}

// IconURL returns the icon url declared by the home page, or /favicon.ico of its site if the page
// declares none and the file exists. Found urls are cached.
func (f *Finder) IconURL(ctx context.Context, homePageURL string) (string, error) {
	key := "url:" + homePageURL
	if cached := f.cache.Get(key); cached != nil {
		return string(cached), nil
	}

	base, err := url.Parse(homePageURL)
	if err != nil || base.Host == "" {
		return "", fmt.Errorf("parse home page url %q: %w", homePageURL, ErrNoIcon)
	}

	iconURL, err := f.declaredIcon(ctx, base)
	if err != nil {
		log.Printf("[DEBUG] can't read %s: %v", homePageURL, err)
	}
	if iconURL == "" {
		fallback := base.ResolveReference(&url.URL{Path: "/favicon.ico"}).String()
		if _, err := f.Icon(ctx, fallback); err != nil {
			return "", fmt.Errorf("icon of %s: %w", homePageURL, ErrNoIcon)
		}
		iconURL = fallback
	}
	f.cache.Set(key, []byte(iconURL))
	return iconURL, nil
}

// Icon returns image bytes of the icon url, downloading it on a cache miss
func (f *Finder) Icon(ctx context.Context, iconURL string) ([]byte, error) {
	key := "icon:" + iconURL
	if cached := f.cache.Get(key); cached != nil {
		return cached, nil
	}
	data, err := f.get(ctx, iconURL, maxIconSize)
	if err != nil {
		return nil, fmt.Errorf("download icon %s: %w", iconURL, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("download icon %s: empty body: %w", iconURL, ErrNoIcon)
	}
	f.cache.Set(key, data)
	return data, nil
}

// Prefetch downloads icons concurrently, failures are logged
func (f *Finder) Prefetch(ctx context.Context, iconURLs []string) {
	g := errgroup.Group{}
	g.SetLimit(prefetchLimit)
	seen := make(map[string]bool)
	for _, u := range iconURLs {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		g.Go(func() error {
			if _, err := f.Icon(ctx, u); err != nil {
				log.Printf("[DEBUG] prefetch: %v", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (f *Finder) declaredIcon(ctx context.Context, base *url.URL) (string, error) {
	page, err := f.get(ctx, base.String(), maxPageSize)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("create document from reader: %w", err)
	}
	for _, sel := range selectors {
		href, ok := doc.Find(sel).First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			continue
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			continue
		}
		return base.ResolveReference(ref).String(), nil
	}
	return "", nil
}

func (f *Finder) get(ctx context.Context, u string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("do request: unexpected status: %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}
