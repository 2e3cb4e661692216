// Package local runs the local account. There is no sync service, feeds are downloaded directly
// from their hosts and the graph changes only locally.
package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	log "github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/feedsync/pkg/account"
	"github.com/umputun/feedsync/pkg/domain"
	"github.com/umputun/feedsync/pkg/feed"
	"github.com/umputun/feedsync/pkg/queue"
)

const defaultMaxWorkers = 8

// Provider downloads one feed
type Provider interface {
	Fetch(ctx context.Context, req feed.Request) (feed.Result, error)
}

// SpecialProvider is a provider for a subset of urls, like reddit pages
type SpecialProvider interface {
	Provider
	Accepts(url string) bool
}

// IconFinder discovers the favicon of a home page
type IconFinder interface {
	IconURL(ctx context.Context, homePageURL string) (string, error)
}

// Account is the graph of the local account, implemented by account.Account
type Account interface {
	ID() string
	BeginBatch() *account.Batch
	FlattenedFeeds() []account.Feed
	ExistingFeed(feedID string) (account.Feed, bool)
	FeedByURL(url string) (account.Feed, bool)
	CreateFeed(feedID, url, name, homePageURL string) account.Feed
	UpdateFeed(feedID string, fn func(f *account.Feed)) error
	AddFeed(feedID, containerID string) error
	RemoveFeed(feedID, containerID string) error
	ContainersOf(feedID string) []string
	EnsureFolder(name string) account.Folder
	FolderByName(name string) (account.Folder, bool)
	FolderByID(id string) (account.Folder, bool)
	RemoveFolder(id string) error
	RenameFolder(id, name string) error
	Update(ctx context.Context, feedID string, items []domain.ParsedItem) (domain.NewAndUpdated, error)
}

// Params for the delegate
type Params struct {
	Account    Account
	Parser     Provider          // rss, atom and json feeds
	Special    []SpecialProvider // tried before the parser, the first accepting one wins
	Icons      IconFinder        // optional
	MaxWorkers int
}

// Delegate refreshes the feeds of the local account
type Delegate struct {
	acc        Account
	parser     Provider
	special    []SpecialProvider
	icons      IconFinder
	maxWorkers int

	running atomic.Bool
	total   atomic.Int32
	done    atomic.Int32
}

// NewDelegate makes a local delegate
func NewDelegate(p Params) *Delegate {
	if p.MaxWorkers <= 0 {
		p.MaxWorkers = defaultMaxWorkers
	}
	return &Delegate{acc: p.Account, parser: p.Parser, special: p.Special, icons: p.Icons, maxWorkers: p.MaxWorkers}
}

// AccountID returns id of the local account
func (d *Delegate) AccountID() string { return d.acc.ID() }

// Progress reports downloaded feeds of the running refresh
func (d *Delegate) Progress() queue.Progress {
	if !d.running.Load() {
		return queue.Progress{}
	}
	total, done := int(d.total.Load()), int(d.done.Load())
	return queue.Progress{Total: total, Completed: done, Remaining: total - done}
}

// RefreshAll downloads every feed of the account. A failing feed is logged and skipped.
// A call made while a refresh is running returns nil right away.
func (d *Delegate) RefreshAll(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		log.Printf("[DEBUG] refresh of %s already in progress", d.acc.ID())
		return nil
	}
	defer d.running.Store(false)

	feeds := d.acc.FlattenedFeeds()
	d.total.Store(int32(len(feeds))) //nolint:gosec // feed count is small
	d.done.Store(0)
	log.Printf("[INFO] refreshing %d feeds of %s", len(feeds), d.acc.ID())
	start := time.Now()

	var failed atomic.Int32
	g := errgroup.Group{}
	g.SetLimit(d.maxWorkers)
	for _, f := range feeds {
		g.Go(func() error {
			defer d.done.Add(1)
			if ctx.Err() != nil {
				return nil
			}
			if err := d.refreshFeed(ctx, f); err != nil {
				failed.Add(1)
				log.Printf("[WARN] failed to refresh feed %s: %v", f.URL, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("refresh %s: %w", d.acc.ID(), err)
	}
	log.Printf("[INFO] refreshed %s in %v, %d of %d feeds failed", d.acc.ID(), time.Since(start), failed.Load(), len(feeds))
	return nil
}

// RefreshFeed downloads one feed of the account
func (d *Delegate) RefreshFeed(ctx context.Context, feedID string) error {
	f, ok := d.acc.ExistingFeed(feedID)
	if !ok {
		return fmt.Errorf("refresh feed %s: %w", feedID, domain.ErrFeedNotFound)
	}
	return d.refreshFeed(ctx, f)
}

func (d *Delegate) refreshFeed(ctx context.Context, f account.Feed) error {
	res, err := d.provider(f.URL).Fetch(ctx, feed.Request{URL: f.URL, ConditionalGet: f.ConditionalGet, ContentHash: f.ContentHash})
	if err != nil {
		return err
	}
	if res.Unchanged {
		log.Printf("[DEBUG] feed %s not changed", f.URL)
		return d.acc.UpdateFeed(f.FeedID, func(af *account.Feed) { af.ConditionalGet = res.ConditionalGet })
	}

	nu, err := d.acc.Update(ctx, f.FeedID, res.Feed.Items)
	if err != nil {
		return fmt.Errorf("store items of %s: %w", f.URL, err)
	}
	if len(nu.New) > 0 {
		log.Printf("[INFO] added %d new items from feed %s", len(nu.New), f.URL)
	}

	iconURL := res.Feed.IconURL
	if iconURL == "" && f.FaviconURL == "" {
		iconURL = d.findIcon(ctx, firstNonEmpty(res.Feed.HomePageURL, f.HomePageURL))
	}
	return d.acc.UpdateFeed(f.FeedID, func(af *account.Feed) {
		af.ConditionalGet = res.ConditionalGet
		af.ContentHash = res.ContentHash
		if res.Feed.Title != "" {
			af.Name = res.Feed.Title
		}
		if res.Feed.HomePageURL != "" {
			af.HomePageURL = res.Feed.HomePageURL
		}
		if iconURL != "" {
			af.FaviconURL = iconURL
		}
	})
}

// CreateFeed downloads url and adds the feed to folder, empty folder is the account root.
// For a web page url the first feed the page links to is used.
// The feed id of a local feed is its url.
func (d *Delegate) CreateFeed(ctx context.Context, url, name, folder string) (account.Feed, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return account.Feed{}, fmt.Errorf("create feed: empty url: %w", domain.ErrInvalidParameter)
	}
	if _, ok := d.acc.FeedByURL(url); ok {
		return account.Feed{}, fmt.Errorf("create feed %s: %w", url, domain.ErrAlreadySubscribed)
	}

	res, err := d.provider(url).Fetch(ctx, feed.Request{URL: url})
	var page *feed.ErrHTMLPage
	if errors.As(err, &page) {
		if url, res, err = d.discover(ctx, page); err == nil {
			if _, ok := d.acc.FeedByURL(url); ok {
				return account.Feed{}, fmt.Errorf("create feed %s: %w", url, domain.ErrAlreadySubscribed)
			}
		}
	}
	if err != nil {
		if errors.Is(err, domain.ErrNoFeedFound) {
			return account.Feed{}, fmt.Errorf("create feed: %w", err)
		}
		return account.Feed{}, fmt.Errorf("create feed %s: %v: %w", url, err, domain.ErrNoFeedFound)
	}

	containerID := account.Root
	if folder != "" {
		containerID = d.acc.EnsureFolder(folder).ID
	}

	b := d.acc.BeginBatch()
	defer b.End()
	d.acc.CreateFeed(url, url, res.Feed.Title, res.Feed.HomePageURL)
	iconURL := res.Feed.IconURL
	if iconURL == "" {
		iconURL = d.findIcon(ctx, res.Feed.HomePageURL)
	}
	err = d.acc.UpdateFeed(url, func(f *account.Feed) {
		f.ConditionalGet = res.ConditionalGet
		f.ContentHash = res.ContentHash
		f.FaviconURL = iconURL
		if name != "" && name != res.Feed.Title {
			f.EditedName = name
		}
	})
	if err != nil {
		return account.Feed{}, fmt.Errorf("create feed %s: %w", url, err)
	}
	if err := d.acc.AddFeed(url, containerID); err != nil {
		return account.Feed{}, fmt.Errorf("create feed %s: %w", url, err)
	}
	if _, err := d.acc.Update(ctx, url, res.Feed.Items); err != nil {
		return account.Feed{}, fmt.Errorf("store items of %s: %w", url, err)
	}

	created, _ := d.acc.ExistingFeed(url)
	log.Printf("[INFO] subscribed %s to %s", d.acc.ID(), url)
	return created, nil
}

// DeleteFeed removes the feed from the container. Articles stay, validators are dropped with the last container.
func (d *Delegate) DeleteFeed(_ context.Context, feedID, containerID string) error {
	if _, ok := d.acc.ExistingFeed(feedID); !ok {
		return fmt.Errorf("delete feed %s: %w", feedID, domain.ErrFeedNotFound)
	}
	if err := d.acc.RemoveFeed(feedID, containerID); err != nil {
		return fmt.Errorf("delete feed %s: %w", feedID, err)
	}
	if len(d.acc.ContainersOf(feedID)) == 0 {
		return d.acc.UpdateFeed(feedID, func(f *account.Feed) {
			f.ConditionalGet = domain.ConditionalGetInfo{}
			f.ContentHash = ""
		})
	}
	return nil
}

// RenameFeed sets the edited name
func (d *Delegate) RenameFeed(_ context.Context, feedID, name string) error {
	return d.acc.UpdateFeed(feedID, func(f *account.Feed) { f.EditedName = name })
}

// MoveFeed moves a feed between containers
func (d *Delegate) MoveFeed(_ context.Context, feedID, fromContainer, toContainer string) error {
	b := d.acc.BeginBatch()
	defer b.End()
	if err := d.acc.AddFeed(feedID, toContainer); err != nil {
		return fmt.Errorf("move feed %s: %w", feedID, err)
	}
	if err := d.acc.RemoveFeed(feedID, fromContainer); err != nil {
		return fmt.Errorf("move feed %s: %w", feedID, err)
	}
	return nil
}

// CreateFolder makes a folder
func (d *Delegate) CreateFolder(_ context.Context, name string) (account.Folder, error) {
	if _, ok := d.acc.FolderByName(name); ok {
		return account.Folder{}, fmt.Errorf("create folder %q: %w", name, domain.ErrFolderExists)
	}
	return d.acc.EnsureFolder(name), nil
}

// RenameFolder renames a folder
func (d *Delegate) RenameFolder(_ context.Context, folderID, name string) error {
	return d.acc.RenameFolder(folderID, name)
}

// RemoveFolder deletes a folder, its feeds stay in other containers they are in
func (d *Delegate) RemoveFolder(_ context.Context, folderID string) error {
	return d.acc.RemoveFolder(folderID)
}

// discover tries the feed links of a web page in order, the first one that downloads and parses wins
func (d *Delegate) discover(ctx context.Context, page *feed.ErrHTMLPage) (string, feed.Result, error) {
	for _, u := range page.FeedURLs {
		res, err := d.provider(u).Fetch(ctx, feed.Request{URL: u})
		if err != nil {
			log.Printf("[DEBUG] feed link %s of %s: %v", u, page.URL, err)
			continue
		}
		log.Printf("[INFO] found feed %s on %s", u, page.URL)
		return u, res, nil
	}
	return "", feed.Result{}, fmt.Errorf("no feed links of %s work: %w", page.URL, domain.ErrNoFeedFound)
}

func (d *Delegate) provider(url string) Provider {
	for _, p := range d.special {
		if p.Accepts(url) {
			return p
		}
	}
	return d.parser
}

func (d *Delegate) findIcon(ctx context.Context, homePageURL string) string {
	if d.icons == nil || homePageURL == "" {
		return ""
	}
	icon, err := d.icons.IconURL(ctx, homePageURL)
	if err != nil {
		log.Printf("[DEBUG] no favicon for %s: %v", homePageURL, err)
		return ""
	}
	return icon
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
