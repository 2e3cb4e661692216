package feedbin

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/feedsync/pkg/account"
	"github.com/umputun/feedsync/pkg/dateparser"
	"github.com/umputun/feedsync/pkg/domain"
)

const (
	maxEntriesPerRequest = 100
	statusChunkSize      = 1000
	historyCutoff        = 90 * 24 * time.Hour
)

// Service adapts the client to the reconcile engine
type Service struct {
	client *Client
	now    func() time.Time
}

// NewService makes a service for the client
func NewService(client *Client) *Service {
	return &Service{client: client, now: time.Now}
}

// Name of the service
func (s *Service) Name() string { return "feedbin" }

// Validate checks credentials
func (s *Service) Validate(ctx context.Context) error { return s.client.Authenticate(ctx) }

// FetchTaxonomy returns subscriptions, with tags as folders and taggings as relationships
func (s *Service) FetchTaxonomy(ctx context.Context) (domain.RemoteTaxonomy, error) {
	subs, err := s.client.Subscriptions(ctx)
	if err != nil {
		return domain.RemoteTaxonomy{}, err
	}
	taggings, err := s.client.Taggings(ctx)
	if err != nil {
		return domain.RemoteTaxonomy{}, err
	}

	res := domain.RemoteTaxonomy{Relationships: make(map[string][]domain.Relationship)}
	for _, sub := range subs {
		rf := domain.RemoteFeed{
			FeedID:      strconv.FormatInt(sub.FeedID, 10),
			URL:         sub.FeedURL,
			Name:        sub.Title,
			HomePageURL: sub.SiteURL,
			ExternalID:  strconv.FormatInt(sub.ID, 10),
		}
		if sub.JSONFeed != nil {
			rf.FaviconURL = sub.JSONFeed.Favicon
		}
		res.Feeds = append(res.Feeds, rf)
	}
	for _, t := range taggings {
		res.Relationships[t.Name] = append(res.Relationships[t.Name], domain.Relationship{
			FeedID: strconv.FormatInt(t.FeedID, 10), RelationshipID: strconv.FormatInt(t.ID, 10)})
	}
	res.Folders = slices.Sorted(maps.Keys(res.Relationships))
	return res, nil
}

// FetchStatusIDs returns unread or starred entry ids. Feedbin has no change times for them.
func (s *Service) FetchStatusIDs(ctx context.Context, key domain.StatusKey) ([]domain.StoryHash, error) {
	var ids []int64
	var err error
	if key == domain.StatusStarred {
		ids, err = s.client.StarredEntries(ctx)
	} else {
		ids, err = s.client.UnreadEntries(ctx)
	}
	if err != nil {
		return nil, err
	}
	res := make([]domain.StoryHash, 0, len(ids))
	for _, id := range ids {
		res = append(res, domain.StoryHash{ID: strconv.FormatInt(id, 10)})
	}
	return res, nil
}

// FetchArticles downloads entries by ids
func (s *Service) FetchArticles(ctx context.Context, ids []string) ([]domain.ParsedItem, error) {
	intIDs, err := toInts(ids)
	if err != nil {
		return nil, err
	}
	entries, err := s.client.Entries(ctx, intIDs)
	if err != nil {
		return nil, err
	}
	return toItems(entries), nil
}

// FetchStream returns one page of entries created since the time, cursor is the next page url
func (s *Service) FetchStream(ctx context.Context, since time.Time, cursor string) (domain.Page, error) {
	entries, next, err := s.client.EntriesSince(ctx, since, cursor)
	if err != nil {
		return domain.Page{}, err
	}
	return domain.Page{Items: toItems(entries), Cursor: next}, nil
}

// FetchFeedPage returns one page of recent entries of a feed
func (s *Service) FetchFeedPage(ctx context.Context, feedID, cursor string) (domain.Page, error) {
	entries, next, err := s.client.FeedEntries(ctx, feedID, s.now().Add(-historyCutoff), cursor)
	if err != nil {
		return domain.Page{}, err
	}
	return domain.Page{Items: toItems(entries), Cursor: next}, nil
}

// MaxArticlesPerRequest is the entries.json ids limit
func (s *Service) MaxArticlesPerRequest() int { return maxEntriesPerRequest }

// StatusChunkSize is the same for all changes, Feedbin accepts large lists
func (s *Service) StatusChunkSize(domain.StatusKey, bool, bool) int { return statusChunkSize }

// SendStatuses uploads a status change
func (s *Service) SendStatuses(ctx context.Context, key domain.StatusKey, flag bool, ids []string) error {
	intIDs, err := toInts(ids)
	if err != nil {
		return err
	}
	if key == domain.StatusStarred {
		return s.client.SetStarred(ctx, intIDs, flag)
	}
	return s.client.SetUnread(ctx, intIDs, !flag)
}

// Subscribe creates a subscription and tags it with the folder, if any
func (s *Service) Subscribe(ctx context.Context, url, folder string) (domain.RemoteFeed, error) {
	sub, err := s.client.CreateSubscription(ctx, url)
	if err != nil {
		return domain.RemoteFeed{}, err
	}
	res := domain.RemoteFeed{
		FeedID:      strconv.FormatInt(sub.FeedID, 10),
		URL:         sub.FeedURL,
		Name:        sub.Title,
		HomePageURL: sub.SiteURL,
		ExternalID:  strconv.FormatInt(sub.ID, 10),
	}
	if sub.JSONFeed != nil {
		res.FaviconURL = sub.JSONFeed.Favicon
	}
	if folder == "" {
		return res, nil
	}
	if res.RelationshipID, err = s.client.CreateTagging(ctx, res.FeedID, folder); err != nil {
		return domain.RemoteFeed{}, err
	}
	return res, nil
}

// Unsubscribe removes the tagging of the folder. The subscription goes away for the root or the last tag.
func (s *Service) Unsubscribe(ctx context.Context, feed account.Feed, folder string) error {
	taggingID, tagged := feed.FolderRelationship[folder]
	if folder != "" && tagged {
		if err := s.client.DeleteTagging(ctx, taggingID); err != nil {
			return err
		}
		if len(feed.FolderRelationship) > 1 {
			return nil
		}
	}
	if feed.ExternalID == "" {
		return fmt.Errorf("feed %s has no subscription id: %w", feed.FeedID, domain.ErrInvalidParameter)
	}
	return s.client.DeleteSubscription(ctx, feed.ExternalID)
}

// RenameFeed sets the subscription title
func (s *Service) RenameFeed(ctx context.Context, feed account.Feed, name string) error {
	if feed.ExternalID == "" {
		return fmt.Errorf("feed %s has no subscription id: %w", feed.FeedID, domain.ErrInvalidParameter)
	}
	return s.client.RenameSubscription(ctx, feed.ExternalID, name)
}

// MoveFeed tags the feed with the new folder and drops the old tagging
func (s *Service) MoveFeed(ctx context.Context, feed account.Feed, from, to string) (string, error) {
	var taggingID string
	if to != "" {
		var err error
		if taggingID, err = s.client.CreateTagging(ctx, feed.FeedID, to); err != nil {
			return "", err
		}
	}
	if old, ok := feed.FolderRelationship[from]; ok && from != "" {
		if err := s.client.DeleteTagging(ctx, old); err != nil {
			return "", err
		}
	}
	return taggingID, nil
}

// CreateFolder does nothing, a Feedbin tag exists once a feed is tagged with it
func (s *Service) CreateFolder(context.Context, string) error { return nil }

// RenameFolder renames the tag
func (s *Service) RenameFolder(ctx context.Context, from, to string) error {
	return s.client.RenameTag(ctx, from, to)
}

// RemoveFolder deletes the tag
func (s *Service) RemoveFolder(ctx context.Context, name string) error {
	return s.client.DeleteTag(ctx, name)
}

// Suspend cancels requests in flight
func (s *Service) Suspend() { s.client.Caller().Suspend() }

// Resume allows requests again
func (s *Service) Resume() { s.client.Caller().Resume() }

func toItems(entries []Entry) []domain.ParsedItem {
	res := make([]domain.ParsedItem, 0, len(entries))
	for _, e := range entries {
		id := strconv.FormatInt(e.ID, 10)
		item := domain.ParsedItem{
			SyncServiceID: id,
			UniqueID:      id,
			FeedID:        strconv.FormatInt(e.FeedID, 10),
			URL:           e.URL,
			Title:         e.Title,
			ContentHTML:   e.Content,
			Summary:       e.Summary,
			DatePublished: parseDate(e.Published),
		}
		if item.DatePublished == nil {
			item.DatePublished = parseDate(e.CreatedAt)
		}
		if e.Author != "" {
			item.Authors = []string{e.Author}
		}
		if e.Images != nil {
			item.ImageURL = e.Images.OriginalURL
		}
		res = append(res, item)
	}
	return res
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, ok := dateparser.ParseString(s)
	if !ok {
		log.Printf("[DEBUG] can't parse feedbin date %q", s)
		return nil
	}
	return &t
}

func toInts(ids []string) ([]int64, error) {
	res := make([]int64, 0, len(ids))
	for _, id := range ids {
		v, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("entry id %q: %w", id, domain.ErrInvalidParameter)
		}
		res = append(res, v)
	}
	return res, nil
}
