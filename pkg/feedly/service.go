package feedly

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/feedsync/pkg/account"
	"github.com/umputun/feedsync/pkg/domain"
)

const (
	maxEntriesPerRequest = 1000
	statusChunkSize      = 1000
	historyCutoff        = 90 * 24 * time.Hour
)

// Service adapts the client to the reconcile engine. Relationship ids are collection ids.
type Service struct {
	client *Client
	now    func() time.Time
}

// NewService makes a service for the client
func NewService(client *Client) *Service {
	return &Service{client: client, now: time.Now}
}

// Name of the service
func (s *Service) Name() string { return "feedly" }

// Validate checks the token by loading the profile
func (s *Service) Validate(ctx context.Context) error {
	_, err := s.client.Profile(ctx)
	return err
}

// FetchTaxonomy returns collections as folders. Feeds in several collections are reported once.
func (s *Service) FetchTaxonomy(ctx context.Context) (domain.RemoteTaxonomy, error) {
	colls, err := s.client.Collections(ctx)
	if err != nil {
		return domain.RemoteTaxonomy{}, err
	}
	res := domain.RemoteTaxonomy{Relationships: make(map[string][]domain.Relationship, len(colls))}
	seen := make(map[string]bool)
	for _, coll := range colls {
		res.Folders = append(res.Folders, coll.Label)
		rels := make([]domain.Relationship, 0, len(coll.Feeds))
		for _, f := range coll.Feeds {
			rels = append(rels, domain.Relationship{FeedID: f.ID, RelationshipID: coll.ID})
			if seen[f.ID] {
				continue
			}
			seen[f.ID] = true
			res.Feeds = append(res.Feeds, remoteFeed(f, ""))
		}
		res.Relationships[coll.Label] = rels
	}
	return res, nil
}

// FetchStatusIDs returns ids of unread or saved entries, Feedly ids carry no timestamps
func (s *Service) FetchStatusIDs(ctx context.Context, key domain.StatusKey) ([]domain.StoryHash, error) {
	var stream string
	var err error
	if key == domain.StatusStarred {
		stream, err = s.client.SavedStream(ctx)
	} else {
		stream, err = s.client.AllStream(ctx)
	}
	if err != nil {
		return nil, err
	}
	ids, err := s.client.StreamIDs(ctx, stream, key == domain.StatusRead)
	if err != nil {
		return nil, err
	}
	res := make([]domain.StoryHash, 0, len(ids))
	for _, id := range ids {
		res = append(res, domain.StoryHash{ID: id})
	}
	return res, nil
}

// FetchArticles downloads entries by ids
func (s *Service) FetchArticles(ctx context.Context, ids []string) ([]domain.ParsedItem, error) {
	entries, err := s.client.Entries(ctx, ids)
	if err != nil {
		return nil, err
	}
	return toItems(entries), nil
}

// FetchStream returns one page of all entries newer than since, cursor is the continuation
func (s *Service) FetchStream(ctx context.Context, since time.Time, cursor string) (domain.Page, error) {
	stream, err := s.client.AllStream(ctx)
	if err != nil {
		return domain.Page{}, err
	}
	entries, next, err := s.client.StreamContents(ctx, stream, since, false, cursor)
	if err != nil {
		return domain.Page{}, err
	}
	return domain.Page{Items: toItems(entries), Cursor: next}, nil
}

// FetchFeedPage returns one page of recent entries of a feed stream
func (s *Service) FetchFeedPage(ctx context.Context, feedID, cursor string) (domain.Page, error) {
	entries, next, err := s.client.StreamContents(ctx, feedID, s.now().Add(-historyCutoff), false, cursor)
	if err != nil {
		return domain.Page{}, err
	}
	return domain.Page{Items: toItems(entries), Cursor: next}, nil
}

// MaxArticlesPerRequest for entries/.mget
func (s *Service) MaxArticlesPerRequest() int { return maxEntriesPerRequest }

// StatusChunkSize is the same for all changes
func (s *Service) StatusChunkSize(domain.StatusKey, bool, bool) int { return statusChunkSize }

// SendStatuses uploads a status change with the markers api
func (s *Service) SendStatuses(ctx context.Context, key domain.StatusKey, flag bool, ids []string) error {
	action := MarkUnread
	switch {
	case key == domain.StatusRead && flag:
		action = MarkRead
	case key == domain.StatusStarred && flag:
		action = MarkSaved
	case key == domain.StatusStarred:
		action = MarkUnsaved
	}
	return s.client.Mark(ctx, ids, action)
}

// Subscribe adds the feed of the url to the collection of the folder, the collection is created if missing
func (s *Service) Subscribe(ctx context.Context, url, folder string) (domain.RemoteFeed, error) {
	if folder == "" {
		return domain.RemoteFeed{}, fmt.Errorf("feedly feeds need a folder: %w", domain.ErrInvalidParameter)
	}
	coll, err := s.collection(ctx, folder, true)
	if err != nil {
		return domain.RemoteFeed{}, err
	}
	feedID := "feed/" + url
	feeds, err := s.client.AddFeed(ctx, coll.ID, feedID, "")
	if err != nil {
		return domain.RemoteFeed{}, err
	}
	for _, f := range feeds {
		if f.ID == feedID {
			return remoteFeed(f, coll.ID), nil
		}
	}
	return domain.RemoteFeed{}, domain.ErrNoFeedFound
}

// Unsubscribe takes the feed out of the collection of the folder
func (s *Service) Unsubscribe(ctx context.Context, feed account.Feed, folder string) error {
	collID, err := s.collectionID(ctx, feed, folder)
	if err != nil {
		return err
	}
	return s.client.RemoveFeed(ctx, collID, feed.FeedID)
}

// RenameFeed sets a custom title, Feedly keeps it with the subscription
func (s *Service) RenameFeed(ctx context.Context, feed account.Feed, name string) error {
	folders := slices.Sorted(maps.Keys(feed.FolderRelationship))
	if len(folders) == 0 {
		return fmt.Errorf("feed %s is in no collection: %w", feed.FeedID, domain.ErrInvalidParameter)
	}
	_, err := s.client.AddFeed(ctx, feed.FolderRelationship[folders[0]], feed.FeedID, name)
	return err
}

// MoveFeed adds the feed to the target collection and removes it from the source one
func (s *Service) MoveFeed(ctx context.Context, feed account.Feed, from, to string) (string, error) {
	if to == "" {
		return "", fmt.Errorf("feedly feeds need a folder: %w", domain.ErrInvalidParameter)
	}
	target, err := s.collection(ctx, to, true)
	if err != nil {
		return "", err
	}
	if _, err = s.client.AddFeed(ctx, target.ID, feed.FeedID, ""); err != nil {
		return "", err
	}
	if from != "" {
		fromID, err := s.collectionID(ctx, feed, from)
		if err != nil {
			return "", err
		}
		if err := s.client.RemoveFeed(ctx, fromID, feed.FeedID); err != nil {
			return "", err
		}
	}
	return target.ID, nil
}

// CreateFolder makes a collection
func (s *Service) CreateFolder(ctx context.Context, name string) error {
	_, err := s.client.CreateCollection(ctx, name)
	return err
}

// RenameFolder relabels the collection
func (s *Service) RenameFolder(ctx context.Context, from, to string) error {
	coll, err := s.collection(ctx, from, false)
	if err != nil {
		return err
	}
	_, err = s.client.RenameCollection(ctx, coll.ID, to)
	return err
}

// RemoveFolder deletes the collection
func (s *Service) RemoveFolder(ctx context.Context, name string) error {
	coll, err := s.collection(ctx, name, false)
	if err != nil {
		return err
	}
	return s.client.DeleteCollection(ctx, coll.ID)
}

// Suspend cancels requests in flight
func (s *Service) Suspend() { s.client.Caller().Suspend() }

// Resume allows requests again
func (s *Service) Resume() { s.client.Caller().Resume() }

// collection finds a collection by label, creating it if asked to
func (s *Service) collection(ctx context.Context, label string, create bool) (Collection, error) {
	colls, err := s.client.Collections(ctx)
	if err != nil {
		return Collection{}, err
	}
	for _, c := range colls {
		if c.Label == label {
			return c, nil
		}
	}
	if !create {
		return Collection{}, fmt.Errorf("collection %q: %w", label, domain.ErrFolderNotFound)
	}
	return s.client.CreateCollection(ctx, label)
}

func (s *Service) collectionID(ctx context.Context, feed account.Feed, folder string) (string, error) {
	if id := feed.FolderRelationship[folder]; id != "" {
		return id, nil
	}
	coll, err := s.collection(ctx, folder, false)
	if err != nil {
		return "", err
	}
	return coll.ID, nil
}

func remoteFeed(f Feed, collectionID string) domain.RemoteFeed {
	return domain.RemoteFeed{
		FeedID:         f.ID,
		URL:            f.URL(),
		Name:           f.Title,
		HomePageURL:    f.Website,
		FaviconURL:     f.IconURL,
		ExternalID:     f.ID,
		RelationshipID: collectionID,
	}
}

func toItems(entries []Entry) []domain.ParsedItem {
	res := make([]domain.ParsedItem, 0, len(entries))
	for _, e := range entries {
		if e.Origin == nil || e.Origin.StreamID == "" {
			log.Printf("[DEBUG] skip feedly entry %s without origin", e.ID)
			continue
		}
		item := domain.ParsedItem{
			SyncServiceID: e.ID,
			UniqueID:      e.ID,
			FeedID:        e.Origin.StreamID,
			URL:           pageLink(e),
			Title:         e.Title,
		}
		if e.Summary != nil {
			item.Summary = e.Summary.Content
			item.ContentHTML = e.Summary.Content
		}
		if e.Content != nil && e.Content.Content != "" {
			item.ContentHTML = e.Content.Content
		}
		if e.Crawled > 0 {
			t := time.UnixMilli(e.Crawled).UTC()
			item.DatePublished = &t
		}
		if e.Recrawled > 0 {
			t := time.UnixMilli(e.Recrawled).UTC()
			item.DateModified = &t
		}
		if e.Author != "" {
			item.Authors = []string{e.Author}
		}
		for _, t := range e.Tags {
			if t.Label != "" {
				item.Tags = append(item.Tags, t.Label)
			}
		}
		if e.Visual != nil && e.Visual.URL != "none" {
			item.ImageURL = e.Visual.URL
		}
		res = append(res, item)
	}
	return res
}

// pageLink is the first html link of canonical and alternate links
func pageLink(e Entry) string {
	for _, l := range slices.Concat(e.Canonical, e.Alternate) {
		if l.Type == "" || l.Type == "text/html" {
			return l.Href
		}
	}
	return ""
}
