package newsblur

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/umputun/feedsync/pkg/account"
	"github.com/umputun/feedsync/pkg/domain"
	"github.com/umputun/feedsync/pkg/htmlentity"
)

const (
	maxStoriesPerRequest = 100
	statusChunkSize      = 5
)

// Service adapts the client to the reconcile engine. Folder names are relationship ids,
// NewsBlur has no separate id for folder membership.
type Service struct {
	client *Client
}

// NewService makes a service for the client
func NewService(client *Client) *Service {
	return &Service{client: client}
}

// Name of the service
func (s *Service) Name() string { return "newsblur" }

// Validate logs in
func (s *Service) Validate(ctx context.Context) error {
	_, err := s.client.Login(ctx)
	return err
}

// FetchTaxonomy returns feeds and flat folders, the root folder included
func (s *Service) FetchTaxonomy(ctx context.Context) (domain.RemoteTaxonomy, error) {
	feeds, folders, err := s.client.Feeds(ctx)
	if err != nil {
		return domain.RemoteTaxonomy{}, err
	}
	res := domain.RemoteTaxonomy{Relationships: make(map[string][]domain.Relationship, len(folders))}
	sort.Slice(feeds, func(i, j int) bool { return feeds[i].ID < feeds[j].ID })
	for _, f := range feeds {
		id := strconv.FormatInt(f.ID, 10)
		res.Feeds = append(res.Feeds, domain.RemoteFeed{
			FeedID:      id,
			URL:         f.FeedURL,
			Name:        htmlentity.Decode(f.Title),
			HomePageURL: f.HomePageURL,
			FaviconURL:  f.FaviconURL,
			ExternalID:  id,
		})
	}
	for name, ids := range folders {
		name = strings.TrimSpace(name)
		if name == "" {
			name = domain.RootFolderName
		}
		rels := make([]domain.Relationship, 0, len(ids))
		for _, id := range ids {
			rels = append(rels, domain.Relationship{FeedID: strconv.FormatInt(id, 10), RelationshipID: name})
		}
		res.Relationships[name] = append(res.Relationships[name], rels...)
		res.Folders = append(res.Folders, name)
	}
	sort.Strings(res.Folders)
	return res, nil
}

// FetchStatusIDs returns unread or starred story hashes with their timestamps
func (s *Service) FetchStatusIDs(ctx context.Context, key domain.StatusKey) ([]domain.StoryHash, error) {
	var hashes []StoryHash
	var err error
	if key == domain.StatusStarred {
		hashes, err = s.client.StarredStoryHashes(ctx)
	} else {
		hashes, err = s.client.UnreadStoryHashes(ctx)
	}
	if err != nil {
		return nil, err
	}
	res := make([]domain.StoryHash, 0, len(hashes))
	for _, h := range hashes {
		res = append(res, domain.StoryHash{ID: h.Hash, Timestamp: h.Timestamp})
	}
	return res, nil
}

// FetchArticles downloads stories by hashes
func (s *Service) FetchArticles(ctx context.Context, ids []string) ([]domain.ParsedItem, error) {
	stories, err := s.client.RiverStories(ctx, ids)
	if err != nil {
		return nil, err
	}
	return toItems(stories), nil
}

// FetchFeedPage returns one page of a feed history, cursor is the page number
func (s *Service) FetchFeedPage(ctx context.Context, feedID, cursor string) (domain.Page, error) {
	page := 1
	if cursor != "" {
		var err error
		if page, err = strconv.Atoi(cursor); err != nil {
			return domain.Page{}, fmt.Errorf("page cursor %q: %w", cursor, domain.ErrInvalidParameter)
		}
	}
	stories, err := s.client.FeedStories(ctx, feedID, page)
	if err != nil {
		return domain.Page{}, err
	}
	res := domain.Page{Items: toItems(stories)}
	if len(stories) > 0 {
		res.Cursor = strconv.Itoa(page + 1)
	}
	return res, nil
}

// MaxArticlesPerRequest is the river_stories hashes limit
func (s *Service) MaxArticlesPerRequest() int { return maxStoriesPerRequest }

// StatusChunkSize is 1 while throttled. Marking read goes in full chunks always,
// the mark read endpoint is not rate limited.
func (s *Service) StatusChunkSize(key domain.StatusKey, flag, throttled bool) int {
	if throttled && (key != domain.StatusRead || !flag) {
		return 1
	}
	return statusChunkSize
}

// SendStatuses uploads a status change
func (s *Service) SendStatuses(ctx context.Context, key domain.StatusKey, flag bool, ids []string) error {
	switch {
	case key == domain.StatusRead && flag:
		return s.client.MarkAsRead(ctx, ids)
	case key == domain.StatusRead:
		return s.client.MarkAsUnread(ctx, ids)
	case flag:
		return s.client.Star(ctx, ids)
	default:
		return s.client.Unstar(ctx, ids)
	}
}

// Subscribe adds the url into the folder, empty folder is the root
func (s *Service) Subscribe(ctx context.Context, url, folder string) (domain.RemoteFeed, error) {
	f, err := s.client.AddURL(ctx, url, folder)
	if err != nil {
		var gerr *GeneralError
		if errors.As(err, &gerr) && strings.Contains(strings.ToLower(gerr.Message), "already subscribed") {
			return domain.RemoteFeed{}, domain.ErrAlreadySubscribed
		}
		return domain.RemoteFeed{}, err
	}
	id := strconv.FormatInt(f.ID, 10)
	res := domain.RemoteFeed{FeedID: id, URL: f.FeedURL, Name: htmlentity.Decode(f.Title), HomePageURL: f.HomePageURL,
		FaviconURL: f.FaviconURL, ExternalID: id}
	if folder != "" {
		res.RelationshipID = folder
	}
	return res, nil
}

// Unsubscribe removes the feed from the folder, NewsBlur drops the subscription with the last folder
func (s *Service) Unsubscribe(ctx context.Context, feed account.Feed, folder string) error {
	return s.client.DeleteFeed(ctx, remoteID(feed), folder)
}

// RenameFeed sets the feed title
func (s *Service) RenameFeed(ctx context.Context, feed account.Feed, name string) error {
	return s.client.RenameFeed(ctx, remoteID(feed), name)
}

// MoveFeed moves the feed, the relationship id is the target folder name
func (s *Service) MoveFeed(ctx context.Context, feed account.Feed, from, to string) (string, error) {
	if err := s.client.MoveFeed(ctx, remoteID(feed), from, to); err != nil {
		return "", err
	}
	return to, nil
}

// CreateFolder adds a top level folder
func (s *Service) CreateFolder(ctx context.Context, name string) error {
	return s.client.AddFolder(ctx, name)
}

// RenameFolder renames a top level folder
func (s *Service) RenameFolder(ctx context.Context, from, to string) error {
	return s.client.RenameFolder(ctx, from, to)
}

// RemoveFolder deletes the folder. Feeds of the folder were unsubscribed before, so no feed ids are sent.
func (s *Service) RemoveFolder(ctx context.Context, name string) error {
	return s.client.DeleteFolder(ctx, name, nil)
}

// Suspend cancels requests in flight
func (s *Service) Suspend() { s.client.Caller().Suspend() }

// Resume allows requests again
func (s *Service) Resume() { s.client.Caller().Resume() }

func remoteID(feed account.Feed) string {
	if feed.ExternalID != "" {
		return feed.ExternalID
	}
	return feed.FeedID
}

func toItems(stories []Story) []domain.ParsedItem {
	res := make([]domain.ParsedItem, 0, len(stories))
	for _, st := range stories {
		item := domain.ParsedItem{
			SyncServiceID: st.Hash,
			UniqueID:      st.Hash,
			FeedID:        strconv.FormatInt(st.FeedID, 10),
			URL:           st.Permalink,
			Title:         htmlentity.Decode(st.Title),
			ContentHTML:   st.Content,
			Tags:          st.Tags,
		}
		if ts := parseTimestamp(st.Timestamp); !ts.IsZero() {
			item.DatePublished = &ts
		}
		if st.Authors != "" {
			item.Authors = []string{htmlentity.Decode(st.Authors)}
		}
		if len(st.ImageURLs) > 0 {
			item.ImageURL = st.ImageURLs[0]
		}
		res = append(res, item)
	}
	return res
}
