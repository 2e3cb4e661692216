package domain

import (
	"crypto/md5" //nolint:gosec // used as a stable id, not for security
	"encoding/hex"
	"slices"
	"time"
)

// StatusKey identifies an article status flag that is synced with remote services
type StatusKey string

// enum of synced status keys
const (
	StatusRead    StatusKey = "read"
	StatusStarred StatusKey = "starred"
)

// ParsedItem is an article as delivered by a feed parser or a sync service, before it is stored
type ParsedItem struct {
	SyncServiceID string // remote id, used as article id when set
	UniqueID      string // guid or link, unique within a feed
	FeedID        string
	URL           string
	ExternalURL   string
	Title         string
	ContentHTML   string
	ContentText   string
	Summary       string
	ImageURL      string
	DatePublished *time.Time
	DateModified  *time.Time
	Authors       []string
	Tags          []string
}

// ArticleID returns the id the item is stored under.
// Remote services hand out ids unique per account, local feeds only have per-feed unique ids,
// so those are hashed together with the feed id.
func (p ParsedItem) ArticleID() string {
	if p.SyncServiceID != "" {
		return p.SyncServiceID
	}
	return ArticleIDFor(p.FeedID, p.UniqueID)
}

// ArticleIDFor makes a deterministic article id from a feed id and an item unique id
func ArticleIDFor(feedID, uniqueID string) string {
	sum := md5.Sum([]byte(feedID + " " + uniqueID)) //nolint:gosec // not a security hash
	return hex.EncodeToString(sum[:])
}

// Article is a stored story
type Article struct {
	AccountID     string
	ArticleID     string
	FeedID        string
	UniqueID      string
	Title         string
	ContentHTML   string
	ContentText   string
	Summary       string
	URL           string
	ExternalURL   string
	ImageURL      string
	DatePublished *time.Time
	DateModified  *time.Time
	Authors       []string
	Tags          []string
	Status        ArticleStatus
}

// ArticleFromParsed builds an article for the account from a parsed item
func ArticleFromParsed(accountID string, item ParsedItem) Article {
	return Article{
		AccountID:     accountID,
		ArticleID:     item.ArticleID(),
		FeedID:        item.FeedID,
		UniqueID:      item.UniqueID,
		Title:         item.Title,
		ContentHTML:   item.ContentHTML,
		ContentText:   item.ContentText,
		Summary:       item.Summary,
		URL:           item.URL,
		ExternalURL:   item.ExternalURL,
		ImageURL:      item.ImageURL,
		DatePublished: item.DatePublished,
		DateModified:  item.DateModified,
		Authors:       item.Authors,
		Tags:          item.Tags,
	}
}

// ChangedFields returns the storage column names whose values differ between a and the stored version.
// An empty result means the stored article is current and nothing needs to be written.
func (a Article) ChangedFields(stored Article) []string {
	var res []string
	add := func(changed bool, column string) {
		if changed {
			res = append(res, column)
		}
	}
	add(a.Title != stored.Title, "title")
	add(a.ContentHTML != stored.ContentHTML, "content_html")
	add(a.ContentText != stored.ContentText, "content_text")
	add(a.Summary != stored.Summary, "summary")
	add(a.URL != stored.URL, "url")
	add(a.ExternalURL != stored.ExternalURL, "external_url")
	add(a.ImageURL != stored.ImageURL, "image_url")
	add(!sameTime(a.DatePublished, stored.DatePublished), "date_published")
	add(!sameTime(a.DateModified, stored.DateModified), "date_modified")
	add(!slices.Equal(a.Authors, stored.Authors), "authors")
	add(!slices.Equal(a.Tags, stored.Tags), "tags")
	return res
}

// Date returns the best known date of the article, falling back to arrival time
func (a Article) Date() time.Time {
	switch {
	case a.DatePublished != nil:
		return *a.DatePublished
	case a.DateModified != nil:
		return *a.DateModified
	default:
		return a.Status.DateArrived
	}
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// ArticleStatus keeps per-article flags, one per article id per account
type ArticleStatus struct {
	ArticleID   string
	Read        bool
	Starred     bool
	UserDeleted bool
	DateArrived time.Time
}

// Flag returns the value of the status flag for key
func (s ArticleStatus) Flag(key StatusKey) bool {
	if key == StatusStarred {
		return s.Starred
	}
	return s.Read
}

// SyncStatus is a local status change not yet confirmed by the remote service
type SyncStatus struct {
	ArticleID string
	Key       StatusKey
	Flag      bool
	Selected  bool // being processed by an outbound push
}

// NewAndUpdated reports the result of storing a batch of parsed items
type NewAndUpdated struct {
	New     []Article
	Updated []Article
}

// Empty returns true if nothing was added or changed
func (n NewAndUpdated) Empty() bool {
	return len(n.New) == 0 && len(n.Updated) == 0
}
