package feed

import "github.com/umputun/feedsync/pkg/domain"

// Request describes a feed download, validators and hash come from the previous download
type Request struct {
	URL            string
	ConditionalGet domain.ConditionalGetInfo
	ContentHash    string
}

// Result of a feed download. Unchanged is set for a not modified answer or the same content hash,
// Feed is empty then.
type Result struct {
	Feed           ParsedFeed
	ConditionalGet domain.ConditionalGetInfo
	ContentHash    string
	Unchanged      bool
}

// ParsedFeed is a feed with items ready to be stored, items have no feed id yet
type ParsedFeed struct {
	Title       string
	HomePageURL string
	IconURL     string
	Items       []domain.ParsedItem
}
