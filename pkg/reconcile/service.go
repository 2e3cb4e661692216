// Package reconcile keeps an account graph in agreement with a remote sync service. The algorithms are
// written once against the Service interface, each service package provides an adapter.
package reconcile

import (
	"context"
	"time"

	"github.com/umputun/feedsync/pkg/account"
	"github.com/umputun/feedsync/pkg/domain"
)

//go:generate moq -out mocks/service.go -pkg mocks -skip-ensure -fmt goimports . Service
//go:generate moq -out mocks/sync_status_store.go -pkg mocks -skip-ensure -fmt goimports . SyncStatusStore

// Service is a remote sync service
type Service interface {
	Name() string
	// FetchTaxonomy returns folders, feeds and their relationships
	FetchTaxonomy(ctx context.Context) (domain.RemoteTaxonomy, error)
	// FetchStatusIDs returns the server set of key: unread article ids for read, starred ids for starred
	FetchStatusIDs(ctx context.Context, key domain.StatusKey) ([]domain.StoryHash, error)
	// FetchArticles downloads articles by ids, at most MaxArticlesPerRequest at once
	FetchArticles(ctx context.Context, ids []string) ([]domain.ParsedItem, error)
	MaxArticlesPerRequest() int
	SendStatuses(ctx context.Context, key domain.StatusKey, flag bool, ids []string) error
	StatusChunkSize(key domain.StatusKey, flag, throttled bool) int
	Subscribe(ctx context.Context, url, folder string) (domain.RemoteFeed, error)
	// Unsubscribe removes the feed from the folder, the whole subscription if it is the last folder
	Unsubscribe(ctx context.Context, feed account.Feed, folder string) error
}

// StreamSource is a service delivering all new articles as one paginated stream
type StreamSource interface {
	FetchStream(ctx context.Context, since time.Time, cursor string) (domain.Page, error)
}

// FeedPager is a service able to page through the history of one feed
type FeedPager interface {
	FetchFeedPage(ctx context.Context, feedID, cursor string) (domain.Page, error)
}

// FeedRenamer is a service storing custom feed names
type FeedRenamer interface {
	RenameFeed(ctx context.Context, feed account.Feed, name string) error
}

// FeedMover is a service able to move a feed between folders, it returns the new relationship id
type FeedMover interface {
	MoveFeed(ctx context.Context, feed account.Feed, from, to string) (string, error)
}

// FolderManager is a service with explicit folder operations
type FolderManager interface {
	CreateFolder(ctx context.Context, name string) error
	RenameFolder(ctx context.Context, from, to string) error
	RemoveFolder(ctx context.Context, name string) error
}

// Authenticator is a service able to check credentials
type Authenticator interface {
	Validate(ctx context.Context) error
}

// SyncStatusStore keeps pending status changes
type SyncStatusStore interface {
	SelectForProcessing(ctx context.Context, accountID string, limit int) ([]domain.SyncStatus, error)
	DeleteSelected(ctx context.Context, accountID string, key domain.StatusKey, ids []string) error
	ResetSelected(ctx context.Context, accountID string, key domain.StatusKey, ids []string) error
	PendingIDs(ctx context.Context, accountID string, key domain.StatusKey) ([]string, error)
}

// Account is the graph the delegate reconciles, implemented by account.Account
type Account interface {
	ID() string
	Type() domain.AccountType
	HasBehavior(b domain.Behavior) bool
	BeginBatch() *account.Batch

	Folders() []account.Folder
	FolderByName(name string) (account.Folder, bool)
	FolderByID(id string) (account.Folder, bool)
	EnsureFolder(name string) account.Folder
	RemoveFolder(id string) error
	RenameFolder(id, name string) error

	TopLevelFeeds() []account.Feed
	FeedsInFolder(id string) []account.Feed
	FlattenedFeeds() []account.Feed
	ExistingFeed(feedID string) (account.Feed, bool)
	CreateFeed(feedID, url, name, homePageURL string) account.Feed
	UpdateFeed(feedID string, fn func(f *account.Feed)) error
	AddFeed(feedID, containerID string) error
	RemoveFeed(feedID, containerID string) error
	ContainersOf(feedID string) []string

	Update(ctx context.Context, feedID string, items []domain.ParsedItem) (domain.NewAndUpdated, error)
	UpdateItems(ctx context.Context, items []domain.ParsedItem) (domain.NewAndUpdated, error)
	Mark(ctx context.Context, ids []string, key domain.StatusKey, flag bool) ([]string, error)
	UnreadArticleIDs(ctx context.Context) ([]string, error)
	StarredArticleIDs(ctx context.Context) ([]string, error)
	ArticleIDsWithoutArticles(ctx context.Context, since time.Time) ([]string, error)

	Metadata() domain.AccountMetadata
	UpdateMetadata(ctx context.Context, fn func(md *domain.AccountMetadata)) error
}
