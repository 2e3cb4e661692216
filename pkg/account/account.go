// Package account keeps the in-memory graph of one account: its folders, its feeds and which
// container references which feed. Articles and statuses live in storage and are reached through
// the account so that every change produces a notification.
package account

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"github.com/umputun/feedsync/pkg/domain"
	"github.com/umputun/feedsync/pkg/queue"
)

// Root is the container id of the account itself
const Root = ""

// DefaultSaveInterval is how long graph changes are coalesced before they are written
const DefaultSaveInterval = time.Second

// MarkUnreadWindow is how old an article can be and still be marked unread by the user in accounts
// with domain.BehaviorDisallowMarkAsUnreadAfterPeriod
const MarkUnreadWindow = 31 * 24 * time.Hour

// TaxonomyStore persists folders and feeds
type TaxonomyStore interface {
	Save(ctx context.Context, accountID string, tx domain.Taxonomy) error
	Load(ctx context.Context, accountID string) (domain.Taxonomy, error)
}

// ArticleStore persists articles
type ArticleStore interface {
	Update(ctx context.Context, accountID string, items []domain.ParsedItem, defaultRead bool) (domain.NewAndUpdated, error)
	Articles(ctx context.Context, accountID string, ids []string) ([]domain.Article, error)
	UnreadCounts(ctx context.Context, accountID string) (map[string]int, error)
}

// StatusStore persists article statuses
type StatusStore interface {
	Mark(ctx context.Context, accountID string, ids []string, key domain.StatusKey, flag bool) ([]string, error)
	UnreadArticleIDs(ctx context.Context, accountID string) ([]string, error)
	StarredArticleIDs(ctx context.Context, accountID string) ([]string, error)
	ArticleIDsWithoutArticles(ctx context.Context, accountID string, since time.Time) ([]string, error)
}

// SyncStatusStore keeps user status changes for upload
type SyncStatusStore interface {
	Insert(ctx context.Context, accountID string, statuses []domain.SyncStatus) error
}

// MetadataStore persists account metadata
type MetadataStore interface {
	LoadMetadata(ctx context.Context, accountID string) (domain.AccountMetadata, error)
	SaveMetadata(ctx context.Context, accountID string, md domain.AccountMetadata) error
}

// Params for account creation
type Params struct {
	ID           string
	Type         domain.AccountType
	Name         string
	Taxonomy     TaxonomyStore
	Articles     ArticleStore
	Statuses     StatusStore
	SyncStatuses SyncStatusStore
	Metadata     MetadataStore
	SaveInterval time.Duration // coalescing interval of graph saves, DefaultSaveInterval if 0
}

// Feed is a snapshot of a feed of the account
type Feed struct {
	FeedID             string
	URL                string
	ExternalID         string
	Name               string
	EditedName         string
	HomePageURL        string
	FaviconURL         string
	ContentHash        string
	ConditionalGet     domain.ConditionalGetInfo
	FolderRelationship map[string]string // folder name -> remote id of the feed in that folder
}

// DisplayName returns the name the user sees, the edited name wins
func (f Feed) DisplayName() string {
	if f.EditedName != "" {
		return f.EditedName
	}
	return f.Name
}

// Folder is a snapshot of a folder of the account
type Folder struct {
	ID      string
	Name    string
	FeedIDs []string
}

type folderNode struct {
	id    string
	name  string
	feeds []string // ordered set of feed ids
}

// Account is the graph of one account. All state is guarded by the mutex, returned values are copies.
type Account struct {
	id          string
	accType     domain.AccountType
	name        string
	taxonomy    TaxonomyStore
	articles    ArticleStore
	statuses    StatusStore
	syncStatus  SyncStatusStore
	metaStore   MetadataStore
	saveQueue   *queue.CoalescingQueue
	defaultRead bool

	mu        sync.Mutex
	feeds     map[string]*Feed // registry of all known feeds, referenced or not
	rootFeeds []string
	folders   map[string]*folderNode // by folder id
	metadata  domain.AccountMetadata

	batchDepth   int
	batchChanged bool
	observers    map[int]func(Event)
	nextObserver int
}

// New makes an empty account. Call Load to restore the stored graph.
func New(p Params) *Account {
	if p.SaveInterval == 0 {
		p.SaveInterval = DefaultSaveInterval
	}
	return &Account{
		id:          p.ID,
		accType:     p.Type,
		name:        p.Name,
		taxonomy:    p.Taxonomy,
		articles:    p.Articles,
		statuses:    p.Statuses,
		syncStatus:  p.SyncStatuses,
		metaStore:   p.Metadata,
		saveQueue:   queue.NewCoalescingQueue("account-save:"+p.ID, p.SaveInterval),
		defaultRead: p.Type != domain.AccountLocal, // synced accounts learn unread state from the server
		feeds:       make(map[string]*Feed),
		folders:     make(map[string]*folderNode),
		observers:   make(map[int]func(Event)),
	}
}

// ID returns account id
func (a *Account) ID() string { return a.id }

// Type returns account type
func (a *Account) Type() domain.AccountType { return a.accType }

// Name returns account name
func (a *Account) Name() string { return a.name }

// Behaviors returns capability restrictions of the account type
func (a *Account) Behaviors() []domain.Behavior {
	switch a.accType {
	case domain.AccountFeedbin:
		return []domain.Behavior{domain.BehaviorDisallowFeedCopyInRootFolder}
	case domain.AccountFeedly:
		return []domain.Behavior{domain.BehaviorDisallowFeedInRootFolder, domain.BehaviorDisallowMarkAsUnreadAfterPeriod}
	default:
		return nil
	}
}

// HasBehavior checks if the account type has the behavior
func (a *Account) HasBehavior(b domain.Behavior) bool {
	return slices.Contains(a.Behaviors(), b)
}

// Load restores the stored graph and metadata, replacing the in-memory state
func (a *Account) Load(ctx context.Context) error {
	tx, err := a.taxonomy.Load(ctx, a.id)
	if err != nil {
		return fmt.Errorf("load taxonomy of %s: %w", a.id, err)
	}
	md, err := a.metaStore.LoadMetadata(ctx, a.id)
	if err != nil {
		return fmt.Errorf("load metadata of %s: %w", a.id, err)
	}

	a.mu.Lock()
	a.feeds = make(map[string]*Feed, len(tx.Feeds))
	a.folders = make(map[string]*folderNode, len(tx.Folders))
	a.rootFeeds = nil
	for _, f := range tx.Folders {
		a.folders[f.ID] = &folderNode{id: f.ID, name: f.Name}
	}
	for _, rec := range tx.Feeds {
		feed := &Feed{
			FeedID: rec.FeedID, URL: rec.URL, ExternalID: rec.ExternalID, Name: rec.Name, EditedName: rec.EditedName,
			HomePageURL: rec.HomePageURL, FaviconURL: rec.FaviconURL, ContentHash: rec.ContentHash,
			ConditionalGet: rec.ConditionalGet, FolderRelationship: maps.Clone(rec.Relationships),
		}
		a.feeds[rec.FeedID] = feed
		for _, c := range rec.Containers {
			if c == Root {
				a.rootFeeds = append(a.rootFeeds, rec.FeedID)
				continue
			}
			if folder, ok := a.folders[c]; ok {
				folder.feeds = append(folder.feeds, rec.FeedID)
			}
		}
	}
	a.metadata = md
	a.mu.Unlock()

	log.Printf("[DEBUG] loaded account %s, %d folders, %d feeds", a.id, len(tx.Folders), len(tx.Feeds))
	return nil
}

// Flush writes pending graph changes now
func (a *Account) Flush() { a.saveQueue.Flush() }

// SuspendSaves holds graph writes until ResumeSaves
func (a *Account) SuspendSaves() { a.saveQueue.Suspend() }

// ResumeSaves restarts graph writes held by SuspendSaves
func (a *Account) ResumeSaves() { a.saveQueue.Resume() }

// Snapshot returns the storable form of the graph
func (a *Account) Snapshot() domain.Taxonomy {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Account) snapshotLocked() domain.Taxonomy {
	var res domain.Taxonomy
	containers := make(map[string][]string)
	for _, id := range a.rootFeeds {
		containers[id] = append(containers[id], Root)
	}
	for _, folder := range a.sortedFoldersLocked() {
		res.Folders = append(res.Folders, domain.FolderRecord{ID: folder.id, Name: folder.name})
		for _, id := range folder.feeds {
			containers[id] = append(containers[id], folder.id)
		}
	}
	for _, id := range slices.Sorted(maps.Keys(a.feeds)) {
		f := a.feeds[id]
		res.Feeds = append(res.Feeds, domain.FeedRecord{
			FeedID: f.FeedID, URL: f.URL, ExternalID: f.ExternalID, Name: f.Name, EditedName: f.EditedName,
			HomePageURL: f.HomePageURL, FaviconURL: f.FaviconURL, ContentHash: f.ContentHash,
			ConditionalGet: f.ConditionalGet, Containers: containers[id], Relationships: maps.Clone(f.FolderRelationship),
		})
	}
	return res
}

func (a *Account) scheduleSave() {
	a.saveQueue.Add("taxonomy", func() {
		tx := a.Snapshot()
		if err := a.taxonomy.Save(context.Background(), a.id, tx); err != nil {
			log.Printf("[WARN] failed to save taxonomy of %s: %v", a.id, err)
		}
	})
}

// ExistingFeed returns the feed by id, referenced from a container or not
func (a *Account) ExistingFeed(feedID string) (Feed, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, ok := a.feeds[feedID]
	if !ok {
		return Feed{}, false
	}
	return copyFeed(f), true
}

// FeedByURL finds a feed referenced from any container by its url
func (a *Account) FeedByURL(url string) (Feed, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range a.flattenedIDsLocked() {
		if f := a.feeds[id]; strings.EqualFold(f.URL, url) {
			return copyFeed(f), true
		}
	}
	return Feed{}, false
}

// CreateFeed registers a feed in the account without adding it to any container.
// An existing feed with the same id is returned as is.
func (a *Account) CreateFeed(feedID, url, name, homePageURL string) Feed {
	a.mu.Lock()
	defer a.mu.Unlock()
	if f, ok := a.feeds[feedID]; ok {
		return copyFeed(f)
	}
	f := &Feed{FeedID: feedID, URL: url, Name: name, HomePageURL: homePageURL}
	a.feeds[feedID] = f
	return copyFeed(f)
}

// UpdateFeed changes a feed in place. fn runs under the account lock and must not call the account.
func (a *Account) UpdateFeed(feedID string, fn func(f *Feed)) error {
	a.mu.Lock()
	f, ok := a.feeds[feedID]
	if !ok {
		a.mu.Unlock()
		return fmt.Errorf("update feed %s: %w", feedID, domain.ErrFeedNotFound)
	}
	fn(f)
	f.FeedID = feedID // id is the registry key
	a.mu.Unlock()
	a.scheduleSave()
	return nil
}

// AddFeed references the feed from a container, Root or a folder id
func (a *Account) AddFeed(feedID, containerID string) error {
	a.mu.Lock()
	if _, ok := a.feeds[feedID]; !ok {
		a.mu.Unlock()
		return fmt.Errorf("add feed %s: %w", feedID, domain.ErrFeedNotFound)
	}
	list, err := a.containerLocked(containerID)
	if err != nil {
		a.mu.Unlock()
		return fmt.Errorf("add feed %s: %w", feedID, err)
	}
	if slices.Contains(*list, feedID) {
		a.mu.Unlock()
		return nil
	}
	*list = append(*list, feedID)
	events := a.graphEventsLocked(Event{Kind: FeedDidAdd, FeedIDs: []string{feedID}, ContainerID: containerID},
		Event{Kind: ChildrenDidChange, ContainerID: containerID})
	a.mu.Unlock()
	a.scheduleSave()
	a.notify(events...)
	return nil
}

// RemoveFeed drops the reference of a container to the feed. The feed itself and its articles stay.
func (a *Account) RemoveFeed(feedID, containerID string) error {
	a.mu.Lock()
	list, err := a.containerLocked(containerID)
	if err != nil {
		a.mu.Unlock()
		return fmt.Errorf("remove feed %s: %w", feedID, err)
	}
	idx := slices.Index(*list, feedID)
	if idx < 0 {
		a.mu.Unlock()
		return nil
	}
	*list = slices.Delete(*list, idx, idx+1)
	events := a.graphEventsLocked(Event{Kind: ChildrenDidChange, ContainerID: containerID})
	a.mu.Unlock()
	a.scheduleSave()
	a.notify(events...)
	return nil
}

// ContainersOf returns ids of containers referencing the feed, sorted, Root first
func (a *Account) ContainersOf(feedID string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var res []string
	if slices.Contains(a.rootFeeds, feedID) {
		res = append(res, Root)
	}
	for _, folder := range a.sortedFoldersLocked() {
		if slices.Contains(folder.feeds, feedID) {
			res = append(res, folder.id)
		}
	}
	return res
}

// EnsureFolder returns the folder with the name, creating it if needed
func (a *Account) EnsureFolder(name string) Folder {
	a.mu.Lock()
	if folder := a.folderByNameLocked(name); folder != nil {
		res := copyFolder(folder)
		a.mu.Unlock()
		return res
	}
	folder := &folderNode{id: uuid.NewString(), name: name}
	a.folders[folder.id] = folder
	res := copyFolder(folder)
	events := a.graphEventsLocked(Event{Kind: ChildrenDidChange, ContainerID: Root})
	a.mu.Unlock()
	a.scheduleSave()
	a.notify(events...)
	return res
}

// FolderByName finds a folder by its name
func (a *Account) FolderByName(name string) (Folder, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if folder := a.folderByNameLocked(name); folder != nil {
		return copyFolder(folder), true
	}
	return Folder{}, false
}

// FolderByID finds a folder by its id
func (a *Account) FolderByID(id string) (Folder, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if folder, ok := a.folders[id]; ok {
		return copyFolder(folder), true
	}
	return Folder{}, false
}

// RemoveFolder deletes the folder. Feeds referenced only from it stay registered but are no longer visible.
func (a *Account) RemoveFolder(id string) error {
	a.mu.Lock()
	if _, ok := a.folders[id]; !ok {
		a.mu.Unlock()
		return fmt.Errorf("remove folder %s: %w", id, domain.ErrFolderNotFound)
	}
	delete(a.folders, id)
	events := a.graphEventsLocked(Event{Kind: ChildrenDidChange, ContainerID: Root})
	a.mu.Unlock()
	a.scheduleSave()
	a.notify(events...)
	return nil
}

// RenameFolder changes the folder name, names are unique within the account
func (a *Account) RenameFolder(id, name string) error {
	a.mu.Lock()
	folder, ok := a.folders[id]
	if !ok {
		a.mu.Unlock()
		return fmt.Errorf("rename folder %s: %w", id, domain.ErrFolderNotFound)
	}
	if other := a.folderByNameLocked(name); other != nil && other.id != id {
		a.mu.Unlock()
		return fmt.Errorf("rename folder %s to %q: %w", id, name, domain.ErrFolderExists)
	}
	folder.name = name
	events := a.graphEventsLocked(Event{Kind: ChildrenDidChange, ContainerID: id})
	a.mu.Unlock()
	a.scheduleSave()
	a.notify(events...)
	return nil
}

// TopLevelFeeds returns feeds referenced from the account root
func (a *Account) TopLevelFeeds() []Feed {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.feedsLocked(a.rootFeeds)
}

// FeedsInFolder returns feeds of the folder
func (a *Account) FeedsInFolder(id string) []Feed {
	a.mu.Lock()
	defer a.mu.Unlock()
	folder, ok := a.folders[id]
	if !ok {
		return nil
	}
	return a.feedsLocked(folder.feeds)
}

// Folders returns all folders sorted by name
func (a *Account) Folders() []Folder {
	a.mu.Lock()
	defer a.mu.Unlock()
	folders := a.sortedFoldersLocked()
	res := make([]Folder, 0, len(folders))
	for _, f := range folders {
		res = append(res, copyFolder(f))
	}
	return res
}

// FlattenedFeeds returns every feed referenced from any container, once, sorted by id
func (a *Account) FlattenedFeeds() []Feed {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.feedsLocked(a.flattenedIDsLocked())
}

// Metadata returns a copy of account metadata
func (a *Account) Metadata() domain.AccountMetadata {
	a.mu.Lock()
	defer a.mu.Unlock()
	md := a.metadata
	md.ConditionalGetInfo = maps.Clone(a.metadata.ConditionalGetInfo)
	return md
}

// UpdateMetadata changes metadata with fn and stores it
func (a *Account) UpdateMetadata(ctx context.Context, fn func(md *domain.AccountMetadata)) error {
	a.mu.Lock()
	if a.metadata.ConditionalGetInfo == nil {
		a.metadata.ConditionalGetInfo = make(map[string]domain.ConditionalGetInfo)
	}
	fn(&a.metadata)
	md := a.metadata
	md.ConditionalGetInfo = maps.Clone(a.metadata.ConditionalGetInfo)
	a.mu.Unlock()
	if err := a.metaStore.SaveMetadata(ctx, a.id, md); err != nil {
		return fmt.Errorf("save metadata of %s: %w", a.id, err)
	}
	return nil
}

func (a *Account) containerLocked(containerID string) (*[]string, error) {
	if containerID == Root {
		return &a.rootFeeds, nil
	}
	folder, ok := a.folders[containerID]
	if !ok {
		return nil, fmt.Errorf("folder %s: %w", containerID, domain.ErrFolderNotFound)
	}
	return &folder.feeds, nil
}

func (a *Account) folderByNameLocked(name string) *folderNode {
	for _, folder := range a.folders {
		if folder.name == name {
			return folder
		}
	}
	return nil
}

func (a *Account) sortedFoldersLocked() []*folderNode {
	res := slices.Collect(maps.Values(a.folders))
	sort.Slice(res, func(i, j int) bool {
		if res[i].name == res[j].name {
			return res[i].id < res[j].id
		}
		return res[i].name < res[j].name
	})
	return res
}

func (a *Account) flattenedIDsLocked() []string {
	seen := make(map[string]bool)
	for _, id := range a.rootFeeds {
		seen[id] = true
	}
	for _, folder := range a.folders {
		for _, id := range folder.feeds {
			seen[id] = true
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

func (a *Account) feedsLocked(ids []string) []Feed {
	res := make([]Feed, 0, len(ids))
	for _, id := range ids {
		if f, ok := a.feeds[id]; ok {
			res = append(res, copyFeed(f))
		}
	}
	return res
}

func copyFeed(f *Feed) Feed {
	res := *f
	res.FolderRelationship = maps.Clone(f.FolderRelationship)
	return res
}

func copyFolder(f *folderNode) Folder {
	return Folder{ID: f.id, Name: f.name, FeedIDs: slices.Clone(f.feeds)}
}
