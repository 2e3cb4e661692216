package reconcile

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedsync/pkg/account"
	"github.com/umputun/feedsync/pkg/domain"
)

func folderNames(acc *account.Account) []string {
	var res []string
	for _, f := range acc.Folders() {
		res = append(res, f.Name)
	}
	return res
}

func TestDelegate_SyncFoldersIdempotent(t *testing.T) {
	env := newTestEnv(t, domain.AccountNewsBlur)
	d := env.delegate(nil)

	old := env.acc.EnsureFolder("Old")
	env.acc.CreateFeed("1", "https://a.com/rss", "A", "")
	require.NoError(t, env.acc.AddFeed("1", old.ID))
	require.NoError(t, env.acc.UpdateFeed("1", func(f *account.Feed) {
		f.FolderRelationship = map[string]string{"Old": "r1"}
	}))

	remote := []string{"Tech", domain.RootFolderName, "News"}
	d.SyncFolders(remote)
	assert.Equal(t, []string{"News", "Tech"}, folderNames(env.acc))
	assert.Equal(t, []string{account.Root}, env.acc.ContainersOf("1"), "feed of removed folder moved to root")
	feed, _ := env.acc.ExistingFeed("1")
	assert.Empty(t, feed.FolderRelationship)

	var mu sync.Mutex
	var events []account.Event
	unsubscribe := env.acc.Subscribe(func(e account.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})
	defer unsubscribe()
	ids := map[string]string{}
	for _, f := range env.acc.Folders() {
		ids[f.Name] = f.ID
	}

	d.SyncFolders(remote)
	assert.Equal(t, []string{"News", "Tech"}, folderNames(env.acc))
	for _, f := range env.acc.Folders() {
		assert.Equal(t, ids[f.Name], f.ID, "folder %q kept", f.Name)
	}
	assert.Empty(t, events, "second run changes nothing")
}

func TestDelegate_SyncFeedsKeepsArticles(t *testing.T) {
	env := newTestEnv(t, domain.AccountFeedbin)
	ctx := context.Background()
	d := env.delegate(nil)

	tech := env.acc.EnsureFolder("Tech")
	env.acc.CreateFeed("1", "https://a.com/rss", "A", "")
	env.acc.CreateFeed("2", "https://b.com/rss", "B", "")
	require.NoError(t, env.acc.AddFeed("1", tech.ID))
	require.NoError(t, env.acc.AddFeed("1", account.Root))
	require.NoError(t, env.acc.AddFeed("2", tech.ID))
	require.NoError(t, env.acc.UpdateFeed("2", func(f *account.Feed) { f.EditedName = "my B" }))
	_, err := env.acc.Update(ctx, "1", []domain.ParsedItem{{SyncServiceID: "a1", UniqueID: "a1", Title: "first"}})
	require.NoError(t, err)

	d.SyncFeeds([]domain.RemoteFeed{
		{FeedID: "2", URL: "https://b.com/rss", Name: "B renamed", HomePageURL: "https://b.com", ExternalID: "s2"},
		{FeedID: "3", URL: "https://c.com/rss", Name: "C"},
	})

	assert.Empty(t, env.acc.ContainersOf("1"), "removed from every container")
	arts, err := env.repos.Article.ArticlesForFeed(ctx, "acc", "1", 10)
	require.NoError(t, err)
	require.Len(t, arts, 1, "stored history stays")
	assert.Equal(t, "first", arts[0].Title)

	b, ok := env.acc.ExistingFeed("2")
	require.True(t, ok)
	assert.Equal(t, "B renamed", b.Name)
	assert.Empty(t, b.EditedName, "server name wins")
	assert.Equal(t, "s2", b.ExternalID)
	assert.Equal(t, "https://b.com", b.HomePageURL)

	assert.Equal(t, []string{account.Root}, env.acc.ContainersOf("3"), "new feeds go to root")
}

func TestDelegate_SyncFeedsResubscribed(t *testing.T) {
	env := newTestEnv(t, domain.AccountFeedbin)
	d := env.delegate(nil)
	remote := []domain.RemoteFeed{{FeedID: "7", URL: "https://x.com/rss", Name: "X"}}
	untagged := map[string][]domain.Relationship{}

	d.SyncFeeds(remote)
	d.SyncFeedFolderRelationships(untagged)
	require.Equal(t, []string{account.Root}, env.acc.ContainersOf("7"))

	// unsubscribed on the server
	d.SyncFeeds(nil)
	d.SyncFeedFolderRelationships(untagged)
	require.Empty(t, env.acc.ContainersOf("7"))
	_, ok := env.acc.ExistingFeed("7")
	require.True(t, ok, "feed stays registered")

	// subscribed again
	remote[0].Name = "X again"
	d.SyncFeeds(remote)
	d.SyncFeedFolderRelationships(untagged)
	assert.Equal(t, []string{account.Root}, env.acc.ContainersOf("7"))
	assert.Len(t, env.acc.FlattenedFeeds(), 1)
	x, _ := env.acc.ExistingFeed("7")
	assert.Equal(t, "X again", x.Name)
}

func TestDelegate_SyncFeedsRegisteredWithoutContainer(t *testing.T) {
	env := newTestEnv(t, domain.AccountNewsBlur)
	d := env.delegate(nil)
	env.acc.CreateFeed("5", "https://old.com/rss", "Old", "")
	require.NoError(t, env.acc.UpdateFeed("5", func(f *account.Feed) { f.EditedName = "stale" }))

	d.SyncFeeds([]domain.RemoteFeed{{FeedID: "5", URL: "https://new.com/rss", Name: "New", ExternalID: "e5"}})

	assert.Equal(t, []string{account.Root}, env.acc.ContainersOf("5"))
	f, ok := env.acc.ExistingFeed("5")
	require.True(t, ok)
	assert.Equal(t, "https://new.com/rss", f.URL)
	assert.Equal(t, "New", f.Name)
	assert.Empty(t, f.EditedName)
	assert.Equal(t, "e5", f.ExternalID)
}

func TestDelegate_SyncRelationshipsMultiFolder(t *testing.T) {
	env := newTestEnv(t, domain.AccountFeedbin)
	d := env.delegate(nil)

	d.SyncFolders([]string{"Tech", "News"})
	d.SyncFeeds([]domain.RemoteFeed{{FeedID: "X", URL: "https://x.com/rss", Name: "X"}})
	d.SyncFeedFolderRelationships(map[string][]domain.Relationship{
		"Tech": {{FeedID: "X", RelationshipID: "id1"}},
		"News": {{FeedID: "X", RelationshipID: "id2"}},
	})

	x, ok := env.acc.ExistingFeed("X")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"Tech": "id1", "News": "id2"}, x.FolderRelationship)
	tech, _ := env.acc.FolderByName("Tech")
	news, _ := env.acc.FolderByName("News")
	assert.ElementsMatch(t, []string{tech.ID, news.ID}, env.acc.ContainersOf("X"), "not in root any more")

	// dropped from Tech remotely
	d.SyncFeedFolderRelationships(map[string][]domain.Relationship{
		"Tech": {},
		"News": {{FeedID: "X", RelationshipID: "id2"}},
	})
	x, _ = env.acc.ExistingFeed("X")
	assert.Equal(t, map[string]string{"News": "id2"}, x.FolderRelationship)
	assert.Equal(t, []string{news.ID}, env.acc.ContainersOf("X"))
}

func TestDelegate_SyncRelationshipsRootEntry(t *testing.T) {
	env := newTestEnv(t, domain.AccountNewsBlur)
	d := env.delegate(nil)

	d.SyncFolders([]string{"Tech"})
	d.SyncFeeds([]domain.RemoteFeed{{FeedID: "1", Name: "one"}, {FeedID: "2", Name: "two"}, {FeedID: "3", Name: "three"}})
	tech, _ := env.acc.FolderByName("Tech")
	require.NoError(t, env.acc.AddFeed("3", tech.ID))

	d.SyncFeedFolderRelationships(map[string][]domain.Relationship{
		domain.RootFolderName: {{FeedID: "1"}},
		"Tech":                {{FeedID: "2"}},
	})

	assert.Equal(t, []string{account.Root}, env.acc.ContainersOf("1"))
	assert.Equal(t, []string{tech.ID}, env.acc.ContainersOf("2"), "root entry lists only feed 1")
	assert.Empty(t, env.acc.ContainersOf("3"), "dropped from folder then from root")
}

func TestDelegate_SyncRelationshipsNil(t *testing.T) {
	env := newTestEnv(t, domain.AccountFeedly)
	d := env.delegate(nil)
	env.acc.CreateFeed("1", "https://a.com/rss", "A", "")
	require.NoError(t, env.acc.AddFeed("1", account.Root))

	d.SyncFeedFolderRelationships(nil)
	assert.Equal(t, []string{account.Root}, env.acc.ContainersOf("1"))
}

func TestDelegate_RefreshFeedsSingleBatch(t *testing.T) {
	env := newTestEnv(t, domain.AccountFeedbin)
	env.svc.FetchTaxonomyFunc = func(context.Context) (domain.RemoteTaxonomy, error) {
		return domain.RemoteTaxonomy{
			Folders:       []string{"Tech"},
			Feeds:         []domain.RemoteFeed{{FeedID: "1", Name: "A"}, {FeedID: "2", Name: "B"}},
			Relationships: map[string][]domain.Relationship{"Tech": {{FeedID: "2", RelationshipID: "t2"}}},
		}, nil
	}
	var mu sync.Mutex
	var kinds []account.EventKind
	unsubscribe := env.acc.Subscribe(func(e account.Event) {
		mu.Lock()
		kinds = append(kinds, e.Kind)
		mu.Unlock()
	})
	defer unsubscribe()

	require.NoError(t, env.delegate(nil).RefreshFeeds(context.Background()))
	assert.Equal(t, []account.EventKind{account.BatchUpdateDidPerform}, kinds)
	tech, _ := env.acc.FolderByName("Tech")
	assert.Equal(t, []string{tech.ID}, env.acc.ContainersOf("2"))
	assert.Equal(t, []string{account.Root}, env.acc.ContainersOf("1"))
}
