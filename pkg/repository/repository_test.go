package repository

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedsync/pkg/domain"
)

// setupTestDB creates in-memory repositories with one account
func setupTestDB(t *testing.T) (repos *Repositories, cleanup func()) {
	t.Helper()
	cfg := Config{
		DSN:             ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 30 * time.Second,
	}
	repos, err := NewRepositories(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, repos.Account.Upsert(context.Background(),
		domain.AccountRecord{ID: "acc1", Type: domain.AccountLocal, Name: "On My Mac"}))
	return repos, func() { _ = repos.Close() }
}

func TestRepositories_Integration(t *testing.T) {
	repos, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repos.Ping(ctx))

	t.Run("accounts", func(t *testing.T) {
		require.NoError(t, repos.Account.Upsert(ctx, domain.AccountRecord{ID: "acc2", Type: domain.AccountFeedbin, Name: "fb"}))
		require.NoError(t, repos.Account.Upsert(ctx, domain.AccountRecord{ID: "acc2", Type: domain.AccountFeedbin, Name: "Feedbin"}))
		accs, err := repos.Account.List(ctx)
		require.NoError(t, err)
		require.Len(t, accs, 2)
		assert.Equal(t, "Feedbin", accs[1].Name)
		assert.Equal(t, domain.AccountFeedbin, accs[1].Type)

		require.NoError(t, repos.Account.Delete(ctx, "acc2"))
		accs, err = repos.Account.List(ctx)
		require.NoError(t, err)
		assert.Len(t, accs, 1)
	})

	t.Run("settings and metadata", func(t *testing.T) {
		v, err := repos.Setting.GetSetting(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, v)

		require.NoError(t, repos.Setting.SetSetting(ctx, "k", "v1"))
		require.NoError(t, repos.Setting.SetSetting(ctx, "k", "v2"))
		v, err = repos.Setting.GetSetting(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v2", v)
		require.NoError(t, repos.Setting.DeleteSetting(ctx, "k"))

		md, err := repos.Setting.LoadMetadata(ctx, "acc1")
		require.NoError(t, err)
		assert.Nil(t, md.LastArticleFetchEndTime)

		ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		md.LastArticleFetchEndTime = &ts
		md.ConditionalGetInfo = map[string]domain.ConditionalGetInfo{"subscriptions": {ETag: `"abc"`}}
		require.NoError(t, repos.Setting.SaveMetadata(ctx, "acc1", md))

		loaded, err := repos.Setting.LoadMetadata(ctx, "acc1")
		require.NoError(t, err)
		require.NotNil(t, loaded.LastArticleFetchEndTime)
		assert.True(t, ts.Equal(*loaded.LastArticleFetchEndTime))
		assert.Equal(t, `"abc"`, loaded.ConditionalGetInfo["subscriptions"].ETag)
	})
}

func TestNewRepositories_InvalidDSN(t *testing.T) {
	cfg := Config{
		DSN: "invalid://database/url",
	}

	_, err := NewRepositories(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRepositories_Close(t *testing.T) {
	cfg := Config{
		DSN:             ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 30 * time.Second,
	}

	repos, err := NewRepositories(context.Background(), cfg)
	require.NoError(t, err)

	// close should not error
	assert.NoError(t, repos.Close())

	// second close should not error
	assert.NoError(t, repos.Close())
}

func TestTaxonomyRepository_SaveLoad(t *testing.T) {
	repos, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tx := domain.Taxonomy{
		Folders: []domain.FolderRecord{{ID: "f1", Name: "Tech"}, {ID: "f2", Name: "News"}},
		Feeds: []domain.FeedRecord{
			{FeedID: "100", URL: "https://example.com/feed", ExternalID: "sub-1", Name: "Example",
				ConditionalGet: domain.ConditionalGetInfo{ETag: "e1"}, Containers: []string{"f1", "f2"},
				Relationships: map[string]string{"Tech": "tag-1", "News": "tag-2"}},
			{FeedID: "200", URL: "https://other.com/rss", Name: "Other", Containers: []string{""}},
		},
	}
	require.NoError(t, repos.Taxonomy.Save(ctx, "acc1", tx))

	loaded, err := repos.Taxonomy.Load(ctx, "acc1")
	require.NoError(t, err)
	require.Len(t, loaded.Folders, 2)
	assert.Equal(t, "Tech", loaded.Folders[0].Name)
	require.Len(t, loaded.Feeds, 2)
	assert.Equal(t, []string{"f1", "f2"}, loaded.Feeds[0].Containers)
	assert.Equal(t, "e1", loaded.Feeds[0].ConditionalGet.ETag)
	assert.Equal(t, "tag-2", loaded.Feeds[0].Relationships["News"])
	assert.Equal(t, []string{""}, loaded.Feeds[1].Containers)
	assert.Nil(t, loaded.Feeds[1].Relationships)

	// save replaces everything
	tx.Feeds = tx.Feeds[1:]
	tx.Folders = nil
	require.NoError(t, repos.Taxonomy.Save(ctx, "acc1", tx))
	loaded, err = repos.Taxonomy.Load(ctx, "acc1")
	require.NoError(t, err)
	assert.Empty(t, loaded.Folders)
	require.Len(t, loaded.Feeds, 1)
	assert.Equal(t, "200", loaded.Feeds[0].FeedID)
}

func TestArticleRepository_Update(t *testing.T) {
	repos, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	pub := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	items := make([]domain.ParsedItem, 3)
	for i := range items {
		p := pub.Add(time.Duration(i) * time.Hour)
		items[i] = domain.ParsedItem{
			FeedID: "feed1", UniqueID: fmt.Sprintf("guid-%d", i), Title: fmt.Sprintf("Article %d", i),
			URL: fmt.Sprintf("https://example.com/%d", i), DatePublished: &p, Authors: []string{"bob"},
		}
	}

	t.Run("insert new", func(t *testing.T) {
		res, err := repos.Article.Update(ctx, "acc1", append(items, items[0]), false)
		require.NoError(t, err)
		assert.Len(t, res.New, 3, "duplicate item stored once")
		assert.Empty(t, res.Updated)
		assert.False(t, res.New[0].Status.Read)
		assert.Equal(t, domain.ArticleIDFor("feed1", "guid-0"), res.New[0].ArticleID)
	})

	t.Run("unchanged is skipped", func(t *testing.T) {
		res, err := repos.Article.Update(ctx, "acc1", items, false)
		require.NoError(t, err)
		assert.True(t, res.Empty())
	})

	t.Run("changed fields only", func(t *testing.T) {
		changed := items[1]
		changed.Title = "Article 1 updated"
		changed.Tags = []string{"go"}
		res, err := repos.Article.Update(ctx, "acc1", []domain.ParsedItem{changed}, false)
		require.NoError(t, err)
		assert.Empty(t, res.New)
		require.Len(t, res.Updated, 1)

		arts, err := repos.Article.Articles(ctx, "acc1", []string{changed.ArticleID()})
		require.NoError(t, err)
		require.Len(t, arts, 1)
		assert.Equal(t, "Article 1 updated", arts[0].Title)
		assert.Equal(t, []string{"go"}, arts[0].Tags)
		assert.Equal(t, []string{"bob"}, arts[0].Authors)
		require.NotNil(t, arts[0].DatePublished)
		assert.True(t, arts[0].DatePublished.Equal(*items[1].DatePublished))
	})

	t.Run("recent and unread counts", func(t *testing.T) {
		recent, err := repos.Article.Recent(ctx, "acc1", false, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "guid-2", recent[0].UniqueID)

		_, err = repos.Status.Mark(ctx, "acc1", []string{items[2].ArticleID()}, domain.StatusRead, true)
		require.NoError(t, err)

		unread, err := repos.Article.Recent(ctx, "acc1", true, 0)
		require.NoError(t, err)
		assert.Len(t, unread, 2)

		counts, err := repos.Article.UnreadCounts(ctx, "acc1")
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"feed1": 2}, counts)

		forFeed, err := repos.Article.ArticlesForFeed(ctx, "acc1", "feed1", 0)
		require.NoError(t, err)
		assert.Len(t, forFeed, 3)
	})

	t.Run("default read for remote services", func(t *testing.T) {
		res, err := repos.Article.Update(ctx, "acc1", []domain.ParsedItem{
			{SyncServiceID: "remote-1", FeedID: "feed2", Title: "remote"}}, true)
		require.NoError(t, err)
		require.Len(t, res.New, 1)
		assert.Equal(t, "remote-1", res.New[0].ArticleID)
		assert.True(t, res.New[0].Status.Read)
	})
}

func TestStatusRepository_Mark(t *testing.T) {
	repos, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	changed, err := repos.Status.Mark(ctx, "acc1", []string{"a", "b", "c"}, domain.StatusStarred, true)
	require.NoError(t, err)
	sort.Strings(changed)
	assert.Equal(t, []string{"a", "b", "c"}, changed)

	changed, err = repos.Status.Mark(ctx, "acc1", []string{"a", "d"}, domain.StatusStarred, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, changed, "already starred is not reported")

	starred, err := repos.Status.StarredArticleIDs(ctx, "acc1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, starred)

	unread, err := repos.Status.UnreadArticleIDs(ctx, "acc1")
	require.NoError(t, err)
	assert.Len(t, unread, 4, "created rows are unread")

	_, err = repos.Status.Mark(ctx, "acc1", []string{"a"}, domain.StatusKey("bogus"), true)
	require.ErrorIs(t, err, domain.ErrInvalidParameter)

	statuses, err := repos.Status.Statuses(ctx, "acc1", []string{"a", "zzz"})
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses["a"].Starred)

	missing, err := repos.Status.ArticleIDsWithoutArticles(ctx, "acc1", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, missing)

	_, err = repos.Article.Update(ctx, "acc1", []domain.ParsedItem{{SyncServiceID: "b", FeedID: "f"}}, false)
	require.NoError(t, err)
	missing, err = repos.Status.ArticleIDsWithoutArticles(ctx, "acc1", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "d"}, missing)

	missing, err = repos.Status.ArticleIDsWithoutArticles(ctx, "acc1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestSyncStatusRepository_Lifecycle(t *testing.T) {
	repos, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repos.SyncStatus.Insert(ctx, "acc1", []domain.SyncStatus{
		{ArticleID: "a", Key: domain.StatusRead, Flag: true},
		{ArticleID: "b", Key: domain.StatusRead, Flag: true},
		{ArticleID: "a", Key: domain.StatusStarred, Flag: true},
	}))

	selected, err := repos.SyncStatus.SelectForProcessing(ctx, "acc1", 0)
	require.NoError(t, err)
	require.Len(t, selected, 3)
	assert.True(t, selected[0].Selected)

	again, err := repos.SyncStatus.SelectForProcessing(ctx, "acc1", 0)
	require.NoError(t, err)
	assert.Empty(t, again, "selected rows are not handed out twice")

	// newer change replaces an in-flight one
	require.NoError(t, repos.SyncStatus.Insert(ctx, "acc1", []domain.SyncStatus{{ArticleID: "a", Key: domain.StatusRead, Flag: false}}))

	require.NoError(t, repos.SyncStatus.DeleteSelected(ctx, "acc1", domain.StatusRead, []string{"a", "b"}))
	pending, err := repos.SyncStatus.PendingIDs(ctx, "acc1", domain.StatusRead)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, pending, "newer change survives the older push")

	require.NoError(t, repos.SyncStatus.ResetSelected(ctx, "acc1", domain.StatusStarred, []string{"a"}))
	selected, err = repos.SyncStatus.SelectForProcessing(ctx, "acc1", 1)
	require.NoError(t, err)
	require.Len(t, selected, 1)

	require.NoError(t, repos.SyncStatus.ResetAllSelected(ctx, "acc1"))
	selected, err = repos.SyncStatus.SelectForProcessing(ctx, "acc1", 0)
	require.NoError(t, err)
	assert.Len(t, selected, 2)

	cnt, err := repos.SyncStatus.Count(ctx, "acc1")
	require.NoError(t, err)
	assert.Equal(t, 2, cnt)
}

func TestChunkIDs(t *testing.T) {
	ids := make([]string, maxInParams*2+1)
	chunks := chunkIDs(ids)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[2], 1)
	assert.Empty(t, chunkIDs(nil))
}

func TestStringList(t *testing.T) {
	v, err := stringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var l stringList
	require.NoError(t, l.Scan(`["a","b"]`))
	assert.Equal(t, stringList{"a", "b"}, l)
	require.NoError(t, l.Scan([]byte(`[]`)))
	assert.Nil(t, l)
	assert.Error(t, l.Scan(42))
}

func TestCriticalError(t *testing.T) {
	originalErr := fmt.Errorf("test error message")
	critErr := &criticalError{err: originalErr}

	assert.Equal(t, "test error message", critErr.Error())
	assert.ErrorIs(t, critErr, originalErr)
}

func TestWithRetry(t *testing.T) {
	t.Run("lock error retried", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), "op", func() error {
			calls++
			if calls < 3 {
				return fmt.Errorf("database is locked")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("other error wrapped with name", func(t *testing.T) {
		err := withRetry(context.Background(), "op", func() error { return fmt.Errorf("syntax error") })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "op: syntax error")
	})
}

func TestIsLockError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.False(t, isLockError(nil))
	})

	t.Run("sqlite busy error", func(t *testing.T) {
		err := fmt.Errorf("SQLITE_BUSY: database is busy")
		assert.True(t, isLockError(err))
	})

	t.Run("database locked error", func(t *testing.T) {
		err := fmt.Errorf("database is locked")
		assert.True(t, isLockError(err))
	})

	t.Run("table locked error", func(t *testing.T) {
		err := fmt.Errorf("database table is locked")
		assert.True(t, isLockError(err))
	})

	t.Run("non-lock error", func(t *testing.T) {
		err := fmt.Errorf("syntax error")
		assert.False(t, isLockError(err))
	})
}
