package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedsync/pkg/account"
	"github.com/umputun/feedsync/pkg/domain"
	"github.com/umputun/feedsync/pkg/reconcile/mocks"
	"github.com/umputun/feedsync/pkg/repository"
)

type testEnv struct {
	acc   *account.Account
	repos *repository.Repositories
	svc   *mocks.ServiceMock
}

func newTestEnv(t *testing.T, accType domain.AccountType) *testEnv {
	t.Helper()
	ctx := context.Background()
	repos, err := repository.NewRepositories(ctx, repository.Config{DSN: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })
	require.NoError(t, repos.Account.Upsert(ctx, domain.AccountRecord{ID: "acc", Type: accType}))

	acc := account.New(account.Params{ID: "acc", Type: accType, Taxonomy: repos.Taxonomy, Articles: repos.Article,
		Statuses: repos.Status, SyncStatuses: repos.SyncStatus, Metadata: repos.Setting, SaveInterval: time.Hour})
	return &testEnv{acc: acc, repos: repos, svc: newServiceMock()}
}

func (e *testEnv) delegate(svc Service) *Delegate {
	if svc == nil {
		svc = e.svc
	}
	return NewDelegate(Params{Account: e.acc, Service: svc, SyncStatuses: e.repos.SyncStatus})
}

func newServiceMock() *mocks.ServiceMock {
	return &mocks.ServiceMock{
		NameFunc: func() string { return "test" },
		FetchTaxonomyFunc: func(context.Context) (domain.RemoteTaxonomy, error) {
			return domain.RemoteTaxonomy{}, nil
		},
		FetchStatusIDsFunc: func(context.Context, domain.StatusKey) ([]domain.StoryHash, error) {
			return nil, nil
		},
		FetchArticlesFunc: func(context.Context, []string) ([]domain.ParsedItem, error) {
			return nil, nil
		},
		MaxArticlesPerRequestFunc: func() int { return 2 },
		SendStatusesFunc: func(context.Context, domain.StatusKey, bool, []string) error {
			return nil
		},
		StatusChunkSizeFunc: func(_ domain.StatusKey, _ bool, throttled bool) int {
			if throttled {
				return 1
			}
			return 2
		},
		SubscribeFunc: func(_ context.Context, url, _ string) (domain.RemoteFeed, error) {
			return domain.RemoteFeed{FeedID: "100", URL: url, Name: "New feed"}, nil
		},
		UnsubscribeFunc: func(context.Context, account.Feed, string) error {
			return nil
		},
	}
}

func TestDelegate_RefreshAllStages(t *testing.T) {
	env := newTestEnv(t, domain.AccountNewsBlur)
	var states []State
	d := env.delegate(nil)
	env.svc.FetchTaxonomyFunc = func(context.Context) (domain.RemoteTaxonomy, error) {
		states = append(states, d.State())
		return domain.RemoteTaxonomy{
			Folders: []string{"Tech"},
			Feeds:   []domain.RemoteFeed{{FeedID: "1", URL: "https://a.com/rss", Name: "A"}},
			Relationships: map[string][]domain.Relationship{
				"Tech": {{FeedID: "1"}},
			},
		}, nil
	}
	env.svc.FetchStatusIDsFunc = func(_ context.Context, key domain.StatusKey) ([]domain.StoryHash, error) {
		states = append(states, d.State())
		if key == domain.StatusRead {
			return []domain.StoryHash{{ID: "s1", Timestamp: time.Now().Add(-time.Hour)}}, nil
		}
		return nil, nil
	}
	env.svc.FetchArticlesFunc = func(_ context.Context, ids []string) ([]domain.ParsedItem, error) {
		states = append(states, d.State())
		res := make([]domain.ParsedItem, 0, len(ids))
		for _, id := range ids {
			res = append(res, domain.ParsedItem{SyncServiceID: id, FeedID: "1", UniqueID: id, Title: "story " + id})
		}
		return res, nil
	}

	require.NoError(t, d.RefreshAll(context.Background()))
	assert.Equal(t, StateIdle, d.State())
	assert.True(t, d.Progress().IsComplete())
	assert.Equal(t, []State{StateFetchingSubscriptions, StateFetchingServerStatusChanges,
		StateFetchingServerStatusChanges, StateFetchingArticles}, states)
	assert.Len(t, env.svc.FetchStatusIDsCalls(), 2, "unread hashes of the status stage are reused")

	tech, ok := env.acc.FolderByName("Tech")
	require.True(t, ok)
	assert.Equal(t, []string{"1"}, tech.FeedIDs)
	unread, err := env.acc.UnreadArticleIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, unread)
	arts, err := env.repos.Article.Articles(context.Background(), "acc", []string{"s1"})
	require.NoError(t, err)
	require.Len(t, arts, 1)
	assert.False(t, arts[0].Status.Read)

	md := env.acc.Metadata()
	require.NotNil(t, md.LastArticleFetchStartTime)
	require.NotNil(t, md.LastArticleFetchEndTime)
}

func TestDelegate_RefreshAllStopsOnFailure(t *testing.T) {
	env := newTestEnv(t, domain.AccountFeedbin)
	env.svc.FetchStatusIDsFunc = func(context.Context, domain.StatusKey) ([]domain.StoryHash, error) {
		return nil, errors.New("boom")
	}
	d := env.delegate(nil)

	err := d.RefreshAll(context.Background())
	require.Error(t, err)
	var accErr *AccountError
	require.ErrorAs(t, err, &accErr)
	assert.Equal(t, "acc", accErr.AccountID)
	assert.Equal(t, string(StateFetchingServerStatusChanges), accErr.Op)
	assert.Empty(t, env.svc.FetchArticlesCalls(), "later stages skipped")
	assert.Equal(t, StateIdle, d.State())
}

func TestDelegate_RefreshAllSingleFlight(t *testing.T) {
	env := newTestEnv(t, domain.AccountFeedbin)
	started, release := make(chan struct{}), make(chan struct{})
	env.svc.FetchTaxonomyFunc = func(context.Context) (domain.RemoteTaxonomy, error) {
		close(started)
		<-release
		return domain.RemoteTaxonomy{}, nil
	}
	d := env.delegate(nil)

	done := make(chan error, 1)
	go func() { done <- d.RefreshAll(context.Background()) }()
	<-started

	assert.False(t, d.Progress().IsComplete())
	require.NoError(t, d.RefreshAll(context.Background()), "second call returns right away")
	close(release)
	require.NoError(t, <-done)
	assert.Len(t, env.svc.FetchTaxonomyCalls(), 1)
}

func TestDelegate_Validate(t *testing.T) {
	env := newTestEnv(t, domain.AccountFeedbin)
	require.NoError(t, env.delegate(nil).Validate(context.Background()), "services without credentials check pass")

	svc := &authService{ServiceMock: env.svc, err: errors.New("bad password")}
	err := env.delegate(svc).Validate(context.Background())
	var accErr *AccountError
	require.ErrorAs(t, err, &accErr)
	assert.EqualError(t, accErr.Err, "bad password")
}

type authService struct {
	*mocks.ServiceMock
	err error
}

func (s *authService) Validate(context.Context) error { return s.err }
