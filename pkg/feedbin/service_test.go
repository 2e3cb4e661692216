package feedbin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedsync/pkg/account"
	"github.com/umputun/feedsync/pkg/domain"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type fakeFeedbin struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func newFakeFeedbin(t *testing.T, handler http.HandlerFunc) *fakeFeedbin {
	t.Helper()
	f := &fakeFeedbin{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "user@example.com" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})
		f.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeFeedbin) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func newTestService(t *testing.T, srv *fakeFeedbin, password string) *Service {
	t.Helper()
	client, err := NewClient(Params{BaseURL: srv.URL + "/v2/", Username: "user@example.com", Password: password, Timeout: time.Second})
	require.NoError(t, err)
	return NewService(client)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestService_Validate(t *testing.T) {
	srv := newFakeFeedbin(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/authentication.json", r.URL.Path)
	})
	require.NoError(t, newTestService(t, srv, "secret").Validate(context.Background()))
	require.Error(t, newTestService(t, srv, "wrong").Validate(context.Background()))
}

func TestService_FetchTaxonomy(t *testing.T) {
	var subCalls int
	srv := newFakeFeedbin(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/subscriptions.json":
			subCalls++
			assert.Equal(t, "extended", r.URL.Query().Get("mode"))
			if r.Header.Get("If-None-Match") == `"v1"` {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.Header().Set("ETag", `"v1"`)
			writeJSON(t, w, []Subscription{
				{ID: 10, FeedID: 1, Title: "Daring Fireball", FeedURL: "https://df.com/rss", SiteURL: "https://df.com",
					JSONFeed: &JSONFeed{Favicon: "https://df.com/favicon.ico"}},
				{ID: 20, FeedID: 2, Title: "Go blog", FeedURL: "https://go.dev/blog/feed.atom"},
			})
		case "/v2/taggings.json":
			writeJSON(t, w, []Tagging{{ID: 100, FeedID: 1, Name: "Tech"}, {ID: 101, FeedID: 2, Name: "Tech"},
				{ID: 102, FeedID: 2, Name: "Go"}})
		default:
			t.Errorf("unexpected %s", r.URL.Path)
		}
	})
	svc := newTestService(t, srv, "secret")

	for range 2 {
		tx, err := svc.FetchTaxonomy(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"Go", "Tech"}, tx.Folders)
		require.Len(t, tx.Feeds, 2)
		assert.Equal(t, domain.RemoteFeed{FeedID: "1", URL: "https://df.com/rss", Name: "Daring Fireball",
			HomePageURL: "https://df.com", FaviconURL: "https://df.com/favicon.ico", ExternalID: "10"}, tx.Feeds[0])
		assert.Equal(t, []domain.Relationship{{FeedID: "1", RelationshipID: "100"}, {FeedID: "2", RelationshipID: "101"}},
			tx.Relationships["Tech"])
		assert.Equal(t, []domain.Relationship{{FeedID: "2", RelationshipID: "102"}}, tx.Relationships["Go"])
	}
	assert.Equal(t, 2, subCalls, "second call answered not modified from cache")
}

func TestService_StatusIDsAndSend(t *testing.T) {
	srv := newFakeFeedbin(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/unread_entries.json", "/v2/starred_entries.json":
			if r.Method == http.MethodGet {
				writeJSON(t, w, []int64{3, 1, 2})
			}
		default:
			t.Errorf("unexpected %s", r.URL.Path)
		}
	})
	svc := newTestService(t, srv, "secret")
	ctx := context.Background()

	hashes, err := svc.FetchStatusIDs(ctx, domain.StatusRead)
	require.NoError(t, err)
	assert.Equal(t, []domain.StoryHash{{ID: "3"}, {ID: "1"}, {ID: "2"}}, hashes)

	require.NoError(t, svc.SendStatuses(ctx, domain.StatusRead, true, []string{"1", "2"}))
	require.NoError(t, svc.SendStatuses(ctx, domain.StatusRead, false, []string{"3"}))
	require.NoError(t, svc.SendStatuses(ctx, domain.StatusStarred, true, []string{"4"}))
	require.NoError(t, svc.SendStatuses(ctx, domain.StatusStarred, false, []string{"5"}))
	require.ErrorIs(t, svc.SendStatuses(ctx, domain.StatusRead, true, []string{"abc"}), domain.ErrInvalidParameter)

	reqs := srv.recorded()[1:]
	require.Len(t, reqs, 4)
	assert.Equal(t, recordedRequest{Method: http.MethodDelete, Path: "/v2/unread_entries.json", Body: `{"unread_entries":[1,2]}`}, reqs[0])
	assert.Equal(t, recordedRequest{Method: http.MethodPost, Path: "/v2/unread_entries.json", Body: `{"unread_entries":[3]}`}, reqs[1])
	assert.Equal(t, recordedRequest{Method: http.MethodPost, Path: "/v2/starred_entries.json", Body: `{"starred_entries":[4]}`}, reqs[2])
	assert.Equal(t, recordedRequest{Method: http.MethodDelete, Path: "/v2/starred_entries.json", Body: `{"starred_entries":[5]}`}, reqs[3])
}

func TestService_FetchStreamPaging(t *testing.T) {
	var srvURL string
	srv := newFakeFeedbin(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/entries.json", r.URL.Path)
		if r.URL.Query().Get("page") == "2" {
			writeJSON(t, w, []Entry{{ID: 3, FeedID: 1, Title: "three", Published: "2024-01-03T10:00:00.000000Z"}})
			return
		}
		assert.Equal(t, "2024-01-01T00:00:00.000000Z", r.URL.Query().Get("since"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		w.Header().Set("Link", `<`+srvURL+`/v2/entries.json?page=2>; rel="next", <`+srvURL+`/v2/entries.json?page=2>; rel="last"`)
		writeJSON(t, w, []Entry{
			{ID: 1, FeedID: 1, Title: "one", Author: "me", Content: "<p>hi</p>", URL: "https://df.com/1",
				Published: "2024-01-02T10:00:00.000000Z", Images: &Images{OriginalURL: "https://img/1.png"}},
			{ID: 2, FeedID: 2, Title: "two", CreatedAt: "2024-01-02T11:00:00.000000Z"},
		})
	})
	srvURL = srv.URL
	svc := newTestService(t, srv, "secret")
	ctx := context.Background()

	page, err := svc.FetchStream(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, srv.URL+"/v2/entries.json?page=2", page.Cursor)
	first := page.Items[0]
	assert.Equal(t, "1", first.ArticleID())
	assert.Equal(t, "1", first.FeedID)
	assert.Equal(t, []string{"me"}, first.Authors)
	assert.Equal(t, "https://img/1.png", first.ImageURL)
	require.NotNil(t, first.DatePublished)
	assert.Equal(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), *first.DatePublished)
	require.NotNil(t, page.Items[1].DatePublished, "created_at fallback")

	page, err = svc.FetchStream(ctx, time.Time{}, page.Cursor)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Empty(t, page.Cursor)
}

func TestService_Subscribe(t *testing.T) {
	srv := newFakeFeedbin(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/subscriptions.json":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			switch body["feed_url"] {
			case "https://new.com":
				w.WriteHeader(http.StatusCreated)
				writeJSON(t, w, Subscription{ID: 55, FeedID: 5, Title: "New", FeedURL: "https://new.com/rss"})
			case "https://many.com":
				w.WriteHeader(http.StatusMultipleChoices)
				writeJSON(t, w, []SubscriptionChoice{{Title: "a", FeedURL: "https://many.com/a"}, {Title: "b", FeedURL: "https://many.com/b"}})
			case "https://dup.com":
				w.Header().Set("Location", "https://api.feedbin.com/v2/subscriptions/1.json")
				w.WriteHeader(http.StatusFound)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		case "/v2/taggings.json":
			w.Header().Set("Location", "https://api.feedbin.com/v2/taggings/777.json")
			w.WriteHeader(http.StatusCreated)
		default:
			t.Errorf("unexpected %s", r.URL.Path)
		}
	})
	svc := newTestService(t, srv, "secret")
	ctx := context.Background()

	rf, err := svc.Subscribe(ctx, "https://new.com", "Tech")
	require.NoError(t, err)
	assert.Equal(t, domain.RemoteFeed{FeedID: "5", URL: "https://new.com/rss", Name: "New", ExternalID: "55", RelationshipID: "777"}, rf)

	_, err = svc.Subscribe(ctx, "https://many.com", "")
	require.ErrorIs(t, err, domain.ErrMultipleChoices)
	var choicesErr *ErrMultipleChoices
	require.ErrorAs(t, err, &choicesErr)
	assert.Len(t, choicesErr.Choices, 2)

	_, err = svc.Subscribe(ctx, "https://dup.com", "")
	require.ErrorIs(t, err, domain.ErrAlreadySubscribed)

	_, err = svc.Subscribe(ctx, "https://nothing.com", "")
	require.ErrorIs(t, err, domain.ErrNoFeedFound)
}

func TestService_UnsubscribeAndMove(t *testing.T) {
	srv := newFakeFeedbin(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/taggings.json" {
			w.Header().Set("Location", "https://api.feedbin.com/v2/taggings/900.json")
			w.WriteHeader(http.StatusCreated)
		}
	})
	svc := newTestService(t, srv, "secret")
	ctx := context.Background()
	feed := account.Feed{FeedID: "5", ExternalID: "55", FolderRelationship: map[string]string{"Tech": "1", "News": "2"}}

	require.NoError(t, svc.Unsubscribe(ctx, feed, "Tech"))
	require.NoError(t, svc.Unsubscribe(ctx, account.Feed{FeedID: "5", ExternalID: "55",
		FolderRelationship: map[string]string{"News": "2"}}, "News"))
	require.NoError(t, svc.Unsubscribe(ctx, account.Feed{FeedID: "6", ExternalID: "66"}, ""))

	relID, err := svc.MoveFeed(ctx, feed, "Tech", "Go")
	require.NoError(t, err)
	assert.Equal(t, "900", relID)

	var got []string
	for _, r := range srv.recorded() {
		got = append(got, r.Method+" "+r.Path)
	}
	assert.Equal(t, []string{
		"DELETE /v2/taggings/1.json",
		"DELETE /v2/taggings/2.json", "DELETE /v2/subscriptions/55.json",
		"DELETE /v2/subscriptions/66.json",
		"POST /v2/taggings.json", "DELETE /v2/taggings/1.json",
	}, got)
}
