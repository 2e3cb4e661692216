package newsblur

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedsync/pkg/account"
	"github.com/umputun/feedsync/pkg/domain"
)

type fakeNewsBlur struct {
	*httptest.Server
	logins atomic.Int32
	mu     sync.Mutex
	forms  map[string][]map[string][]string // path -> posted forms
}

// newFakeNewsBlur serves api/login itself and hands other requests with a valid session to handler
func newFakeNewsBlur(t *testing.T, handler http.HandlerFunc) *fakeNewsBlur {
	t.Helper()
	f := &fakeNewsBlur{forms: make(map[string][]map[string][]string)}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.URL.Path == "/api/login" {
			f.logins.Add(1)
			w.Header().Set("Content-Type", "application/json")
			if r.PostForm.Get("username") != "user" || r.PostForm.Get("password") != "secret" {
				_, _ = w.Write([]byte(`{"code":-1,"errors":{"__all__":["Whoopsy-daisy, wrong password. Try again."]}}`))
				return
			}
			http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "sess-1", Path: "/"})
			_, _ = w.Write([]byte(`{"code":1,"authenticated":true}`))
			return
		}
		if c, err := r.Cookie(SessionCookie); err != nil || c.Value != "sess-1" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.Method == http.MethodPost {
			f.mu.Lock()
			f.forms[r.URL.Path] = append(f.forms[r.URL.Path], r.PostForm)
			f.mu.Unlock()
		}
		handler(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeNewsBlur) posted(path string) []map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forms[path]
}

func newTestService(t *testing.T, srv *fakeNewsBlur, password string) *Service {
	t.Helper()
	client, err := NewClient(Params{BaseURL: srv.URL + "/", Username: "user", Password: password, Timeout: time.Second})
	require.NoError(t, err)
	return NewService(client)
}

func writeRaw(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestService_Validate(t *testing.T) {
	srv := newFakeNewsBlur(t, func(http.ResponseWriter, *http.Request) {})

	require.NoError(t, newTestService(t, srv, "secret").Validate(context.Background()))

	err := newTestService(t, srv, "wrong").Validate(context.Background())
	var gerr *GeneralError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "Whoopsy-daisy, wrong password. Try again.", gerr.Message)
}

func TestClient_LoginIsLazy(t *testing.T) {
	srv := newFakeNewsBlur(t, func(w http.ResponseWriter, _ *http.Request) {
		writeRaw(w, `{"starred_story_hashes":[]}`)
	})
	svc := newTestService(t, srv, "secret")
	_, err := svc.FetchStatusIDs(context.Background(), domain.StatusStarred)
	require.NoError(t, err)
	_, err = svc.FetchStatusIDs(context.Background(), domain.StatusStarred)
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.logins.Load(), "one login for both calls")
}

func TestService_FetchTaxonomy(t *testing.T) {
	srv := newFakeNewsBlur(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reader/feeds", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("flat"))
		writeRaw(w, `{
			"feeds": {
				"42": {"id": 42, "feed_title": "Tom &amp; Jerry", "feed_address": "https://a.example.com/rss",
					"feed_link": "https://a.example.com", "favicon_url": "https://a.example.com/favicon.ico"},
				"43": {"id": 43, "feed_title": "B", "feed_address": "https://b.example.com/rss"}
			},
			"flat_folders": {" ": [42], "Tech": [42, 43]}
		}`)
	})

	tx, err := newTestService(t, srv, "secret").FetchTaxonomy(context.Background())
	require.NoError(t, err)
	require.Len(t, tx.Feeds, 2)
	assert.Equal(t, domain.RemoteFeed{FeedID: "42", URL: "https://a.example.com/rss", Name: "Tom & Jerry",
		HomePageURL: "https://a.example.com", FaviconURL: "https://a.example.com/favicon.ico", ExternalID: "42"}, tx.Feeds[0])
	assert.Equal(t, []string{domain.RootFolderName, "Tech"}, tx.Folders)
	assert.Equal(t, []domain.Relationship{{FeedID: "42", RelationshipID: domain.RootFolderName}},
		tx.Relationships[domain.RootFolderName])
	assert.Equal(t, []domain.Relationship{{FeedID: "42", RelationshipID: "Tech"}, {FeedID: "43", RelationshipID: "Tech"}},
		tx.Relationships["Tech"])
}

func TestService_FetchStatusIDs(t *testing.T) {
	srv := newFakeNewsBlur(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("include_timestamps"))
		switch r.URL.Path {
		case "/reader/unread_story_hashes":
			writeRaw(w, `{"unread_feed_story_hashes": {"42": [["42:a1", 1700000000], ["42:a2", "1700000100"]]}}`)
		case "/reader/starred_story_hashes":
			writeRaw(w, `{"starred_story_hashes": [["43:s1", 1690000000], "43:s2"]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	svc := newTestService(t, srv, "secret")

	unread, err := svc.FetchStatusIDs(context.Background(), domain.StatusRead)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.StoryHash{
		{ID: "42:a1", Timestamp: time.Unix(1700000000, 0).UTC()},
		{ID: "42:a2", Timestamp: time.Unix(1700000100, 0).UTC()},
	}, unread)

	starred, err := svc.FetchStatusIDs(context.Background(), domain.StatusStarred)
	require.NoError(t, err)
	assert.Equal(t, []domain.StoryHash{{ID: "43:s1", Timestamp: time.Unix(1690000000, 0).UTC()}, {ID: "43:s2"}}, starred)
}

func TestService_FetchArticlesAndPages(t *testing.T) {
	srv := newFakeNewsBlur(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/reader/river_stories":
			assert.Equal(t, []string{"42:a1", "42:a2"}, r.URL.Query()["h"])
			writeRaw(w, `{"stories": [
				{"story_hash": "42:a1", "story_feed_id": 42, "story_title": "One &lt;1&gt;", "story_permalink": "https://a.example.com/1",
				 "story_content": "<p>one</p>", "story_authors": "Ann", "story_timestamp": "1700000000",
				 "story_tags": ["go"], "image_urls": ["https://a.example.com/1.png"]},
				{"story_hash": "42:a2", "story_feed_id": 42, "story_title": "Two", "story_timestamp": "bad"}
			]}`)
		case "/reader/feed/42":
			if r.URL.Query().Get("page") == "1" {
				writeRaw(w, `{"stories": [{"story_hash": "42:a3", "story_feed_id": 42}]}`)
				return
			}
			writeRaw(w, `{"stories": []}`)
		}
	})
	svc := newTestService(t, srv, "secret")

	items, err := svc.FetchArticles(context.Background(), []string{"42:a1", "42:a2"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	published := time.Unix(1700000000, 0).UTC()
	assert.Equal(t, domain.ParsedItem{SyncServiceID: "42:a1", UniqueID: "42:a1", FeedID: "42", URL: "https://a.example.com/1",
		Title: "One <1>", ContentHTML: "<p>one</p>", ImageURL: "https://a.example.com/1.png", DatePublished: &published,
		Authors: []string{"Ann"}, Tags: []string{"go"}}, items[0])
	assert.Nil(t, items[1].DatePublished)

	page, err := svc.FetchFeedPage(context.Background(), "42", "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, "2", page.Cursor)

	page, err = svc.FetchFeedPage(context.Background(), "42", page.Cursor)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Empty(t, page.Cursor)

	_, err = svc.FetchFeedPage(context.Background(), "42", "next")
	require.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestService_SendStatuses(t *testing.T) {
	srv := newFakeNewsBlur(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/reader/mark_story_hash_as_starred" {
			writeRaw(w, `{"code":-1,"message":"Story not found"}`)
			return
		}
		writeRaw(w, `{"code":1,"result":"ok"}`)
	})
	svc := newTestService(t, srv, "secret")
	ctx := context.Background()

	require.NoError(t, svc.SendStatuses(ctx, domain.StatusRead, true, []string{"h1", "h2"}))
	require.NoError(t, svc.SendStatuses(ctx, domain.StatusRead, false, []string{"h3"}))
	require.NoError(t, svc.SendStatuses(ctx, domain.StatusStarred, false, []string{"h4"}))

	err := svc.SendStatuses(ctx, domain.StatusStarred, true, []string{"h5"})
	var gerr *GeneralError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "Story not found", gerr.Message)

	assert.Equal(t, []string{"h1", "h2"}, srv.posted("/reader/mark_story_hashes_as_read")[0]["story_hash"])
	assert.Equal(t, []string{"h3"}, srv.posted("/reader/mark_story_hash_as_unread")[0]["story_hash"])
	assert.Equal(t, []string{"h4"}, srv.posted("/reader/mark_story_hash_as_unstarred")[0]["story_hash"])
}

func TestService_StatusChunkSize(t *testing.T) {
	svc := &Service{}
	tbl := []struct {
		key       domain.StatusKey
		flag      bool
		throttled bool
		want      int
	}{
		{domain.StatusRead, true, false, 5},
		{domain.StatusRead, true, true, 5},
		{domain.StatusRead, false, true, 1},
		{domain.StatusStarred, true, true, 1},
		{domain.StatusStarred, false, false, 5},
	}
	for _, tt := range tbl {
		assert.Equal(t, tt.want, svc.StatusChunkSize(tt.key, tt.flag, tt.throttled), "%s %v %v", tt.key, tt.flag, tt.throttled)
	}
}

func TestService_Subscribe(t *testing.T) {
	srv := newFakeNewsBlur(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.PostForm.Get("url") {
		case "https://a.example.com/rss":
			writeRaw(w, `{"code":1,"feed":{"id":42,"feed_title":"A","feed_address":"https://a.example.com/rss"}}`)
		case "https://dup.example.com/rss":
			writeRaw(w, `{"code":-1,"message":"You are already subscribed to this site."}`)
		case "https://none.example.com":
			writeRaw(w, `{"code":1}`)
		default:
			writeRaw(w, `{"code":-1,"message":"This address does not point to an RSS feed or a website with an RSS feed."}`)
		}
	})
	svc := newTestService(t, srv, "secret")
	ctx := context.Background()

	rf, err := svc.Subscribe(ctx, "https://a.example.com/rss", "Tech")
	require.NoError(t, err)
	assert.Equal(t, domain.RemoteFeed{FeedID: "42", URL: "https://a.example.com/rss", Name: "A", ExternalID: "42",
		RelationshipID: "Tech"}, rf)
	assert.Equal(t, "Tech", srv.posted("/reader/add_url")[0]["folder"][0])

	_, err = svc.Subscribe(ctx, "https://dup.example.com/rss", "")
	require.ErrorIs(t, err, domain.ErrAlreadySubscribed)

	_, err = svc.Subscribe(ctx, "https://none.example.com", "")
	require.ErrorIs(t, err, domain.ErrNoFeedFound)

	_, err = svc.Subscribe(ctx, "https://bad.example.com", "")
	var gerr *GeneralError
	require.ErrorAs(t, err, &gerr)
}

func TestService_FeedAndFolderChanges(t *testing.T) {
	srv := newFakeNewsBlur(t, func(w http.ResponseWriter, _ *http.Request) {
		writeRaw(w, `{"code":1}`)
	})
	svc := newTestService(t, srv, "secret")
	ctx := context.Background()
	feed := account.Feed{FeedID: "42", ExternalID: "42"}

	require.NoError(t, svc.Unsubscribe(ctx, feed, "Tech"))
	require.NoError(t, svc.RenameFeed(ctx, feed, "Renamed"))
	relID, err := svc.MoveFeed(ctx, feed, "Tech", "News")
	require.NoError(t, err)
	assert.Equal(t, "News", relID)
	require.NoError(t, svc.CreateFolder(ctx, "Misc"))
	require.NoError(t, svc.RenameFolder(ctx, "Misc", "Other"))
	require.NoError(t, svc.RemoveFolder(ctx, "Other"))

	del := srv.posted("/reader/delete_feed")
	require.Len(t, del, 1)
	assert.Equal(t, "42", del[0]["feed_id"][0])
	assert.Equal(t, "Tech", del[0]["in_folder"][0])
	assert.Equal(t, "Renamed", srv.posted("/reader/rename_feed")[0]["feed_title"][0])
	move := srv.posted("/reader/move_feed_to_folder")[0]
	assert.Equal(t, []string{"Tech"}, move["in_folder"])
	assert.Equal(t, []string{"News"}, move["to_folder"])
	assert.Equal(t, "Misc", srv.posted("/reader/add_folder")[0]["folder"][0])
	assert.Equal(t, "Other", srv.posted("/reader/rename_folder")[0]["new_folder_name"][0])
	assert.Equal(t, "Other", srv.posted("/reader/delete_folder")[0]["folder_to_delete"][0])
}

func TestClient_ReloginOnExpiredSession(t *testing.T) {
	var expired atomic.Bool
	expired.Store(true)
	srv := newFakeNewsBlur(t, func(w http.ResponseWriter, _ *http.Request) {
		if expired.CompareAndSwap(true, false) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		writeRaw(w, `{"starred_story_hashes":[]}`)
	})
	svc := newTestService(t, srv, "secret")
	_, err := svc.FetchStatusIDs(context.Background(), domain.StatusStarred)
	require.NoError(t, err)
	assert.Equal(t, int32(2), srv.logins.Load())
}
