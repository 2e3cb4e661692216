package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedsync/pkg/domain"
)

func TestFeedLinks(t *testing.T) {
	tbl := []struct {
		name    string
		page    string
		pageURL string
		want    []string
	}{
		{
			name: "head links",
			page: `<html><head>
				<link rel="stylesheet" href="/style.css">
				<link rel="alternate" type="application/rss+xml" href="/rss.xml">
				<link rel="alternate" type="application/atom+xml; charset=utf-8" href="https://cdn.example.com/atom#top">
				<link rel="alternate" type="text/html" hreflang="de" href="/de/">
				<link rel="alternate" type="application/rss+xml" href="/rss.xml">
				</head><body><a href="/other.rss">other</a></body></html>`,
			pageURL: "https://example.com/blog/",
			want:    []string{"https://example.com/rss.xml", "https://cdn.example.com/atom"},
		},
		{
			name: "body anchors",
			page: `<html><body>
				<a href="posts/1.html">post</a>
				<a href="/blog/feed/">subscribe</a>
				<a href="https://feeds.feedburner.com/example">burner</a>
				<a href="mailto:me@example.com.rss">mail</a>
				</body></html>`,
			pageURL: "https://example.com/blog/",
			want:    []string{"https://example.com/blog/feed/", "https://feeds.feedburner.com/example"},
		},
		{
			name:    "usual locations",
			page:    `<html><body><p>nothing</p></body></html>`,
			pageURL: "https://example.com/blog?page=2",
			want:    []string{"https://example.com/blog/feed/", "https://example.com/blog/index.xml"},
		},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			links, err := FeedLinks([]byte(tt.page), tt.pageURL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, links)
		})
	}

	_, err := FeedLinks([]byte("<html></html>"), "not a url")
	require.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestIsHTML(t *testing.T) {
	assert.True(t, isHTML([]byte("<!DOCTYPE html><html></html>")))
	assert.True(t, isHTML([]byte("\n  <HTML lang=en><BODY>x</BODY></HTML>")))
	assert.False(t, isHTML([]byte(rssContent)))
	assert.False(t, isHTML(nil))
}

func TestParser_FetchHTMLPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<!DOCTYPE html><html><head><title>blog</title>
			<link rel="alternate" type="application/rss+xml" href="/feed.xml"></head><body>hi</body></html>`))
	}))
	defer server.Close()

	_, err := NewParser(5*time.Second, "").Fetch(context.Background(), Request{URL: server.URL + "/blog"})
	require.ErrorIs(t, err, domain.ErrNoFeedFound)
	var page *ErrHTMLPage
	require.True(t, errors.As(err, &page))
	assert.Equal(t, server.URL+"/blog", page.URL)
	assert.Equal(t, []string{server.URL + "/feed.xml"}, page.FeedURLs)
}
