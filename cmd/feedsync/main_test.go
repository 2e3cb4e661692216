package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedsync/pkg/repository"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Test Feed</title><link>%s/</link>
<item><title>First</title><link>%s/1</link><guid>%s/1</guid><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate></item>
<item><title>Second</title><link>%s/2</link><guid>%s/2</guid><pubDate>Tue, 03 Jan 2006 15:04:05 GMT</pubDate></item>
</channel></rss>`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feedsync.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_MissingConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := run(ctx, Opts{Config: "non-existent-config.yml"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load config")
}

func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := run(ctx, Opts{Config: writeConfig(t, "invalid: yaml: content: [")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load config")
}

func TestRun_Once(t *testing.T) {
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed.xml":
			w.Header().Set("Content-Type", "application/rss+xml")
			u := ts.URL
			_, _ = fmt.Fprintf(w, testRSS, u, u, u, u, u)
		case "/":
			_, _ = io.WriteString(w, `<html><head><link rel="icon" href="/icon.png"></head></html>`)
		case "/icon.png":
			_, _ = w.Write([]byte("\x89PNG\r\n\x1a\nicon"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "test.db")
	cfg := fmt.Sprintf(`
database:
  dsn: %s
cache:
  dir: %s
accounts:
  - id: local1
    type: local
    name: On my server
    feeds:
      - url: %s/feed.xml
        folder: Tech
`, dbPath, filepath.Join(tmp, "cache"), ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, run(ctx, Opts{Config: writeConfig(t, cfg), Once: true}))

	repos, err := repository.NewRepositories(ctx, repository.Config{DSN: dbPath})
	require.NoError(t, err)
	defer repos.Close()

	articles, err := repos.Article.Recent(ctx, "local1", true, 10)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "Second", articles[0].Title)
	assert.Equal(t, "First", articles[1].Title)

	tx, err := repos.Taxonomy.Load(ctx, "local1")
	require.NoError(t, err)
	require.Len(t, tx.Folders, 1)
	assert.Equal(t, "Tech", tx.Folders[0].Name)
	require.Len(t, tx.Feeds, 1)
	assert.Equal(t, ts.URL+"/feed.xml", tx.Feeds[0].URL)
	assert.Equal(t, ts.URL+"/icon.png", tx.Feeds[0].FaviconURL)

	icons, err := os.ReadDir(filepath.Join(tmp, "cache", "favicons"))
	require.NoError(t, err)
	assert.NotEmpty(t, icons, "icons prefetched after refresh")
}

func TestRun_ServerStartStop(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	tmp := t.TempDir()
	cfg := fmt.Sprintf(`
server:
  listen: 127.0.0.1:%d
database:
  dsn: %s
cache:
  dir: %s
schedule:
  refresh_interval: 1h
accounts:
  - id: local1
    type: local
`, port, filepath.Join(tmp, "test.db"), filepath.Join(tmp, "cache"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverErr := make(chan error, 1)
	go func() { serverErr <- run(ctx, Opts{Config: writeConfig(t, cfg)}) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/ping", port))
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))

	resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/v1/accounts", port))
	require.NoError(t, err)
	var accounts []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accounts))
	resp.Body.Close()
	require.Len(t, accounts, 1)
	assert.Equal(t, "local1", accounts[0]["id"])
	assert.Equal(t, "local", accounts[0]["type"])

	cancel()
	select {
	case err := <-serverErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server shutdown timeout")
	}
}

func TestSetupLog(t *testing.T) {
	t.Run("debug mode enabled", func(t *testing.T) {
		SetupLog(true, false)
	})

	t.Run("debug mode disabled", func(t *testing.T) {
		SetupLog(false, false)
	})

	t.Run("with secrets", func(t *testing.T) {
		SetupLog(true, false, "secret1", "secret2")
	})

	t.Run("no color mode", func(t *testing.T) {
		SetupLog(false, true)
	})
}
