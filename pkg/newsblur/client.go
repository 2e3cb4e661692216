// Package newsblur talks to the NewsBlur api and adapts it to the reconcile engine.
// The session is a cookie set by api/login, the client logs in lazily and again after the session expires.
package newsblur

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/feedsync/pkg/domain"
	"github.com/umputun/feedsync/pkg/transport"
)

// DefaultBaseURL of the NewsBlur api
const DefaultBaseURL = "https://www.newsblur.com/"

// SessionCookie is the cookie carrying the NewsBlur session id
const SessionCookie = "newsblur_sessionid"

// ErrUnknown is returned for a failed call without a message
var ErrUnknown = errors.New("newsblur: unknown error")

// GeneralError is a failure reported by the api with a message
type GeneralError struct {
	Message string
}

func (e *GeneralError) Error() string { return "newsblur: " + e.Message }

// Feed is a subscription
type Feed struct {
	ID          int64  `json:"id"`
	Title       string `json:"feed_title"`
	FeedURL     string `json:"feed_address"`
	HomePageURL string `json:"feed_link"`
	FaviconURL  string `json:"favicon_url"`
}

// StoryHash is a story id with its timestamp, if the api was asked for timestamps
type StoryHash struct {
	Hash      string
	Timestamp time.Time
}

// UnmarshalJSON accepts a plain hash or a [hash, timestamp] pair, timestamps in seconds as numbers or strings
func (h *StoryHash) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &h.Hash)
	}
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("story hash: %w", err)
	}
	if len(pair) == 0 {
		return fmt.Errorf("story hash: empty pair")
	}
	if err := json.Unmarshal(pair[0], &h.Hash); err != nil {
		return fmt.Errorf("story hash: %w", err)
	}
	if len(pair) > 1 {
		h.Timestamp = parseTimestamp(strings.Trim(string(pair[1]), `"`))
	}
	return nil
}

// Story is an article
type Story struct {
	Hash      string   `json:"story_hash"`
	FeedID    int64    `json:"story_feed_id"`
	Title     string   `json:"story_title"`
	Permalink string   `json:"story_permalink"`
	Content   string   `json:"story_content"`
	Authors   string   `json:"story_authors"`
	Timestamp string   `json:"story_timestamp"`
	Tags      []string `json:"story_tags"`
	ImageURLs []string `json:"image_urls"`
}

// Params for NewClient
type Params struct {
	BaseURL   string
	Username  string
	Password  string
	Timeout   time.Duration
	UserAgent string
}

// Client of the NewsBlur api
type Client struct {
	caller   *transport.Caller
	username string
	password string

	loginMu  sync.Mutex
	loggedIn bool
}

// result is the envelope of write calls
type result struct {
	Code    int    `json:"code"`
	Result  string `json:"result"`
	Message string `json:"message"`
}

func (r result) err() error {
	if r.Code >= 0 && r.Result != "error" {
		return nil
	}
	if r.Message != "" {
		return &GeneralError{Message: r.Message}
	}
	return ErrUnknown
}

// NewClient makes a client with the account credentials
func NewClient(p Params) (*Client, error) {
	if p.BaseURL == "" {
		p.BaseURL = DefaultBaseURL
	}
	caller, err := transport.NewCaller(transport.Params{BaseURL: p.BaseURL, Timeout: p.Timeout, UserAgent: p.UserAgent})
	if err != nil {
		return nil, fmt.Errorf("make newsblur caller: %w", err)
	}
	return &Client{caller: caller, username: p.Username, password: p.Password}, nil
}

// Caller returns the underlying caller, used to suspend network activity
func (c *Client) Caller() *transport.Caller { return c.caller }

// Login starts a session and returns its id
func (c *Client) Login(ctx context.Context) (string, error) {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()
	return c.login(ctx)
}

func (c *Client) login(ctx context.Context) (string, error) {
	var resp struct {
		Code   int `json:"code"`
		Errors struct {
			Username []string `json:"username"`
			Others   []string `json:"__all__"`
		} `json:"errors"`
	}
	form := url.Values{"username": {c.username}, "password": {c.password}}
	if _, err := c.caller.PostForm(ctx, "api/login", form, &resp); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if resp.Code == -1 {
		msgs := slices.Concat(resp.Errors.Username, resp.Errors.Others)
		if len(msgs) > 0 {
			return "", &GeneralError{Message: msgs[0]}
		}
		return "", ErrUnknown
	}
	session := c.caller.Cookie(SessionCookie)
	if session == "" {
		return "", &GeneralError{Message: "failed to retrieve session"}
	}
	c.loggedIn = true
	log.Printf("[DEBUG] newsblur session started for %s", c.username)
	return session, nil
}

// Logout ends the session
func (c *Client) Logout(ctx context.Context) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()
	c.loggedIn = false
	if _, err := c.caller.PostForm(ctx, "api/logout", url.Values{}, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Feeds returns subscriptions and the flat folder map, " " is the root folder
func (c *Client) Feeds(ctx context.Context) ([]Feed, map[string][]int64, error) {
	var resp struct {
		Feeds       map[string]Feed    `json:"feeds"`
		FlatFolders map[string][]int64 `json:"flat_folders"`
	}
	q := url.Values{"flat": {"true"}, "update_counts": {"false"}}
	if err := c.get(ctx, "reader/feeds", q, &resp); err != nil {
		return nil, nil, fmt.Errorf("get feeds: %w", err)
	}
	feeds := make([]Feed, 0, len(resp.Feeds))
	for _, f := range resp.Feeds {
		feeds = append(feeds, f)
	}
	return feeds, resp.FlatFolders, nil
}

// UnreadStoryHashes returns unread story hashes of all feeds
func (c *Client) UnreadStoryHashes(ctx context.Context) ([]StoryHash, error) {
	var resp struct {
		Unread map[string][]StoryHash `json:"unread_feed_story_hashes"`
	}
	if err := c.get(ctx, "reader/unread_story_hashes", url.Values{"include_timestamps": {"true"}}, &resp); err != nil {
		return nil, fmt.Errorf("get unread story hashes: %w", err)
	}
	var res []StoryHash
	for _, hashes := range resp.Unread {
		res = append(res, hashes...)
	}
	return res, nil
}

// StarredStoryHashes returns starred story hashes
func (c *Client) StarredStoryHashes(ctx context.Context) ([]StoryHash, error) {
	var resp struct {
		Starred []StoryHash `json:"starred_story_hashes"`
	}
	if err := c.get(ctx, "reader/starred_story_hashes", url.Values{"include_timestamps": {"true"}}, &resp); err != nil {
		return nil, fmt.Errorf("get starred story hashes: %w", err)
	}
	return resp.Starred, nil
}

// RiverStories returns stories by hashes, the api accepts up to 100
func (c *Client) RiverStories(ctx context.Context, hashes []string) ([]Story, error) {
	if len(hashes) == 0 {
		return nil, nil
	}
	var resp struct {
		Stories []Story `json:"stories"`
	}
	q := url.Values{"include_hidden": {"false"}, "h": hashes}
	if err := c.get(ctx, "reader/river_stories", q, &resp); err != nil {
		return nil, fmt.Errorf("get river stories: %w", err)
	}
	return resp.Stories, nil
}

// FeedStories returns one page of stories of a feed, newest first. Pages start with 1.
func (c *Client) FeedStories(ctx context.Context, feedID string, page int) ([]Story, error) {
	var resp struct {
		Stories []Story `json:"stories"`
	}
	q := url.Values{
		"page":                  {strconv.Itoa(page)},
		"order":                 {"newest"},
		"read_filter":           {"all"},
		"include_hidden":        {"false"},
		"include_story_content": {"true"},
	}
	if err := c.get(ctx, "reader/feed/"+feedID, q, &resp); err != nil {
		return nil, fmt.Errorf("get stories of feed %s: %w", feedID, err)
	}
	return resp.Stories, nil
}

// MarkAsRead marks stories read
func (c *Client) MarkAsRead(ctx context.Context, hashes []string) error {
	return c.post(ctx, "reader/mark_story_hashes_as_read", url.Values{"story_hash": hashes}, nil)
}

// MarkAsUnread marks stories unread
func (c *Client) MarkAsUnread(ctx context.Context, hashes []string) error {
	return c.post(ctx, "reader/mark_story_hash_as_unread", url.Values{"story_hash": hashes}, nil)
}

// Star stars stories
func (c *Client) Star(ctx context.Context, hashes []string) error {
	return c.post(ctx, "reader/mark_story_hash_as_starred", url.Values{"story_hash": hashes}, nil)
}

// Unstar removes the star of stories
func (c *Client) Unstar(ctx context.Context, hashes []string) error {
	return c.post(ctx, "reader/mark_story_hash_as_unstarred", url.Values{"story_hash": hashes}, nil)
}

// AddURL subscribes to a feed url in the folder, empty folder is the root.
// It returns domain.ErrNoFeedFound if nothing was found at the url.
func (c *Client) AddURL(ctx context.Context, feedURL, folder string) (Feed, error) {
	var resp struct {
		result
		Feed *Feed `json:"feed"`
	}
	if err := c.post(ctx, "reader/add_url", url.Values{"url": {feedURL}, "folder": {folder}}, &resp); err != nil {
		return Feed{}, err
	}
	if resp.Feed == nil {
		return Feed{}, domain.ErrNoFeedFound
	}
	return *resp.Feed, nil
}

// RenameFeed sets a custom title
func (c *Client) RenameFeed(ctx context.Context, feedID, title string) error {
	return c.post(ctx, "reader/rename_feed", url.Values{"feed_id": {feedID}, "feed_title": {title}}, nil)
}

// DeleteFeed removes the feed from the folder, empty folder is the root
func (c *Client) DeleteFeed(ctx context.Context, feedID, folder string) error {
	return c.post(ctx, "reader/delete_feed", url.Values{"feed_id": {feedID}, "in_folder": {folder}}, nil)
}

// MoveFeed moves the feed between folders
func (c *Client) MoveFeed(ctx context.Context, feedID, from, to string) error {
	form := url.Values{"feed_id": {feedID}, "in_folder": {from}, "to_folder": {to}}
	return c.post(ctx, "reader/move_feed_to_folder", form, nil)
}

// AddFolder creates a top level folder
func (c *Client) AddFolder(ctx context.Context, name string) error {
	return c.post(ctx, "reader/add_folder", url.Values{"folder": {name}, "parent_folder": {""}}, nil)
}

// RenameFolder renames a top level folder
func (c *Client) RenameFolder(ctx context.Context, from, to string) error {
	form := url.Values{"folder_to_rename": {from}, "new_folder_name": {to}, "in_folder": {""}}
	return c.post(ctx, "reader/rename_folder", form, nil)
}

// DeleteFolder removes a top level folder together with the listed feeds
func (c *Client) DeleteFolder(ctx context.Context, name string, feedIDs []string) error {
	form := url.Values{"folder_to_delete": {name}, "in_folder": {""}, "feed_id": feedIDs}
	return c.post(ctx, "reader/delete_folder", form, nil)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, dest any) error {
	return c.withSession(ctx, func() error {
		_, err := c.caller.GetJSON(ctx, path, q, dest)
		return err
	})
}

// post sends a form and checks the result envelope, dest embeds result or is nil
func (c *Client) post(ctx context.Context, path string, form url.Values, dest any) error {
	var env result
	err := c.withSession(ctx, func() error {
		resp, err := c.caller.PostForm(ctx, path, form, dest)
		if err != nil {
			return err
		}
		if len(bytes.TrimSpace(resp.Body)) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Body, &env); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
		return env.err()
	})
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// withSession logs in when there is no session yet and once more if the session was rejected
func (c *Client) withSession(ctx context.Context, fn func() error) error {
	c.loginMu.Lock()
	if !c.loggedIn {
		if _, err := c.login(ctx); err != nil {
			c.loginMu.Unlock()
			return err
		}
	}
	c.loginMu.Unlock()

	err := fn()
	if !errors.Is(err, transport.ErrUnauthorized) {
		return err
	}
	log.Printf("[DEBUG] newsblur session of %s rejected, logging in again", c.username)
	c.loginMu.Lock()
	_, lerr := c.login(ctx)
	c.loginMu.Unlock()
	if lerr != nil {
		return lerr
	}
	return fn()
}

func parseTimestamp(s string) time.Time {
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(secs), 0).UTC()
}
