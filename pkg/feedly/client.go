// Package feedly talks to the Feedly cloud v3 api and adapts it to the reconcile engine.
// Folders are Feedly collections, a feed can be in several of them and never at the root.
package feedly

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/umputun/feedsync/pkg/transport"
)

// DefaultBaseURL of the Feedly api
const DefaultBaseURL = "https://cloud.feedly.com/v3/"

const (
	markersChunkSize = 300
	contentsPageSize = 1000
	idsPageSize      = 10000
)

// MarkAction is a markers api action
type MarkAction string

// enum of marker actions
const (
	MarkRead    MarkAction = "markAsRead"
	MarkUnread  MarkAction = "keepUnread"
	MarkSaved   MarkAction = "markAsSaved"
	MarkUnsaved MarkAction = "markAsUnsaved"
)

// Collection is a folder with its feeds
type Collection struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Feeds []Feed `json:"feeds"`
}

// Feed of a collection, the id is "feed/" followed by the feed url
type Feed struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Website string `json:"website"`
	IconURL string `json:"iconUrl"`
}

// URL of the feed taken from its id
func (f Feed) URL() string { return strings.TrimPrefix(f.ID, "feed/") }

// Content is an html body of an entry
type Content struct {
	Content   string `json:"content"`
	Direction string `json:"direction"`
}

// Link of an entry
type Link struct {
	Href string `json:"href"`
	Type string `json:"type"`
}

// Origin is the stream an entry came from
type Origin struct {
	Title    string `json:"title"`
	StreamID string `json:"streamId"`
	HTMLURL  string `json:"htmlUrl"`
}

// Tag of an entry
type Tag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Entry is an article, times are unix milliseconds
type Entry struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   *Content `json:"content"`
	Summary   *Content `json:"summary"`
	Author    string   `json:"author"`
	Crawled   int64    `json:"crawled"`
	Recrawled int64    `json:"recrawled"`
	Origin    *Origin  `json:"origin"`
	Canonical []Link   `json:"canonical"`
	Alternate []Link   `json:"alternate"`
	Unread    bool     `json:"unread"`
	Tags      []Tag    `json:"tags"`
	Visual    *struct {
		URL string `json:"url"`
	} `json:"visual"`
}

// Params for NewClient
type Params struct {
	BaseURL   string
	Token     string // oauth access token
	UserID    string // looked up from the profile if empty
	Timeout   time.Duration
	UserAgent string
}

// Client of the Feedly api
type Client struct {
	caller *transport.Caller

	mu     sync.Mutex
	userID string
}

// NewClient makes a client with a bearer token
func NewClient(p Params) (*Client, error) {
	if p.BaseURL == "" {
		p.BaseURL = DefaultBaseURL
	}
	caller, err := transport.NewCaller(transport.Params{BaseURL: p.BaseURL, Timeout: p.Timeout, UserAgent: p.UserAgent,
		Credentials: transport.Credentials{Kind: transport.AuthBearer, Token: p.Token}})
	if err != nil {
		return nil, fmt.Errorf("make feedly caller: %w", err)
	}
	return &Client{caller: caller, userID: p.UserID}, nil
}

// Caller returns the underlying caller, used to suspend network activity
func (c *Client) Caller() *transport.Caller { return c.caller }

// Profile returns the user id of the token
func (c *Client) Profile(ctx context.Context) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if _, err := c.caller.GetJSON(ctx, "profile", nil, &resp); err != nil {
		return "", fmt.Errorf("get profile: %w", err)
	}
	c.mu.Lock()
	c.userID = resp.ID
	c.mu.Unlock()
	return resp.ID, nil
}

// AllStream is the stream id of all articles of the user
func (c *Client) AllStream(ctx context.Context) (string, error) {
	uid, err := c.user(ctx)
	if err != nil {
		return "", err
	}
	return "user/" + uid + "/category/global.all", nil
}

// SavedStream is the stream id of starred articles of the user
func (c *Client) SavedStream(ctx context.Context) (string, error) {
	uid, err := c.user(ctx)
	if err != nil {
		return "", err
	}
	return "user/" + uid + "/tag/global.saved", nil
}

// Collections returns collections with their feeds
func (c *Client) Collections(ctx context.Context) ([]Collection, error) {
	var res []Collection
	if _, err := c.caller.GetJSON(ctx, "collections", nil, &res); err != nil {
		return nil, fmt.Errorf("get collections: %w", err)
	}
	return res, nil
}

// StreamContents returns one page of entries of a stream. Zero newerThan and empty continuation are not sent.
func (c *Client) StreamContents(ctx context.Context, streamID string, newerThan time.Time, unreadOnly bool,
	continuation string) (entries []Entry, next string, err error) {
	q := streamQuery(streamID, contentsPageSize, newerThan, unreadOnly, continuation)
	var resp struct {
		Items        []Entry `json:"items"`
		Continuation string  `json:"continuation"`
	}
	if _, err := c.caller.GetJSON(ctx, "streams/contents", q, &resp); err != nil {
		return nil, "", fmt.Errorf("get stream contents: %w", err)
	}
	return resp.Items, resp.Continuation, nil
}

// StreamIDs returns all entry ids of a stream, following continuations
func (c *Client) StreamIDs(ctx context.Context, streamID string, unreadOnly bool) ([]string, error) {
	var res []string
	continuation := ""
	for {
		q := streamQuery(streamID, idsPageSize, time.Time{}, unreadOnly, continuation)
		var resp struct {
			IDs          []string `json:"ids"`
			Continuation string   `json:"continuation"`
		}
		if _, err := c.caller.GetJSON(ctx, "streams/ids", q, &resp); err != nil {
			return nil, fmt.Errorf("get stream ids: %w", err)
		}
		res = append(res, resp.IDs...)
		if resp.Continuation == "" || resp.Continuation == continuation {
			return res, nil
		}
		continuation = resp.Continuation
	}
}

// Entries returns entries by ids
func (c *Client) Entries(ctx context.Context, ids []string) ([]Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var res []Entry
	if _, err := c.caller.SendJSON(ctx, http.MethodPost, "entries/.mget", ids, &res); err != nil {
		return nil, fmt.Errorf("get entries: %w", err)
	}
	return res, nil
}

// Mark applies the action to entries, in chunks the markers api accepts
func (c *Client) Mark(ctx context.Context, ids []string, action MarkAction) error {
	for chunk := range slices.Chunk(ids, markersChunkSize) {
		body := struct {
			Action   MarkAction `json:"action"`
			Type     string     `json:"type"`
			EntryIDs []string   `json:"entryIds"`
		}{Action: action, Type: "entries", EntryIDs: chunk}
		if _, err := c.caller.SendJSON(ctx, http.MethodPost, "markers", body, nil); err != nil {
			return fmt.Errorf("mark %d entries %s: %w", len(chunk), action, err)
		}
	}
	return nil
}

// CreateCollection makes a collection with the label
func (c *Client) CreateCollection(ctx context.Context, label string) (Collection, error) {
	return c.postCollection(ctx, map[string]string{"label": label})
}

// RenameCollection sets a new label
func (c *Client) RenameCollection(ctx context.Context, id, label string) (Collection, error) {
	return c.postCollection(ctx, map[string]string{"id": id, "label": label})
}

func (c *Client) postCollection(ctx context.Context, body map[string]string) (Collection, error) {
	var res []Collection
	if _, err := c.caller.SendJSON(ctx, http.MethodPost, "collections", body, &res); err != nil {
		return Collection{}, fmt.Errorf("post collection %q: %w", body["label"], err)
	}
	if len(res) == 0 {
		return Collection{}, fmt.Errorf("post collection %q: empty response", body["label"])
	}
	return res[0], nil
}

// DeleteCollection removes a collection
func (c *Client) DeleteCollection(ctx context.Context, id string) error {
	if _, err := c.caller.Do(ctx, transport.Request{Method: http.MethodDelete, Path: "collections/" + url.PathEscape(id)}); err != nil {
		return fmt.Errorf("delete collection %s: %w", id, err)
	}
	return nil
}

// AddFeed puts a feed into a collection, title sets a custom name if not empty.
// It returns the feeds of the collection.
func (c *Client) AddFeed(ctx context.Context, collectionID, feedID, title string) ([]Feed, error) {
	body := struct {
		ID    string `json:"id"`
		Title string `json:"title,omitempty"`
	}{ID: feedID, Title: title}
	var res []Feed
	path := "collections/" + url.PathEscape(collectionID) + "/feeds"
	if _, err := c.caller.SendJSON(ctx, http.MethodPut, path, body, &res); err != nil {
		return nil, fmt.Errorf("add feed %s to %s: %w", feedID, collectionID, err)
	}
	return res, nil
}

// RemoveFeed takes a feed out of a collection
func (c *Client) RemoveFeed(ctx context.Context, collectionID, feedID string) error {
	path := "collections/" + url.PathEscape(collectionID) + "/feeds/.mdelete"
	body := []map[string]string{{"id": feedID}}
	if _, err := c.caller.Do(ctx, transport.Request{Method: http.MethodDelete, Path: path, JSON: body}); err != nil {
		return fmt.Errorf("remove feed %s from %s: %w", feedID, collectionID, err)
	}
	return nil
}

func (c *Client) user(ctx context.Context) (string, error) {
	c.mu.Lock()
	uid := c.userID
	c.mu.Unlock()
	if uid != "" {
		return uid, nil
	}
	return c.Profile(ctx)
}

func streamQuery(streamID string, count int, newerThan time.Time, unreadOnly bool, continuation string) url.Values {
	q := url.Values{"streamId": {streamID}, "count": {strconv.Itoa(count)}}
	if !newerThan.IsZero() {
		q.Set("newerThan", strconv.FormatInt(newerThan.UnixMilli(), 10))
	}
	if unreadOnly {
		q.Set("unreadOnly", "true")
	}
	if continuation != "" {
		q.Set("continuation", continuation)
	}
	return q
}
