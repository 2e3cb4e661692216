// Package feedbin talks to the Feedbin v2 api and adapts it to the reconcile engine.
// Folders are Feedbin tags, folder membership is a tagging with its own id.
package feedbin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/umputun/feedsync/pkg/domain"
	"github.com/umputun/feedsync/pkg/transport"
)

// DefaultBaseURL of the Feedbin api
const DefaultBaseURL = "https://api.feedbin.com/v2/"

// Subscription is a feed the user subscribed to
type Subscription struct {
	ID       int64     `json:"id"`
	FeedID   int64     `json:"feed_id"`
	Title    string    `json:"title"`
	FeedURL  string    `json:"feed_url"`
	SiteURL  string    `json:"site_url"`
	JSONFeed *JSONFeed `json:"json_feed,omitempty"` // extended mode only
}

// JSONFeed carries icons of a subscription
type JSONFeed struct {
	Favicon string `json:"favicon"`
	Icon    string `json:"icon"`
}

// SubscriptionChoice is one of the feeds found at a page url
type SubscriptionChoice struct {
	Title   string `json:"title"`
	FeedURL string `json:"feed_url"`
}

// Tagging puts a feed into a tag
type Tagging struct {
	ID     int64  `json:"id"`
	FeedID int64  `json:"feed_id"`
	Name   string `json:"name"`
}

// Entry is an article
type Entry struct {
	ID                  int64   `json:"id"`
	FeedID              int64   `json:"feed_id"`
	Title               string  `json:"title"`
	URL                 string  `json:"url"`
	ExtractedContentURL string  `json:"extracted_content_url"`
	Author              string  `json:"author"`
	Summary             string  `json:"summary"`
	Content             string  `json:"content"`
	Published           string  `json:"published"`
	CreatedAt           string  `json:"created_at"`
	Images              *Images `json:"images,omitempty"`
}

// Images of an entry
type Images struct {
	OriginalURL string `json:"original_url"`
}

// ErrMultipleChoices is returned with the choices when a page offers several feeds
type ErrMultipleChoices struct {
	Choices []SubscriptionChoice
}

func (e *ErrMultipleChoices) Error() string {
	return fmt.Sprintf("%d feeds found", len(e.Choices))
}

// Unwrap makes errors.Is(err, domain.ErrMultipleChoices) work
func (e *ErrMultipleChoices) Unwrap() error { return domain.ErrMultipleChoices }

// Params for NewClient
type Params struct {
	BaseURL   string
	Username  string
	Password  string
	Timeout   time.Duration
	UserAgent string
}

// Client of the Feedbin api. Lists requested with conditional GET are kept in memory so a
// not-modified answer can be served.
type Client struct {
	caller *transport.Caller

	mu     sync.Mutex
	cached map[string]cachedList
}

type cachedList struct {
	cg   domain.ConditionalGetInfo
	body []byte
}

// NewClient makes a client with basic auth credentials
func NewClient(p Params) (*Client, error) {
	if p.BaseURL == "" {
		p.BaseURL = DefaultBaseURL
	}
	caller, err := transport.NewCaller(transport.Params{BaseURL: p.BaseURL, Timeout: p.Timeout, UserAgent: p.UserAgent,
		Credentials: transport.Credentials{Kind: transport.AuthBasic, Username: p.Username, Password: p.Password}})
	if err != nil {
		return nil, fmt.Errorf("make feedbin caller: %w", err)
	}
	return &Client{caller: caller, cached: make(map[string]cachedList)}, nil
}

// Caller returns the underlying caller, used to suspend network activity
func (c *Client) Caller() *transport.Caller { return c.caller }

// Authenticate checks credentials
func (c *Client) Authenticate(ctx context.Context) error {
	if _, err := c.caller.Do(ctx, transport.Request{Path: "authentication.json"}); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	return nil
}

// Subscriptions returns all subscriptions
func (c *Client) Subscriptions(ctx context.Context) ([]Subscription, error) {
	var res []Subscription
	err := c.getCached(ctx, "subscriptions.json", url.Values{"mode": {"extended"}}, &res)
	return res, err
}

// Taggings returns all taggings
func (c *Client) Taggings(ctx context.Context) ([]Tagging, error) {
	var res []Tagging
	err := c.getCached(ctx, "taggings.json", nil, &res)
	return res, err
}

// UnreadEntries returns ids of unread entries
func (c *Client) UnreadEntries(ctx context.Context) ([]int64, error) {
	var res []int64
	err := c.getCached(ctx, "unread_entries.json", nil, &res)
	return res, err
}

// StarredEntries returns ids of starred entries
func (c *Client) StarredEntries(ctx context.Context) ([]int64, error) {
	var res []int64
	err := c.getCached(ctx, "starred_entries.json", nil, &res)
	return res, err
}

// Entries returns entries by ids, Feedbin allows up to 100 per call
func (c *Client) Entries(ctx context.Context, ids []int64) ([]Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	strIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		strIDs = append(strIDs, strconv.FormatInt(id, 10))
	}
	var res []Entry
	q := url.Values{"ids": {strings.Join(strIDs, ",")}, "mode": {"extended"}}
	if _, err := c.caller.GetJSON(ctx, "entries.json", q, &res); err != nil {
		return nil, fmt.Errorf("get entries: %w", err)
	}
	return res, nil
}

// EntriesSince returns a page of entries created since the time. Empty page url requests the first page,
// the returned next url is empty on the last page.
func (c *Client) EntriesSince(ctx context.Context, since time.Time, pageURL string) (entries []Entry, next string, err error) {
	q := url.Values{"since": {formatDate(since)}, "per_page": {"100"}, "mode": {"extended"}}
	return c.entriesPage(ctx, "entries.json", q, pageURL)
}

// FeedEntries returns a page of entries of one feed created since the time
func (c *Client) FeedEntries(ctx context.Context, feedID string, since time.Time, pageURL string) (entries []Entry, next string, err error) {
	q := url.Values{"since": {formatDate(since)}, "per_page": {"100"}, "mode": {"extended"}}
	return c.entriesPage(ctx, "feeds/"+feedID+"/entries.json", q, pageURL)
}

func (c *Client) entriesPage(ctx context.Context, path string, q url.Values, pageURL string) ([]Entry, string, error) {
	if pageURL != "" {
		path, q = pageURL, nil
	}
	var res []Entry
	resp, err := c.caller.GetJSON(ctx, path, q, &res)
	if err != nil {
		return nil, "", fmt.Errorf("get entries page: %w", err)
	}
	return res, resp.NextURL, nil
}

// SetUnread marks entries unread (unread true) or read
func (c *Client) SetUnread(ctx context.Context, ids []int64, unread bool) error {
	method := http.MethodDelete
	if unread {
		method = http.MethodPost
	}
	body := struct {
		UnreadEntries []int64 `json:"unread_entries"`
	}{UnreadEntries: ids}
	if _, err := c.caller.SendJSON(ctx, method, "unread_entries.json", body, nil); err != nil {
		return fmt.Errorf("set unread=%v for %d entries: %w", unread, len(ids), err)
	}
	return nil
}

// SetStarred stars or unstars entries
func (c *Client) SetStarred(ctx context.Context, ids []int64, starred bool) error {
	method := http.MethodDelete
	if starred {
		method = http.MethodPost
	}
	body := struct {
		StarredEntries []int64 `json:"starred_entries"`
	}{StarredEntries: ids}
	if _, err := c.caller.SendJSON(ctx, method, "starred_entries.json", body, nil); err != nil {
		return fmt.Errorf("set starred=%v for %d entries: %w", starred, len(ids), err)
	}
	return nil
}

// CreateSubscription subscribes to a feed or page url.
// It returns domain.ErrAlreadySubscribed, domain.ErrNoFeedFound or *ErrMultipleChoices for the
// special answers of the api.
func (c *Client) CreateSubscription(ctx context.Context, feedURL string) (Subscription, error) {
	resp, err := c.caller.Do(ctx, transport.Request{Method: http.MethodPost, Path: "subscriptions.json",
		Query: url.Values{"mode": {"extended"}}, JSON: map[string]string{"feed_url": feedURL}, NoRedirect: true})
	var statusErr *transport.StatusError
	switch {
	case err == nil:
	case errors.As(err, &statusErr) && statusErr.Code == http.StatusMultipleChoices:
		var choices []SubscriptionChoice
		if derr := decode(resp.Body, &choices); derr != nil {
			return Subscription{}, derr
		}
		return Subscription{}, &ErrMultipleChoices{Choices: choices}
	case errors.As(err, &statusErr) && statusErr.Code == http.StatusFound:
		return Subscription{}, domain.ErrAlreadySubscribed
	case errors.Is(err, transport.ErrUnauthorized):
		// feedbin answers 401 for a feed the user is subscribed to already
		return Subscription{}, domain.ErrAlreadySubscribed
	case errors.Is(err, transport.ErrNotFound):
		return Subscription{}, domain.ErrNoFeedFound
	default:
		return Subscription{}, fmt.Errorf("create subscription: %w", err)
	}
	var res Subscription
	if err := decode(resp.Body, &res); err != nil {
		return Subscription{}, err
	}
	return res, nil
}

// RenameSubscription sets a custom title
func (c *Client) RenameSubscription(ctx context.Context, subscriptionID, title string) error {
	path := "subscriptions/" + subscriptionID + "/update.json"
	if _, err := c.caller.SendJSON(ctx, http.MethodPost, path, map[string]string{"title": title}, nil); err != nil {
		return fmt.Errorf("rename subscription %s: %w", subscriptionID, err)
	}
	return nil
}

// DeleteSubscription unsubscribes
func (c *Client) DeleteSubscription(ctx context.Context, subscriptionID string) error {
	if _, err := c.caller.Do(ctx, transport.Request{Method: http.MethodDelete, Path: "subscriptions/" + subscriptionID + ".json"}); err != nil {
		return fmt.Errorf("delete subscription %s: %w", subscriptionID, err)
	}
	return nil
}

// CreateTagging puts the feed into a tag and returns the tagging id taken from the Location header
func (c *Client) CreateTagging(ctx context.Context, feedID, name string) (string, error) {
	id, err := strconv.ParseInt(feedID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("feed id %q: %w", feedID, domain.ErrInvalidParameter)
	}
	resp, err := c.caller.SendJSON(ctx, http.MethodPost, "taggings.json", map[string]any{"feed_id": id, "name": name}, nil)
	if err != nil {
		return "", fmt.Errorf("create tagging: %w", err)
	}
	loc := resp.Header.Get("Location")
	_, rest, found := strings.Cut(loc, "taggings/")
	taggingID, _, _ := strings.Cut(rest, ".json")
	if !found || taggingID == "" {
		return "", fmt.Errorf("create tagging: no tagging id in location %q", loc)
	}
	return taggingID, nil
}

// DeleteTagging removes the feed from a tag
func (c *Client) DeleteTagging(ctx context.Context, taggingID string) error {
	if _, err := c.caller.Do(ctx, transport.Request{Method: http.MethodDelete, Path: "taggings/" + taggingID + ".json"}); err != nil {
		return fmt.Errorf("delete tagging %s: %w", taggingID, err)
	}
	return nil
}

// RenameTag renames a tag on all its taggings
func (c *Client) RenameTag(ctx context.Context, oldName, newName string) error {
	body := map[string]string{"old_name": oldName, "new_name": newName}
	if _, err := c.caller.SendJSON(ctx, http.MethodPost, "tags.json", body, nil); err != nil {
		return fmt.Errorf("rename tag %q: %w", oldName, err)
	}
	return nil
}

// DeleteTag removes a tag and all its taggings
func (c *Client) DeleteTag(ctx context.Context, name string) error {
	if _, err := c.caller.SendJSON(ctx, http.MethodDelete, "tags.json", map[string]string{"name": name}, nil); err != nil {
		return fmt.Errorf("delete tag %q: %w", name, err)
	}
	return nil
}

// getCached makes a conditional GET and serves the last decoded value on a not-modified answer
func (c *Client) getCached(ctx context.Context, path string, q url.Values, dest any) error {
	c.mu.Lock()
	prev, ok := c.cached[path]
	c.mu.Unlock()

	req := transport.Request{Path: path, Query: q}
	if ok {
		req.ConditionalGet = prev.cg
	}
	resp, err := c.caller.Do(ctx, req)
	if errors.Is(err, transport.ErrNotModified) && ok {
		return decode(prev.body, dest)
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	if err := decode(resp.Body, dest); err != nil {
		return err
	}
	if !resp.ConditionalGet.IsEmpty() {
		c.mu.Lock()
		c.cached[path] = cachedList{cg: resp.ConditionalGet, body: resp.Body}
		c.mu.Unlock()
	}
	return nil
}

func decode(body []byte, dest any) error {
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000Z")
}
