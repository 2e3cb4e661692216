// Package transport is the http layer shared by remote service clients. It handles credentials,
// cookies, conditional requests, retries, status code mapping and suspension of network activity.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"
	"golang.org/x/net/publicsuffix"

	"github.com/umputun/feedsync/pkg/domain"
)

// errors mapped from response status codes
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrNotModified  = errors.New("not modified")
	ErrSuspended    = domain.ErrSuspended
)

const maxBodySize = 64 << 20

// StatusError is returned for unexpected response codes without a dedicated error
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// AuthKind selects how credentials are sent
type AuthKind int

// enum of credential kinds
const (
	AuthNone   AuthKind = iota // cookies only
	AuthBasic                  // username and password
	AuthBearer                 // oauth token
)

// Credentials used by a caller
type Credentials struct {
	Kind     AuthKind
	Username string
	Password string
	Token    string
}

// Params for NewCaller
type Params struct {
	BaseURL     string
	Timeout     time.Duration
	UserAgent   string
	Credentials Credentials
	Retries     int           // attempts per request for transport and 5xx errors, 1 means no retry
	RetryDelay  time.Duration // initial backoff delay
}

// Request describes one api call
type Request struct {
	Method         string
	Path           string // relative to base url, or absolute url
	Query          url.Values
	JSON           any        // body encoded as json
	Form           url.Values // body encoded as a form
	ConditionalGet domain.ConditionalGetInfo
	NoRedirect     bool // return 3xx responses instead of following them
}

// Response of an api call. It is returned with StatusError and the mapped errors too.
type Response struct {
	StatusCode     int
	Header         http.Header
	Body           []byte
	ConditionalGet domain.ConditionalGetInfo
	NextURL        string // rel="next" of the Link header
}

// Caller performs http requests against one service
type Caller struct {
	base    *url.URL
	client  *http.Client
	ua      string
	creds   Credentials
	retries int
	delay   time.Duration

	mu        sync.Mutex
	suspended bool
	inflight  map[int]context.CancelFunc
	nextID    int
}

type noRedirectKey struct{}

// NewCaller makes a caller with its own cookie jar
func NewCaller(p Params) (*Caller, error) {
	base, err := url.Parse(p.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", p.BaseURL, err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("make cookie jar: %w", err)
	}
	if p.Timeout <= 0 {
		p.Timeout = 60 * time.Second
	}
	if p.UserAgent == "" {
		p.UserAgent = "feedsync"
	}
	if p.Retries <= 0 {
		p.Retries = 3
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = 500 * time.Millisecond
	}
	client := &http.Client{
		Timeout: p.Timeout,
		Jar:     jar,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if v, ok := req.Context().Value(noRedirectKey{}).(bool); ok && v {
				return http.ErrUseLastResponse
			}
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
	return &Caller{base: base, client: client, ua: p.UserAgent, creds: p.Credentials, retries: p.Retries,
		delay: p.RetryDelay, inflight: make(map[int]context.CancelFunc)}, nil
}

// SetCredentials replaces credentials, used after a login
func (c *Caller) SetCredentials(creds Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = creds
}

// Cookie returns the value of a cookie the service set for its base url
func (c *Caller) Cookie(name string) string {
	for _, ck := range c.client.Jar.Cookies(c.base) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// URL resolves a path against the base url
func (c *Caller) URL(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.base.String() + path
	}
	return c.base.ResolveReference(ref).String()
}

// Suspend cancels requests in flight and rejects new ones until Resume
func (c *Caller) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspended = true
	for id, cancel := range c.inflight {
		cancel()
		delete(c.inflight, id)
	}
}

// Resume allows requests again
func (c *Caller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspended = false
}

// Do performs the request. Transport errors and 5xx responses are retried with backoff.
func (c *Caller) Do(ctx context.Context, req Request) (*Response, error) {
	ctx, done, err := c.track(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.NoRedirect {
		ctx = context.WithValue(ctx, noRedirectKey{}, true)
	}
	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}
	target := c.URL(req.Path)
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Query.Encode()
	}

	var resp *Response
	var respErr error
	retrier := repeater.NewBackoff(c.retries, c.delay, repeater.WithMaxDelay(10*time.Second))
	err = retrier.Do(ctx, func() error {
		resp, respErr = c.once(ctx, req, target, body, contentType)
		if respErr != nil && retryable(ctx, resp) {
			return respErr
		}
		return nil // final answer, mapped errors are not retried
	})
	if c.isSuspended() && (err != nil || resp == nil) {
		return nil, ErrSuspended
	}
	if err != nil {
		return resp, fmt.Errorf("%s %s: %w", req.Method, target, err)
	}
	if respErr != nil && resp == nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, target, respErr)
	}
	return resp, respErr
}

// GetJSON gets path and decodes the json response into dest
func (c *Caller) GetJSON(ctx context.Context, path string, query url.Values, dest any) (*Response, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return resp, err
	}
	return resp, decode(resp, dest)
}

// SendJSON sends body as json with the method and decodes the response into dest, if dest is not nil
func (c *Caller) SendJSON(ctx context.Context, method, path string, body, dest any) (*Response, error) {
	resp, err := c.Do(ctx, Request{Method: method, Path: path, JSON: body})
	if err != nil {
		return resp, err
	}
	return resp, decode(resp, dest)
}

// PostForm posts a form and decodes the json response into dest, if dest is not nil
func (c *Caller) PostForm(ctx context.Context, path string, form url.Values, dest any) (*Response, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Form: form})
	if err != nil {
		return resp, err
	}
	return resp, decode(resp, dest)
}

func (c *Caller) once(ctx context.Context, req Request, target string, body []byte, contentType string) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("make request: %w", err)
	}
	if body == nil {
		httpReq.Body = http.NoBody
	}
	httpReq.Header.Set("User-Agent", c.ua)
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.ConditionalGet.ETag != "" {
		httpReq.Header.Set("If-None-Match", req.ConditionalGet.ETag)
	}
	if req.ConditionalGet.LastModified != "" {
		httpReq.Header.Set("If-Modified-Since", req.ConditionalGet.LastModified)
	}
	c.mu.Lock()
	creds := c.creds
	c.mu.Unlock()
	switch creds.Kind {
	case AuthBasic:
		httpReq.SetBasicAuth(creds.Username, creds.Password)
	case AuthBearer:
		httpReq.Header.Set("Authorization", "Bearer "+creds.Token)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		ConditionalGet: domain.ConditionalGetInfo{
			ETag:         httpResp.Header.Get("ETag"),
			LastModified: httpResp.Header.Get("Last-Modified"),
		},
		NextURL: ParseLinkNext(httpResp.Header.Get("Link")),
	}
	log.Printf("[DEBUG] %s %s -> %d, %d bytes", req.Method, target, resp.StatusCode, len(data))
	return resp, statusError(resp)
}

// track registers the request for cancellation by Suspend
func (c *Caller) track(ctx context.Context) (context.Context, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suspended {
		return nil, nil, ErrSuspended
	}
	ctx, cancel := context.WithCancel(ctx)
	id := c.nextID
	c.nextID++
	c.inflight[id] = cancel
	return ctx, func() {
		c.mu.Lock()
		delete(c.inflight, id)
		c.mu.Unlock()
		cancel()
	}, nil
}

func (c *Caller) isSuspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspended
}

func statusError(resp *Response) error {
	switch code := resp.StatusCode; {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotModified:
		return ErrNotModified
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		body := string(resp.Body)
		if len(body) > 256 {
			body = body[:256]
		}
		return &StatusError{Code: code, Body: body}
	}
}

func retryable(ctx context.Context, resp *Response) bool {
	if ctx.Err() != nil {
		return false
	}
	if resp == nil {
		return true // transport error
	}
	return resp.StatusCode >= 500
}

func encodeBody(req Request) (body []byte, contentType string, err error) {
	switch {
	case req.JSON != nil:
		body, err = json.Marshal(req.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("encode json body: %w", err)
		}
		return body, "application/json; charset=utf-8", nil
	case req.Form != nil:
		return []byte(req.Form.Encode()), "application/x-www-form-urlencoded", nil
	default:
		return nil, "", nil
	}
}

func decode(resp *Response, dest any) error {
	if dest == nil || resp == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
