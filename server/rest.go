package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"

	"github.com/umputun/feedsync/pkg/account"
	"github.com/umputun/feedsync/pkg/domain"
	"github.com/umputun/feedsync/pkg/queue"
	"github.com/umputun/feedsync/pkg/reconcile"
)

const defaultArticlesLimit = 100

type accountInfo struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Name       string         `json:"name"`
	State      string         `json:"state,omitempty"`
	Refreshing bool           `json:"refreshing"`
	Progress   queue.Progress `json:"progress"`
}

type feedInfo struct {
	FeedID      string `json:"feed_id"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	HomePageURL string `json:"home_page_url,omitempty"`
	FaviconURL  string `json:"favicon_url,omitempty"`
	Unread      int    `json:"unread"`
}

type folderInfo struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Feeds []feedInfo `json:"feeds"`
}

type feedsResponse struct {
	Feeds   []feedInfo   `json:"feeds"` // top level
	Folders []folderInfo `json:"folders"`
}

type createFeedRequest struct {
	URL    string `json:"url"`
	Name   string `json:"name"`
	Folder string `json:"folder"`
}

type statusRequest struct {
	IDs  []string         `json:"ids"`
	Key  domain.StatusKey `json:"key"`
	Flag bool             `json:"flag"`
}

// stater is implemented by sync delegates reporting their refresh stage
type stater interface {
	State() reconcile.State
}

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := rest.JSON{
		"status":   "ok",
		"version":  s.Version,
		"time":     time.Now().UTC(),
		"accounts": len(s.accounts),
	}
	renderJSON(w, r, http.StatusOK, status)
}

// accountsHandler lists accounts with their refresh state
func (s *Server) accountsHandler(w http.ResponseWriter, r *http.Request) {
	res := make([]accountInfo, 0, len(s.accounts))
	for _, id := range s.accountIDs() {
		acc := s.accounts[id]
		info := accountInfo{
			ID:         id,
			Type:       string(acc.Graph.Type()),
			Name:       acc.Graph.Name(),
			Refreshing: s.Scheduler.Refreshing(id),
			Progress:   acc.Delegate.Progress(),
		}
		if st, ok := acc.Delegate.(stater); ok {
			info.State = string(st.State())
		}
		res = append(res, info)
	}
	renderJSON(w, r, http.StatusOK, res)
}

// refreshHandler queues a refresh of the account
func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.account(w, r)
	if !ok {
		return
	}
	queued, err := s.Scheduler.Refresh(acc.Graph.ID())
	if err != nil {
		log.Printf("[WARN] failed to queue refresh: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusAccepted, rest.JSON{"queued": queued})
}

// feedsHandler returns the folder tree of the account with unread counts
func (s *Server) feedsHandler(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.account(w, r)
	if !ok {
		return
	}
	counts, err := acc.Graph.UnreadCounts(r.Context())
	if err != nil {
		log.Printf("[ERROR] failed to get unread counts: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	res := feedsResponse{Feeds: toFeedInfos(acc.Graph.TopLevelFeeds(), counts), Folders: []folderInfo{}}
	for _, f := range acc.Graph.Folders() {
		res.Folders = append(res.Folders, folderInfo{ID: f.ID, Name: f.Name,
			Feeds: toFeedInfos(acc.Graph.FeedsInFolder(f.ID), counts)})
	}
	renderJSON(w, r, http.StatusOK, res)
}

// createFeedHandler subscribes the account to a feed
func (s *Server) createFeedHandler(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.account(w, r)
	if !ok {
		return
	}
	var req createFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request: %w", err), http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		renderError(w, r, errors.New("feed URL is required"), http.StatusBadRequest)
		return
	}

	feed, err := acc.Delegate.CreateFeed(r.Context(), req.URL, req.Name, req.Folder)
	if err != nil {
		log.Printf("[WARN] failed to create feed %s in %s: %v", req.URL, acc.Graph.ID(), err)
		renderError(w, r, err, errorCode(err))
		return
	}
	renderJSON(w, r, http.StatusCreated, toFeedInfo(feed, 0))
}

// deleteFeedHandler unsubscribes a feed. The container query param selects a folder id,
// the feed is removed from the root otherwise.
func (s *Server) deleteFeedHandler(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.account(w, r)
	if !ok {
		return
	}
	feedID := r.PathValue("feedID")
	if _, found := acc.Graph.ExistingFeed(feedID); !found {
		renderError(w, r, domain.ErrFeedNotFound, http.StatusNotFound)
		return
	}

	container := r.URL.Query().Get("container")
	if container == "" {
		container = account.Root
	}
	if err := acc.Delegate.DeleteFeed(r.Context(), feedID, container); err != nil {
		log.Printf("[WARN] failed to delete feed %s in %s: %v", feedID, acc.Graph.ID(), err)
		renderError(w, r, err, errorCode(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// iconHandler serves the favicon of a feed
func (s *Server) iconHandler(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.account(w, r)
	if !ok {
		return
	}
	feed, found := acc.Graph.ExistingFeed(r.PathValue("feedID"))
	if !found || feed.FaviconURL == "" || s.Icons == nil {
		renderError(w, r, errors.New("icon not found"), http.StatusNotFound)
		return
	}
	data, err := s.Icons.Icon(r.Context(), feed.FaviconURL)
	if err != nil {
		log.Printf("[DEBUG] failed to get icon %s: %v", feed.FaviconURL, err)
		renderError(w, r, err, http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}

// articlesHandler returns the newest articles, optionally unread only
func (s *Server) articlesHandler(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.account(w, r)
	if !ok {
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit := defaultArticlesLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v <= 0 {
			renderError(w, r, fmt.Errorf("invalid limit %q", l), http.StatusBadRequest)
			return
		}
		limit = v
	}

	articles, err := s.Articles.Recent(r.Context(), acc.Graph.ID(), unreadOnly, limit)
	if err != nil {
		log.Printf("[ERROR] failed to get articles: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, articles)
}

// articleStatusHandler applies a status change made by the user, queued for upload to the service
func (s *Server) articleStatusHandler(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.account(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request: %w", err), http.StatusBadRequest)
		return
	}
	if req.Key != domain.StatusRead && req.Key != domain.StatusStarred {
		renderError(w, r, fmt.Errorf("invalid status key %q", req.Key), http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 {
		renderError(w, r, errors.New("ids are required"), http.StatusBadRequest)
		return
	}

	changed, err := acc.Graph.MarkByUser(r.Context(), req.IDs, req.Key, req.Flag)
	if err != nil {
		log.Printf("[ERROR] failed to mark %s=%v: %v", req.Key, req.Flag, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	if changed == nil {
		changed = []string{}
	}
	renderJSON(w, r, http.StatusOK, rest.JSON{"changed": changed})
}

func toFeedInfos(feeds []account.Feed, counts map[string]int) []feedInfo {
	res := make([]feedInfo, 0, len(feeds))
	for _, f := range feeds {
		res = append(res, toFeedInfo(f, counts[f.FeedID]))
	}
	return res
}

func toFeedInfo(f account.Feed, unread int) feedInfo {
	return feedInfo{FeedID: f.FeedID, URL: f.URL, Name: f.DisplayName(), HomePageURL: f.HomePageURL,
		FaviconURL: f.FaviconURL, Unread: unread}
}

// errorCode maps domain errors to http status codes
func errorCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrFeedNotFound), errors.Is(err, domain.ErrFolderNotFound), errors.Is(err, domain.ErrNoFeedFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadySubscribed), errors.Is(err, domain.ErrFolderExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidParameter), errors.Is(err, domain.ErrMultipleChoices):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrSuspended):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response as JSON
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, rest.JSON{"error": errMsg})
}
