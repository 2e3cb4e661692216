package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/umputun/feedsync/pkg/account"
	"github.com/umputun/feedsync/pkg/domain"
	"github.com/umputun/feedsync/pkg/feed"
)

const (
	defaultRSSLimit = 100
	maxOPMLSize     = 5 * 1024 * 1024
)

type opmlImportResult struct {
	Added    []string          `json:"added"`
	Existing []string          `json:"existing"`
	Failed   map[string]string `json:"failed"`
}

// rssHandler serves the newest articles of the account as RSS, unread only unless all=true
func (s *Server) rssHandler(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.account(w, r)
	if !ok {
		return
	}
	limit := defaultRSSLimit
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	unreadOnly := r.URL.Query().Get("all") != "true"

	articles, err := s.Articles.Recent(r.Context(), acc.Graph.ID(), unreadOnly, limit)
	if err != nil {
		log.Printf("[ERROR] failed to get articles for RSS: %v", err)
		http.Error(w, "Failed to generate RSS feed", http.StatusInternalServerError)
		return
	}

	title := acc.Graph.Name()
	if unreadOnly {
		title = "Unread in " + title
	}
	generator := feed.NewGenerator(baseURL(r))
	rss, err := generator.GenerateRSS(title, r.URL.Path, articles)
	if err != nil {
		log.Printf("[ERROR] failed to generate RSS feed: %v", err)
		http.Error(w, "Failed to generate RSS feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	if _, err := w.Write([]byte(rss)); err != nil {
		log.Printf("[ERROR] failed to write RSS response: %v", err)
	}
}

// opmlHandler exports subscriptions of the account
func (s *Server) opmlHandler(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.account(w, r)
	if !ok {
		return
	}
	var folders []feed.OutlineFolder
	for _, f := range acc.Graph.Folders() {
		folders = append(folders, feed.OutlineFolder{Name: f.Name, Feeds: toOutlines(acc.Graph.FeedsInFolder(f.ID))})
	}

	generator := feed.NewGenerator(baseURL(r))
	opml, err := generator.GenerateOPML(acc.Graph.Name()+" subscriptions", toOutlines(acc.Graph.TopLevelFeeds()), folders)
	if err != nil {
		log.Printf("[ERROR] failed to generate OPML: %v", err)
		http.Error(w, "Failed to generate OPML", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/x-opml; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", acc.Graph.ID()+".opml"))
	if _, err := w.Write([]byte(opml)); err != nil {
		log.Printf("[ERROR] failed to write OPML response: %v", err)
	}
}

// opmlImportHandler subscribes the account to every feed of the posted OPML document.
// Folders of the document become account folders, feeds already subscribed are reported as existing.
func (s *Server) opmlImportHandler(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.account(w, r)
	if !ok {
		return
	}
	subs, err := feed.ParseOPML(http.MaxBytesReader(w, r.Body, maxOPMLSize))
	if err != nil {
		renderError(w, r, fmt.Errorf("invalid opml: %w", err), http.StatusBadRequest)
		return
	}

	res := opmlImportResult{Added: []string{}, Existing: []string{}, Failed: map[string]string{}}
	subscribe := func(o feed.Outline, folder string) {
		if _, err := acc.Delegate.CreateFeed(r.Context(), o.XMLURL, o.Title, folder); err != nil {
			if errors.Is(err, domain.ErrAlreadySubscribed) {
				res.Existing = append(res.Existing, o.XMLURL)
				return
			}
			log.Printf("[WARN] failed to import feed %s to %s: %v", o.XMLURL, acc.Graph.ID(), err)
			res.Failed[o.XMLURL] = err.Error()
			return
		}
		res.Added = append(res.Added, o.XMLURL)
	}
	for _, o := range subs.Feeds {
		subscribe(o, "")
	}
	for _, f := range subs.Folders {
		for _, o := range f.Feeds {
			subscribe(o, f.Name)
		}
	}
	log.Printf("[INFO] imported opml to %s, added %d, existing %d, failed %d",
		acc.Graph.ID(), len(res.Added), len(res.Existing), len(res.Failed))
	renderJSON(w, r, http.StatusOK, res)
}

func toOutlines(feeds []account.Feed) []feed.Outline {
	res := make([]feed.Outline, 0, len(feeds))
	for _, f := range feeds {
		res = append(res, feed.Outline{Title: f.DisplayName(), XMLURL: f.URL, HTMLURL: f.HomePageURL})
	}
	return res
}

func baseURL(r *http.Request) string {
	if r.TLS != nil {
		return "https://" + r.Host
	}
	return "http://" + r.Host
}
