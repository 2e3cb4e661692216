// Package server exposes accounts, feeds and articles over a small JSON api
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/feedsync/pkg/account"
	"github.com/umputun/feedsync/pkg/domain"
	"github.com/umputun/feedsync/pkg/queue"
)

//go:generate moq -out mocks/scheduler.go -pkg mocks -skip-ensure -fmt goimports . Scheduler
//go:generate moq -out mocks/delegate.go -pkg mocks -skip-ensure -fmt goimports . Delegate
//go:generate moq -out mocks/article_reader.go -pkg mocks -skip-ensure -fmt goimports . ArticleReader
//go:generate moq -out mocks/icon_source.go -pkg mocks -skip-ensure -fmt goimports . IconSource

// Server represents HTTP server instance
type Server struct {
	Params
	accounts map[string]Account

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// Params for New
type Params struct {
	Listen    string
	Timeout   time.Duration
	Version   string
	Debug     bool
	Scheduler Scheduler
	Articles  ArticleReader
	Icons     IconSource // optional, icon route answers 404 without it
}

// Account is one served account: its graph and the delegate syncing it
type Account struct {
	Graph    Graph
	Delegate Delegate
}

// Graph is the account folder and feed tree, implemented by account.Account
type Graph interface {
	ID() string
	Type() domain.AccountType
	Name() string
	TopLevelFeeds() []account.Feed
	Folders() []account.Folder
	FeedsInFolder(id string) []account.Feed
	ExistingFeed(feedID string) (account.Feed, bool)
	UnreadCounts(ctx context.Context) (map[string]int, error)
	MarkByUser(ctx context.Context, ids []string, key domain.StatusKey, flag bool) ([]string, error)
}

// Delegate changes subscriptions of an account, implemented by the sync and local delegates
type Delegate interface {
	Progress() queue.Progress
	CreateFeed(ctx context.Context, url, name, folder string) (account.Feed, error)
	DeleteFeed(ctx context.Context, feedID, containerID string) error
}

// Scheduler triggers on-demand refreshes
type Scheduler interface {
	Refresh(accountID string) (bool, error)
	Refreshing(accountID string) bool
}

// ArticleReader reads stored articles
type ArticleReader interface {
	Recent(ctx context.Context, accountID string, unreadOnly bool, limit int) ([]domain.Article, error)
}

// IconSource returns favicon bytes by icon url
type IconSource interface {
	Icon(ctx context.Context, iconURL string) ([]byte, error)
}

// New initializes a new server instance
func New(p Params, accounts ...Account) *Server {
	s := &Server{
		Params:   p,
		accounts: make(map[string]Account, len(accounts)),
		router:   routegroup.New(http.NewServeMux()),
	}
	for _, a := range accounts {
		s.accounts[a.Graph.ID()] = a
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	log.Printf("[INFO] starting server on %s", s.Listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:              s.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: s.Timeout,
		ReadTimeout:       s.Timeout,
		WriteTimeout:      s.Timeout,
	}
	httpServer := s.httpServer
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("feedsync", "umputun", s.Version))
	s.router.Use(rest.Ping)

	if s.Debug {
		s.router.Use(logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(log.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("GET /accounts", s.accountsHandler)
		r.HandleFunc("POST /accounts/{id}/refresh", s.refreshHandler)
		r.HandleFunc("GET /accounts/{id}/feeds", s.feedsHandler)
		r.HandleFunc("POST /accounts/{id}/feeds", s.createFeedHandler)
		r.HandleFunc("DELETE /accounts/{id}/feeds/{feedID}", s.deleteFeedHandler)
		r.HandleFunc("GET /accounts/{id}/feeds/{feedID}/icon", s.iconHandler)
		r.HandleFunc("GET /accounts/{id}/articles", s.articlesHandler)
		r.HandleFunc("POST /accounts/{id}/articles/status", s.articleStatusHandler)
		r.HandleFunc("GET /accounts/{id}/rss", s.rssHandler)
		r.HandleFunc("GET /accounts/{id}/opml", s.opmlHandler)
		r.HandleFunc("POST /accounts/{id}/opml", s.opmlImportHandler)
	})
}

// account finds the account of the {id} path value, rendering 404 if there is none
func (s *Server) account(w http.ResponseWriter, r *http.Request) (Account, bool) {
	acc, ok := s.accounts[r.PathValue("id")]
	if !ok {
		renderError(w, r, fmt.Errorf("account %q not found", r.PathValue("id")), http.StatusNotFound)
	}
	return acc, ok
}

func (s *Server) accountIDs() []string {
	res := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		res = append(res, id)
	}
	sort.Strings(res)
	return res
}
