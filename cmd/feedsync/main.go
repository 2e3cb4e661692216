package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/umputun/feedsync/pkg/account"
	"github.com/umputun/feedsync/pkg/config"
	"github.com/umputun/feedsync/pkg/diskcache"
	"github.com/umputun/feedsync/pkg/domain"
	"github.com/umputun/feedsync/pkg/favicon"
	"github.com/umputun/feedsync/pkg/feed"
	"github.com/umputun/feedsync/pkg/feedbin"
	"github.com/umputun/feedsync/pkg/feedly"
	"github.com/umputun/feedsync/pkg/local"
	"github.com/umputun/feedsync/pkg/newsblur"
	"github.com/umputun/feedsync/pkg/queue"
	"github.com/umputun/feedsync/pkg/reconcile"
	"github.com/umputun/feedsync/pkg/reddit"
	"github.com/umputun/feedsync/pkg/repository"
	"github.com/umputun/feedsync/pkg/scheduler"
	"github.com/umputun/feedsync/pkg/transport"
	"github.com/umputun/feedsync/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"CONFIG" default:"feedsync.yml" description:"configuration file"`
	Listen string `short:"l" long:"listen" env:"LISTEN" description:"listen address, overrides config"`
	Once   bool   `long:"once" description:"refresh all accounts once and exit"`

	// common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

// syncer is the per-account engine, either the sync delegate of a remote service or the local one
type syncer interface {
	AccountID() string
	RefreshAll(ctx context.Context) error
	Progress() queue.Progress
	CreateFeed(ctx context.Context, url, name, folder string) (account.Feed, error)
	DeleteFeed(ctx context.Context, feedID, containerID string) error
}

// engine is one configured account with its graph and syncer
type engine struct {
	cfg       config.Account
	acc       *account.Account
	syncer    syncer
	suspender scheduler.Suspender // network layer of remote accounts, nil for local
}

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	SetupLog(opts.Debug, opts.NoColor)
	log.Printf("[INFO] starting feedsync version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		log.Printf("[ERROR] %v", err)
		cancel()
		os.Exit(1)
	}
	cancel()
	log.Print("[INFO] shutdown complete")
}

func run(ctx context.Context, opts Opts) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	SetupLog(opts.Debug, opts.NoColor, cfg.Secrets()...)
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}

	repos, err := repository.NewRepositories(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer repos.Close()

	cache, err := diskcache.New(filepath.Join(cfg.Cache.Dir, "favicons"))
	if err != nil {
		return fmt.Errorf("failed to make cache: %w", err)
	}
	icons := favicon.New(cache, cfg.HTTP.Timeout, cfg.HTTP.UserAgent)

	engines := make([]*engine, 0, len(cfg.Accounts))
	for _, ac := range cfg.Accounts {
		e, err := makeEngine(ctx, cfg, ac, repos, icons)
		if err != nil {
			return fmt.Errorf("failed to make account %s: %w", ac.ID, err)
		}
		engines = append(engines, e)
	}
	defer func() {
		for _, e := range engines {
			e.acc.Flush()
		}
	}()

	for _, e := range engines {
		ensureFeeds(ctx, e)
	}

	sched, err := makeScheduler(cfg, engines, icons)
	if err != nil {
		return fmt.Errorf("failed to make scheduler: %w", err)
	}

	if opts.Once {
		if err := sched.RunOnce(ctx); err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}
		log.Printf("[INFO] all %d accounts refreshed", len(engines))
		return nil
	}

	sched.Start(ctx)
	defer sched.Stop()
	go handleSuspendSignals(ctx, sched)

	served := make([]server.Account, 0, len(engines))
	for _, e := range engines {
		served = append(served, server.Account{Graph: e.acc, Delegate: e.syncer})
	}
	srv := server.New(server.Params{
		Listen:    cfg.Server.Listen,
		Timeout:   cfg.Server.Timeout,
		Version:   revision,
		Debug:     opts.Debug,
		Scheduler: sched,
		Articles:  repos.Article,
		Icons:     icons,
	}, served...)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// makeEngine restores the account graph and builds the syncer of its type
func makeEngine(ctx context.Context, cfg *config.Config, ac config.Account, repos *repository.Repositories,
	icons *favicon.Finder) (*engine, error) {
	accType := domain.AccountType(ac.Type)
	if err := repos.Account.Upsert(ctx, domain.AccountRecord{ID: ac.ID, Type: accType, Name: ac.Name}); err != nil {
		return nil, fmt.Errorf("store account: %w", err)
	}
	acc := account.New(account.Params{ID: ac.ID, Type: accType, Name: ac.Name, Taxonomy: repos.Taxonomy,
		Articles: repos.Article, Statuses: repos.Status, SyncStatuses: repos.SyncStatus, Metadata: repos.Setting})
	if err := acc.Load(ctx); err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	e := &engine{cfg: ac, acc: acc}

	var (
		svc           reconcile.Service
		caller        *transport.Caller
		ignoreMissing bool
	)
	switch accType {
	case domain.AccountLocal:
		parser := feed.NewParser(cfg.HTTP.Timeout, cfg.HTTP.UserAgent)
		rd, err := reddit.New(reddit.Params{Timeout: cfg.HTTP.Timeout, UserAgent: cfg.HTTP.UserAgent})
		if err != nil {
			return nil, err
		}
		e.syncer = local.NewDelegate(local.Params{Account: acc, Parser: parser, Special: []local.SpecialProvider{rd},
			Icons: icons, MaxWorkers: cfg.Schedule.MaxWorkers})
		log.Printf("[INFO] account %s (%s) ready", ac.ID, ac.Name)
		return e, nil
	case domain.AccountFeedbin:
		client, err := feedbin.NewClient(feedbin.Params{BaseURL: ac.BaseURL, Username: ac.Username, Password: ac.Password,
			Timeout: cfg.HTTP.Timeout, UserAgent: cfg.HTTP.UserAgent})
		if err != nil {
			return nil, err
		}
		svc, caller, ignoreMissing = feedbin.NewService(client), client.Caller(), true
	case domain.AccountNewsBlur:
		client, err := newsblur.NewClient(newsblur.Params{BaseURL: ac.BaseURL, Username: ac.Username, Password: ac.Password,
			Timeout: cfg.HTTP.Timeout, UserAgent: cfg.HTTP.UserAgent})
		if err != nil {
			return nil, err
		}
		svc, caller = newsblur.NewService(client), client.Caller()
	case domain.AccountFeedly:
		client, err := feedly.NewClient(feedly.Params{BaseURL: ac.BaseURL, Token: ac.Token, UserID: ac.UserID,
			Timeout: cfg.HTTP.Timeout, UserAgent: cfg.HTTP.UserAgent})
		if err != nil {
			return nil, err
		}
		svc, caller = feedly.NewService(client), client.Caller()
	default:
		return nil, fmt.Errorf("unknown account type %q", ac.Type)
	}

	e.syncer = reconcile.NewDelegate(reconcile.Params{Account: acc, Service: svc, SyncStatuses: repos.SyncStatus,
		IgnoreMissingArticleErrors: ignoreMissing})
	e.suspender = caller
	log.Printf("[INFO] account %s (%s, %s) ready", ac.ID, ac.Type, ac.Name)
	return e, nil
}

// ensureFeeds subscribes to configured feeds missing in the account graph
func ensureFeeds(ctx context.Context, e *engine) {
	for _, f := range e.cfg.Feeds {
		if _, ok := e.acc.FeedByURL(f.URL); ok {
			continue
		}
		_, err := e.syncer.CreateFeed(ctx, f.URL, f.Name, f.Folder)
		switch {
		case err == nil:
			log.Printf("[DEBUG] configured feed %s added to %s", f.URL, e.acc.ID())
		case errors.Is(err, domain.ErrAlreadySubscribed):
			log.Printf("[DEBUG] %s already subscribed to %s", e.acc.ID(), f.URL)
		default:
			log.Printf("[WARN] failed to subscribe %s to %s: %v", e.acc.ID(), f.URL, err)
		}
	}
}

func makeScheduler(cfg *config.Config, engines []*engine, icons *favicon.Finder) (*scheduler.Scheduler, error) {
	params := scheduler.Params{Interval: cfg.Schedule.RefreshInterval, Cron: cfg.Schedule.Cron}
	byID := make(map[string]*engine, len(engines))
	for _, e := range engines {
		byID[e.acc.ID()] = e
		params.Refreshers = append(params.Refreshers, e.syncer)
		params.Accounts = append(params.Accounts, e.acc)
		if e.suspender != nil {
			params.Suspenders = append(params.Suspenders, e.suspender)
		}
	}
	params.OnRefreshed = func(ctx context.Context, accountID string) {
		e, ok := byID[accountID]
		if !ok {
			return
		}
		var urls []string
		for _, f := range e.acc.FlattenedFeeds() {
			urls = append(urls, f.FaviconURL)
		}
		icons.Prefetch(ctx, urls)
	}
	return scheduler.New(params)
}

// handleSuspendSignals suspends network and saves on SIGUSR1 and resumes on SIGUSR2
func handleSuspendSignals(ctx context.Context, sched *scheduler.Scheduler) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(sigChan)
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			if sig == syscall.SIGUSR1 {
				sched.Suspend()
				continue
			}
			sched.Resume()
		}
	}
}

// SetupLog configures the global and std loggers, secrets are masked in the output
func SetupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
