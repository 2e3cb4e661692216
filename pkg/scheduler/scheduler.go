// Package scheduler runs periodic account refreshes. Each account has its own operation queue,
// so accounts refresh in parallel while refreshes of one account never overlap.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/feedsync/pkg/queue"
)

//go:generate moq -out mocks/refresher.go -pkg mocks -skip-ensure -fmt goimports . Refresher

// DefaultInterval between refreshes when neither interval nor cron spec is set
const DefaultInterval = 30 * time.Minute

// Refresher refreshes one account, implemented by the sync and local delegates
type Refresher interface {
	AccountID() string
	RefreshAll(ctx context.Context) error
}

// Suspender is a network layer able to stop and restart its requests, implemented by services
type Suspender interface {
	Suspend()
	Resume()
}

// SaveSuspender is an account graph with a pausable save queue, implemented by account.Account
type SaveSuspender interface {
	SuspendSaves()
	ResumeSaves()
}

// Params for New
type Params struct {
	Refreshers []Refresher
	Suspenders []Suspender
	Accounts   []SaveSuspender
	Interval   time.Duration
	Cron       string // cron spec, replaces Interval if set
	// OnRefreshed is called after every successful refresh of an account
	OnRefreshed func(ctx context.Context, accountID string)
}

// Scheduler triggers account refreshes by interval or cron spec
type Scheduler struct {
	refreshers  map[string]Refresher
	queues      map[string]*queue.OperationQueue
	all         *queue.OperationQueue // parent of account queues, used for progress only
	suspenders  []Suspender
	accounts    []SaveSuspender
	interval    time.Duration
	cronSpec    string
	onRefreshed func(ctx context.Context, accountID string)

	mu        sync.Mutex
	suspended bool
	cron      *cron.Cron
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New makes a scheduler. An invalid cron spec is an error.
func New(p Params) (*Scheduler, error) {
	if p.Cron != "" {
		if _, err := cron.ParseStandard(p.Cron); err != nil {
			return nil, fmt.Errorf("parse cron spec %q: %w", p.Cron, err)
		}
	}
	if p.Interval <= 0 {
		p.Interval = DefaultInterval
	}
	s := &Scheduler{
		refreshers:  make(map[string]Refresher, len(p.Refreshers)),
		queues:      make(map[string]*queue.OperationQueue, len(p.Refreshers)),
		all:         queue.NewOperationQueue("refresh"),
		suspenders:  p.Suspenders,
		accounts:    p.Accounts,
		interval:    p.Interval,
		cronSpec:    p.Cron,
		onRefreshed: p.OnRefreshed,
	}
	for _, r := range p.Refreshers {
		id := r.AccountID()
		if _, dup := s.refreshers[id]; dup {
			return nil, fmt.Errorf("duplicate account %s", id)
		}
		s.refreshers[id] = r
		q := queue.NewOperationQueue("refresh:" + id)
		s.queues[id] = q
		s.all.AddChild(q)
	}
	return s, nil
}

// Start launches account queues and the trigger, a refresh of every account is queued right away
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, q := range s.queues {
		q.Start(ctx)
	}

	if s.cronSpec != "" {
		s.mu.Lock()
		s.cron = cron.New()
		_, _ = s.cron.AddFunc(s.cronSpec, func() { s.RefreshAll() }) // spec is checked by New
		s.cron.Start()
		s.mu.Unlock()
		s.RefreshAll()
		lgr.Printf("[INFO] scheduler started with cron %q for %d accounts", s.cronSpec, len(s.refreshers))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.RefreshAll()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RefreshAll()
			}
		}
	}()
	lgr.Printf("[INFO] scheduler started with interval %v for %d accounts", s.interval, len(s.refreshers))
}

// Stop cancels running refreshes and waits for the queues
func (s *Scheduler) Stop() {
	lgr.Printf("[INFO] stopping scheduler...")
	s.mu.Lock()
	c := s.cron
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	for _, q := range s.queues {
		q.Stop()
	}
	lgr.Printf("[INFO] scheduler stopped")
}

// RefreshAll queues a refresh of every account, skipping suspended state
func (s *Scheduler) RefreshAll() {
	if s.isSuspended() {
		lgr.Printf("[DEBUG] scheduler suspended, refresh skipped")
		return
	}
	for _, id := range s.AccountIDs() {
		if _, err := s.Refresh(id); err != nil {
			lgr.Printf("[WARN] %v", err)
		}
	}
}

// Refresh queues a refresh of the account. It returns false if one is already queued or running.
func (s *Scheduler) Refresh(accountID string) (bool, error) {
	r, ok := s.refreshers[accountID]
	if !ok {
		return false, fmt.Errorf("refresh %s: unknown account", accountID)
	}
	q := s.queues[accountID]
	name := "refresh:" + accountID
	if q.HasNamed(name) {
		lgr.Printf("[DEBUG] refresh of %s already queued", accountID)
		return false, nil
	}
	q.Add(queue.NewOperation(name, func(ctx context.Context) error {
		if err := r.RefreshAll(ctx); err != nil {
			lgr.Printf("[WARN] refresh of %s failed: %v", accountID, err)
			return err
		}
		if s.onRefreshed != nil {
			s.onRefreshed(ctx, accountID)
		}
		return nil
	}))
	return true, nil
}

// CancelRefresh cancels a queued or running refresh of the account
func (s *Scheduler) CancelRefresh(accountID string) {
	if q, ok := s.queues[accountID]; ok {
		q.CancelNamed("refresh:" + accountID)
	}
}

// Refreshing reports whether a refresh of the account is queued or running
func (s *Scheduler) Refreshing(accountID string) bool {
	q, ok := s.queues[accountID]
	return ok && q.HasNamed("refresh:"+accountID)
}

// Progress sums queued refreshes of all accounts
func (s *Scheduler) Progress() queue.Progress { return s.all.Progress() }

// AccountIDs returns ids of scheduled accounts, sorted
func (s *Scheduler) AccountIDs() []string {
	res := make([]string, 0, len(s.refreshers))
	for id := range s.refreshers {
		res = append(res, id)
	}
	sort.Strings(res)
	return res
}

// RunOnce refreshes every account in parallel and waits, used for one-shot runs without queues.
// Errors of all accounts are joined.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var mu sync.Mutex
	var errs []error
	g := errgroup.Group{}
	for _, id := range s.AccountIDs() {
		r := s.refreshers[id]
		g.Go(func() error {
			if err := r.RefreshAll(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			if s.onRefreshed != nil {
				s.onRefreshed(ctx, id)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Suspend stops network requests, queued refreshes and graph saves
func (s *Scheduler) Suspend() {
	s.mu.Lock()
	if s.suspended {
		s.mu.Unlock()
		return
	}
	s.suspended = true
	s.mu.Unlock()

	for _, q := range s.queues {
		q.Suspend()
	}
	for _, sp := range s.suspenders {
		sp.Suspend()
	}
	for _, a := range s.accounts {
		a.SuspendSaves()
	}
	lgr.Printf("[INFO] scheduler suspended")
}

// Resume restarts what Suspend stopped, in reverse order
func (s *Scheduler) Resume() {
	s.mu.Lock()
	if !s.suspended {
		s.mu.Unlock()
		return
	}
	s.suspended = false
	s.mu.Unlock()

	for _, a := range s.accounts {
		a.ResumeSaves()
	}
	for _, sp := range s.suspenders {
		sp.Resume()
	}
	for _, q := range s.queues {
		q.Resume()
	}
	lgr.Printf("[INFO] scheduler resumed")
}

func (s *Scheduler) isSuspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}
