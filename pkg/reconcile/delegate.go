package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/feedsync/pkg/domain"
	"github.com/umputun/feedsync/pkg/queue"
)

// State of a refresh cycle
type State string

// enum of refresh states, in the order a cycle passes them
const (
	StateIdle                        State = "idle"
	StateFetchingSubscriptions       State = "fetching_subscriptions"
	StateSendingLocalStatusChanges   State = "sending_local_status_changes"
	StateFetchingServerStatusChanges State = "fetching_server_status_changes"
	StateFetchingArticles            State = "fetching_articles"
	StateFetchingMissingArticles     State = "fetching_missing_articles"
)

// recentCutoff limits initial downloads and missing article lookups
const recentCutoff = 90 * 24 * time.Hour

// AccountError is a failure of an account operation
type AccountError struct {
	AccountID string
	Op        string
	Err       error
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("account %s, %s: %v", e.AccountID, e.Op, e.Err)
}

func (e *AccountError) Unwrap() error { return e.Err }

// Params for the delegate
type Params struct {
	Account      Account
	Service      Service
	SyncStatuses SyncStatusStore

	// IgnoreMissingArticleErrors logs failures to download missing articles instead of returning them
	IgnoreMissingArticleErrors bool
	Now                        func() time.Time
}

// Delegate runs refresh cycles of one account against its service
type Delegate struct {
	acc            Account
	svc            Service
	syncStatus     SyncStatusStore
	ignoreMissing  bool
	now            func() time.Time
	running        atomic.Bool
	throttled      atomic.Bool
	state          atomic.Value
	stagesDone     atomic.Int32
	unreadHashesMu sync.Mutex
	unreadHashes   []domain.StoryHash // server unread set of the current cycle
}

// NewDelegate makes a delegate
func NewDelegate(p Params) *Delegate {
	if p.Now == nil {
		p.Now = time.Now
	}
	d := &Delegate{acc: p.Account, svc: p.Service, syncStatus: p.SyncStatuses,
		ignoreMissing: p.IgnoreMissingArticleErrors, now: p.Now}
	d.state.Store(StateIdle)
	return d
}

// AccountID returns id of the reconciled account
func (d *Delegate) AccountID() string { return d.acc.ID() }

// State returns the current refresh state
func (d *Delegate) State() State { return d.state.Load().(State) }

// Progress reports stages of the running cycle, complete when idle
func (d *Delegate) Progress() queue.Progress {
	if !d.running.Load() {
		return queue.Progress{}
	}
	done := int(d.stagesDone.Load())
	return queue.Progress{Total: 5, Completed: done, Remaining: 5 - done}
}

// Throttled reports whether status uploads use the small chunk size after a rate limit response
func (d *Delegate) Throttled() bool { return d.throttled.Load() }

// Validate checks credentials if the service supports it
func (d *Delegate) Validate(ctx context.Context) error {
	auth, ok := d.svc.(Authenticator)
	if !ok {
		return nil
	}
	if err := auth.Validate(ctx); err != nil {
		return &AccountError{AccountID: d.acc.ID(), Op: "validate credentials", Err: err}
	}
	return nil
}

// RefreshAll runs a full refresh cycle. A call made while a cycle of the account is running returns nil
// right away. A failed stage stops the cycle, changes committed by earlier stages stay.
func (d *Delegate) RefreshAll(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		log.Printf("[DEBUG] refresh of %s already in progress", d.acc.ID())
		return nil
	}
	defer func() {
		d.setUnreadHashes(nil)
		d.state.Store(StateIdle)
		d.stagesDone.Store(0)
		d.running.Store(false)
	}()

	stages := []struct {
		state State
		fn    func(context.Context) error
	}{
		{StateFetchingSubscriptions, d.RefreshFeeds},
		{StateSendingLocalStatusChanges, d.SendArticleStatus},
		{StateFetchingServerStatusChanges, d.RefreshArticleStatus},
		{StateFetchingArticles, d.RefreshArticles},
		{StateFetchingMissingArticles, d.RefreshMissingArticles},
	}
	start := d.now()
	for _, st := range stages {
		d.state.Store(st.state)
		if err := st.fn(ctx); err != nil {
			var accErr *AccountError
			if errors.As(err, &accErr) {
				return err
			}
			return &AccountError{AccountID: d.acc.ID(), Op: string(st.state), Err: err}
		}
		d.stagesDone.Add(1)
	}
	log.Printf("[INFO] refreshed account %s (%s) in %v", d.acc.ID(), d.svc.Name(), d.now().Sub(start))
	return nil
}

func (d *Delegate) setUnreadHashes(h []domain.StoryHash) {
	d.unreadHashesMu.Lock()
	d.unreadHashes = h
	d.unreadHashesMu.Unlock()
}

func (d *Delegate) takeUnreadHashes() []domain.StoryHash {
	d.unreadHashesMu.Lock()
	defer d.unreadHashesMu.Unlock()
	h := d.unreadHashes
	d.unreadHashes = nil
	return h
}
