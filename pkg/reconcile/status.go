package reconcile

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"

	log "github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/feedsync/pkg/domain"
	"github.com/umputun/feedsync/pkg/transport"
)

// StatusDelta is the local change needed to agree with a server set
type StatusDelta struct {
	ToSetTrue  []string // in the server set, missing locally
	ToSetFalse []string // set locally, gone from the server set
}

// ReconcileStatus compares a server set with the local set of one status flag. Ids with a pending local
// change are left alone, the server view of them is stale until the change is uploaded.
// Results are sorted.
func ReconcileStatus(server, pending, local []string) StatusDelta {
	pendingSet := toSet(pending)
	updatable := make(map[string]bool, len(server))
	for _, id := range server {
		if !pendingSet[id] {
			updatable[id] = true
		}
	}
	localSet := toSet(local)

	var res StatusDelta
	for id := range updatable {
		if !localSet[id] {
			res.ToSetTrue = append(res.ToSetTrue, id)
		}
	}
	for id := range localSet {
		if !pendingSet[id] && !updatable[id] {
			res.ToSetFalse = append(res.ToSetFalse, id)
		}
	}
	sort.Strings(res.ToSetTrue)
	sort.Strings(res.ToSetFalse)
	return res
}

// RefreshArticleStatus pulls the server unread and starred sets and applies them locally
func (d *Delegate) RefreshArticleStatus(ctx context.Context) error {
	for _, key := range []domain.StatusKey{domain.StatusRead, domain.StatusStarred} {
		if err := d.refreshStatus(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (d *Delegate) refreshStatus(ctx context.Context, key domain.StatusKey) error {
	hashes, err := d.svc.FetchStatusIDs(ctx, key)
	if err != nil {
		return fmt.Errorf("fetch %s ids: %w", key, err)
	}
	if key == domain.StatusRead {
		d.setUnreadHashes(hashes)
	}
	server := make([]string, 0, len(hashes))
	for _, h := range hashes {
		server = append(server, h.ID)
	}

	pending, err := d.syncStatus.PendingIDs(ctx, d.acc.ID(), key)
	if err != nil {
		return fmt.Errorf("get pending %s ids: %w", key, err)
	}

	var local []string
	if key == domain.StatusRead {
		local, err = d.acc.UnreadArticleIDs(ctx)
	} else {
		local, err = d.acc.StarredArticleIDs(ctx)
	}
	if err != nil {
		return fmt.Errorf("get local %s ids: %w", key, err)
	}

	delta := ReconcileStatus(server, pending, local)
	// membership in the unread set means read=false
	inSet := key == domain.StatusStarred
	if len(delta.ToSetTrue) > 0 {
		if _, err := d.acc.Mark(ctx, delta.ToSetTrue, key, inSet); err != nil {
			return err
		}
	}
	if len(delta.ToSetFalse) > 0 {
		if _, err := d.acc.Mark(ctx, delta.ToSetFalse, key, !inSet); err != nil {
			return err
		}
	}
	log.Printf("[DEBUG] %s status of %s: %d server, %d pending, %d local, +%d -%d", key, d.acc.ID(),
		len(server), len(pending), len(local), len(delta.ToSetTrue), len(delta.ToSetFalse))
	return nil
}

type statusGroup struct {
	key  domain.StatusKey
	flag bool
}

// SendArticleStatus uploads pending status changes. Every (key, flag) group is cut into chunks, all chunks
// are sent concurrently. A sent chunk is removed from the pending changes, a failed one is returned to
// them and fails the call. A rate limit answer makes the next call use throttled chunk sizes.
func (d *Delegate) SendArticleStatus(ctx context.Context) error {
	selected, err := d.syncStatus.SelectForProcessing(ctx, d.acc.ID(), 0)
	if err != nil {
		return fmt.Errorf("select pending statuses: %w", err)
	}
	if len(selected) == 0 {
		return nil
	}

	groups := make(map[statusGroup][]string)
	for _, s := range selected {
		g := statusGroup{key: s.Key, flag: s.Flag}
		groups[g] = append(groups[g], s.ArticleID)
	}
	keys := slices.SortedFunc(maps.Keys(groups), func(a, b statusGroup) int {
		if a.key != b.key {
			if a.key < b.key {
				return -1
			}
			return 1
		}
		if a.flag == b.flag {
			return 0
		}
		if !a.flag {
			return -1
		}
		return 1
	})

	throttled := d.throttled.Load()
	var eg errgroup.Group
	for _, g := range keys {
		size := max(d.svc.StatusChunkSize(g.key, g.flag, throttled), 1)
		for chunk := range slices.Chunk(groups[g], size) {
			eg.Go(func() error {
				return d.sendChunk(ctx, g, chunk)
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	d.throttled.Store(false)
	log.Printf("[DEBUG] sent %d status changes of %s", len(selected), d.acc.ID())
	return nil
}

func (d *Delegate) sendChunk(ctx context.Context, g statusGroup, ids []string) error {
	storeCtx := context.WithoutCancel(ctx)
	if err := d.svc.SendStatuses(ctx, g.key, g.flag, ids); err != nil {
		if errors.Is(err, transport.ErrRateLimited) {
			d.throttled.Store(true)
		}
		if rerr := d.syncStatus.ResetSelected(storeCtx, d.acc.ID(), g.key, ids); rerr != nil {
			log.Printf("[WARN] can't reset pending statuses of %s: %v", d.acc.ID(), rerr)
		}
		return fmt.Errorf("send %s=%v for %d articles: %w", g.key, g.flag, len(ids), err)
	}
	if err := d.syncStatus.DeleteSelected(storeCtx, d.acc.ID(), g.key, ids); err != nil {
		return fmt.Errorf("delete sent statuses: %w", err)
	}
	return nil
}

func toSet(ids []string) map[string]bool {
	res := make(map[string]bool, len(ids))
	for _, id := range ids {
		res[id] = true
	}
	return res
}
