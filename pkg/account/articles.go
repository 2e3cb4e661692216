package account

import (
	"context"
	"fmt"
	"slices"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/feedsync/pkg/domain"
)

// Update stores parsed items of one feed. Items without a feed id get feedID.
func (a *Account) Update(ctx context.Context, feedID string, items []domain.ParsedItem) (domain.NewAndUpdated, error) {
	for i := range items {
		if items[i].FeedID == "" {
			items[i].FeedID = feedID
		}
	}
	return a.UpdateItems(ctx, items)
}

// UpdateItems stores parsed items of any feeds of the account. New articles of synced accounts start read,
// the status refresh marks the unread ones.
func (a *Account) UpdateItems(ctx context.Context, items []domain.ParsedItem) (domain.NewAndUpdated, error) {
	res, err := a.articles.Update(ctx, a.id, items, a.defaultRead)
	if err != nil {
		return res, fmt.Errorf("update articles of %s: %w", a.id, err)
	}
	if res.Empty() {
		return res, nil
	}
	feedIDs := make(map[string]bool)
	ids := make([]string, 0, len(res.New)+len(res.Updated))
	for _, art := range slices.Concat(res.New, res.Updated) {
		feedIDs[art.FeedID] = true
		ids = append(ids, art.ArticleID)
	}
	events := []Event{{Kind: ArticlesDidChange, FeedIDs: keys(feedIDs), ArticleIDs: ids}}
	if len(res.New) > 0 && !a.defaultRead {
		events = append(events, Event{Kind: UnreadCountDidChange, FeedIDs: keys(feedIDs)})
	}
	a.notify(events...)
	return res, nil
}

// UnreadCounts returns unread article counts per feed id
func (a *Account) UnreadCounts(ctx context.Context) (map[string]int, error) {
	res, err := a.articles.UnreadCounts(ctx, a.id)
	if err != nil {
		return nil, fmt.Errorf("unread counts of %s: %w", a.id, err)
	}
	return res, nil
}

// MarkAsRead sets read for ids and returns the ids that changed
func (a *Account) MarkAsRead(ctx context.Context, ids []string) ([]string, error) {
	return a.Mark(ctx, ids, domain.StatusRead, true)
}

// MarkAsUnread clears read for ids and returns the ids that changed
func (a *Account) MarkAsUnread(ctx context.Context, ids []string) ([]string, error) {
	return a.Mark(ctx, ids, domain.StatusRead, false)
}

// MarkAsStarred sets starred for ids and returns the ids that changed
func (a *Account) MarkAsStarred(ctx context.Context, ids []string) ([]string, error) {
	return a.Mark(ctx, ids, domain.StatusStarred, true)
}

// MarkAsUnstarred clears starred for ids and returns the ids that changed
func (a *Account) MarkAsUnstarred(ctx context.Context, ids []string) ([]string, error) {
	return a.Mark(ctx, ids, domain.StatusStarred, false)
}

// Mark sets the status flag of key for ids. Unknown ids get a status row, so their articles
// can be downloaded later. This does not queue anything for upload, see MarkByUser.
func (a *Account) Mark(ctx context.Context, ids []string, key domain.StatusKey, flag bool) ([]string, error) {
	changed, err := a.statuses.Mark(ctx, a.id, ids, key, flag)
	if err != nil {
		return nil, fmt.Errorf("mark %s=%v in %s: %w", key, flag, a.id, err)
	}
	if len(changed) == 0 {
		return nil, nil
	}
	events := []Event{{Kind: StatusesDidChange, ArticleIDs: changed}}
	if key == domain.StatusRead {
		events = append(events, Event{Kind: UnreadCountDidChange})
	}
	a.notify(events...)
	return changed, nil
}

// MarkByUser is a status change made by the user. Changed ids are queued for upload to the service.
// Accounts limiting mark unread to recent articles skip older ones.
func (a *Account) MarkByUser(ctx context.Context, ids []string, key domain.StatusKey, flag bool) ([]string, error) {
	if key == domain.StatusRead && !flag && a.HasBehavior(domain.BehaviorDisallowMarkAsUnreadAfterPeriod) {
		var err error
		if ids, err = a.markableUnread(ctx, ids); err != nil {
			return nil, err
		}
	}
	changed, err := a.Mark(ctx, ids, key, flag)
	if err != nil || len(changed) == 0 || a.accType == domain.AccountLocal {
		return changed, err
	}
	pending := make([]domain.SyncStatus, 0, len(changed))
	for _, id := range changed {
		pending = append(pending, domain.SyncStatus{ArticleID: id, Key: key, Flag: flag})
	}
	if err := a.syncStatus.Insert(ctx, a.id, pending); err != nil {
		return changed, fmt.Errorf("queue status changes of %s: %w", a.id, err)
	}
	return changed, nil
}

// UnreadArticleIDs returns ids of unread articles
func (a *Account) UnreadArticleIDs(ctx context.Context) ([]string, error) {
	return a.statuses.UnreadArticleIDs(ctx, a.id)
}

// StarredArticleIDs returns ids of starred articles
func (a *Account) StarredArticleIDs(ctx context.Context) ([]string, error) {
	return a.statuses.StarredArticleIDs(ctx, a.id)
}

// ArticleIDsWithoutArticles returns ids with a status but no downloaded article, arrived after since
func (a *Account) ArticleIDsWithoutArticles(ctx context.Context, since time.Time) ([]string, error) {
	return a.statuses.ArticleIDsWithoutArticles(ctx, a.id, since)
}

// markableUnread drops ids of stored articles older than MarkUnreadWindow
func (a *Account) markableUnread(ctx context.Context, ids []string) ([]string, error) {
	arts, err := a.articles.Articles(ctx, a.id, ids)
	if err != nil {
		return nil, fmt.Errorf("get articles of %s: %w", a.id, err)
	}
	cutoff := time.Now().Add(-MarkUnreadWindow)
	tooOld := make(map[string]bool)
	for _, art := range arts {
		if art.Date().Before(cutoff) {
			tooOld[art.ArticleID] = true
		}
	}
	if len(tooOld) == 0 {
		return ids, nil
	}
	log.Printf("[DEBUG] %d articles of %s are too old to be marked unread", len(tooOld), a.id)
	return slices.DeleteFunc(slices.Clone(ids), func(id string) bool { return tooOld[id] }), nil
}

func keys(m map[string]bool) []string {
	res := make([]string, 0, len(m))
	for k := range m {
		res = append(res, k)
	}
	return res
}
