package reconcile

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/feedsync/pkg/domain"
)

// RefreshArticles downloads new articles. Stream services are read from the last fetch start minus a day,
// other services get the unread ids changed since the last fetch, in batches of MaxArticlesPerRequest.
func (d *Delegate) RefreshArticles(ctx context.Context) error {
	start := d.now()
	md := d.acc.Metadata()
	stream, isStream := d.svc.(StreamSource)
	var err error
	if isStream {
		err = d.refreshStream(ctx, stream, md)
	} else {
		err = d.refreshByHashes(ctx, md)
	}
	if err != nil {
		return err
	}
	return d.acc.UpdateMetadata(ctx, func(m *domain.AccountMetadata) {
		m.LastArticleFetchStartTime = &start
		if isStream {
			end := d.now()
			m.LastArticleFetchEndTime = &end
		}
	})
}

func (d *Delegate) refreshStream(ctx context.Context, stream StreamSource, md domain.AccountMetadata) error {
	since := d.now().Add(-recentCutoff)
	if md.LastArticleFetchStartTime != nil {
		since = md.LastArticleFetchStartTime.Add(-24 * time.Hour)
	}
	cursor, total := "", 0
	for {
		page, err := stream.FetchStream(ctx, since, cursor)
		if err != nil {
			return fmt.Errorf("fetch articles since %s: %w", since.Format(time.RFC3339), err)
		}
		if len(page.Items) > 0 {
			if _, err := d.acc.UpdateItems(ctx, page.Items); err != nil {
				return err
			}
			total += len(page.Items)
		}
		if page.Cursor == "" || page.Cursor == cursor {
			break
		}
		cursor = page.Cursor
	}
	log.Printf("[DEBUG] %s: %d articles from stream since %s", d.acc.ID(), total, since.Format(time.RFC3339))
	return nil
}

// refreshByHashes fetches bodies of unread ids newer than the last fetch end, oldest first.
// Each batch is stored before the next starts and moves the fetch end forward, a failed batch stops the loop.
func (d *Delegate) refreshByHashes(ctx context.Context, md domain.AccountMetadata) error {
	hashes := d.takeUnreadHashes()
	if hashes == nil {
		var err error
		if hashes, err = d.svc.FetchStatusIDs(ctx, domain.StatusRead); err != nil {
			return fmt.Errorf("fetch unread ids: %w", err)
		}
	}
	if md.LastArticleFetchEndTime != nil {
		hashes = slices.DeleteFunc(slices.Clone(hashes), func(h domain.StoryHash) bool {
			return !h.Timestamp.IsZero() && !h.Timestamp.After(*md.LastArticleFetchEndTime)
		})
	}
	sort.SliceStable(hashes, func(i, j int) bool { return hashes[i].Timestamp.Before(hashes[j].Timestamp) })

	batchSize := max(d.svc.MaxArticlesPerRequest(), 1)
	for len(hashes) > 0 {
		n := min(batchSize, len(hashes))
		batch := hashes[:n]
		hashes = hashes[n:]

		ids := make([]string, 0, n)
		var newest time.Time
		for _, h := range batch {
			ids = append(ids, h.ID)
			if h.Timestamp.After(newest) {
				newest = h.Timestamp
			}
		}
		items, err := d.svc.FetchArticles(ctx, ids)
		if err != nil {
			return fmt.Errorf("fetch %d articles: %w", len(ids), err)
		}
		if _, err := d.acc.UpdateItems(ctx, items); err != nil {
			return err
		}
		if newest.IsZero() {
			continue
		}
		if err := d.acc.UpdateMetadata(ctx, func(m *domain.AccountMetadata) {
			if m.LastArticleFetchEndTime == nil || newest.After(*m.LastArticleFetchEndTime) {
				m.LastArticleFetchEndTime = &newest
			}
		}); err != nil {
			return err
		}
	}
	return nil
}

// DownloadFeed pages through the history of a feed, stopping at an empty page, at the last page or
// at a page without articles newer than the recent cutoff. Each page is stored before the next is requested.
func (d *Delegate) DownloadFeed(ctx context.Context, feedID string) error {
	pager, ok := d.svc.(FeedPager)
	if !ok {
		return nil
	}
	cutoff := d.now().Add(-recentCutoff)
	cursor := ""
	for page := 1; ; page++ {
		p, err := pager.FetchFeedPage(ctx, feedID, cursor)
		if err != nil {
			return fmt.Errorf("fetch page %d of feed %s: %w", page, feedID, err)
		}
		if len(p.Items) == 0 {
			return nil
		}
		if _, err := d.acc.Update(ctx, feedID, p.Items); err != nil {
			return err
		}
		recent := slices.ContainsFunc(p.Items, func(item domain.ParsedItem) bool {
			return item.DatePublished == nil || item.DatePublished.After(cutoff)
		})
		if !recent || p.Cursor == "" || p.Cursor == cursor {
			return nil
		}
		cursor = p.Cursor
	}
}

// RefreshMissingArticles downloads articles known only by their status, arrived within the recent cutoff
func (d *Delegate) RefreshMissingArticles(ctx context.Context) error {
	ids, err := d.acc.ArticleIDsWithoutArticles(ctx, d.now().Add(-recentCutoff))
	if err != nil {
		return fmt.Errorf("get missing article ids: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	log.Printf("[DEBUG] %s: fetching %d missing articles", d.acc.ID(), len(ids))
	for chunk := range slices.Chunk(ids, max(d.svc.MaxArticlesPerRequest(), 1)) {
		items, err := d.svc.FetchArticles(ctx, chunk)
		if err == nil {
			_, err = d.acc.UpdateItems(ctx, items)
		}
		if err == nil {
			continue
		}
		log.Printf("[WARN] failed to fetch missing articles of %s: %v", d.acc.ID(), err)
		if !d.ignoreMissing {
			return fmt.Errorf("fetch missing articles: %w", err)
		}
	}
	return nil
}
