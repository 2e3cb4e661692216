package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/umputun/feedsync/pkg/domain"
)

// ArticleRepository handles article storage
type ArticleRepository struct {
	db *sqlx.DB
}

// articleSQL represents an article for SQL operations
type articleSQL struct {
	AccountID     string     `db:"account_id"`
	ArticleID     string     `db:"article_id"`
	FeedID        string     `db:"feed_id"`
	UniqueID      string     `db:"unique_id"`
	Title         string     `db:"title"`
	ContentHTML   string     `db:"content_html"`
	ContentText   string     `db:"content_text"`
	Summary       string     `db:"summary"`
	URL           string     `db:"url"`
	ExternalURL   string     `db:"external_url"`
	ImageURL      string     `db:"image_url"`
	DatePublished *time.Time `db:"date_published"`
	DateModified  *time.Time `db:"date_modified"`
	Authors       stringList `db:"authors"`
	Tags          stringList `db:"tags"`

	// joined from statuses
	Read        bool      `db:"read"`
	Starred     bool      `db:"starred"`
	UserDeleted bool      `db:"user_deleted"`
	DateArrived time.Time `db:"date_arrived"`
}

const articleColumns = `a.account_id, a.article_id, a.feed_id, a.unique_id, a.title, a.content_html,
	a.content_text, a.summary, a.url, a.external_url, a.image_url, a.date_published, a.date_modified,
	a.authors, a.tags, s.read, s.starred, s.user_deleted, s.date_arrived`

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Update stores parsed items of the account. Items not stored yet are inserted together with a status
// row, read set to defaultRead. Stored items are rewritten only in the columns that changed.
// Items with the same article id are stored once, the first one wins.
func (r *ArticleRepository) Update(ctx context.Context, accountID string, items []domain.ParsedItem,
	defaultRead bool) (domain.NewAndUpdated, error) {
	var res domain.NewAndUpdated
	if len(items) == 0 {
		return res, nil
	}

	seen := make(map[string]bool, len(items))
	incoming := make([]domain.Article, 0, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		art := domain.ArticleFromParsed(accountID, item)
		if art.ArticleID == "" || seen[art.ArticleID] {
			continue
		}
		seen[art.ArticleID] = true
		incoming = append(incoming, art)
		ids = append(ids, art.ArticleID)
	}

	err := inTransaction(ctx, r.db, "update articles", func(tx *sqlx.Tx) error {
		res = domain.NewAndUpdated{} // transaction may be retried
		stored, err := r.articlesTx(ctx, tx, accountID, ids)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		var newIDs []string
		for _, art := range incoming {
			prev, ok := stored[art.ArticleID]
			if !ok {
				if err := r.insertTx(ctx, tx, art, defaultRead, now); err != nil {
					return err
				}
				newIDs = append(newIDs, art.ArticleID)
				continue
			}
			changed := art.ChangedFields(prev)
			if len(changed) == 0 {
				continue
			}
			if err := r.updateColumnsTx(ctx, tx, art, changed); err != nil {
				return err
			}
			art.Status = prev.Status
			res.Updated = append(res.Updated, art)
		}

		if len(newIDs) == 0 {
			return nil
		}
		// status rows may predate the article, read them back
		inserted, err := r.articlesTx(ctx, tx, accountID, newIDs)
		if err != nil {
			return err
		}
		for _, id := range newIDs {
			res.New = append(res.New, inserted[id])
		}
		return nil
	})
	if err != nil {
		return domain.NewAndUpdated{}, err
	}
	return res, nil
}

// Articles returns stored articles of the account by ids, in no particular order
func (r *ArticleRepository) Articles(ctx context.Context, accountID string, ids []string) ([]domain.Article, error) {
	var res []domain.Article
	for _, chunk := range chunkIDs(ids) {
		query, args, err := sqlx.In(`SELECT `+articleColumns+` FROM articles a
			JOIN statuses s ON s.account_id = a.account_id AND s.article_id = a.article_id
			WHERE a.account_id = ? AND a.article_id IN (?)`, accountID, chunk)
		if err != nil {
			return nil, fmt.Errorf("build articles query: %w", err)
		}
		var recs []articleSQL
		if err := r.db.SelectContext(ctx, &recs, r.db.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("get articles: %w", err)
		}
		for _, rec := range recs {
			res = append(res, r.toDomainArticle(rec))
		}
	}
	return res, nil
}

// ArticlesForFeed returns the newest articles of a feed, limit <= 0 means all
func (r *ArticleRepository) ArticlesForFeed(ctx context.Context, accountID, feedID string, limit int) ([]domain.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles a
		JOIN statuses s ON s.account_id = a.account_id AND s.article_id = a.article_id
		WHERE a.account_id = ? AND a.feed_id = ? AND s.user_deleted = 0
		ORDER BY COALESCE(a.date_published, a.date_modified, s.date_arrived) DESC`
	args := []any{accountID, feedID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.selectArticles(ctx, query, args...)
}

// Recent returns the newest articles of the account across all feeds
func (r *ArticleRepository) Recent(ctx context.Context, accountID string, unreadOnly bool, limit int) ([]domain.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles a
		JOIN statuses s ON s.account_id = a.account_id AND s.article_id = a.article_id
		WHERE a.account_id = ? AND s.user_deleted = 0`
	if unreadOnly {
		query += " AND s.read = 0"
	}
	query += " ORDER BY COALESCE(a.date_published, a.date_modified, s.date_arrived) DESC"
	args := []any{accountID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.selectArticles(ctx, query, args...)
}

// UnreadCounts returns the number of unread articles per feed id
func (r *ArticleRepository) UnreadCounts(ctx context.Context, accountID string) (map[string]int, error) {
	var rows []struct {
		FeedID string `db:"feed_id"`
		Count  int    `db:"cnt"`
	}
	query := `SELECT a.feed_id, COUNT(*) AS cnt FROM articles a
		JOIN statuses s ON s.account_id = a.account_id AND s.article_id = a.article_id
		WHERE a.account_id = ? AND s.read = 0 AND s.user_deleted = 0
		GROUP BY a.feed_id`
	if err := r.db.SelectContext(ctx, &rows, query, accountID); err != nil {
		return nil, fmt.Errorf("get unread counts: %w", err)
	}
	res := make(map[string]int, len(rows))
	for _, row := range rows {
		res[row.FeedID] = row.Count
	}
	return res, nil
}

func (r *ArticleRepository) selectArticles(ctx context.Context, query string, args ...any) ([]domain.Article, error) {
	var recs []articleSQL
	if err := r.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, fmt.Errorf("select articles: %w", err)
	}
	res := make([]domain.Article, 0, len(recs))
	for _, rec := range recs {
		res = append(res, r.toDomainArticle(rec))
	}
	return res, nil
}

// articlesTx returns stored articles by ids, keyed by article id
func (r *ArticleRepository) articlesTx(ctx context.Context, tx *sqlx.Tx, accountID string, ids []string) (map[string]domain.Article, error) {
	res := make(map[string]domain.Article, len(ids))
	for _, chunk := range chunkIDs(ids) {
		query, args, err := sqlx.In(`SELECT `+articleColumns+` FROM articles a
			JOIN statuses s ON s.account_id = a.account_id AND s.article_id = a.article_id
			WHERE a.account_id = ? AND a.article_id IN (?)`, accountID, chunk)
		if err != nil {
			return nil, fmt.Errorf("build articles query: %w", err)
		}
		var recs []articleSQL
		if err := tx.SelectContext(ctx, &recs, tx.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("get stored articles: %w", err)
		}
		for _, rec := range recs {
			res[rec.ArticleID] = r.toDomainArticle(rec)
		}
	}
	return res, nil
}

func (r *ArticleRepository) insertTx(ctx context.Context, tx *sqlx.Tx, art domain.Article, read bool, arrived time.Time) error {
	query := `
		INSERT INTO articles (
			account_id, article_id, feed_id, unique_id, title, content_html, content_text, summary,
			url, external_url, image_url, date_published, date_modified, authors, tags
		) VALUES (
			:account_id, :article_id, :feed_id, :unique_id, :title, :content_html, :content_text, :summary,
			:url, :external_url, :image_url, :date_published, :date_modified, :authors, :tags
		)
	`
	if _, err := tx.NamedExecContext(ctx, query, r.toSQL(art)); err != nil {
		return fmt.Errorf("insert article %s: %w", art.ArticleID, err)
	}
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO statuses (account_id, article_id, read, starred, user_deleted, date_arrived)
		VALUES (?, ?, ?, 0, 0, ?)`, art.AccountID, art.ArticleID, boolToInt(read), arrived)
	if err != nil {
		return fmt.Errorf("insert status %s: %w", art.ArticleID, err)
	}
	return nil
}

// updateColumnsTx writes only the given columns of the article
func (r *ArticleRepository) updateColumnsTx(ctx context.Context, tx *sqlx.Tx, art domain.Article, columns []string) error {
	sets := make([]string, 0, len(columns))
	for _, c := range columns {
		sets = append(sets, c+" = :"+c)
	}
	query := "UPDATE articles SET " + strings.Join(sets, ", ") +
		" WHERE account_id = :account_id AND article_id = :article_id"
	if _, err := tx.NamedExecContext(ctx, query, r.toSQL(art)); err != nil {
		return fmt.Errorf("update article %s: %w", art.ArticleID, err)
	}
	return nil
}

func (r *ArticleRepository) toSQL(art domain.Article) articleSQL {
	return articleSQL{
		AccountID:     art.AccountID,
		ArticleID:     art.ArticleID,
		FeedID:        art.FeedID,
		UniqueID:      art.UniqueID,
		Title:         art.Title,
		ContentHTML:   art.ContentHTML,
		ContentText:   art.ContentText,
		Summary:       art.Summary,
		URL:           art.URL,
		ExternalURL:   art.ExternalURL,
		ImageURL:      art.ImageURL,
		DatePublished: utcPtr(art.DatePublished),
		DateModified:  utcPtr(art.DateModified),
		Authors:       stringList(art.Authors),
		Tags:          stringList(art.Tags),
	}
}

func (r *ArticleRepository) toDomainArticle(rec articleSQL) domain.Article {
	return domain.Article{
		AccountID:     rec.AccountID,
		ArticleID:     rec.ArticleID,
		FeedID:        rec.FeedID,
		UniqueID:      rec.UniqueID,
		Title:         rec.Title,
		ContentHTML:   rec.ContentHTML,
		ContentText:   rec.ContentText,
		Summary:       rec.Summary,
		URL:           rec.URL,
		ExternalURL:   rec.ExternalURL,
		ImageURL:      rec.ImageURL,
		DatePublished: rec.DatePublished,
		DateModified:  rec.DateModified,
		Authors:       []string(rec.Authors),
		Tags:          []string(rec.Tags),
		Status: domain.ArticleStatus{
			ArticleID:   rec.ArticleID,
			Read:        rec.Read,
			Starred:     rec.Starred,
			UserDeleted: rec.UserDeleted,
			DateArrived: rec.DateArrived,
		},
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
