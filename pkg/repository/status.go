package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/umputun/feedsync/pkg/domain"
)

// StatusRepository handles per-article read and starred flags
type StatusRepository struct {
	db *sqlx.DB
}

type statusSQL struct {
	ArticleID   string    `db:"article_id"`
	Read        bool      `db:"read"`
	Starred     bool      `db:"starred"`
	UserDeleted bool      `db:"user_deleted"`
	DateArrived time.Time `db:"date_arrived"`
}

// NewStatusRepository creates a new status repository
func NewStatusRepository(db *sqlx.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

// Mark sets the flag of key for ids and returns the ids whose value actually changed.
// Missing status rows are created, so statuses can be known before their articles are.
func (r *StatusRepository) Mark(ctx context.Context, accountID string, ids []string, key domain.StatusKey, flag bool) ([]string, error) {
	column, err := statusColumn(key)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var changed []string
	err = inTransaction(ctx, r.db, "mark statuses", func(tx *sqlx.Tx) error {
		changed = nil
		now := time.Now().UTC()
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO statuses
				(account_id, article_id, read, starred, user_deleted, date_arrived) VALUES (?, ?, 0, 0, 0, ?)`,
				accountID, id, now); err != nil {
				return fmt.Errorf("create status %s: %w", id, err)
			}
		}
		for _, chunk := range chunkIDs(ids) {
			query, args, err := sqlx.In("SELECT article_id FROM statuses WHERE account_id = ? AND "+column+
				" != ? AND article_id IN (?)", accountID, boolToInt(flag), chunk)
			if err != nil {
				return fmt.Errorf("build select query: %w", err)
			}
			var toChange []string
			if err := tx.SelectContext(ctx, &toChange, tx.Rebind(query), args...); err != nil {
				return fmt.Errorf("select statuses to change: %w", err)
			}
			if len(toChange) == 0 {
				continue
			}
			query, args, err = sqlx.In("UPDATE statuses SET "+column+" = ? WHERE account_id = ? AND article_id IN (?)",
				boolToInt(flag), accountID, toChange)
			if err != nil {
				return fmt.Errorf("build update query: %w", err)
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
				return fmt.Errorf("update statuses: %w", err)
			}
			changed = append(changed, toChange...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

// UnreadArticleIDs returns ids of all unread, not deleted articles
func (r *StatusRepository) UnreadArticleIDs(ctx context.Context, accountID string) ([]string, error) {
	return r.ids(ctx, "SELECT article_id FROM statuses WHERE account_id = ? AND read = 0 AND user_deleted = 0", accountID)
}

// StarredArticleIDs returns ids of all starred, not deleted articles
func (r *StatusRepository) StarredArticleIDs(ctx context.Context, accountID string) ([]string, error) {
	return r.ids(ctx, "SELECT article_id FROM statuses WHERE account_id = ? AND starred = 1 AND user_deleted = 0", accountID)
}

// ArticleIDsWithoutArticles returns ids of statuses arrived after since which have no stored article.
// Those are articles the remote reported before their content was downloaded.
func (r *StatusRepository) ArticleIDsWithoutArticles(ctx context.Context, accountID string, since time.Time) ([]string, error) {
	query := `SELECT s.article_id FROM statuses s
		LEFT JOIN articles a ON a.account_id = s.account_id AND a.article_id = s.article_id
		WHERE s.account_id = ? AND a.article_id IS NULL AND s.user_deleted = 0 AND s.date_arrived > ?
		ORDER BY s.article_id`
	return r.ids(ctx, query, accountID, since.UTC())
}

// Statuses returns stored statuses by article ids
func (r *StatusRepository) Statuses(ctx context.Context, accountID string, ids []string) (map[string]domain.ArticleStatus, error) {
	res := make(map[string]domain.ArticleStatus, len(ids))
	for _, chunk := range chunkIDs(ids) {
		query, args, err := sqlx.In(`SELECT article_id, read, starred, user_deleted, date_arrived FROM statuses
			WHERE account_id = ? AND article_id IN (?)`, accountID, chunk)
		if err != nil {
			return nil, fmt.Errorf("build statuses query: %w", err)
		}
		var recs []statusSQL
		if err := r.db.SelectContext(ctx, &recs, r.db.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("get statuses: %w", err)
		}
		for _, rec := range recs {
			res[rec.ArticleID] = domain.ArticleStatus{ArticleID: rec.ArticleID, Read: rec.Read, Starred: rec.Starred,
				UserDeleted: rec.UserDeleted, DateArrived: rec.DateArrived}
		}
	}
	return res, nil
}

func (r *StatusRepository) ids(ctx context.Context, query string, args ...any) ([]string, error) {
	var res []string
	if err := r.db.SelectContext(ctx, &res, query, args...); err != nil {
		return nil, fmt.Errorf("select article ids: %w", err)
	}
	return res, nil
}

func statusColumn(key domain.StatusKey) (string, error) {
	switch key {
	case domain.StatusRead:
		return "read", nil
	case domain.StatusStarred:
		return "starred", nil
	default:
		return "", fmt.Errorf("unknown status key %q: %w", key, domain.ErrInvalidParameter)
	}
}
