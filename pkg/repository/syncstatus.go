package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/umputun/feedsync/pkg/domain"
)

// SyncStatusRepository keeps local status changes until the remote service confirms them.
// Rows are selected while a push is in flight; a row replaced by a newer change is unselected again,
// so finishing the older push never drops the newer change.
type SyncStatusRepository struct {
	db *sqlx.DB
}

type syncStatusSQL struct {
	AccountID string `db:"account_id"`
	ArticleID string `db:"article_id"`
	Key       string `db:"key"`
	Flag      bool   `db:"flag"`
	Selected  bool   `db:"selected"`
}

// NewSyncStatusRepository creates a new sync status repository
func NewSyncStatusRepository(db *sqlx.DB) *SyncStatusRepository {
	return &SyncStatusRepository{db: db}
}

// Insert records pending changes, replacing older changes of the same article and key
func (r *SyncStatusRepository) Insert(ctx context.Context, accountID string, statuses []domain.SyncStatus) error {
	if len(statuses) == 0 {
		return nil
	}
	return inTransaction(ctx, r.db, "insert sync statuses", func(tx *sqlx.Tx) error {
		for _, s := range statuses {
			rec := syncStatusSQL{AccountID: accountID, ArticleID: s.ArticleID, Key: string(s.Key), Flag: s.Flag}
			if _, err := tx.NamedExecContext(ctx, `INSERT INTO sync_statuses (account_id, article_id, key, flag, selected)
				VALUES (:account_id, :article_id, :key, :flag, 0)
				ON CONFLICT(account_id, article_id, key) DO UPDATE SET flag = excluded.flag, selected = 0`, rec); err != nil {
				return fmt.Errorf("insert sync status %s: %w", s.ArticleID, err)
			}
		}
		return nil
	})
}

// SelectForProcessing marks up to limit unselected rows as selected and returns them, limit <= 0 means all
func (r *SyncStatusRepository) SelectForProcessing(ctx context.Context, accountID string, limit int) ([]domain.SyncStatus, error) {
	var res []domain.SyncStatus
	err := inTransaction(ctx, r.db, "select sync statuses", func(tx *sqlx.Tx) error {
		res = nil
		query := "SELECT * FROM sync_statuses WHERE account_id = ? AND selected = 0 ORDER BY key, article_id"
		args := []any{accountID}
		if limit > 0 {
			query += " LIMIT ?"
			args = append(args, limit)
		}
		var recs []syncStatusSQL
		if err := tx.SelectContext(ctx, &recs, query, args...); err != nil {
			return fmt.Errorf("get unselected: %w", err)
		}
		for _, rec := range recs {
			if _, err := tx.ExecContext(ctx, `UPDATE sync_statuses SET selected = 1
				WHERE account_id = ? AND article_id = ? AND key = ?`, accountID, rec.ArticleID, rec.Key); err != nil {
				return fmt.Errorf("select %s: %w", rec.ArticleID, err)
			}
			res = append(res, domain.SyncStatus{ArticleID: rec.ArticleID, Key: domain.StatusKey(rec.Key), Flag: rec.Flag, Selected: true})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteSelected removes selected rows of key for ids after a successful push
func (r *SyncStatusRepository) DeleteSelected(ctx context.Context, accountID string, key domain.StatusKey, ids []string) error {
	return r.execForIDs(ctx, "delete selected sync statuses",
		"DELETE FROM sync_statuses WHERE account_id = ? AND key = ? AND selected = 1 AND article_id IN (?)",
		accountID, key, ids)
}

// ResetSelected returns selected rows of key for ids to the pending pool after a failed push
func (r *SyncStatusRepository) ResetSelected(ctx context.Context, accountID string, key domain.StatusKey, ids []string) error {
	return r.execForIDs(ctx, "reset selected sync statuses",
		"UPDATE sync_statuses SET selected = 0 WHERE account_id = ? AND key = ? AND selected = 1 AND article_id IN (?)",
		accountID, key, ids)
}

// ResetAllSelected unselects every row of the account, used at startup after an interrupted push
func (r *SyncStatusRepository) ResetAllSelected(ctx context.Context, accountID string) error {
	return withRetry(ctx, "reset all selected", func() error {
		_, err := r.db.ExecContext(ctx, "UPDATE sync_statuses SET selected = 0 WHERE account_id = ?", accountID)
		return err
	})
}

// PendingIDs returns ids with a pending change of key, selected or not
func (r *SyncStatusRepository) PendingIDs(ctx context.Context, accountID string, key domain.StatusKey) ([]string, error) {
	var res []string
	if err := r.db.SelectContext(ctx, &res, "SELECT article_id FROM sync_statuses WHERE account_id = ? AND key = ?",
		accountID, string(key)); err != nil {
		return nil, fmt.Errorf("get pending ids: %w", err)
	}
	return res, nil
}

// Count returns the number of pending changes of the account
func (r *SyncStatusRepository) Count(ctx context.Context, accountID string) (int, error) {
	var res int
	if err := r.db.GetContext(ctx, &res, "SELECT COUNT(*) FROM sync_statuses WHERE account_id = ?", accountID); err != nil {
		return 0, fmt.Errorf("count sync statuses: %w", err)
	}
	return res, nil
}

func (r *SyncStatusRepository) execForIDs(ctx context.Context, name, query, accountID string, key domain.StatusKey, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return inTransaction(ctx, r.db, name, func(tx *sqlx.Tx) error {
		for _, chunk := range chunkIDs(ids) {
			q, args, err := sqlx.In(query, accountID, string(key), chunk)
			if err != nil {
				return fmt.Errorf("build query: %w", err)
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(q), args...); err != nil {
				return err
			}
		}
		return nil
	})
}
