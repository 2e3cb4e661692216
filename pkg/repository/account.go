package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/umputun/feedsync/pkg/domain"
)

// AccountRepository handles account records
type AccountRepository struct {
	db *sqlx.DB
}

type accountSQL struct {
	ID   string `db:"id"`
	Type string `db:"type"`
	Name string `db:"name"`
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Upsert creates the account or updates its type and name
func (r *AccountRepository) Upsert(ctx context.Context, acc domain.AccountRecord) error {
	query := `
		INSERT INTO accounts (id, type, name) VALUES (:id, :type, :name)
		ON CONFLICT(id) DO UPDATE SET type = excluded.type, name = excluded.name
	`
	rec := accountSQL{ID: acc.ID, Type: string(acc.Type), Name: acc.Name}
	return withRetry(ctx, "upsert account", func() error {
		_, err := r.db.NamedExecContext(ctx, query, rec)
		return err
	})
}

// List returns all accounts ordered by id
func (r *AccountRepository) List(ctx context.Context) ([]domain.AccountRecord, error) {
	var recs []accountSQL
	if err := r.db.SelectContext(ctx, &recs, "SELECT id, type, name FROM accounts ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	res := make([]domain.AccountRecord, 0, len(recs))
	for _, rec := range recs {
		res = append(res, domain.AccountRecord{ID: rec.ID, Type: domain.AccountType(rec.Type), Name: rec.Name})
	}
	return res, nil
}

// Delete removes the account and everything stored for it
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	return inTransaction(ctx, r.db, "delete account", func(tx *sqlx.Tx) error {
		// feed children reference feeds, not accounts
		for _, q := range []string{
			"DELETE FROM feed_containers WHERE account_id = ?",
			"DELETE FROM feed_folder_relationships WHERE account_id = ?",
			"DELETE FROM accounts WHERE id = ?",
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", metadataKey(id)); err != nil {
			return err
		}
		return nil
	})
}
