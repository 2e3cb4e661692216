package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/umputun/feedsync/pkg/domain"
)

// SettingRepository handles setting-related database operations
type SettingRepository struct {
	db *sqlx.DB
}

// NewSettingRepository creates a new setting repository
func NewSettingRepository(db *sqlx.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// GetSetting retrieves a setting value, empty for a missing key
func (r *SettingRepository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.GetContext(ctx, &value, "SELECT value FROM settings WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

// SetSetting stores a setting value
func (r *SettingRepository) SetSetting(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	return withRetry(ctx, "set setting", func() error {
		_, err := r.db.ExecContext(ctx, query, key, value)
		return err
	})
}

// DeleteSetting removes a setting
func (r *SettingRepository) DeleteSetting(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	return nil
}

// LoadMetadata reads account metadata, zero value if never saved
func (r *SettingRepository) LoadMetadata(ctx context.Context, accountID string) (domain.AccountMetadata, error) {
	var md domain.AccountMetadata
	value, err := r.GetSetting(ctx, metadataKey(accountID))
	if err != nil || value == "" {
		return md, err
	}
	if err := json.Unmarshal([]byte(value), &md); err != nil {
		return md, fmt.Errorf("unmarshal metadata for %s: %w", accountID, err)
	}
	return md, nil
}

// SaveMetadata writes account metadata
func (r *SettingRepository) SaveMetadata(ctx context.Context, accountID string, md domain.AccountMetadata) error {
	b, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("marshal metadata for %s: %w", accountID, err)
	}
	return r.SetSetting(ctx, metadataKey(accountID), string(b))
}

func metadataKey(accountID string) string {
	return "account." + accountID + ".metadata"
}
