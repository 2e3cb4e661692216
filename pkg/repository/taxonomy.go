package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/umputun/feedsync/pkg/domain"
)

// TaxonomyRepository stores the folder and feed graph of accounts
type TaxonomyRepository struct {
	db *sqlx.DB
}

// feedSQL represents a feed for SQL operations
type feedSQL struct {
	AccountID    string `db:"account_id"`
	FeedID       string `db:"feed_id"`
	URL          string `db:"url"`
	ExternalID   string `db:"external_id"`
	Name         string `db:"name"`
	EditedName   string `db:"edited_name"`
	HomePageURL  string `db:"home_page_url"`
	FaviconURL   string `db:"favicon_url"`
	ETag         string `db:"etag"`
	LastModified string `db:"last_modified"`
	ContentHash  string `db:"content_hash"`
}

type folderSQL struct {
	AccountID string `db:"account_id"`
	ID        string `db:"id"`
	Name      string `db:"name"`
}

type containerSQL struct {
	AccountID string `db:"account_id"`
	FeedID    string `db:"feed_id"`
	FolderID  string `db:"folder_id"`
}

type relationshipSQL struct {
	AccountID      string `db:"account_id"`
	FeedID         string `db:"feed_id"`
	FolderName     string `db:"folder_name"`
	RelationshipID string `db:"relationship_id"`
}

// NewTaxonomyRepository creates a new taxonomy repository
func NewTaxonomyRepository(db *sqlx.DB) *TaxonomyRepository {
	return &TaxonomyRepository{db: db}
}

// Save replaces the stored folders and feeds of the account with tx
func (r *TaxonomyRepository) Save(ctx context.Context, accountID string, tx domain.Taxonomy) error {
	return inTransaction(ctx, r.db, "save taxonomy", func(dbTx *sqlx.Tx) error {
		for _, q := range []string{
			"DELETE FROM feed_containers WHERE account_id = ?",
			"DELETE FROM feed_folder_relationships WHERE account_id = ?",
			"DELETE FROM feeds WHERE account_id = ?",
			"DELETE FROM folders WHERE account_id = ?",
		} {
			if _, err := dbTx.ExecContext(ctx, q, accountID); err != nil {
				return fmt.Errorf("clear taxonomy: %w", err)
			}
		}

		for _, f := range tx.Folders {
			rec := folderSQL{AccountID: accountID, ID: f.ID, Name: f.Name}
			if _, err := dbTx.NamedExecContext(ctx,
				"INSERT INTO folders (account_id, id, name) VALUES (:account_id, :id, :name)", rec); err != nil {
				return fmt.Errorf("insert folder %q: %w", f.Name, err)
			}
		}

		for _, f := range tx.Feeds {
			rec := feedSQL{
				AccountID: accountID, FeedID: f.FeedID, URL: f.URL, ExternalID: f.ExternalID,
				Name: f.Name, EditedName: f.EditedName, HomePageURL: f.HomePageURL, FaviconURL: f.FaviconURL,
				ETag: f.ConditionalGet.ETag, LastModified: f.ConditionalGet.LastModified, ContentHash: f.ContentHash,
			}
			query := `
				INSERT INTO feeds (
					account_id, feed_id, url, external_id, name, edited_name,
					home_page_url, favicon_url, etag, last_modified, content_hash
				) VALUES (
					:account_id, :feed_id, :url, :external_id, :name, :edited_name,
					:home_page_url, :favicon_url, :etag, :last_modified, :content_hash
				)
			`
			if _, err := dbTx.NamedExecContext(ctx, query, rec); err != nil {
				return fmt.Errorf("insert feed %s: %w", f.FeedID, err)
			}
			for _, folderID := range f.Containers {
				c := containerSQL{AccountID: accountID, FeedID: f.FeedID, FolderID: folderID}
				if _, err := dbTx.NamedExecContext(ctx, `INSERT OR IGNORE INTO feed_containers (account_id, feed_id, folder_id)
					VALUES (:account_id, :feed_id, :folder_id)`, c); err != nil {
					return fmt.Errorf("insert container of %s: %w", f.FeedID, err)
				}
			}
			for folderName, relID := range f.Relationships {
				rel := relationshipSQL{AccountID: accountID, FeedID: f.FeedID, FolderName: folderName, RelationshipID: relID}
				if _, err := dbTx.NamedExecContext(ctx, `INSERT INTO feed_folder_relationships
					(account_id, feed_id, folder_name, relationship_id)
					VALUES (:account_id, :feed_id, :folder_name, :relationship_id)`, rel); err != nil {
					return fmt.Errorf("insert relationship of %s: %w", f.FeedID, err)
				}
			}
		}
		return nil
	})
}

// Load reads the folders and feeds of the account, both sorted by id
func (r *TaxonomyRepository) Load(ctx context.Context, accountID string) (domain.Taxonomy, error) {
	var res domain.Taxonomy

	var folders []folderSQL
	if err := r.db.SelectContext(ctx, &folders,
		"SELECT account_id, id, name FROM folders WHERE account_id = ? ORDER BY id", accountID); err != nil {
		return res, fmt.Errorf("load folders: %w", err)
	}
	for _, f := range folders {
		res.Folders = append(res.Folders, domain.FolderRecord{ID: f.ID, Name: f.Name})
	}

	var feeds []feedSQL
	if err := r.db.SelectContext(ctx, &feeds, "SELECT * FROM feeds WHERE account_id = ? ORDER BY feed_id", accountID); err != nil {
		return res, fmt.Errorf("load feeds: %w", err)
	}

	var containers []containerSQL
	if err := r.db.SelectContext(ctx, &containers,
		"SELECT account_id, feed_id, folder_id FROM feed_containers WHERE account_id = ?", accountID); err != nil {
		return res, fmt.Errorf("load containers: %w", err)
	}
	containersByFeed := make(map[string][]string)
	for _, c := range containers {
		containersByFeed[c.FeedID] = append(containersByFeed[c.FeedID], c.FolderID)
	}

	var rels []relationshipSQL
	if err := r.db.SelectContext(ctx, &rels,
		"SELECT * FROM feed_folder_relationships WHERE account_id = ?", accountID); err != nil {
		return res, fmt.Errorf("load relationships: %w", err)
	}
	relsByFeed := make(map[string]map[string]string)
	for _, rel := range rels {
		if relsByFeed[rel.FeedID] == nil {
			relsByFeed[rel.FeedID] = make(map[string]string)
		}
		relsByFeed[rel.FeedID][rel.FolderName] = rel.RelationshipID
	}

	for _, f := range feeds {
		rec := r.toDomainFeed(f)
		rec.Containers = containersByFeed[f.FeedID]
		sort.Strings(rec.Containers)
		rec.Relationships = relsByFeed[f.FeedID]
		res.Feeds = append(res.Feeds, rec)
	}
	return res, nil
}

func (r *TaxonomyRepository) toDomainFeed(f feedSQL) domain.FeedRecord {
	return domain.FeedRecord{
		FeedID:         f.FeedID,
		URL:            f.URL,
		ExternalID:     f.ExternalID,
		Name:           f.Name,
		EditedName:     f.EditedName,
		HomePageURL:    f.HomePageURL,
		FaviconURL:     f.FaviconURL,
		ContentHash:    f.ContentHash,
		ConditionalGet: domain.ConditionalGetInfo{ETag: f.ETag, LastModified: f.LastModified},
	}
}
