package reconcile

import (
	"context"
	"fmt"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/feedsync/pkg/account"
	"github.com/umputun/feedsync/pkg/domain"
)

// CreateFeed subscribes to url and adds the feed to folder, empty folder is the account root.
// It returns once the feed history and statuses are downloaded.
func (d *Delegate) CreateFeed(ctx context.Context, url, name, folder string) (account.Feed, error) {
	if folder == "" && d.acc.HasBehavior(domain.BehaviorDisallowFeedInRootFolder) {
		return account.Feed{}, d.accountError("create feed", fmt.Errorf("feed needs a folder: %w", domain.ErrInvalidParameter))
	}
	rf, err := d.svc.Subscribe(ctx, url, folder)
	if err != nil {
		return account.Feed{}, d.accountError("subscribe to "+url, err)
	}

	containerID := account.Root
	if folder != "" {
		containerID = d.acc.EnsureFolder(folder).ID
	}
	d.acc.CreateFeed(rf.FeedID, rf.URL, rf.Name, rf.HomePageURL)
	err = d.acc.UpdateFeed(rf.FeedID, func(f *account.Feed) {
		f.ExternalID = rf.ExternalID
		f.FaviconURL = rf.FaviconURL
		if folder != "" && rf.RelationshipID != "" {
			if f.FolderRelationship == nil {
				f.FolderRelationship = make(map[string]string)
			}
			f.FolderRelationship[folder] = rf.RelationshipID
		}
	})
	if err != nil {
		return account.Feed{}, d.accountError("create feed", err)
	}
	if err := d.acc.AddFeed(rf.FeedID, containerID); err != nil {
		return account.Feed{}, d.accountError("create feed", err)
	}

	if name != "" && name != rf.Name {
		if err := d.RenameFeed(ctx, rf.FeedID, name); err != nil {
			log.Printf("[WARN] can't rename new feed %s: %v", rf.FeedID, err)
		}
	}

	if err := d.DownloadFeed(ctx, rf.FeedID); err != nil {
		return account.Feed{}, d.accountError("download feed", err)
	}
	if err := d.RefreshArticleStatus(ctx); err != nil {
		return account.Feed{}, d.accountError("refresh statuses", err)
	}
	if err := d.RefreshMissingArticles(ctx); err != nil {
		return account.Feed{}, d.accountError("refresh missing articles", err)
	}

	feed, _ := d.acc.ExistingFeed(rf.FeedID)
	log.Printf("[INFO] subscribed %s to %s", d.acc.ID(), url)
	return feed, nil
}

// DeleteFeed unsubscribes the feed from the container. The local graph changes only after the service agreed.
func (d *Delegate) DeleteFeed(ctx context.Context, feedID, containerID string) error {
	feed, ok := d.acc.ExistingFeed(feedID)
	if !ok {
		return d.accountError("delete feed", fmt.Errorf("feed %s: %w", feedID, domain.ErrFeedNotFound))
	}
	folderName, err := d.folderName(containerID)
	if err != nil {
		return d.accountError("delete feed", err)
	}
	if err := d.svc.Unsubscribe(ctx, feed, folderName); err != nil {
		return d.accountError("unsubscribe "+feed.URL, err)
	}

	if err := d.acc.RemoveFeed(feedID, containerID); err != nil {
		return d.accountError("delete feed", err)
	}
	remaining := d.acc.ContainersOf(feedID)
	err = d.acc.UpdateFeed(feedID, func(f *account.Feed) {
		delete(f.FolderRelationship, folderName)
		if len(remaining) == 0 {
			f.ConditionalGet = domain.ConditionalGetInfo{}
			f.ContentHash = ""
		}
	})
	if err != nil {
		log.Printf("[WARN] can't reset feed %s of %s: %v", feedID, d.acc.ID(), err)
	}
	log.Printf("[INFO] unsubscribed %s from %s", d.acc.ID(), feed.URL)
	return nil
}

// RenameFeed sets a custom name, on the service too if it keeps names
func (d *Delegate) RenameFeed(ctx context.Context, feedID, name string) error {
	feed, ok := d.acc.ExistingFeed(feedID)
	if !ok {
		return d.accountError("rename feed", fmt.Errorf("feed %s: %w", feedID, domain.ErrFeedNotFound))
	}
	if renamer, ok := d.svc.(FeedRenamer); ok {
		if err := renamer.RenameFeed(ctx, feed, name); err != nil {
			return d.accountError("rename feed", err)
		}
		return d.acc.UpdateFeed(feedID, func(f *account.Feed) { f.Name, f.EditedName = name, "" })
	}
	return d.acc.UpdateFeed(feedID, func(f *account.Feed) { f.EditedName = name })
}

// MoveFeed moves a feed between containers
func (d *Delegate) MoveFeed(ctx context.Context, feedID, fromContainer, toContainer string) error {
	feed, ok := d.acc.ExistingFeed(feedID)
	if !ok {
		return d.accountError("move feed", fmt.Errorf("feed %s: %w", feedID, domain.ErrFeedNotFound))
	}
	if toContainer == account.Root && d.acc.HasBehavior(domain.BehaviorDisallowFeedInRootFolder) {
		return d.accountError("move feed", fmt.Errorf("feed needs a folder: %w", domain.ErrInvalidParameter))
	}
	if toContainer == account.Root && d.acc.HasBehavior(domain.BehaviorDisallowFeedCopyInRootFolder) {
		for _, c := range d.acc.ContainersOf(feedID) {
			if c != fromContainer && c != account.Root {
				return d.accountError("move feed", fmt.Errorf("feed %s stays in folder %s, root can't hold a copy: %w",
					feedID, c, domain.ErrInvalidParameter))
			}
		}
	}
	from, err := d.folderName(fromContainer)
	if err != nil {
		return d.accountError("move feed", err)
	}
	to, err := d.folderName(toContainer)
	if err != nil {
		return d.accountError("move feed", err)
	}

	relID := ""
	if mover, ok := d.svc.(FeedMover); ok {
		if relID, err = mover.MoveFeed(ctx, feed, from, to); err != nil {
			return d.accountError("move feed", err)
		}
	}

	b := d.acc.BeginBatch()
	defer b.End()
	if err := d.acc.AddFeed(feedID, toContainer); err != nil {
		return d.accountError("move feed", err)
	}
	if err := d.acc.RemoveFeed(feedID, fromContainer); err != nil {
		return d.accountError("move feed", err)
	}
	return d.acc.UpdateFeed(feedID, func(f *account.Feed) {
		delete(f.FolderRelationship, from)
		if relID != "" && to != "" {
			if f.FolderRelationship == nil {
				f.FolderRelationship = make(map[string]string)
			}
			f.FolderRelationship[to] = relID
		}
	})
}

// CreateFolder makes a folder, on the service too if it manages folders
func (d *Delegate) CreateFolder(ctx context.Context, name string) (account.Folder, error) {
	if _, ok := d.acc.FolderByName(name); ok {
		return account.Folder{}, d.accountError("create folder", fmt.Errorf("%q: %w", name, domain.ErrFolderExists))
	}
	if fm, ok := d.svc.(FolderManager); ok {
		if err := fm.CreateFolder(ctx, name); err != nil {
			return account.Folder{}, d.accountError("create folder", err)
		}
	}
	return d.acc.EnsureFolder(name), nil
}

// RenameFolder renames a folder, relationship entries follow the new name
func (d *Delegate) RenameFolder(ctx context.Context, folderID, name string) error {
	folder, ok := d.acc.FolderByID(folderID)
	if !ok {
		return d.accountError("rename folder", fmt.Errorf("folder %s: %w", folderID, domain.ErrFolderNotFound))
	}
	if fm, ok := d.svc.(FolderManager); ok {
		if err := fm.RenameFolder(ctx, folder.Name, name); err != nil {
			return d.accountError("rename folder", err)
		}
	}
	if err := d.acc.RenameFolder(folderID, name); err != nil {
		return d.accountError("rename folder", err)
	}
	for _, feedID := range folder.FeedIDs {
		err := d.acc.UpdateFeed(feedID, func(f *account.Feed) {
			if id, ok := f.FolderRelationship[folder.Name]; ok {
				delete(f.FolderRelationship, folder.Name)
				f.FolderRelationship[name] = id
			}
		})
		if err != nil {
			log.Printf("[WARN] can't move relationship of feed %s to %q: %v", feedID, name, err)
		}
	}
	return nil
}

// RemoveFolder deletes a folder. Feeds only in this folder are unsubscribed, feeds also kept elsewhere
// just lose the relationship to it.
func (d *Delegate) RemoveFolder(ctx context.Context, folderID string) error {
	folder, ok := d.acc.FolderByID(folderID)
	if !ok {
		return d.accountError("remove folder", fmt.Errorf("folder %s: %w", folderID, domain.ErrFolderNotFound))
	}

	for _, feedID := range folder.FeedIDs {
		if len(d.acc.ContainersOf(feedID)) > 1 {
			d.clearRelationship(feedID, folder.Name)
			continue
		}
		feed, ok := d.acc.ExistingFeed(feedID)
		if !ok {
			continue
		}
		if err := d.svc.Unsubscribe(ctx, feed, folder.Name); err != nil {
			return d.accountError("remove folder", err)
		}
	}
	if fm, ok := d.svc.(FolderManager); ok {
		if err := fm.RemoveFolder(ctx, folder.Name); err != nil {
			return d.accountError("remove folder", err)
		}
	}
	if err := d.acc.RemoveFolder(folderID); err != nil {
		return d.accountError("remove folder", err)
	}
	return nil
}

func (d *Delegate) folderName(containerID string) (string, error) {
	if containerID == account.Root {
		return "", nil
	}
	folder, ok := d.acc.FolderByID(containerID)
	if !ok {
		return "", fmt.Errorf("folder %s: %w", containerID, domain.ErrFolderNotFound)
	}
	return folder.Name, nil
}

func (d *Delegate) accountError(op string, err error) error {
	return &AccountError{AccountID: d.acc.ID(), Op: op, Err: err}
}
