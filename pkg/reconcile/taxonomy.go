package reconcile

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/feedsync/pkg/account"
	"github.com/umputun/feedsync/pkg/domain"
)

// RefreshFeeds fetches the remote taxonomy and applies folders, then feeds, then relationships,
// all inside one batch of the account
func (d *Delegate) RefreshFeeds(ctx context.Context) error {
	tx, err := d.svc.FetchTaxonomy(ctx)
	if err != nil {
		return fmt.Errorf("fetch taxonomy: %w", err)
	}
	b := d.acc.BeginBatch()
	defer b.End()

	d.SyncFolders(tx.Folders)
	d.SyncFeeds(tx.Feeds)
	d.SyncFeedFolderRelationships(tx.Relationships)
	return nil
}

// SyncFolders removes local folders missing remotely, their feeds go to the account root, and
// creates remote folders missing locally. Folders are matched by name.
func (d *Delegate) SyncFolders(remoteNames []string) {
	remote := make(map[string]bool, len(remoteNames))
	for _, name := range remoteNames {
		if name != domain.RootFolderName {
			remote[name] = true
		}
	}

	for _, folder := range d.acc.Folders() {
		if remote[folder.Name] {
			continue
		}
		for _, feedID := range folder.FeedIDs {
			if err := d.acc.AddFeed(feedID, account.Root); err != nil {
				log.Printf("[WARN] can't move feed %s to root of %s: %v", feedID, d.acc.ID(), err)
			}
			d.clearRelationship(feedID, folder.Name)
		}
		if err := d.acc.RemoveFolder(folder.ID); err != nil {
			log.Printf("[WARN] can't remove folder %q of %s: %v", folder.Name, d.acc.ID(), err)
			continue
		}
		log.Printf("[DEBUG] removed folder %q of %s", folder.Name, d.acc.ID())
	}

	for _, name := range slices.Sorted(maps.Keys(remote)) {
		if _, ok := d.acc.FolderByName(name); !ok {
			d.acc.EnsureFolder(name)
			log.Printf("[DEBUG] created folder %q in %s", name, d.acc.ID())
		}
	}
}

// SyncFeeds drops feeds missing remotely from every container, refreshes the known ones and creates
// the new ones in the account root
func (d *Delegate) SyncFeeds(remoteFeeds []domain.RemoteFeed) {
	remoteIDs := make(map[string]bool, len(remoteFeeds))
	for _, f := range remoteFeeds {
		remoteIDs[f.FeedID] = true
	}

	for _, feed := range d.acc.FlattenedFeeds() {
		if remoteIDs[feed.FeedID] {
			continue
		}
		for _, c := range d.acc.ContainersOf(feed.FeedID) {
			if err := d.acc.RemoveFeed(feed.FeedID, c); err != nil {
				log.Printf("[WARN] can't remove feed %s of %s: %v", feed.FeedID, d.acc.ID(), err)
			}
		}
	}

	var toAdd []domain.RemoteFeed
	for _, rf := range remoteFeeds {
		// a feed dropped by an earlier sync stays registered without containers, it is added again
		if _, ok := d.acc.ExistingFeed(rf.FeedID); !ok || len(d.acc.ContainersOf(rf.FeedID)) == 0 {
			toAdd = append(toAdd, rf)
			continue
		}
		err := d.acc.UpdateFeed(rf.FeedID, func(f *account.Feed) {
			f.Name = rf.Name
			f.EditedName = "" // server side name wins
			f.HomePageURL = rf.HomePageURL
			f.ExternalID = rf.ExternalID
			f.FaviconURL = rf.FaviconURL
		})
		if err != nil {
			log.Printf("[WARN] can't update feed %s of %s: %v", rf.FeedID, d.acc.ID(), err)
		}
	}

	for _, rf := range toAdd {
		d.acc.CreateFeed(rf.FeedID, rf.URL, rf.Name, rf.HomePageURL)
		err := d.acc.UpdateFeed(rf.FeedID, func(f *account.Feed) {
			f.URL = rf.URL
			f.Name = rf.Name
			f.EditedName = ""
			f.HomePageURL = rf.HomePageURL
			f.ExternalID = rf.ExternalID
			f.FaviconURL = rf.FaviconURL
		})
		if err != nil {
			log.Printf("[WARN] can't update feed %s of %s: %v", rf.FeedID, d.acc.ID(), err)
		}
		if err := d.acc.AddFeed(rf.FeedID, account.Root); err != nil {
			log.Printf("[WARN] can't add feed %s to %s: %v", rf.FeedID, d.acc.ID(), err)
		}
	}
	if len(toAdd) > 0 {
		log.Printf("[INFO] added %d feeds to %s", len(toAdd), d.acc.ID())
	}
}

// SyncFeedFolderRelationships makes folder membership match rels. Feeds dropped from a folder move
// to the account root. Without a RootFolderName entry, feeds in any folder leave the root.
// Nil rels means the service has no membership concept and nothing is changed.
func (d *Delegate) SyncFeedFolderRelationships(rels map[string][]domain.Relationship) {
	if rels == nil {
		return
	}

	names := slices.Collect(maps.Keys(rels))
	sort.Slice(names, func(i, j int) bool { // root last, it sees feeds moved out of folders
		if (names[i] == domain.RootFolderName) != (names[j] == domain.RootFolderName) {
			return names[j] == domain.RootFolderName
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		list := rels[name]
		containerID := account.Root
		var current []account.Feed
		if name == domain.RootFolderName {
			current = d.acc.TopLevelFeeds()
		} else {
			folder, ok := d.acc.FolderByName(name)
			if !ok {
				log.Printf("[WARN] relationships for unknown folder %q in %s", name, d.acc.ID())
				continue
			}
			containerID = folder.ID
			current = d.acc.FeedsInFolder(folder.ID)
		}

		listed := make(map[string]string, len(list))
		for _, rel := range list {
			listed[rel.FeedID] = rel.RelationshipID
		}

		contained := make(map[string]bool, len(current))
		for _, feed := range current {
			if _, ok := listed[feed.FeedID]; ok {
				contained[feed.FeedID] = true
				continue
			}
			if err := d.acc.RemoveFeed(feed.FeedID, containerID); err != nil {
				log.Printf("[WARN] can't remove feed %s from %q: %v", feed.FeedID, name, err)
				continue
			}
			if containerID != account.Root {
				d.clearRelationship(feed.FeedID, name)
				if err := d.acc.AddFeed(feed.FeedID, account.Root); err != nil {
					log.Printf("[WARN] can't move feed %s to root: %v", feed.FeedID, err)
				}
			}
		}

		for _, rel := range list {
			feed, ok := d.acc.ExistingFeed(rel.FeedID)
			if !ok {
				continue
			}
			if rel.RelationshipID != "" && feed.FolderRelationship[name] != rel.RelationshipID {
				err := d.acc.UpdateFeed(rel.FeedID, func(f *account.Feed) {
					if f.FolderRelationship == nil {
						f.FolderRelationship = make(map[string]string)
					}
					f.FolderRelationship[name] = rel.RelationshipID
				})
				if err != nil {
					log.Printf("[WARN] can't set relationship of feed %s to %q: %v", rel.FeedID, name, err)
				}
			}
			if contained[rel.FeedID] {
				continue
			}
			if err := d.acc.AddFeed(rel.FeedID, containerID); err != nil {
				log.Printf("[WARN] can't add feed %s to %q: %v", rel.FeedID, name, err)
			}
		}
	}

	if _, ok := rels[domain.RootFolderName]; ok {
		return
	}
	inFolders := make(map[string]bool)
	for name, list := range rels {
		if name == domain.RootFolderName {
			continue
		}
		for _, rel := range list {
			inFolders[rel.FeedID] = true
		}
	}
	for _, feed := range d.acc.TopLevelFeeds() {
		if inFolders[feed.FeedID] {
			if err := d.acc.RemoveFeed(feed.FeedID, account.Root); err != nil {
				log.Printf("[WARN] can't remove feed %s from root: %v", feed.FeedID, err)
			}
		}
	}
}

func (d *Delegate) clearRelationship(feedID, folderName string) {
	feed, ok := d.acc.ExistingFeed(feedID)
	if !ok {
		return
	}
	if _, ok := feed.FolderRelationship[folderName]; !ok {
		return
	}
	if err := d.acc.UpdateFeed(feedID, func(f *account.Feed) { delete(f.FolderRelationship, folderName) }); err != nil {
		log.Printf("[WARN] can't clear relationship of feed %s to %q: %v", feedID, folderName, err)
	}
}
