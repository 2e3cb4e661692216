package domain

import "time"

// RootFolderName is the folder name some services use for the account root
const RootFolderName = " "

// StoryHash identifies a remote article together with its last change time
type StoryHash struct {
	ID        string
	Timestamp time.Time
}

// RemoteFeed is a subscription as reported by a sync service
type RemoteFeed struct {
	FeedID         string
	URL            string
	Name           string
	HomePageURL    string
	FaviconURL     string
	ExternalID     string // service subscription id
	RelationshipID string // set by subscribe when the feed was put into a folder
}

// Relationship links a feed to a folder on the service side
type Relationship struct {
	FeedID         string
	RelationshipID string
}

// RemoteTaxonomy is the folder and feed list of a sync service
type RemoteTaxonomy struct {
	Folders []string
	Feeds   []RemoteFeed
	// Relationships maps folder names, RootFolderName included, to the feeds in them.
	// Nil for services without folder membership.
	Relationships map[string][]Relationship
}

// Page is one page of articles with the cursor of the next one, empty cursor on the last page
type Page struct {
	Items  []ParsedItem
	Cursor string
}
