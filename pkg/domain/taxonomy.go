package domain

// AccountRecord is the stored identity of an account
type AccountRecord struct {
	ID   string
	Type AccountType
	Name string
}

// FolderRecord is a stored folder
type FolderRecord struct {
	ID   string
	Name string
}

// FeedRecord is a stored feed with its container membership
type FeedRecord struct {
	FeedID         string
	URL            string
	ExternalID     string
	Name           string
	EditedName     string
	HomePageURL    string
	FaviconURL     string
	ContentHash    string
	ConditionalGet ConditionalGetInfo
	Containers     []string          // folder ids, empty string is the account root
	Relationships  map[string]string // folder name -> remote per-folder id
}

// Taxonomy is a snapshot of folders and feeds of one account
type Taxonomy struct {
	Folders []FolderRecord
	Feeds   []FeedRecord
}
