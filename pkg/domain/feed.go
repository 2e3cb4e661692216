package domain

import (
	"errors"
	"time"
)

// AccountType is the kind of service an account syncs with
type AccountType string

// enum of supported account types
const (
	AccountLocal    AccountType = "local"
	AccountFeedbin  AccountType = "feedbin"
	AccountNewsBlur AccountType = "newsblur"
	AccountFeedly   AccountType = "feedly"
)

// Behavior is a capability restriction of an account type
type Behavior string

// enum of account behaviors
const (
	BehaviorDisallowFeedInRootFolder        Behavior = "disallow_feed_in_root_folder"
	BehaviorDisallowFeedCopyInRootFolder    Behavior = "disallow_feed_copy_in_root_folder"
	BehaviorDisallowMarkAsUnreadAfterPeriod Behavior = "disallow_mark_as_unread_after_period"
)

// ConditionalGetInfo keeps http caching validators of the last response
type ConditionalGetInfo struct {
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

// IsEmpty returns true if there is nothing to send with a conditional request
func (c ConditionalGetInfo) IsEmpty() bool {
	return c.ETag == "" && c.LastModified == ""
}

// AccountMetadata is persisted per account between refreshes
type AccountMetadata struct {
	LastArticleFetchStartTime *time.Time                    `json:"last_article_fetch_start_time,omitempty"`
	LastArticleFetchEndTime   *time.Time                    `json:"last_article_fetch_end_time,omitempty"`
	ConditionalGetInfo        map[string]ConditionalGetInfo `json:"conditional_get_info,omitempty"`
}

// domain errors returned by services and the account graph
var (
	ErrFeedNotFound      = errors.New("feed not found")
	ErrFolderNotFound    = errors.New("folder not found")
	ErrFolderExists      = errors.New("folder already exists")
	ErrAlreadySubscribed = errors.New("already subscribed")
	ErrNoFeedFound       = errors.New("no feed found at this url")
	ErrMultipleChoices   = errors.New("multiple feeds found at this url")
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrSuspended         = errors.New("suspended")
	ErrNotSupported      = errors.New("operation not supported")
)
