package domain

import "time"

// Setting represents a key-value setting, used for account metadata among others
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
