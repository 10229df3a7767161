// Package store persists captures locally in SQLite and mirrors them,
// best effort, to a remote Postgres instance.
package store

import (
	"errors"
	"time"
)

// ErrUnavailable marks a store that could not be reached.
var ErrUnavailable = errors.New("store: unavailable")

// Capture is one archived page snapshot.
type Capture struct {
	Identifier          string
	URL                 string
	CapturedAt          time.Time
	Category            string
	Content             string
	DuplicateOfPrevious bool
	Version             int
}

// Tag is one flattened element record belonging to a capture.
type Tag struct {
	TagType    string
	Content    string
	Location   string
	Attributes map[string]string
}
