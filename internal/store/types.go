// Package store provides the local persistent store for linkhoard.
//
// The store is an embedded SQLite database (ncruces/go-sqlite3) holding the
// locally mutable copy of the user's links and collections. Every row carries
// sync bookkeeping: a dirty flag, the remote id assigned by the bookmark
// service, and the time the row was last confirmed against the remote. The
// "pending set" consumed by the sync engine is a derived read over that
// bookkeeping, not a separate table.
package store

import (
	"fmt"
	"time"
)

// Visibility controls who can see a collection on the remote service.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
	VisibilityHidden  Visibility = "hidden"
)

// Valid reports whether v is one of the known visibility values.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityHidden:
		return true
	}
	return false
}

const (
	// MaxCollectionNameLen is the remote service's limit on collection names.
	MaxCollectionNameLen = 100
	// MaxCollectionDescLen is the remote service's limit on descriptions.
	MaxCollectionDescLen = 2000
)

// Link is a single bookmarked URL.
//
// Collection holds the owning collection's name; empty means uncategorized.
// RemoteID is zero until the link has been pushed at least once.
// LastSyncedAt is nil until the link has been confirmed against the remote,
// regardless of the dirty flag.
type Link struct {
	ID           int64      `json:"id"`
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	Notes        string     `json:"notes,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	Collection   string     `json:"collection,omitempty"`
	IsPrivate    bool       `json:"is_private"`
	IsDirty      bool       `json:"is_dirty"`
	RemoteID     int64      `json:"remote_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// Validate checks the link's field values before any store or network effect.
func (l *Link) Validate() error {
	if l.URL == "" {
		return &ValidationError{Field: "url", Message: "url is required"}
	}
	if _, err := URLKey(l.URL); err != nil {
		return &ValidationError{Field: "url", Message: err.Error()}
	}
	return nil
}

// Collection is a named group of links.
type Collection struct {
	ID           int64      `json:"id"`
	RemoteID     int64      `json:"remote_id,omitempty"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Visibility   Visibility `json:"visibility"`
	LinkCount    int        `json:"link_count"`
	IsDirty      bool       `json:"is_dirty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// Validate checks the collection's field values.
func (c *Collection) Validate() error {
	if c.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if len(c.Name) > MaxCollectionNameLen {
		return &ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("name must be %d characters or less (got %d)", MaxCollectionNameLen, len(c.Name)),
		}
	}
	if len(c.Description) > MaxCollectionDescLen {
		return &ValidationError{
			Field:   "description",
			Message: fmt.Sprintf("description must be %d characters or less (got %d)", MaxCollectionDescLen, len(c.Description)),
		}
	}
	if !c.Visibility.Valid() {
		return &ValidationError{
			Field:   "visibility",
			Message: fmt.Sprintf("visibility must be one of public, private, hidden (got %q)", c.Visibility),
		}
	}
	return nil
}

// DeleteMode selects what happens to a deleted collection's member links.
type DeleteMode string

const (
	// DeleteModeMoveToUncategorized clears the collection reference on every
	// member link, leaving the links in the uncategorized bucket.
	DeleteModeMoveToUncategorized DeleteMode = "move_to_uncategorized"
	// DeleteModeCascade removes the member links along with the collection.
	DeleteModeCascade DeleteMode = "cascade"
)

// Valid reports whether m is a known delete mode.
func (m DeleteMode) Valid() bool {
	return m == DeleteModeMoveToUncategorized || m == DeleteModeCascade
}

// ValidationError rejects a mutation before it touches the store or the
// network. It is local-only and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
