// Package remote implements the client for the authoritative bookmark
// service HTTP API.
//
// Only operation semantics matter to the sync engine; the wire shapes here
// follow the provider's REST conventions (JSON bodies, a "result" success
// flag on every response, X-RateLimit-* headers). The engine consumes the
// Client interface so tests can substitute an in-memory fake.
package remote

import (
	"context"
	"encoding/json"
)

// UncategorizedID is the provider's virtual collection id for links that
// belong to no collection.
const UncategorizedID int64 = -1

// Collection is a collection as represented by the remote service.
type Collection struct {
	ID          int64           `json:"_id,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Public      bool            `json:"public"`
	Hidden      bool            `json:"hidden,omitempty"`
	Count       int             `json:"count,omitempty"`
	Tags        json.RawMessage `json:"tags,omitempty"`
}

// Link is a bookmark as represented by the remote service.
//
// Tags is kept raw: depending on the endpoint the service returns an array
// of strings, an array of objects, or a joined string. The tag normalizer
// owns decoding it.
type Link struct {
	ID           int64           `json:"_id,omitempty"`
	URL          string          `json:"link"`
	Title        string          `json:"title,omitempty"`
	Excerpt      string          `json:"excerpt,omitempty"`
	Tags         json.RawMessage `json:"tags,omitempty"`
	CollectionID int64           `json:"collectionId,omitempty"`
	Private      bool            `json:"private,omitempty"`
}

// Client is the remote API surface consumed by the sync engine.
//
// Every method returns a typed error from this package on failure:
// NetworkError for transport/server trouble, AuthenticationError,
// AuthorizationError, or RateLimitError.
type Client interface {
	// ListCollections fetches all of the user's collections.
	ListCollections(ctx context.Context) ([]Collection, error)

	// CreateCollection creates a collection and returns its assigned id.
	CreateCollection(ctx context.Context, c Collection) (int64, error)

	// UpdateCollection rewrites an existing collection (matched by c.ID).
	UpdateCollection(ctx context.Context, c Collection) error

	// DeleteCollection removes a collection.
	DeleteCollection(ctx context.Context, remoteID int64) error

	// CollectionLinks fetches the member links of one collection.
	CollectionLinks(ctx context.Context, remoteID int64) ([]Link, error)

	// UncategorizedLinks fetches the virtual bucket of links with no
	// collection.
	UncategorizedLinks(ctx context.Context) ([]Link, error)

	// ListLinks fetches a page of all links regardless of collection.
	ListLinks(ctx context.Context, limit, offset int) ([]Link, error)

	// CreateLink creates a link and returns its assigned id.
	CreateLink(ctx context.Context, l Link) (int64, error)

	// UpdateLink rewrites an existing link (matched by l.ID).
	UpdateLink(ctx context.Context, l Link) error

	// DeleteLink removes a link.
	DeleteLink(ctx context.Context, remoteID int64) error

	// CheckPremiumStatus reports whether the account has the paid plan
	// required for collection management.
	CheckPremiumStatus(ctx context.Context) (bool, error)
}
