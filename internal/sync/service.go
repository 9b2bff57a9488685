package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/linkhoard/linkhoard/internal/store"
)

// The mutation service: the entry point the UI layer calls for link and
// collection CRUD. Each operation validates first (failing fast with a
// ValidationError before any store or network effect), applies the local
// mutation with dirty-marking, then hands a SyncOperation to the strategy
// selector. The returned SyncResult tells the caller which copy to show:
// synced now, saved locally only, or queued.

// LinkParams carries the caller-supplied fields of a link mutation.
type LinkParams struct {
	URL        string
	Title      string
	Notes      string
	Tags       []string
	Collection string
	Private    bool
}

// CollectionParams carries the caller-supplied fields of a collection
// mutation.
type CollectionParams struct {
	Name        string
	Description string
	Visibility  store.Visibility
	Tags        []string
}

// CreateLink validates and stores a new link, then dispatches per strategy.
func (e *Engine) CreateLink(ctx context.Context, p LinkParams) (*store.Link, SyncResult, error) {
	if err := e.checkCollectionRef(ctx, p.Collection); err != nil {
		return nil, SyncResult{}, err
	}

	link := &store.Link{
		URL:        p.URL,
		Title:      p.Title,
		Notes:      p.Notes,
		Tags:       p.Tags,
		Collection: p.Collection,
		IsPrivate:  p.Private,
	}
	if _, err := e.store.CreateLink(ctx, link); err != nil {
		return nil, SyncResult{}, err
	}
	if err := e.store.RecomputeLinkCounts(ctx); err != nil {
		return nil, SyncResult{}, err
	}

	res := e.dispatch(ctx, SyncOperation{Kind: OpLinkCreate, Link: link})
	return link, res, nil
}

// UpdateLink rewrites an existing link's fields and dispatches per strategy.
func (e *Engine) UpdateLink(ctx context.Context, id int64, p LinkParams) (*store.Link, SyncResult, error) {
	if err := e.checkCollectionRef(ctx, p.Collection); err != nil {
		return nil, SyncResult{}, err
	}

	link, err := e.store.GetLinkByID(ctx, id)
	if err != nil {
		return nil, SyncResult{}, err
	}

	link.URL = p.URL
	link.Title = p.Title
	link.Notes = p.Notes
	link.Tags = p.Tags
	link.Collection = p.Collection
	link.IsPrivate = p.Private

	if err := e.store.UpdateLink(ctx, link); err != nil {
		return nil, SyncResult{}, err
	}
	if err := e.store.MarkLinkDirty(ctx, id); err != nil {
		return nil, SyncResult{}, err
	}
	link.IsDirty = true
	if err := e.store.RecomputeLinkCounts(ctx); err != nil {
		return nil, SyncResult{}, err
	}

	res := e.dispatch(ctx, SyncOperation{Kind: OpLinkUpdate, Link: link})
	return link, res, nil
}

// MoveLink reassigns a link to a different collection (empty name =
// uncategorized).
func (e *Engine) MoveLink(ctx context.Context, id int64, collection string) (*store.Link, SyncResult, error) {
	if err := e.checkCollectionRef(ctx, collection); err != nil {
		return nil, SyncResult{}, err
	}

	link, err := e.store.GetLinkByID(ctx, id)
	if err != nil {
		return nil, SyncResult{}, err
	}

	link.Collection = collection
	if err := e.store.UpdateLink(ctx, link); err != nil {
		return nil, SyncResult{}, err
	}
	if err := e.store.MarkLinkDirty(ctx, id); err != nil {
		return nil, SyncResult{}, err
	}
	link.IsDirty = true
	if err := e.store.RecomputeLinkCounts(ctx); err != nil {
		return nil, SyncResult{}, err
	}

	res := e.dispatch(ctx, SyncOperation{Kind: OpLinkMove, Link: link})
	return link, res, nil
}

// DeleteLink removes a link locally, then dispatches the remote delete per
// strategy. The local row is gone either way; there is no tombstone.
func (e *Engine) DeleteLink(ctx context.Context, id int64) (SyncResult, error) {
	link, err := e.store.GetLinkByID(ctx, id)
	if err != nil {
		return SyncResult{}, err
	}

	if err := e.store.DeleteLink(ctx, id); err != nil {
		return SyncResult{}, err
	}
	if err := e.store.RecomputeLinkCounts(ctx); err != nil {
		return SyncResult{}, err
	}

	res := e.dispatch(ctx, SyncOperation{Kind: OpLinkDelete, RemoteID: link.RemoteID})
	return res, nil
}

// CreateCollection validates and stores a new collection, then dispatches
// per strategy. Requires collection management (premium gate) before any
// mutation.
func (e *Engine) CreateCollection(ctx context.Context, p CollectionParams) (*store.Collection, SyncResult, error) {
	if err := e.requireCollectionManagement(ctx); err != nil {
		return nil, SyncResult{}, err
	}

	c := &store.Collection{
		Name:        p.Name,
		Description: p.Description,
		Visibility:  p.Visibility,
	}
	if _, err := e.store.CreateCollection(ctx, c); err != nil {
		return nil, SyncResult{}, err
	}
	if len(p.Tags) > 0 {
		if err := e.store.ReplaceCollectionTags(ctx, c.ID, p.Tags); err != nil {
			return nil, SyncResult{}, err
		}
	}

	res := e.dispatch(ctx, SyncOperation{Kind: OpCollectionCreate, Collection: c})
	return c, res, nil
}

// UpdateCollection rewrites an existing collection and dispatches per
// strategy.
func (e *Engine) UpdateCollection(ctx context.Context, id int64, p CollectionParams) (*store.Collection, SyncResult, error) {
	if err := e.requireCollectionManagement(ctx); err != nil {
		return nil, SyncResult{}, err
	}

	c, err := e.store.GetCollectionByID(ctx, id)
	if err != nil {
		return nil, SyncResult{}, err
	}

	c.Name = p.Name
	c.Description = p.Description
	c.Visibility = p.Visibility

	if err := e.store.UpdateCollection(ctx, c); err != nil {
		return nil, SyncResult{}, err
	}
	if err := e.store.MarkCollectionDirty(ctx, id); err != nil {
		return nil, SyncResult{}, err
	}
	c.IsDirty = true
	if p.Tags != nil {
		if err := e.store.ReplaceCollectionTags(ctx, id, p.Tags); err != nil {
			return nil, SyncResult{}, err
		}
	}

	res := e.dispatch(ctx, SyncOperation{Kind: OpCollectionUpdate, Collection: c})
	return c, res, nil
}

// DeleteCollection removes a collection, resolving member links per mode,
// then dispatches the remote delete per strategy.
func (e *Engine) DeleteCollection(ctx context.Context, id int64, mode store.DeleteMode) (SyncResult, error) {
	if err := e.requireCollectionManagement(ctx); err != nil {
		return SyncResult{}, err
	}

	c, err := e.store.GetCollectionByID(ctx, id)
	if err != nil {
		return SyncResult{}, err
	}

	if err := e.store.DeleteCollection(ctx, id, mode); err != nil {
		return SyncResult{}, err
	}
	if err := e.store.RecomputeLinkCounts(ctx); err != nil {
		return SyncResult{}, err
	}

	res := e.dispatch(ctx, SyncOperation{Kind: OpCollectionDelete, RemoteID: c.RemoteID})
	return res, nil
}

// Candidate is a link record produced by the browser-bookmark import
// collaborator.
type Candidate struct {
	URL        string   `json:"url"`
	Title      string   `json:"title,omitempty"`
	Notes      string   `json:"notes,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Collection string   `json:"collection,omitempty"`
	Private    bool     `json:"private,omitempty"`
}

// ImportReport accounts for one batch of imported candidates.
type ImportReport struct {
	Imported int
	Skipped  int
	Errors   []string
}

// ImportCandidates ingests a batch of candidate links. Candidates whose URL
// is already bookmarked are skipped; candidates naming an unknown collection
// land in uncategorized. Invalid candidates are reported and do not stop
// the batch. The imported links are then dispatched as one ImportOp.
func (e *Engine) ImportCandidates(ctx context.Context, candidates []Candidate) (*ImportReport, SyncResult, error) {
	report := &ImportReport{}
	var created []*store.Link

	for _, cand := range candidates {
		collection := cand.Collection
		if collection != "" {
			if _, err := e.store.GetCollectionByName(ctx, collection); err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					return nil, SyncResult{}, err
				}
				collection = ""
			}
		}

		link := &store.Link{
			URL:        cand.URL,
			Title:      cand.Title,
			Notes:      cand.Notes,
			Tags:       cand.Tags,
			Collection: collection,
			IsPrivate:  cand.Private,
		}
		_, err := e.store.CreateLink(ctx, link)
		switch {
		case err == nil:
			report.Imported++
			created = append(created, link)
		case errors.Is(err, store.ErrDuplicateURL):
			report.Skipped++
		default:
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", cand.URL, err))
		}
	}

	if err := e.store.RecomputeLinkCounts(ctx); err != nil {
		return nil, SyncResult{}, err
	}

	if len(created) == 0 {
		return report, manualQueued(), nil
	}
	res := e.dispatch(ctx, SyncOperation{Kind: OpImport, Links: created})
	return report, res, nil
}

// checkCollectionRef enforces the invariant that a non-empty collection
// reference names an existing collection.
func (e *Engine) checkCollectionRef(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	if _, err := e.store.GetCollectionByName(ctx, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &store.ValidationError{
				Field:   "collection",
				Message: fmt.Sprintf("collection %q does not exist", name),
			}
		}
		return err
	}
	return nil
}
