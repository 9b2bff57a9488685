package sync

import (
	"context"
	"fmt"
	"time"
)

// ItemError records one failed item inside a batch. The batch continues
// past it; the entity stays dirty for the next attempt.
type ItemError struct {
	EntityType string `json:"entity_type"` // "collection" or "link"
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Err        string `json:"error"`
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s %q (id %d): %s", e.EntityType, e.Name, e.ID, e.Err)
}

// PushResult aggregates one sync-up batch.
type PushResult struct {
	CollectionsSynced int
	LinksSynced       int
	Errors            []ItemError
}

// SyncUp uploads all pending local changes: every pending collection first,
// then every pending link. Safe to call with nothing pending (no-op with
// zero counts), and idempotent: a second call with no intervening mutation
// performs zero remote writes because the pending set is empty.
//
// Items are processed strictly sequentially. A per-item failure is recorded
// and the batch continues; nothing is rolled back.
func (e *Engine) SyncUp(ctx context.Context) (*PushResult, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	start := time.Now()
	e.notifier.SyncStarted("push")
	result := &PushResult{}

	// Collections before links: link-to-collection association on the
	// remote side requires a remote collection id.
	collections, err := e.store.ListPendingCollections(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range collections {
		if _, err := e.pushCollection(ctx, c); err != nil {
			e.logger.Printf("push: collection %q failed: %v", c.Name, err)
			result.Errors = append(result.Errors, ItemError{
				EntityType: "collection", ID: c.ID, Name: c.Name, Err: err.Error(),
			})
			e.notifier.ItemFailed("collection", c.ID, c.Name, err)
			continue
		}
		result.CollectionsSynced++
		e.notifier.ItemSynced("collection", c.ID, c.Name)
	}

	links, err := e.store.ListPendingLinks(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		if _, err := e.pushLink(ctx, l); err != nil {
			e.logger.Printf("push: link %q failed: %v", l.URL, err)
			result.Errors = append(result.Errors, ItemError{
				EntityType: "link", ID: l.ID, Name: l.URL, Err: err.Error(),
			})
			e.notifier.ItemFailed("link", l.ID, l.URL, err)
			continue
		}
		result.LinksSynced++
		e.notifier.ItemSynced("link", l.ID, l.URL)
	}

	e.logger.Printf("push complete: collections=%d links=%d failed=%d",
		result.CollectionsSynced, result.LinksSynced, len(result.Errors))
	e.notifier.SyncCompleted("push", Stats{
		CollectionsSynced: result.CollectionsSynced,
		LinksSynced:       result.LinksSynced,
		Failed:            len(result.Errors),
		Duration:          time.Since(start),
	})

	return result, nil
}
