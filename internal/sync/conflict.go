package sync

import "context"

// PendingCounts reports how many local entities are awaiting upload.
type PendingCounts struct {
	Collections int
	Links       int
}

// Total returns the combined pending count.
func (c PendingCounts) Total() int {
	return c.Collections + c.Links
}

// HasUnsyncedChanges reports whether any local pending changes exist. The
// caller consults it before a destructive pull; the three possible
// decisions are abort, push-first-then-pull, or force-overwrite.
func (e *Engine) HasUnsyncedChanges(ctx context.Context) (bool, error) {
	counts, err := e.UnsyncedCounts(ctx)
	if err != nil {
		return false, err
	}
	return counts.Total() > 0, nil
}

// UnsyncedCounts returns the per-type pending counts for user-facing
// conflict messaging.
func (e *Engine) UnsyncedCounts(ctx context.Context) (PendingCounts, error) {
	collections, links, err := e.store.PendingCounts(ctx)
	if err != nil {
		return PendingCounts{}, err
	}
	return PendingCounts{Collections: collections, Links: links}, nil
}
