package sync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/linkhoard/linkhoard/internal/remote"
	"github.com/linkhoard/linkhoard/internal/store"
	"github.com/linkhoard/linkhoard/internal/tags"
)

// PullResult aggregates one sync-down batch.
type PullResult struct {
	LinksPulled int
	Errors      []ItemError
}

// SyncDown downloads remote state and merges it into the local store.
//
// Callers are expected to have resolved any conflict (HasUnsyncedChanges)
// before calling with forceOverwrite=false; the flag records that the
// caller accepted that local-only changes may be discarded by the merge
// overwrite. The merge itself is identical either way — remote wins on
// matched URLs, local created_at is preserved.
//
// The pull fans out one request per remote collection, so the rate-limit
// gate is consulted first; when exhausted, the pull is skipped entirely
// with the limiter's message and no network activity occurs. A failure
// fetching one collection's links does not abort the others, and merged
// data is never rolled back.
func (e *Engine) SyncDown(ctx context.Context, forceOverwrite bool) (*PullResult, error) {
	if ok, msg := e.rateStatus(); !ok {
		return nil, &remote.RateLimitError{Message: msg}
	}

	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	start := time.Now()
	e.notifier.SyncStarted("pull")
	e.logger.Printf("pull starting (force_overwrite=%t)", forceOverwrite)
	result := &PullResult{}

	remoteCollections, err := e.client.ListCollections(ctx)
	if err != nil {
		return nil, err
	}

	now := nowFunc()

	// Merge the collection rows first so every fetched link has a local
	// collection to reference.
	for i := range remoteCollections {
		rc := remoteCollections[i]
		local := &store.Collection{
			RemoteID:    rc.ID,
			Name:        rc.Title,
			Description: rc.Description,
			Visibility:  visibilityFromRemote(rc),
		}
		if err := e.store.UpsertRemoteCollection(ctx, local, now); err != nil {
			e.logger.Printf("pull: collection %q merge failed: %v", rc.Title, err)
			result.Errors = append(result.Errors, ItemError{
				EntityType: "collection", ID: rc.ID, Name: rc.Title, Err: err.Error(),
			})
			continue
		}
		if len(rc.Tags) > 0 {
			names := tags.Split(tags.Normalize(rc.Tags))
			if err := e.store.ReplaceCollectionTags(ctx, local.ID, names); err != nil {
				e.logger.Printf("pull: collection %q tags failed: %v", rc.Title, err)
			}
		}
	}

	// One links request per collection; failures recorded, pull continues.
	for _, rc := range remoteCollections {
		links, err := e.client.CollectionLinks(ctx, rc.ID)
		if err != nil {
			e.logger.Printf("pull: fetching links of %q failed: %v", rc.Title, err)
			result.Errors = append(result.Errors, ItemError{
				EntityType: "collection", ID: rc.ID, Name: rc.Title, Err: err.Error(),
			})
			continue
		}
		e.mergeLinks(ctx, links, rc.Title, now, result)
	}

	uncategorized, err := e.client.UncategorizedLinks(ctx)
	if err != nil {
		e.logger.Printf("pull: fetching uncategorized links failed: %v", err)
		result.Errors = append(result.Errors, ItemError{
			EntityType: "collection", ID: remote.UncategorizedID, Name: "uncategorized", Err: err.Error(),
		})
	} else {
		e.mergeLinks(ctx, uncategorized, "", now, result)
	}

	if err := e.store.RecomputeLinkCounts(ctx); err != nil {
		return nil, err
	}

	e.logger.Printf("pull complete: links=%d failed=%d", result.LinksPulled, len(result.Errors))
	e.notifier.SyncCompleted("pull", Stats{
		LinksPulled: result.LinksPulled,
		Failed:      len(result.Errors),
		Duration:    time.Since(start),
	})

	return result, nil
}

// mergeLinks upserts one collection's worth of fetched links, tagging each
// record with its source collection name ("" = uncategorized).
func (e *Engine) mergeLinks(ctx context.Context, links []remote.Link, collection string, now time.Time, result *PullResult) {
	for _, rl := range links {
		local := &store.Link{
			URL:        rl.URL,
			Title:      rl.Title,
			Notes:      rl.Excerpt,
			Tags:       tags.Split(tags.Normalize(rl.Tags)),
			Collection: collection,
			IsPrivate:  rl.Private,
			RemoteID:   rl.ID,
		}
		if err := e.store.UpsertRemoteLink(ctx, local, now); err != nil {
			e.logger.Printf("pull: merging %q failed: %v", rl.URL, err)
			result.Errors = append(result.Errors, ItemError{
				EntityType: "link", ID: rl.ID, Name: rl.URL, Err: err.Error(),
			})
			continue
		}
		result.LinksPulled++
		e.notifier.ItemSynced("link", rl.ID, rl.URL)
	}
}

// rawTags marshals tag names for a remote payload.
func rawTags(names []string) json.RawMessage {
	if len(names) == 0 {
		return nil
	}
	raw, _ := json.Marshal(names)
	return raw
}
