package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// The dirty-state ledger. The ledger holds no state of its own: dirty flags
// and sync timestamps live on the rows, and the pending set is a derived
// read (dirty OR never confirmed against the remote). Store errors propagate
// unmodified.

// MarkLinkDirty sets the dirty flag and bumps updated_at. Idempotent.
func (s *Store) MarkLinkDirty(ctx context.Context, id int64) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE links SET is_dirty = 1, updated_at = ? WHERE id = ?`,
		time.Now().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to mark link %d dirty: %w", id, err)
	}
	return requireRow(res, "link", id)
}

// MarkLinkSynced clears the dirty flag and stamps last_synced_at. A non-zero
// remoteID records the id assigned by the remote service on first push.
func (s *Store) MarkLinkSynced(ctx context.Context, id, remoteID int64, syncedAt time.Time) error {
	query := `UPDATE links SET is_dirty = 0, last_synced_at = ? WHERE id = ?`
	args := []interface{}{syncedAt.Format(time.RFC3339), id}
	if remoteID != 0 {
		query = `UPDATE links SET is_dirty = 0, last_synced_at = ?, remote_id = ? WHERE id = ?`
		args = []interface{}{syncedAt.Format(time.RFC3339), remoteID, id}
	}
	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark link %d synced: %w", id, err)
	}
	return requireRow(res, "link", id)
}

// MarkCollectionDirty sets the dirty flag and bumps updated_at. Idempotent.
func (s *Store) MarkCollectionDirty(ctx context.Context, id int64) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE collections SET is_dirty = 1, updated_at = ? WHERE id = ?`,
		time.Now().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to mark collection %d dirty: %w", id, err)
	}
	return requireRow(res, "collection", id)
}

// MarkCollectionSynced clears the dirty flag and stamps last_synced_at,
// recording the assigned remote id when non-zero.
func (s *Store) MarkCollectionSynced(ctx context.Context, id, remoteID int64, syncedAt time.Time) error {
	query := `UPDATE collections SET is_dirty = 0, last_synced_at = ? WHERE id = ?`
	args := []interface{}{syncedAt.Format(time.RFC3339), id}
	if remoteID != 0 {
		query = `UPDATE collections SET is_dirty = 0, last_synced_at = ?, remote_id = ? WHERE id = ?`
		args = []interface{}{syncedAt.Format(time.RFC3339), remoteID, id}
	}
	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark collection %d synced: %w", id, err)
	}
	return requireRow(res, "collection", id)
}

// ListPendingLinks returns links awaiting upload: dirty, or never confirmed
// against the remote. Ordered by updated_at descending.
func (s *Store) ListPendingLinks(ctx context.Context) ([]*Link, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT `+linkColumns+` FROM links
	WHERE is_dirty = 1 OR last_synced_at IS NULL
	ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending links: %w", err)
	}
	defer rows.Close()

	return scanLinks(rows)
}

// ListPendingCollections returns collections awaiting upload, ordered by
// updated_at descending.
func (s *Store) ListPendingCollections(ctx context.Context) ([]*Collection, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT `+collectionColumns+` FROM collections
	WHERE is_dirty = 1 OR last_synced_at IS NULL
	ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending collections: %w", err)
	}
	defer rows.Close()

	var collections []*Collection
	for rows.Next() {
		c, err := scanCollectionFields(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collections: %w", err)
	}
	return collections, nil
}

// LastSyncedAt returns the most recent sync timestamp across links and
// collections, or nil when nothing has ever synced. RFC3339 text compares
// correctly as a string.
func (s *Store) LastSyncedAt(ctx context.Context) (*time.Time, error) {
	var ns sql.NullString
	err := s.conn.QueryRowContext(ctx, `
	SELECT MAX(t) FROM (
		SELECT MAX(last_synced_at) AS t FROM links
		UNION ALL
		SELECT MAX(last_synced_at) AS t FROM collections
	)`).Scan(&ns)
	if err != nil {
		return nil, fmt.Errorf("failed to query last sync time: %w", err)
	}
	return nullStringToTime(ns), nil
}

// PendingCounts returns how many collections and links are awaiting upload.
func (s *Store) PendingCounts(ctx context.Context) (collections, links int, err error) {
	err = s.conn.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM collections WHERE is_dirty = 1 OR last_synced_at IS NULL`).
		Scan(&collections)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count pending collections: %w", err)
	}
	err = s.conn.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM links WHERE is_dirty = 1 OR last_synced_at IS NULL`).
		Scan(&links)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count pending links: %w", err)
	}
	return collections, links, nil
}
