package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/linkhoard/linkhoard/internal/tags"
)

// ErrDuplicateName is returned when creating a collection whose name is taken.
var ErrDuplicateName = errors.New("collection name already exists")

const collectionColumns = `id, remote_id, name, description, visibility,
       link_count, is_dirty, created_at, updated_at, last_synced_at`

// CreateCollection inserts a new local collection with dirty=1 and no
// remote id. Returns ErrDuplicateName on a name clash.
func (s *Store) CreateCollection(ctx context.Context, c *Collection) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}

	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.IsDirty = true

	query := `
	INSERT INTO collections (remote_id, name, description, visibility,
		link_count, is_dirty, created_at, updated_at, last_synced_at)
	VALUES (?, ?, ?, ?, 0, 1, ?, ?, NULL)
	`
	res, err := s.conn.ExecContext(ctx, query,
		int64ToNull(c.RemoteID),
		c.Name,
		c.Description,
		string(c.Visibility),
		c.CreatedAt.Format(time.RFC3339),
		c.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateName
		}
		return 0, fmt.Errorf("failed to create collection: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read collection id: %w", err)
	}
	c.ID = id
	return id, nil
}

// UpdateCollection rewrites the mutable fields of an existing collection.
// If the collection is renamed, member links are repointed at the new name
// in the same transaction.
func (s *Store) UpdateCollection(ctx context.Context, c *Collection) error {
	if err := c.Validate(); err != nil {
		return err
	}

	current, err := s.GetCollectionByID(ctx, c.ID)
	if err != nil {
		return err
	}

	c.UpdatedAt = time.Now()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
	UPDATE collections SET name = ?, description = ?, visibility = ?, updated_at = ?
	WHERE id = ?
	`,
		c.Name,
		c.Description,
		string(c.Visibility),
		c.UpdatedAt.Format(time.RFC3339),
		c.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to update collection %d: %w", c.ID, err)
	}
	if err := requireRow(res, "collection", c.ID); err != nil {
		return err
	}

	if current.Name != c.Name {
		if _, err := tx.ExecContext(ctx,
			`UPDATE links SET collection = ? WHERE collection = ?`,
			c.Name, current.Name); err != nil {
			return fmt.Errorf("failed to repoint links at renamed collection: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit collection update: %w", err)
	}
	return nil
}

// DeleteCollection removes a collection and resolves its member links per
// mode: reassign to uncategorized, or cascade delete. Link handling and row
// removal commit as one transaction so no dangling reference is ever
// visible.
func (s *Store) DeleteCollection(ctx context.Context, id int64, mode DeleteMode) error {
	if !mode.Valid() {
		return &ValidationError{Field: "mode", Message: fmt.Sprintf("unknown delete mode %q", mode)}
	}

	c, err := s.GetCollectionByID(ctx, id)
	if err != nil {
		return err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Format(time.RFC3339)

	switch mode {
	case DeleteModeMoveToUncategorized:
		// Reassigned links diverge from their last remote snapshot.
		if _, err := tx.ExecContext(ctx, `
		UPDATE links SET collection = NULL, is_dirty = 1, updated_at = ?
		WHERE collection = ?`, now, c.Name); err != nil {
			return fmt.Errorf("failed to move links to uncategorized: %w", err)
		}
	case DeleteModeCascade:
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM links WHERE collection = ?`, c.Name); err != nil {
			return fmt.Errorf("failed to cascade delete links: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete collection %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit collection delete: %w", err)
	}
	return nil
}

// GetCollectionByID retrieves a single collection. Returns ErrNotFound if absent.
func (s *Store) GetCollectionByID(ctx context.Context, id int64) (*Collection, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE id = ?`, id)
	return scanCollection(row)
}

// GetCollectionByName retrieves a collection by its unique name.
func (s *Store) GetCollectionByName(ctx context.Context, name string) (*Collection, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE name = ?`, name)
	return scanCollection(row)
}

// GetCollectionByRemoteID retrieves a collection by its remote id.
func (s *Store) GetCollectionByRemoteID(ctx context.Context, remoteID int64) (*Collection, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE remote_id = ?`, remoteID)
	return scanCollection(row)
}

// ListCollections retrieves all collections ordered by name.
func (s *Store) ListCollections(ctx context.Context) ([]*Collection, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+collectionColumns+` FROM collections ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
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

// ReplaceCollectionTags rewrites the collection_tags join rows for a
// collection. Tags are identified by slug, so "Go Tools" and "go-tools"
// are one tag; the first-seen spelling is kept.
func (s *Store) ReplaceCollectionTags(ctx context.Context, collectionID int64, tagNames []string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM collection_tags WHERE collection_id = ?`, collectionID); err != nil {
		return fmt.Errorf("failed to clear collection tags: %w", err)
	}

	seen := make(map[string]bool)
	for _, name := range tagNames {
		slug := tags.Slugify(name)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO collection_tags (collection_id, tag_name) VALUES (?, ?)
		ON CONFLICT(collection_id, tag_name) DO NOTHING`, collectionID, name); err != nil {
			return fmt.Errorf("failed to insert collection tag %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit collection tags: %w", err)
	}
	return nil
}

// CollectionTags returns the tag names joined to a collection.
func (s *Store) CollectionTags(ctx context.Context, collectionID int64) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT tag_name FROM collection_tags WHERE collection_id = ? ORDER BY tag_name ASC`,
		collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection tags: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan tag name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collection tags: %w", err)
	}
	return names, nil
}

// UpsertRemoteCollection merges a collection fetched from the remote
// service into the local store. A row already holding the remote id is
// renamed/overwritten in place; otherwise the merge keys on the unique
// name. Either way the row comes out clean with last_synced_at stamped and
// the local created_at preserved.
func (s *Store) UpsertRemoteCollection(ctx context.Context, c *Collection, syncedAt time.Time) error {
	if c.RemoteID == 0 {
		return &ValidationError{Field: "remote_id", Message: "remote collection must carry a remote id"}
	}

	stamp := syncedAt.Format(time.RFC3339)

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var localID int64
	var oldName string
	err = tx.QueryRowContext(ctx,
		`SELECT id, name FROM collections WHERE remote_id = ?`, c.RemoteID).
		Scan(&localID, &oldName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to merge remote collection %q: %w", c.Name, err)
	}
	if err == nil {
		_, err = tx.ExecContext(ctx, `
		UPDATE collections SET name = ?, description = ?, visibility = ?,
			is_dirty = 0, updated_at = ?, last_synced_at = ?
		WHERE id = ?`,
			c.Name, c.Description, string(c.Visibility), stamp, stamp, localID)
		if err != nil {
			return fmt.Errorf("failed to merge remote collection %q: %w", c.Name, err)
		}

		// A remote rename must carry the member links along, same as a
		// local rename in UpdateCollection.
		if oldName != c.Name {
			if _, err := tx.ExecContext(ctx,
				`UPDATE links SET collection = ? WHERE collection = ?`,
				c.Name, oldName); err != nil {
				return fmt.Errorf("failed to repoint links at renamed collection: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit remote collection merge: %w", err)
		}
		c.ID = localID
		return nil
	}
	tx.Rollback()

	created := c.CreatedAt
	if created.IsZero() {
		created = syncedAt
	}
	_, err = s.conn.ExecContext(ctx, `
	INSERT INTO collections (remote_id, name, description, visibility,
		link_count, is_dirty, created_at, updated_at, last_synced_at)
	VALUES (?, ?, ?, ?, 0, 0, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		remote_id = excluded.remote_id,
		description = excluded.description,
		visibility = excluded.visibility,
		is_dirty = 0,
		updated_at = excluded.updated_at,
		last_synced_at = excluded.last_synced_at`,
		c.RemoteID, c.Name, c.Description, string(c.Visibility),
		created.Format(time.RFC3339), stamp, stamp)
	if err != nil {
		return fmt.Errorf("failed to merge remote collection %q: %w", c.Name, err)
	}

	existing, err := s.GetCollectionByName(ctx, c.Name)
	if err == nil {
		c.ID = existing.ID
	}
	return nil
}

// RecomputeLinkCounts refreshes every collection's cached link_count from
// actual membership. The cache is never authoritative by itself; call this
// after any mutation affecting membership.
func (s *Store) RecomputeLinkCounts(ctx context.Context) error {
	query := `
	UPDATE collections SET link_count = (
		SELECT COUNT(*) FROM links WHERE links.collection = collections.name
	)
	`
	if _, err := s.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to recompute link counts: %w", err)
	}
	return nil
}

// CountCollections returns the total number of collections.
func (s *Store) CountCollections(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM collections").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count collections: %w", err)
	}
	return count, nil
}

func scanCollection(row *sql.Row) (*Collection, error) {
	c, err := scanCollectionFields(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan collection: %w", err)
	}
	return c, nil
}

func scanCollectionFields(scan func(dest ...interface{}) error) (*Collection, error) {
	var c Collection
	var remoteID sql.NullInt64
	var visibility string
	var isDirty int
	var createdAt, updatedAt string
	var lastSyncedAt sql.NullString

	err := scan(
		&c.ID,
		&remoteID,
		&c.Name,
		&c.Description,
		&visibility,
		&c.LinkCount,
		&isDirty,
		&createdAt,
		&updatedAt,
		&lastSyncedAt,
	)
	if err != nil {
		return nil, err
	}

	c.RemoteID = remoteID.Int64
	c.Visibility = Visibility(visibility)
	c.IsDirty = isDirty != 0

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		c.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		c.UpdatedAt = t
	}
	c.LastSyncedAt = nullStringToTime(lastSyncedAt)

	return &c, nil
}
