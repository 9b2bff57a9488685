package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/linkhoard/linkhoard/internal/tags"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicateURL is returned when creating a link whose normalized URL
// already exists.
var ErrDuplicateURL = errors.New("url already bookmarked")

const linkColumns = `id, url, url_key, title, notes, tags, collection,
       is_private, is_dirty, remote_id, created_at, updated_at, last_synced_at`

// CreateLink inserts a new local link with dirty=1 and no remote id.
// Returns ErrDuplicateURL if a link with the same normalized URL exists.
func (s *Store) CreateLink(ctx context.Context, link *Link) (int64, error) {
	if err := link.Validate(); err != nil {
		return 0, err
	}

	key, err := URLKey(link.URL)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	link.UpdatedAt = now
	link.IsDirty = true

	query := `
	INSERT INTO links (url, url_key, title, notes, tags, collection,
		is_private, is_dirty, remote_id, created_at, updated_at, last_synced_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, NULL)
	`
	res, err := s.conn.ExecContext(ctx, query,
		link.URL,
		key,
		link.Title,
		link.Notes,
		tags.Join(link.Tags),
		stringToNull(link.Collection),
		boolToInt(link.IsPrivate),
		int64ToNull(link.RemoteID),
		link.CreatedAt.Format(time.RFC3339),
		link.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateURL
		}
		return 0, fmt.Errorf("failed to create link: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read link id: %w", err)
	}
	link.ID = id
	return id, nil
}

// UpdateLink rewrites the mutable fields of an existing link and bumps
// updated_at. It does not touch sync bookkeeping; callers mark the link
// dirty separately.
func (s *Store) UpdateLink(ctx context.Context, link *Link) error {
	if err := link.Validate(); err != nil {
		return err
	}
	key, err := URLKey(link.URL)
	if err != nil {
		return err
	}

	link.UpdatedAt = time.Now()

	query := `
	UPDATE links SET url = ?, url_key = ?, title = ?, notes = ?, tags = ?,
		collection = ?, is_private = ?, updated_at = ?
	WHERE id = ?
	`
	res, err := s.conn.ExecContext(ctx, query,
		link.URL,
		key,
		link.Title,
		link.Notes,
		tags.Join(link.Tags),
		stringToNull(link.Collection),
		boolToInt(link.IsPrivate),
		link.UpdatedAt.Format(time.RFC3339),
		link.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateURL
		}
		return fmt.Errorf("failed to update link %d: %w", link.ID, err)
	}
	return requireRow(res, "link", link.ID)
}

// DeleteLink removes a link row entirely. Remote-confirmed deletions clear
// the row rather than tombstoning it. Idempotent.
func (s *Store) DeleteLink(ctx context.Context, id int64) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete link %d: %w", id, err)
	}
	return nil
}

// GetLinkByID retrieves a single link. Returns ErrNotFound if absent.
func (s *Store) GetLinkByID(ctx context.Context, id int64) (*Link, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE id = ?`, id)
	return scanLink(row)
}

// GetLinkByURL retrieves a link by its normalized URL key.
// Returns ErrNotFound if absent.
func (s *Store) GetLinkByURL(ctx context.Context, rawURL string) (*Link, error) {
	key, err := URLKey(rawURL)
	if err != nil {
		return nil, err
	}
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE url_key = ?`, key)
	return scanLink(row)
}

// LinkFilter configures ListLinks.
type LinkFilter struct {
	// Collection filters to members of a named collection.
	Collection string
	// Uncategorized filters to links with no collection.
	Uncategorized bool
	// Tag filters to links carrying the tag.
	Tag string
	// DirtyOnly restricts to locally-modified links.
	DirtyOnly bool
	// Since restricts to links updated at or after this time.
	Since time.Time
	// Limit restricts the number of results (0 = no limit).
	Limit int
	// Offset skips the first N results.
	Offset int
}

// ListLinks retrieves links matching the filter, newest-updated first.
func (s *Store) ListLinks(ctx context.Context, filter LinkFilter) ([]*Link, error) {
	var conditions []string
	var args []interface{}

	if filter.Collection != "" {
		conditions = append(conditions, "collection = ?")
		args = append(args, filter.Collection)
	} else if filter.Uncategorized {
		conditions = append(conditions, "collection IS NULL")
	}

	if filter.Tag != "" {
		conditions = append(conditions, "(',' || tags || ',') LIKE ?")
		args = append(args, "%,"+filter.Tag+",%")
	}

	if filter.DirtyOnly {
		conditions = append(conditions, "is_dirty = 1")
	}

	if !filter.Since.IsZero() {
		conditions = append(conditions, "updated_at >= ?")
		args = append(args, filter.Since.Format(time.RFC3339))
	}

	query := `SELECT ` + linkColumns + ` FROM links`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY updated_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite only accepts OFFSET after a LIMIT clause; -1 is unlimited.
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	return scanLinks(rows)
}

// UpsertRemoteLink merges a link fetched from the remote service into the
// local store, keyed by normalized URL.
//
// On match, the remote record overwrites title, notes, tags, collection,
// privacy, and remote id while created_at is preserved; the row comes out
// clean with last_synced_at stamped. On no match, a new clean row is
// inserted with the remote id populated.
func (s *Store) UpsertRemoteLink(ctx context.Context, link *Link, syncedAt time.Time) error {
	key, err := URLKey(link.URL)
	if err != nil {
		return err
	}

	if link.CreatedAt.IsZero() {
		link.CreatedAt = syncedAt
	}

	query := `
	INSERT INTO links (url, url_key, title, notes, tags, collection,
		is_private, is_dirty, remote_id, created_at, updated_at, last_synced_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?)
	ON CONFLICT(url_key) DO UPDATE SET
		title = excluded.title,
		notes = excluded.notes,
		tags = excluded.tags,
		collection = excluded.collection,
		is_private = excluded.is_private,
		remote_id = excluded.remote_id,
		is_dirty = 0,
		updated_at = excluded.updated_at,
		last_synced_at = excluded.last_synced_at
	`
	_, err = s.conn.ExecContext(ctx, query,
		link.URL,
		key,
		link.Title,
		link.Notes,
		tags.Join(link.Tags),
		stringToNull(link.Collection),
		boolToInt(link.IsPrivate),
		int64ToNull(link.RemoteID),
		link.CreatedAt.Format(time.RFC3339),
		syncedAt.Format(time.RFC3339),
		syncedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert remote link %q: %w", link.URL, err)
	}
	return nil
}

// CountLinks returns the total number of links.
func (s *Store) CountLinks(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM links").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return count, nil
}

// scanLink scans a single link row. Maps sql.ErrNoRows to ErrNotFound.
func scanLink(row *sql.Row) (*Link, error) {
	link, err := scanLinkFields(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan link: %w", err)
	}
	return link, nil
}

// scanLinks scans all rows from a links query.
func scanLinks(rows *sql.Rows) ([]*Link, error) {
	var links []*Link
	for rows.Next() {
		link, err := scanLinkFields(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}
	return links, nil
}

func scanLinkFields(scan func(dest ...interface{}) error) (*Link, error) {
	var link Link
	var urlKey, tagsCSV string
	var collection sql.NullString
	var isPrivate, isDirty int
	var remoteID sql.NullInt64
	var createdAt, updatedAt string
	var lastSyncedAt sql.NullString

	err := scan(
		&link.ID,
		&link.URL,
		&urlKey,
		&link.Title,
		&link.Notes,
		&tagsCSV,
		&collection,
		&isPrivate,
		&isDirty,
		&remoteID,
		&createdAt,
		&updatedAt,
		&lastSyncedAt,
	)
	if err != nil {
		return nil, err
	}

	link.Tags = tags.Split(tagsCSV)
	link.Collection = collection.String
	link.IsPrivate = isPrivate != 0
	link.IsDirty = isDirty != 0
	link.RemoteID = remoteID.Int64

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		link.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		link.UpdatedAt = t
	}
	link.LastSyncedAt = nullStringToTime(lastSyncedAt)

	return &link, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// requireRow converts a zero-row update into ErrNotFound.
func requireRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return nil
}
