package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// setupTestStore creates a temporary store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.InitSchema(context.Background()); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return st
}

func TestInitSchemaIdempotent(t *testing.T) {
	st := setupTestStore(t)
	if err := st.InitSchema(context.Background()); err != nil {
		t.Fatalf("second InitSchema failed: %v", err)
	}
}

func TestCreateLinkDefaults(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	id, err := st.CreateLink(ctx, &Link{URL: "https://example.com/a", Title: "A"})
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	got, err := st.GetLinkByID(ctx, id)
	if err != nil {
		t.Fatalf("GetLinkByID: %v", err)
	}
	if !got.IsDirty {
		t.Error("new link should be dirty")
	}
	if got.RemoteID != 0 {
		t.Errorf("new link remote id = %d, want 0", got.RemoteID)
	}
	if got.LastSyncedAt != nil {
		t.Errorf("new link last_synced_at = %v, want nil", got.LastSyncedAt)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps should be set on create")
	}
}

func TestCreateLinkDuplicateURL(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	if _, err := st.CreateLink(ctx, &Link{URL: "https://example.com/page"}); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	// Scheme case, www, and trailing slash variants collide on the same key.
	variants := []string{
		"HTTPS://example.com/page",
		"https://www.example.com/page",
		"https://example.com/page/",
	}
	for _, v := range variants {
		_, err := st.CreateLink(ctx, &Link{URL: v})
		if !errors.Is(err, ErrDuplicateURL) {
			t.Errorf("CreateLink(%q) err = %v, want ErrDuplicateURL", v, err)
		}
	}
}

func TestLinkValidation(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	var verr *ValidationError
	if _, err := st.CreateLink(ctx, &Link{URL: ""}); !errors.As(err, &verr) {
		t.Errorf("empty url err = %v, want ValidationError", err)
	}
	if _, err := st.CreateLink(ctx, &Link{URL: "not-a-url"}); !errors.As(err, &verr) {
		t.Errorf("schemeless url err = %v, want ValidationError", err)
	}
}

func TestMarkSyncedAndPendingSet(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	first, err := st.CreateLink(ctx, &Link{URL: "https://example.com/1"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := st.CreateLink(ctx, &Link{URL: "https://example.com/2"})
	if err != nil {
		t.Fatal(err)
	}

	pending, err := st.ListPendingLinks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}

	now := time.Now()
	if err := st.MarkLinkSynced(ctx, first, 9001, now); err != nil {
		t.Fatal(err)
	}

	pending, err = st.ListPendingLinks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != second {
		t.Fatalf("pending after sync = %v, want just link %d", pending, second)
	}

	got, err := st.GetLinkByID(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsDirty {
		t.Error("synced link should not be dirty")
	}
	if got.RemoteID != 9001 {
		t.Errorf("remote id = %d, want 9001", got.RemoteID)
	}
	if got.LastSyncedAt == nil {
		t.Error("last_synced_at should be stamped")
	}

	// Re-dirty puts it back in the pending set.
	if err := st.MarkLinkDirty(ctx, first); err != nil {
		t.Fatal(err)
	}
	pending, err = st.ListPendingLinks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending after re-dirty = %d, want 2", len(pending))
	}
}

func TestPendingOrderedByUpdatedAtDesc(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	a, _ := st.CreateLink(ctx, &Link{URL: "https://example.com/a"})
	b, _ := st.CreateLink(ctx, &Link{URL: "https://example.com/b"})

	// Force distinct updated_at stamps; RFC3339 has second granularity.
	past := time.Now().Add(-time.Hour).Format(time.RFC3339)
	if _, err := st.RawDB().Exec(`UPDATE links SET updated_at = ? WHERE id = ?`, past, a); err != nil {
		t.Fatal(err)
	}

	pending, err := st.ListPendingLinks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].ID != b || pending[1].ID != a {
		t.Fatalf("pending order = %v, want [%d %d]", pending, b, a)
	}
}

func TestUpsertRemoteLinkPreservesCreatedAt(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	syncedAt := time.Now().Add(-time.Hour).Truncate(time.Second)
	link := &Link{
		URL:      "https://example.com/article",
		Title:    "Original",
		RemoteID: 42,
	}
	if err := st.UpsertRemoteLink(ctx, link, syncedAt); err != nil {
		t.Fatal(err)
	}

	got, err := st.GetLinkByURL(ctx, "https://example.com/article")
	if err != nil {
		t.Fatal(err)
	}
	originalCreated := got.CreatedAt
	if got.IsDirty {
		t.Error("pulled link should be clean")
	}

	// Second merge of the same URL: fields overwritten, created_at untouched.
	later := time.Now().Truncate(time.Second)
	if err := st.UpsertRemoteLink(ctx, &Link{
		URL:      "https://example.com/article",
		Title:    "Updated remotely",
		Tags:     []string{"go", "sync"},
		RemoteID: 42,
	}, later); err != nil {
		t.Fatal(err)
	}

	got, err = st.GetLinkByURL(ctx, "https://example.com/article")
	if err != nil {
		t.Fatal(err)
	}
	if !got.CreatedAt.Equal(originalCreated) {
		t.Errorf("created_at changed across merges: %v -> %v", originalCreated, got.CreatedAt)
	}
	if got.Title != "Updated remotely" {
		t.Errorf("title = %q, want remote overwrite", got.Title)
	}
	if diff := cmp.Diff([]string{"go", "sync"}, got.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if got.LastSyncedAt == nil || !got.LastSyncedAt.Equal(later) {
		t.Errorf("last_synced_at = %v, want %v", got.LastSyncedAt, later)
	}
}

func TestUpsertRemoteLinkOverwritesDirtyRow(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	if _, err := st.CreateLink(ctx, &Link{URL: "https://example.com/x", Title: "Local edit"}); err != nil {
		t.Fatal(err)
	}

	now := time.Now().Truncate(time.Second)
	if err := st.UpsertRemoteLink(ctx, &Link{
		URL:      "https://example.com/x",
		Title:    "Remote wins",
		RemoteID: 7,
	}, now); err != nil {
		t.Fatal(err)
	}

	got, err := st.GetLinkByURL(ctx, "https://example.com/x")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Remote wins" || got.IsDirty || got.RemoteID != 7 {
		t.Errorf("merge result = %+v, want remote overwrite with clean row", got)
	}
}

func TestDeleteCollectionMoveToUncategorized(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	collID, err := st.CreateCollection(ctx, &Collection{Name: "Research", Visibility: VisibilityPrivate})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateLink(ctx, &Link{URL: "https://example.com/1", Collection: "Research"}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateLink(ctx, &Link{URL: "https://example.com/2", Collection: "Research"}); err != nil {
		t.Fatal(err)
	}

	if err := st.DeleteCollection(ctx, collID, DeleteModeMoveToUncategorized); err != nil {
		t.Fatal(err)
	}

	members, err := st.ListLinks(ctx, LinkFilter{Collection: "Research"})
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 0 {
		t.Errorf("links still reference deleted collection: %v", members)
	}

	orphans, err := st.ListLinks(ctx, LinkFilter{Uncategorized: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(orphans) != 2 {
		t.Errorf("uncategorized links = %d, want 2", len(orphans))
	}
	for _, l := range orphans {
		if !l.IsDirty {
			t.Errorf("reassigned link %d should be dirty", l.ID)
		}
	}
}

func TestDeleteCollectionCascade(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	collID, err := st.CreateCollection(ctx, &Collection{Name: "Temp", Visibility: VisibilityPrivate})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateLink(ctx, &Link{URL: "https://example.com/gone", Collection: "Temp"}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateLink(ctx, &Link{URL: "https://example.com/kept"}); err != nil {
		t.Fatal(err)
	}

	if err := st.DeleteCollection(ctx, collID, DeleteModeCascade); err != nil {
		t.Fatal(err)
	}

	total, err := st.CountLinks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Errorf("links after cascade = %d, want 1", total)
	}
	if _, err := st.GetCollectionByID(ctx, collID); !errors.Is(err, ErrNotFound) {
		t.Errorf("collection lookup err = %v, want ErrNotFound", err)
	}
}

func TestCollectionValidation(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	long := make([]byte, MaxCollectionNameLen+1)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name string
		c    Collection
	}{
		{"empty name", Collection{Name: "", Visibility: VisibilityPrivate}},
		{"name too long", Collection{Name: string(long), Visibility: VisibilityPrivate}},
		{"bad visibility", Collection{Name: "ok", Visibility: "secret"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verr *ValidationError
			if _, err := st.CreateCollection(ctx, &tt.c); !errors.As(err, &verr) {
				t.Errorf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestRecomputeLinkCounts(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	collID, err := st.CreateCollection(ctx, &Collection{Name: "Reading", Visibility: VisibilityPrivate})
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"} {
		if _, err := st.CreateLink(ctx, &Link{URL: u, Collection: "Reading"}); err != nil {
			t.Fatal(err)
		}
	}

	if err := st.RecomputeLinkCounts(ctx); err != nil {
		t.Fatal(err)
	}

	c, err := st.GetCollectionByID(ctx, collID)
	if err != nil {
		t.Fatal(err)
	}
	if c.LinkCount != 3 {
		t.Errorf("link_count = %d, want 3", c.LinkCount)
	}
}

func TestUpdateCollectionRenameRepointsLinks(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	collID, err := st.CreateCollection(ctx, &Collection{Name: "Old", Visibility: VisibilityPrivate})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateLink(ctx, &Link{URL: "https://example.com/m", Collection: "Old"}); err != nil {
		t.Fatal(err)
	}

	c, err := st.GetCollectionByID(ctx, collID)
	if err != nil {
		t.Fatal(err)
	}
	c.Name = "New"
	if err := st.UpdateCollection(ctx, c); err != nil {
		t.Fatal(err)
	}

	members, err := st.ListLinks(ctx, LinkFilter{Collection: "New"})
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 {
		t.Errorf("links under renamed collection = %d, want 1", len(members))
	}
}

func TestCollectionTagsJoin(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	collID, err := st.CreateCollection(ctx, &Collection{Name: "Tagged", Visibility: VisibilityPublic})
	if err != nil {
		t.Fatal(err)
	}
	if err := st.ReplaceCollectionTags(ctx, collID, []string{"go", "sqlite"}); err != nil {
		t.Fatal(err)
	}

	got, err := st.CollectionTags(ctx, collID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"go", "sqlite"}, got); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}

	// Replace drops stale rows.
	if err := st.ReplaceCollectionTags(ctx, collID, []string{"db"}); err != nil {
		t.Fatal(err)
	}
	got, err = st.CollectionTags(ctx, collID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"db"}, got); diff != "" {
		t.Errorf("tags after replace (-want +got):\n%s", diff)
	}
}

func TestListLinksFilters(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	if _, err := st.CreateLink(ctx, &Link{URL: "https://example.com/tagged", Tags: []string{"go", "db"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateLink(ctx, &Link{URL: "https://example.com/plain"}); err != nil {
		t.Fatal(err)
	}

	byTag, err := st.ListLinks(ctx, LinkFilter{Tag: "go"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byTag) != 1 || byTag[0].URL != "https://example.com/tagged" {
		t.Errorf("tag filter = %v, want just the tagged link", byTag)
	}

	// Tag filter must not match substrings of other tags.
	none, err := st.ListLinks(ctx, LinkFilter{Tag: "g"})
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("substring tag filter matched %d links, want 0", len(none))
	}

	// Offset works without an explicit limit.
	rest, err := st.ListLinks(ctx, LinkFilter{Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 1 {
		t.Errorf("offset without limit returned %d links, want 1", len(rest))
	}
}

func TestLastSyncedAt(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	got, err := st.LastSyncedAt(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("LastSyncedAt on empty store = %v, want nil", got)
	}

	id, err := st.CreateLink(ctx, &Link{URL: "https://example.com/synced"})
	if err != nil {
		t.Fatal(err)
	}
	syncedAt := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := st.MarkLinkSynced(ctx, id, 42, syncedAt); err != nil {
		t.Fatal(err)
	}

	got, err = st.LastSyncedAt(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || !got.Equal(syncedAt) {
		t.Errorf("LastSyncedAt = %v, want %v", got, syncedAt)
	}
}

func TestUpsertRemoteCollectionRenameRepointsLinks(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	col := &Collection{Name: "Old", Visibility: VisibilityPrivate}
	id, err := st.CreateCollection(ctx, col)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.MarkCollectionSynced(ctx, id, 7001, time.Now()); err != nil {
		t.Fatal(err)
	}

	// Local-only member, never pushed.
	linkID, err := st.CreateLink(ctx, &Link{URL: "https://example.com/member", Collection: "Old"})
	if err != nil {
		t.Fatal(err)
	}

	merged := &Collection{Name: "New", Visibility: VisibilityPrivate, RemoteID: 7001}
	if err := st.UpsertRemoteCollection(ctx, merged, time.Now()); err != nil {
		t.Fatal(err)
	}

	link, err := st.GetLinkByID(ctx, linkID)
	if err != nil {
		t.Fatal(err)
	}
	if link.Collection != "New" {
		t.Errorf("link collection = %q, want %q", link.Collection, "New")
	}
	if _, err := st.GetCollectionByName(ctx, link.Collection); err != nil {
		t.Errorf("link references collection %q: %v", link.Collection, err)
	}
	if _, err := st.GetCollectionByName(ctx, "Old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCollectionByName(Old) err = %v, want ErrNotFound", err)
	}

	// Same row, renamed in place.
	got, err := st.GetCollectionByRemoteID(ctx, 7001)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != id {
		t.Errorf("merged collection id = %d, want %d", got.ID, id)
	}
}

func TestReplaceCollectionTagsDedupesBySlug(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	col := &Collection{Name: "Tools", Visibility: VisibilityPrivate}
	id, err := st.CreateCollection(ctx, col)
	if err != nil {
		t.Fatal(err)
	}

	// "Go Tools" and "go-tools" share a slug; the first spelling wins.
	if err := st.ReplaceCollectionTags(ctx, id, []string{"Go Tools", "go-tools", "Testing", ""}); err != nil {
		t.Fatal(err)
	}

	got, err := st.CollectionTags(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Go Tools", "Testing"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("collection tags mismatch (-want +got):\n%s", diff)
	}
}
