package export

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/linkhoard/linkhoard/internal/store"
)

// Snapshot is a full human-readable dump of the local store.
type Snapshot struct {
	ExportedAt  time.Time            `yaml:"exported_at"`
	Collections []SnapshotCollection `yaml:"collections,omitempty"`
	Links       []SnapshotLink       `yaml:"links"`
}

// SnapshotCollection mirrors a collection row without sync bookkeeping.
type SnapshotCollection struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Visibility  string   `yaml:"visibility"`
	Tags        []string `yaml:"tags,omitempty"`
	LinkCount   int      `yaml:"link_count"`
}

// SnapshotLink mirrors a link row without sync bookkeeping.
type SnapshotLink struct {
	URL        string    `yaml:"url"`
	Title      string    `yaml:"title,omitempty"`
	Notes      string    `yaml:"notes,omitempty"`
	Tags       []string  `yaml:"tags,omitempty"`
	Collection string    `yaml:"collection,omitempty"`
	Private    bool      `yaml:"private,omitempty"`
	CreatedAt  time.Time `yaml:"created_at"`
}

// WriteSnapshot dumps the whole store as YAML at path.
func WriteSnapshot(ctx context.Context, st *store.Store, path string) (*Result, error) {
	snap, err := BuildSnapshot(ctx, st)
	if err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := writeAtomic(path, data); err != nil {
		return nil, err
	}
	return &Result{
		LinksWritten:       len(snap.Links),
		CollectionsWritten: len(snap.Collections),
		Path:               path,
	}, nil
}

// BuildSnapshot assembles the snapshot structure from the store.
func BuildSnapshot(ctx context.Context, st *store.Store) (*Snapshot, error) {
	collections, err := st.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	links, err := st.ListLinks(ctx, store.LinkFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	snap := &Snapshot{ExportedAt: time.Now().UTC()}
	for _, c := range collections {
		tags, err := st.CollectionTags(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read tags of %q: %w", c.Name, err)
		}
		snap.Collections = append(snap.Collections, SnapshotCollection{
			Name:        c.Name,
			Description: c.Description,
			Visibility:  string(c.Visibility),
			Tags:        tags,
			LinkCount:   c.LinkCount,
		})
	}
	for _, l := range links {
		snap.Links = append(snap.Links, SnapshotLink{
			URL:        l.URL,
			Title:      l.Title,
			Notes:      l.Notes,
			Tags:       l.Tags,
			Collection: l.Collection,
			Private:    l.IsPrivate,
			CreatedAt:  l.CreatedAt,
		})
	}
	return snap, nil
}

// ReadSnapshot loads a YAML snapshot from path.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path) // #nosec G304 - controlled path from CLI
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot file: %w", err)
	}
	return &snap, nil
}
