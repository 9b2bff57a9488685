// Package export serializes the local store for backup and interchange.
//
// Two formats are supported: JSONL (one link per line, the interchange
// format consumed by the import command and the drop-directory daemon) and
// a YAML snapshot of the whole store for human-readable backups.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/linkhoard/linkhoard/internal/store"
	"github.com/linkhoard/linkhoard/internal/sync"
)

// Result contains statistics about one export run.
type Result struct {
	LinksWritten       int
	CollectionsWritten int
	Path               string
}

// WriteJSONL exports every link as one JSON object per line.
//
// The written objects round-trip through ReadCandidates, so a JSONL export
// from one machine can be imported on another.
func WriteJSONL(ctx context.Context, st *store.Store, path string) (*Result, error) {
	links, err := st.ListLinks(ctx, store.LinkFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	var buf []byte
	for _, l := range links {
		line, err := json.Marshal(sync.Candidate{
			URL:        l.URL,
			Title:      l.Title,
			Notes:      l.Notes,
			Tags:       l.Tags,
			Collection: l.Collection,
			Private:    l.IsPrivate,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal link %q: %w", l.URL, err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}

	if err := writeAtomic(path, buf); err != nil {
		return nil, err
	}
	return &Result{LinksWritten: len(links), Path: path}, nil
}

// ReadCandidates parses a JSONL stream of candidate links. Works on both
// exported files and hand-written drop files; a top-level JSON array is
// accepted as well since browser exporters commonly produce one.
func ReadCandidates(r io.Reader) ([]sync.Candidate, error) {
	decoder := json.NewDecoder(r)

	var candidates []sync.Candidate
	record := 0
	for {
		var cand sync.Candidate
		if err := decoder.Decode(&cand); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("invalid JSON at record %d: %w", record+1, err)
		}
		record++
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// ReadCandidatesFile loads candidates from a JSONL file or a JSON array
// file.
func ReadCandidatesFile(path string) ([]sync.Candidate, error) {
	data, err := os.ReadFile(path) // #nosec G304 - controlled path from CLI
	if err != nil {
		return nil, fmt.Errorf("failed to open candidates file: %w", err)
	}

	trimmed := firstNonSpace(data)
	if trimmed == '[' {
		var candidates []sync.Candidate
		if err := json.Unmarshal(data, &candidates); err != nil {
			return nil, fmt.Errorf("invalid JSON array in %s: %w", filepath.Base(path), err)
		}
		return candidates, nil
	}

	candidates, err := ReadCandidates(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return candidates, nil
}

func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}

// writeAtomic writes via a temp file and rename so a crash mid-export never
// leaves a truncated file at the destination.
func writeAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
