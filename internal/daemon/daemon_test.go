package daemon

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/linkhoard/linkhoard/internal/remote"
	"github.com/linkhoard/linkhoard/internal/store"
	"github.com/linkhoard/linkhoard/internal/sync"
)

// stubClient satisfies remote.Client for the calls the daemon tests
// exercise. Anything else panics via the embedded nil interface.
type stubClient struct {
	remote.Client
	created []string
}

func (s *stubClient) CreateLink(ctx context.Context, l remote.Link) (int64, error) {
	s.created = append(s.created, l.URL)
	return int64(100 + len(s.created)), nil
}

func (s *stubClient) CheckPremiumStatus(ctx context.Context) (bool, error) {
	return true, nil
}

// setupTestEngine creates a manual-strategy engine over a temporary store.
func setupTestEngine(t *testing.T) (*sync.Engine, *stubClient) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.InitSchema(context.Background()); err != nil {
		t.Fatalf("Failed to initialize schema: %v", err)
	}

	client := &stubClient{}
	engine := sync.New(st, client, sync.Options{
		Logger: log.New(io.Discard, "", 0),
	})
	return engine, client
}

func quietConfig() *Config {
	return &Config{
		DebounceInterval: 10 * time.Millisecond,
		AutoPushInterval: 0,
		Logger:           log.New(io.Discard, "", 0),
	}
}

func TestNewWithConfig(t *testing.T) {
	engine, _ := setupTestEngine(t)
	dropDir := t.TempDir()

	tests := []struct {
		name    string
		engine  *sync.Engine
		dropDir string
		wantErr bool
	}{
		{
			name:    "valid configuration",
			engine:  engine,
			dropDir: dropDir,
			wantErr: false,
		},
		{
			name:    "nil engine",
			engine:  nil,
			dropDir: dropDir,
			wantErr: true,
		},
		{
			name:    "empty drop dir",
			engine:  engine,
			dropDir: "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewWithConfig(tt.engine, tt.dropDir, quietConfig())
			if (err != nil) != tt.wantErr {
				t.Errorf("NewWithConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if d != nil {
				defer d.Stop()
			}
		})
	}
}

func TestSweepDropDirIngestsAndMarksDone(t *testing.T) {
	engine, _ := setupTestEngine(t)
	dropDir := t.TempDir()

	content := `{"url": "https://example.com/a", "title": "A"}
{"url": "https://example.com/b", "tags": ["go"]}
`
	dropPath := filepath.Join(dropDir, "bookmarks.jsonl")
	if err := os.WriteFile(dropPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	d, err := NewWithConfig(engine, dropDir, quietConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer d.Stop()

	if err := d.SweepDropDir(); err != nil {
		t.Fatalf("SweepDropDir: %v", err)
	}

	ctx := context.Background()
	n, err := engine.Store().CountLinks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("imported %d links, want 2", n)
	}

	if _, err := os.Stat(dropPath); !os.IsNotExist(err) {
		t.Error("processed file should be renamed away")
	}
	if _, err := os.Stat(dropPath + ".done"); err != nil {
		t.Errorf("expected .done marker: %v", err)
	}
}

func TestSweepDropDirMarksMalformedFileErr(t *testing.T) {
	engine, _ := setupTestEngine(t)
	dropDir := t.TempDir()

	dropPath := filepath.Join(dropDir, "broken.json")
	if err := os.WriteFile(dropPath, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	d, err := NewWithConfig(engine, dropDir, quietConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer d.Stop()

	if err := d.SweepDropDir(); err != nil {
		t.Fatalf("SweepDropDir: %v", err)
	}

	if _, err := os.Stat(dropPath + ".err"); err != nil {
		t.Errorf("expected .err marker: %v", err)
	}
	n, err := engine.Store().CountLinks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("malformed file imported %d links", n)
	}
}

func TestSweepDropDirSkipsProcessedFiles(t *testing.T) {
	engine, _ := setupTestEngine(t)
	dropDir := t.TempDir()

	done := filepath.Join(dropDir, "earlier.jsonl.done")
	if err := os.WriteFile(done, []byte(`{"url": "https://example.com/a"}`), 0600); err != nil {
		t.Fatal(err)
	}

	d, err := NewWithConfig(engine, dropDir, quietConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer d.Stop()

	if err := d.SweepDropDir(); err != nil {
		t.Fatal(err)
	}

	n, err := engine.Store().CountLinks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("processed file was re-ingested: %d links", n)
	}
	if _, err := os.Stat(done); err != nil {
		t.Errorf("marker file should be untouched: %v", err)
	}
}

func TestWatcherIngestsDroppedFile(t *testing.T) {
	engine, _ := setupTestEngine(t)
	dropDir := t.TempDir()

	d, err := NewWithConfig(engine, dropDir, quietConfig())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan error, 1)
	go func() { started <- d.Start(ctx) }()
	defer func() {
		cancel()
		<-started
	}()

	// Give the watcher a moment to register.
	time.Sleep(50 * time.Millisecond)

	dropPath := filepath.Join(dropDir, "drop.json")
	if err := os.WriteFile(dropPath, []byte(`[{"url": "https://example.com/a"}]`), 0600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		n, err := engine.Store().CountLinks(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if n == 1 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("dropped file was not ingested before the deadline")
}

func TestPushPendingUploadsDirtyLinks(t *testing.T) {
	engine, client := setupTestEngine(t)
	dropDir := t.TempDir()
	ctx := context.Background()

	if _, _, err := engine.CreateLink(ctx, sync.LinkParams{URL: "https://example.com/a"}); err != nil {
		t.Fatal(err)
	}

	d, err := NewWithConfig(engine, dropDir, quietConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer d.Stop()

	d.pushPending()

	if len(client.created) != 1 || client.created[0] != "https://example.com/a" {
		t.Errorf("pushed = %v, want the pending link", client.created)
	}

	has, err := engine.HasUnsyncedChanges(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if has {
		t.Error("pending set should be empty after auto-push")
	}

	// Nothing pending now; a second cycle is a no-op.
	d.pushPending()
	if len(client.created) != 1 {
		t.Errorf("idle auto-push issued remote writes: %v", client.created)
	}
}
