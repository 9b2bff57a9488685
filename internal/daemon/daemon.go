// Package daemon provides the background worker that ingests dropped
// bookmark files and periodically pushes pending changes.
//
// The daemon:
// 1. Watches a drop directory for candidate files (*.json, *.jsonl)
// 2. Imports each dropped file through the sync engine, renaming it on completion
// 3. Periodically uploads the pending set when auto-push is enabled
// 4. Handles graceful shutdown
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	stdsync "sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/linkhoard/linkhoard/internal/export"
	"github.com/linkhoard/linkhoard/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// DebounceInterval is how long a dropped file must sit unchanged before
	// it is ingested. Batches editors that write in several chunks.
	DebounceInterval time.Duration

	// AutoPushInterval is how often to upload the pending set. Zero
	// disables auto-push.
	AutoPushInterval time.Duration

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 500 * time.Millisecond,
		AutoPushInterval: 5 * time.Minute,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon watches the drop directory and drives background sync.
type Daemon struct {
	engine  *sync.Engine
	dropDir string
	config  *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time // filepath -> last event time
	changeQueueMu stdsync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     stdsync.WaitGroup
}

// New creates a daemon over the given engine and drop directory.
//
// Use Start() to begin watching.
func New(engine *sync.Engine, dropDir string) (*Daemon, error) {
	return NewWithConfig(engine, dropDir, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(engine *sync.Engine, dropDir string, config *Config) (*Daemon, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if dropDir == "" {
		return nil, fmt.Errorf("dropDir cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		engine:      engine,
		dropDir:     dropDir,
		config:      config,
		watcher:     watcher,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon will:
// 1. Ingest any candidate files already sitting in the drop directory
// 2. Start watching for new drops
// 3. Periodically push the pending set (when enabled)
//
// This blocks until ctx is cancelled or an error occurs.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if err := os.MkdirAll(d.dropDir, 0755); err != nil {
		return fmt.Errorf("failed to create drop directory: %w", err)
	}

	// Sweep files dropped while the daemon was down.
	if err := d.SweepDropDir(); err != nil {
		return fmt.Errorf("initial sweep failed: %w", err)
	}

	if err := d.watcher.Add(d.dropDir); err != nil {
		return fmt.Errorf("failed to watch drop directory: %w", err)
	}
	d.config.Logger.Printf("Watching: %s", d.dropDir)

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.processChangeQueue()

	if d.config.AutoPushInterval > 0 {
		d.wg.Add(1)
		go d.autoPush()
	}

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()

	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}

	d.wg.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// SweepDropDir ingests every candidate file currently in the drop
// directory. Called on startup and usable for a manual re-scan.
func (d *Daemon) SweepDropDir() error {
	entries, err := os.ReadDir(d.dropDir)
	if err != nil {
		return fmt.Errorf("failed to read drop directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isCandidateFile(entry.Name()) {
			continue
		}
		path := filepath.Join(d.dropDir, entry.Name())
		if err := d.ingestFile(path); err != nil {
			d.config.Logger.Printf("Warning: failed to ingest %s: %v", entry.Name(), err)
		}
	}
	return nil
}

// watchFileEvents monitors filesystem events and queues drops.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			// Only care about Create and Write
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isCandidateFile(event.Name) {
				continue
			}

			d.config.Logger.Printf("File event: %s %s", event.Op, event.Name)
			d.queueChange(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange adds a file to the change queue with debouncing.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[path] = time.Now()
}

// processChangeQueue ingests queued files once they have settled.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

// processPendingChanges ingests files that have been quiet long enough.
func (d *Daemon) processPendingChanges() {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	now := time.Now()
	for path, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			continue
		}
		delete(d.changeQueue, path)

		if _, err := os.Stat(path); os.IsNotExist(err) {
			// Removed before we got to it.
			continue
		}

		d.config.Logger.Printf("Processing drop: %s", path)
		if err := d.ingestFile(path); err != nil {
			d.config.Logger.Printf("Error ingesting %s: %v", path, err)
		}
	}
}

// ingestFile reads one dropped candidate file, imports it through the
// engine, and renames the file to record the outcome (.done or .err). The
// rename also stops the watcher from re-queueing it.
func (d *Daemon) ingestFile(path string) error {
	candidates, err := export.ReadCandidatesFile(path)
	if err != nil {
		d.markFile(path, ".err")
		return err
	}
	if len(candidates) == 0 {
		d.markFile(path, ".done")
		return nil
	}

	report, res, err := d.engine.ImportCandidates(d.ctx, candidates)
	if err != nil {
		d.markFile(path, ".err")
		return err
	}

	d.config.Logger.Printf("Ingested %s: imported=%d skipped=%d errors=%d result=%s",
		filepath.Base(path), report.Imported, report.Skipped, len(report.Errors), res.Type)
	d.markFile(path, ".done")
	return nil
}

// markFile renames a processed drop file with the given suffix.
func (d *Daemon) markFile(path, suffix string) {
	if err := os.Rename(path, path+suffix); err != nil {
		d.config.Logger.Printf("Warning: failed to rename %s: %v", path, err)
	}
}

// autoPush periodically uploads the pending set.
func (d *Daemon) autoPush() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.AutoPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.pushPending()
		}
	}
}

// pushPending uploads pending changes, skipping quietly when nothing is
// pending or another sync holds the store.
func (d *Daemon) pushPending() {
	has, err := d.engine.HasUnsyncedChanges(d.ctx)
	if err != nil {
		d.config.Logger.Printf("Error checking pending set: %v", err)
		return
	}
	if !has {
		return
	}

	res, err := d.engine.SyncUp(d.ctx)
	if err != nil {
		if errors.Is(err, sync.ErrSyncInProgress) {
			return
		}
		d.config.Logger.Printf("Auto-push failed: %v", err)
		return
	}
	d.config.Logger.Printf("Auto-push: collections=%d links=%d failed=%d",
		res.CollectionsSynced, res.LinksSynced, len(res.Errors))
}

// isCandidateFile reports whether a drop-directory entry should be
// ingested. Processed files carry a .done or .err suffix and are skipped.
func isCandidateFile(name string) bool {
	switch filepath.Ext(name) {
	case ".json", ".jsonl":
		return true
	}
	return false
}
