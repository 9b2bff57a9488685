package sync

import "time"

// Stats summarizes one completed sync batch.
type Stats struct {
	CollectionsSynced int           `json:"collections_synced"`
	LinksSynced       int           `json:"links_synced"`
	LinksPulled       int           `json:"links_pulled"`
	Failed            int           `json:"failed"`
	Duration          time.Duration `json:"duration"`
}

// Notifier receives sync lifecycle events. The dashboard server implements
// it to stream progress to connected clients; the engine never blocks on it.
type Notifier interface {
	SyncStarted(kind string)
	ItemSynced(entityType string, id int64, name string)
	ItemFailed(entityType string, id int64, name string, err error)
	SyncCompleted(kind string, stats Stats)
}

// nopNotifier is used when no notifier is configured.
type nopNotifier struct{}

func (nopNotifier) SyncStarted(string)                        {}
func (nopNotifier) ItemSynced(string, int64, string)          {}
func (nopNotifier) ItemFailed(string, int64, string, error)   {}
func (nopNotifier) SyncCompleted(string, Stats)               {}
