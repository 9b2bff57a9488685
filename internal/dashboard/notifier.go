package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/linkhoard/linkhoard/internal/store"
	syncpkg "github.com/linkhoard/linkhoard/internal/sync"
)

// Notifier bridges sync engine events to the WebSocket server. It satisfies
// the engine's Notifier interface, so wiring it in is one Options field.
type Notifier struct {
	server *Server
	st     *store.Store
	logger *log.Logger
}

// NewNotifier creates a notifier broadcasting through server. The store is
// consulted for statistics after each completed run; it may be nil, which
// disables the stats messages.
func NewNotifier(server *Server, st *store.Store, logger *log.Logger) *Notifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Notifier{server: server, st: st, logger: logger}
}

// SyncStarted broadcasts the start of a push or pull.
func (n *Notifier) SyncStarted(kind string) {
	n.send(MessageTypeSyncStarted, SyncEventData{Kind: kind})
}

// ItemSynced broadcasts one successfully synced item.
func (n *Notifier) ItemSynced(entity string, id int64, name string) {
	n.send(MessageTypeItemSynced, ItemEventData{Entity: entity, ID: id, Name: name})
}

// ItemFailed broadcasts one failed item.
func (n *Notifier) ItemFailed(entity string, id int64, name string, err error) {
	n.send(MessageTypeItemFailed, ItemEventData{Entity: entity, ID: id, Name: name, Error: err.Error()})
}

// SyncCompleted broadcasts the outcome of a push or pull, followed by
// refreshed store statistics.
func (n *Notifier) SyncCompleted(kind string, stats syncpkg.Stats) {
	n.send(MessageTypeSyncComplete, SyncEventData{
		Kind:              kind,
		CollectionsSynced: stats.CollectionsSynced,
		LinksSynced:       stats.LinksSynced,
		LinksPulled:       stats.LinksPulled,
		Failed:            stats.Failed,
		DurationMillis:    stats.Duration.Milliseconds(),
	})
	n.broadcastStats()
}

// broadcastStats sends current store statistics to all clients.
func (n *Notifier) broadcastStats() {
	if n.st == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	totalLinks, err := n.st.CountLinks(ctx)
	if err != nil {
		n.logger.Printf("Failed to count links: %v", err)
		return
	}
	totalCollections, err := n.st.CountCollections(ctx)
	if err != nil {
		n.logger.Printf("Failed to count collections: %v", err)
		return
	}
	pendingCollections, pendingLinks, err := n.st.PendingCounts(ctx)
	if err != nil {
		n.logger.Printf("Failed to count pending items: %v", err)
		return
	}

	n.send(MessageTypeStats, StatsData{
		TotalLinks:         totalLinks,
		TotalCollections:   totalCollections,
		PendingLinks:       pendingLinks,
		PendingCollections: pendingCollections,
	})
}

func (n *Notifier) send(typ MessageType, data interface{}) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		n.logger.Printf("Failed to marshal %s message: %v", typ, err)
		return
	}
	n.server.Broadcast(Message{
		Type:      typ,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}
