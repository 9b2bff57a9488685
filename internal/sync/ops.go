package sync

import "github.com/linkhoard/linkhoard/internal/store"

// OpKind tags the variant of a SyncOperation.
type OpKind int

const (
	OpLinkCreate OpKind = iota
	OpLinkUpdate
	OpLinkDelete
	OpLinkMove
	OpCollectionCreate
	OpCollectionUpdate
	OpCollectionDelete
	OpBulk
	OpImport
)

// String returns the operation name for logs and events.
func (k OpKind) String() string {
	switch k {
	case OpLinkCreate:
		return "link_create"
	case OpLinkUpdate:
		return "link_update"
	case OpLinkDelete:
		return "link_delete"
	case OpLinkMove:
		return "link_move"
	case OpCollectionCreate:
		return "collection_create"
	case OpCollectionUpdate:
		return "collection_update"
	case OpCollectionDelete:
		return "collection_delete"
	case OpBulk:
		return "bulk"
	case OpImport:
		return "import"
	}
	return "unknown"
}

// SyncOperation describes one local mutation handed to the strategy
// selector after it has been committed to the store.
type SyncOperation struct {
	Kind OpKind

	// Link is set for single-link operations (already mutated locally).
	Link *store.Link
	// Collection is set for collection operations.
	Collection *store.Collection
	// RemoteID carries the remote id of a deleted entity, whose local row
	// is already gone.
	RemoteID int64
	// Links carries the members of a bulk or import operation.
	Links []*store.Link
}

// ResultType classifies the outcome of the strategy selector.
type ResultType string

const (
	// ResultImmediateSuccess: the synchronous remote call succeeded and the
	// entity is clean.
	ResultImmediateSuccess ResultType = "immediate_success"
	// ResultImmediatePartialFailure: some items of a batch operation synced,
	// the rest remain dirty.
	ResultImmediatePartialFailure ResultType = "immediate_partial_failure"
	// ResultImmediateFailure: the remote call failed; the local write stands
	// and the entity stays dirty for a later push.
	ResultImmediateFailure ResultType = "immediate_failure"
	// ResultManualQueued: immediate sync is disabled; the entity waits in
	// the pending set.
	ResultManualQueued ResultType = "manual_queued"
)

// SyncResult is the UI-facing outcome of one mutation. The three outcome
// families carry different user copy: synced now, saved locally but not
// synced, and queued for manual sync.
type SyncResult struct {
	Success       bool
	Type          ResultType
	Err           string
	FailedItemIDs []int64
}

func manualQueued() SyncResult {
	return SyncResult{Success: true, Type: ResultManualQueued}
}

func immediateSuccess() SyncResult {
	return SyncResult{Success: true, Type: ResultImmediateSuccess}
}

func immediateFailure(err error) SyncResult {
	return SyncResult{Success: false, Type: ResultImmediateFailure, Err: err.Error()}
}
