package sync

import (
	"context"
)

// dispatch is the strategy selector: given a committed local mutation, it
// either attempts the matching remote call synchronously (immediate sync)
// or leaves the entity in the pending set (manual sync).
//
// The local mutation has already happened by the time dispatch runs; a
// remote failure here degrades to manual semantics and never rolls the
// local write back.
func (e *Engine) dispatch(ctx context.Context, op SyncOperation) SyncResult {
	if !e.immediateSync() {
		return manualQueued()
	}

	if err := e.begin(); err != nil {
		// Another sync holds the store; the entity stays dirty and the next
		// push picks it up.
		return immediateFailure(err)
	}
	defer e.end()

	switch op.Kind {
	case OpLinkCreate, OpLinkUpdate, OpLinkMove:
		if _, err := e.pushLink(ctx, op.Link); err != nil {
			e.logger.Printf("immediate %s failed for %q: %v", op.Kind, op.Link.URL, err)
			return immediateFailure(err)
		}
		return immediateSuccess()

	case OpLinkDelete:
		if op.RemoteID == 0 {
			// Never pushed; nothing to remove remotely.
			return immediateSuccess()
		}
		if err := e.client.DeleteLink(ctx, op.RemoteID); err != nil {
			e.logger.Printf("immediate link delete failed for remote %d: %v", op.RemoteID, err)
			return immediateFailure(err)
		}
		return immediateSuccess()

	case OpCollectionCreate, OpCollectionUpdate:
		if _, err := e.pushCollection(ctx, op.Collection); err != nil {
			e.logger.Printf("immediate %s failed for %q: %v", op.Kind, op.Collection.Name, err)
			return immediateFailure(err)
		}
		return immediateSuccess()

	case OpCollectionDelete:
		if op.RemoteID == 0 {
			return immediateSuccess()
		}
		if err := e.client.DeleteCollection(ctx, op.RemoteID); err != nil {
			e.logger.Printf("immediate collection delete failed for remote %d: %v", op.RemoteID, err)
			return immediateFailure(err)
		}
		return immediateSuccess()

	case OpBulk, OpImport:
		return e.dispatchBatch(ctx, op)
	}

	return immediateFailure(errUnknownOperation(op.Kind))
}

// dispatchBatch pushes every member of a bulk or import operation,
// continuing past per-item failures. Failed items keep their dirty flag.
func (e *Engine) dispatchBatch(ctx context.Context, op SyncOperation) SyncResult {
	var failed []int64
	var firstErr string

	for _, l := range op.Links {
		if _, err := e.pushLink(ctx, l); err != nil {
			e.logger.Printf("immediate %s: item %q failed: %v", op.Kind, l.URL, err)
			failed = append(failed, l.ID)
			if firstErr == "" {
				firstErr = err.Error()
			}
		}
	}

	switch {
	case len(failed) == 0:
		return immediateSuccess()
	case len(failed) == len(op.Links):
		return SyncResult{
			Success:       false,
			Type:          ResultImmediateFailure,
			Err:           firstErr,
			FailedItemIDs: failed,
		}
	default:
		return SyncResult{
			Success:       false,
			Type:          ResultImmediatePartialFailure,
			Err:           firstErr,
			FailedItemIDs: failed,
		}
	}
}

type errUnknownOperation OpKind

func (e errUnknownOperation) Error() string {
	return "unknown sync operation " + OpKind(e).String()
}
