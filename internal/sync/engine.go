package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/linkhoard/linkhoard/internal/remote"
	"github.com/linkhoard/linkhoard/internal/store"
)

// ErrSyncInProgress is returned when a push, pull, or immediate-strategy
// remote call is attempted while another sync operation is running.
var ErrSyncInProgress = errors.New("another sync operation is in progress")

// Options configures an Engine.
type Options struct {
	// ImmediateSync reports the persisted strategy preference. It is read
	// per mutation so a settings change takes effect without restarting.
	// Nil means manual sync.
	ImmediateSync func() bool

	// RateStatus is the pre-flight rate-limit gate, normally wired to the
	// HTTP client's limiter. Nil means always allowed.
	RateStatus func() (bool, string)

	// Logger for engine activity. Nil means a default stderr logger.
	Logger *log.Logger

	// Notifier for sync lifecycle events. Nil means no notifications.
	Notifier Notifier
}

// Engine owns the sync state machine between the local store and the
// remote service.
type Engine struct {
	store    *store.Store
	client   remote.Client
	opts     Options
	logger   *log.Logger
	notifier Notifier

	// Serializes sync operations against the shared store. The store has no
	// row-level locking; correctness depends on this single-writer guard.
	inProgress atomic.Bool

	premiumMu    sync.Mutex
	premiumKnown bool
	premium      bool
}

// New creates an engine over the given store and remote client.
//
// Example:
//
//	engine := sync.New(st, client, sync.Options{
//	    ImmediateSync: func() bool { return cfg.ImmediateSync },
//	    RateStatus:    client.Limiter().Status,
//	})
func New(st *store.Store, client remote.Client, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Engine{
		store:    st,
		client:   client,
		opts:     opts,
		logger:   logger,
		notifier: notifier,
	}
}

// Store returns the engine's local store.
func (e *Engine) Store() *store.Store {
	return e.store
}

func (e *Engine) immediateSync() bool {
	return e.opts.ImmediateSync != nil && e.opts.ImmediateSync()
}

func (e *Engine) rateStatus() (bool, string) {
	if e.opts.RateStatus == nil {
		return true, ""
	}
	return e.opts.RateStatus()
}

// begin acquires the in-progress guard.
func (e *Engine) begin() error {
	if !e.inProgress.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	return nil
}

func (e *Engine) end() {
	e.inProgress.Store(false)
}

// requireCollectionManagement short-circuits collection entry points when
// the account lacks the premium plan, before any local mutation.
//
// The premium flag is checked once per process and cached. If the check
// itself fails (network trouble), the mutation is allowed: the local-first
// invariant wins over an unverifiable gate, and the remote side will reject
// the eventual push on its own.
func (e *Engine) requireCollectionManagement(ctx context.Context) error {
	e.premiumMu.Lock()
	defer e.premiumMu.Unlock()

	if !e.premiumKnown {
		pro, err := e.client.CheckPremiumStatus(ctx)
		if err != nil {
			e.logger.Printf("premium check failed, allowing collection op: %v", err)
			return nil
		}
		e.premiumKnown = true
		e.premium = pro
	}

	if !e.premium {
		return &remote.AuthorizationError{PremiumRequired: true}
	}
	return nil
}

// ensureCollectionRemoteID resolves a collection name to its remote id,
// pushing the collection first if it has never been synced. An empty name
// maps to the remote uncategorized bucket.
func (e *Engine) ensureCollectionRemoteID(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return remote.UncategorizedID, nil
	}

	c, err := e.store.GetCollectionByName(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve collection %q: %w", name, err)
	}
	if c.RemoteID != 0 {
		return c.RemoteID, nil
	}

	// Collection-before-link ordering: the remote side needs the collection
	// to exist before a link can reference it.
	remoteID, err := e.pushCollection(ctx, c)
	if err != nil {
		return 0, err
	}
	return remoteID, nil
}

// pushCollection uploads one collection (create or update by remote id
// presence) and marks it synced. Returns the remote id.
func (e *Engine) pushCollection(ctx context.Context, c *store.Collection) (int64, error) {
	payload := collectionPayload(c)

	tagNames, err := e.store.CollectionTags(ctx, c.ID)
	if err != nil {
		return 0, err
	}
	payload.Tags = rawTags(tagNames)

	remoteID := c.RemoteID
	if remoteID == 0 {
		remoteID, err = e.client.CreateCollection(ctx, payload)
	} else {
		err = e.client.UpdateCollection(ctx, payload)
	}
	if err != nil {
		return 0, err
	}

	if err := e.store.MarkCollectionSynced(ctx, c.ID, remoteID, nowFunc()); err != nil {
		return 0, err
	}
	return remoteID, nil
}

// pushLink uploads one link (create or update by remote id presence) and
// marks it synced. Returns the remote id.
func (e *Engine) pushLink(ctx context.Context, l *store.Link) (int64, error) {
	collectionID, err := e.ensureCollectionRemoteID(ctx, l.Collection)
	if err != nil {
		return 0, err
	}

	payload := remote.Link{
		ID:           l.RemoteID,
		URL:          l.URL,
		Title:        l.Title,
		Excerpt:      l.Notes,
		CollectionID: collectionID,
		Private:      l.IsPrivate,
		Tags:         rawTags(l.Tags),
	}

	remoteID := l.RemoteID
	if remoteID == 0 {
		remoteID, err = e.client.CreateLink(ctx, payload)
	} else {
		err = e.client.UpdateLink(ctx, payload)
	}
	if err != nil {
		return 0, err
	}

	if err := e.store.MarkLinkSynced(ctx, l.ID, remoteID, nowFunc()); err != nil {
		return 0, err
	}
	return remoteID, nil
}

// collectionPayload maps a local collection to the remote wire shape.
func collectionPayload(c *store.Collection) remote.Collection {
	return remote.Collection{
		ID:          c.RemoteID,
		Title:       c.Name,
		Description: c.Description,
		Public:      c.Visibility == store.VisibilityPublic,
		Hidden:      c.Visibility == store.VisibilityHidden,
	}
}

// visibilityFromRemote maps the remote public/hidden flags back to the
// local enum.
func visibilityFromRemote(c remote.Collection) store.Visibility {
	switch {
	case c.Hidden:
		return store.VisibilityHidden
	case c.Public:
		return store.VisibilityPublic
	}
	return store.VisibilityPrivate
}
