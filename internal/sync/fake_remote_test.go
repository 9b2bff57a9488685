package sync

import (
	"context"
	"fmt"
	"sync"

	"github.com/linkhoard/linkhoard/internal/remote"
)

// fakeRemote is an in-memory remote.Client with failure injection and call
// accounting, substituting the HTTP client in engine tests.
type fakeRemote struct {
	mu sync.Mutex

	collections map[int64]remote.Collection
	links       map[int64]remote.Link
	nextID      int64
	pro         bool

	// failLinks / failCollections reject specific items by URL / title.
	failLinks       map[string]error
	failCollections map[string]error
	// failAll rejects every call.
	failAll error
	// failPremium rejects the premium check itself.
	failPremium error

	calls []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		collections:     make(map[int64]remote.Collection),
		links:           make(map[int64]remote.Link),
		nextID:          100,
		pro:             true,
		failLinks:       make(map[string]error),
		failCollections: make(map[string]error),
	}
}

func (f *fakeRemote) record(call string) {
	f.calls = append(f.calls, call)
}

// writeCalls counts the remote write operations issued so far.
func (f *fakeRemote) writeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		switch c[:4] {
		case "crea", "upda", "dele":
			n++
		}
	}
	return n
}

func (f *fakeRemote) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeRemote) ListCollections(ctx context.Context) ([]remote.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list collections")
	if f.failAll != nil {
		return nil, f.failAll
	}
	var out []remote.Collection
	for _, c := range f.collections {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeRemote) CreateCollection(ctx context.Context, c remote.Collection) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create collection " + c.Title)
	if f.failAll != nil {
		return 0, f.failAll
	}
	if err := f.failCollections[c.Title]; err != nil {
		return 0, err
	}
	f.nextID++
	c.ID = f.nextID
	f.collections[c.ID] = c
	return c.ID, nil
}

func (f *fakeRemote) UpdateCollection(ctx context.Context, c remote.Collection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("update collection " + c.Title)
	if f.failAll != nil {
		return f.failAll
	}
	if err := f.failCollections[c.Title]; err != nil {
		return err
	}
	if _, ok := f.collections[c.ID]; !ok {
		return fmt.Errorf("collection %d not found", c.ID)
	}
	f.collections[c.ID] = c
	return nil
}

func (f *fakeRemote) DeleteCollection(ctx context.Context, remoteID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("delete collection %d", remoteID))
	if f.failAll != nil {
		return f.failAll
	}
	delete(f.collections, remoteID)
	return nil
}

func (f *fakeRemote) CollectionLinks(ctx context.Context, remoteID int64) ([]remote.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("list links %d", remoteID))
	if f.failAll != nil {
		return nil, f.failAll
	}
	if c, ok := f.collections[remoteID]; ok {
		if err := f.failCollections[c.Title]; err != nil {
			return nil, err
		}
	}
	var out []remote.Link
	for _, l := range f.links {
		if l.CollectionID == remoteID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeRemote) UncategorizedLinks(ctx context.Context) ([]remote.Link, error) {
	return f.CollectionLinks(ctx, remote.UncategorizedID)
}

func (f *fakeRemote) ListLinks(ctx context.Context, limit, offset int) ([]remote.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list links all")
	if f.failAll != nil {
		return nil, f.failAll
	}
	var out []remote.Link
	for _, l := range f.links {
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeRemote) CreateLink(ctx context.Context, l remote.Link) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create link " + l.URL)
	if f.failAll != nil {
		return 0, f.failAll
	}
	if err := f.failLinks[l.URL]; err != nil {
		return 0, err
	}
	f.nextID++
	l.ID = f.nextID
	f.links[l.ID] = l
	return l.ID, nil
}

func (f *fakeRemote) UpdateLink(ctx context.Context, l remote.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("update link " + l.URL)
	if f.failAll != nil {
		return f.failAll
	}
	if err := f.failLinks[l.URL]; err != nil {
		return err
	}
	if _, ok := f.links[l.ID]; !ok {
		return fmt.Errorf("link %d not found", l.ID)
	}
	f.links[l.ID] = l
	return nil
}

func (f *fakeRemote) DeleteLink(ctx context.Context, remoteID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("delete link %d", remoteID))
	if f.failAll != nil {
		return f.failAll
	}
	delete(f.links, remoteID)
	return nil
}

func (f *fakeRemote) CheckPremiumStatus(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("check premium")
	if f.failPremium != nil {
		return false, f.failPremium
	}
	return f.pro, nil
}
