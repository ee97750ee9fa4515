package resolve

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/perch-panel/perch/internal/store"
)

// fakeServerStore resolves from a fixed slice, mimicking the lookup
// semantics of the real store.
type fakeServerStore struct {
	servers  []store.Server
	failWith error
}

func (f *fakeServerStore) ServerByUUID(_ context.Context, uuid string) (store.Server, bool, error) {
	if f.failWith != nil {
		return store.Server{}, false, f.failWith
	}
	for _, s := range f.servers {
		if s.UUID == uuid {
			return s, true, nil
		}
	}
	return store.Server{}, false, nil
}

func (f *fakeServerStore) ServerByUUIDShort(_ context.Context, short string) (store.Server, bool, error) {
	if f.failWith != nil {
		return store.Server{}, false, f.failWith
	}
	for _, s := range f.servers {
		if s.UUIDShort == short {
			return s, true, nil
		}
	}
	return store.Server{}, false, nil
}

func (f *fakeServerStore) SearchServers(_ context.Context, query string, limit int, ownerID int64) ([]store.Server, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []store.Server
	for _, s := range f.servers {
		if s.OwnerID == ownerID && strings.Contains(strings.ToLower(s.Name), strings.ToLower(query)) {
			out = append(out, s)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

var testServers = []store.Server{
	{ID: 1, UUID: "aaaaaaaa-1111-2222-3333-444444444444", UUIDShort: "aaaaaaaa", Name: "Survival World", OwnerID: 10},
	{ID: 2, UUID: "bbbbbbbb-1111-2222-3333-444444444444", UUIDShort: "bbbbbbbb", Name: "Creative Build", OwnerID: 10},
	{ID: 3, UUID: "cccccccc-1111-2222-3333-444444444444", UUIDShort: "cccccccc", Name: "Survival Hardcore", OwnerID: 20},
}

func TestResolveByFullUUID(t *testing.T) {
	t.Parallel()

	r := New(&fakeServerStore{servers: testServers})
	got, err := r.Server(context.Background(), Request{Identifier: "aaaaaaaa-1111-2222-3333-444444444444"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 1 {
		t.Fatalf("resolved id %d, want 1", got.ID)
	}
}

func TestResolveByShortUUID(t *testing.T) {
	t.Parallel()

	r := New(&fakeServerStore{servers: testServers})
	got, err := r.Server(context.Background(), Request{Identifier: "bbbbbbbb"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 2 {
		t.Fatalf("resolved id %d, want 2", got.ID)
	}
}

func TestResolveByNameScopedToOwner(t *testing.T) {
	t.Parallel()

	r := New(&fakeServerStore{servers: testServers})

	// "Survival" matches servers of two owners; only the caller's may win.
	got, err := r.Server(context.Background(), Request{Identifier: "Survival", OwnerID: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 3 {
		t.Fatalf("resolved id %d, want 3 (owner-scoped)", got.ID)
	}
}

func TestResolveFallsBackToPageContext(t *testing.T) {
	t.Parallel()

	r := New(&fakeServerStore{servers: testServers})
	got, err := r.Server(context.Background(), Request{PageShortID: "cccccccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 3 {
		t.Fatalf("resolved id %d, want 3", got.ID)
	}
}

func TestResolveExplicitIdentifierBeatsPageContext(t *testing.T) {
	t.Parallel()

	r := New(&fakeServerStore{servers: testServers})
	got, err := r.Server(context.Background(), Request{
		Identifier:  "aaaaaaaa",
		OwnerID:     10,
		PageShortID: "bbbbbbbb",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 1 {
		t.Fatalf("resolved id %d, want 1 (identifier over page hint)", got.ID)
	}
}

func TestResolveBadIdentifierFailsDespitePageContext(t *testing.T) {
	t.Parallel()

	// A mistyped identifier that matches nothing still falls through to the
	// page hint as the documented last resort.
	r := New(&fakeServerStore{servers: testServers})
	got, err := r.Server(context.Background(), Request{
		Identifier:  "no-such-server",
		OwnerID:     10,
		PageShortID: "aaaaaaaa",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 1 {
		t.Fatalf("resolved id %d, want 1", got.ID)
	}
}

func TestResolveNotFound(t *testing.T) {
	t.Parallel()

	r := New(&fakeServerStore{servers: testServers})
	_, err := r.Server(context.Background(), Request{Identifier: "zzz", OwnerID: 99})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveEmptyRequest(t *testing.T) {
	t.Parallel()

	r := New(&fakeServerStore{servers: testServers})
	_, err := r.Server(context.Background(), Request{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveStoreErrorPropagates(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("database locked")
	r := New(&fakeServerStore{failWith: storeErr})
	_, err := r.Server(context.Background(), Request{Identifier: "anything"})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("storage faults must not be reported as not-found")
	}
}
