// Package resolve turns a loosely specified server reference into exactly one
// server row, or fails.
package resolve

import (
	"context"
	"errors"

	"github.com/perch-panel/perch/internal/store"
)

// ErrNotFound is returned when every resolution step is exhausted.
var ErrNotFound = errors.New("resolve: server not found")

// searchLimit bounds the fuzzy-search page. The first result wins.
const searchLimit = 10

// Request describes what the caller gave us to work with. Identifier may be
// a full UUID, a short UUID, or free text; PageShortID is the ambient
// "current page" hint supplied by the GUI.
type Request struct {
	Identifier  string
	OwnerID     int64
	PageShortID string
}

// Resolver resolves servers against a ServerStore.
type Resolver struct {
	servers store.ServerStore
}

// New creates a Resolver.
func New(servers store.ServerStore) *Resolver {
	return &Resolver{servers: servers}
}

// Server resolves a request to one server. Resolution order, first match
// wins: full UUID, short UUID, owner-scoped name search, page context.
// Explicit identifiers are trusted over inferred context; the ambient page
// hint is the last resort so a mistyped identifier fails loudly instead of
// silently acting on whatever page the caller happens to be looking at.
func (r *Resolver) Server(ctx context.Context, req Request) (store.Server, error) {
	if req.Identifier != "" {
		if sv, ok, err := r.servers.ServerByUUID(ctx, req.Identifier); err != nil {
			return store.Server{}, err
		} else if ok {
			return sv, nil
		}

		if sv, ok, err := r.servers.ServerByUUIDShort(ctx, req.Identifier); err != nil {
			return store.Server{}, err
		} else if ok {
			return sv, nil
		}

		matches, err := r.servers.SearchServers(ctx, req.Identifier, searchLimit, req.OwnerID)
		if err != nil {
			return store.Server{}, err
		}
		if len(matches) > 0 {
			return matches[0], nil
		}
	}

	if req.PageShortID != "" {
		if sv, ok, err := r.servers.ServerByUUIDShort(ctx, req.PageShortID); err != nil {
			return store.Server{}, err
		} else if ok {
			return sv, nil
		}
	}

	return store.Server{}, ErrNotFound
}
