// Package access holds the authorization gate consulted once per tool call,
// after the target is resolved and before anything mutates.
package access

import (
	"context"

	"github.com/perch-panel/perch/internal/store"
)

// Gate decides whether a caller may act on a server. It is a pure predicate:
// no side effects, no partial answers.
type Gate interface {
	CanAccess(ctx context.Context, userID, serverID int64) (bool, error)
}

// StoreGate answers from the persisted ownership and subuser tables.
type StoreGate struct {
	store store.AccessStore
}

// NewStoreGate creates a gate backed by the given store.
func NewStoreGate(s store.AccessStore) *StoreGate {
	return &StoreGate{store: s}
}

// CanAccess implements Gate.
func (g *StoreGate) CanAccess(ctx context.Context, userID, serverID int64) (bool, error) {
	return g.store.UserCanAccessServer(ctx, userID, serverID)
}
