package tools

import (
	"context"
	"fmt"

	"github.com/perch-panel/perch/internal/tool"
)

const (
	actionAutoAllocate     = "auto_allocate"
	actionDeleteAllocation = "delete_allocation"

	// freeAllocationPage bounds how many free allocations are considered
	// for random selection.
	freeAllocationPage = 100
)

// AutoAllocate assigns one free allocation to a server. The pool is scoped
// to the server's node, and selection within it is uniformly random to
// spread load instead of always handing out the lowest id.
type AutoAllocate struct {
	deps *Deps
}

// NewAutoAllocate creates the auto_allocate tool.
func NewAutoAllocate(deps *Deps) *AutoAllocate {
	deps.defaults()
	return &AutoAllocate{deps: deps}
}

func (t *AutoAllocate) Name() string { return "auto_allocate" }

func (t *AutoAllocate) Description() string {
	return "Automatically assign a free network allocation to a server."
}

func (t *AutoAllocate) Parameters() map[string]string {
	return map[string]string{
		"server_uuid": "Server UUID (optional, can use server_name instead)",
		"server_name": "Server name (optional, can use server_uuid instead)",
	}
}

// Execute enforces the per-server allocation cap, picks a random free
// allocation, assigns it, and syncs the server's configuration on its node.
// If the sync fails the assignment is rolled back so the daemon and the
// panel never disagree about the server's ports.
func (t *AutoAllocate) Execute(ctx context.Context, params tool.Params, caller tool.Caller, page tool.PageContext) tool.Result {
	server, fail := t.deps.resolveServer(ctx, params, caller, page, actionAutoAllocate)
	if fail != nil {
		return *fail
	}

	current, err := t.deps.Store.AllocationsByServer(ctx, server.ID)
	if err != nil {
		return tool.Fail(actionAutoAllocate, tool.FailInternal, "failed to count allocations: "+err.Error())
	}

	limit := server.AllocationLimit
	if limit <= 0 {
		limit = 100
	}
	if len(current) >= limit {
		return tool.LimitReached(actionAutoAllocate,
			"Allocation limit reached for this server", len(current), limit)
	}

	free, err := t.deps.Store.FreeAllocationsByNode(ctx, server.NodeID, freeAllocationPage)
	if err != nil {
		return tool.Fail(actionAutoAllocate, tool.FailInternal, "failed to list free allocations: "+err.Error())
	}
	if len(free) == 0 {
		return tool.Fail(actionAutoAllocate, tool.FailInvalidArgument, "No free allocations available")
	}

	selected := free[t.deps.IntN(len(free))]

	node, fail := t.deps.nodeFor(ctx, server, actionAutoAllocate)
	if fail != nil {
		return *fail
	}

	_, err = tool.RunWithRollback(t.deps.Logger,
		func() (int64, error) {
			if err := t.deps.Store.AssignAllocation(ctx, selected.ID, server.ID); err != nil {
				return 0, err
			}
			return selected.ID, nil
		},
		func(int64) error {
			dm := t.deps.Dial(node, 0)
			if msg, ok := remoteFailure(dm.SyncServer(ctx, server.UUID)); !ok {
				return fmt.Errorf("failed to sync server configuration: %s", msg)
			}
			return nil
		},
		func(allocationID int64) error {
			return t.deps.Store.ReleaseAllocation(ctx, allocationID)
		},
	)
	if err != nil {
		if isLocalWrite(err) {
			return tool.Fail(actionAutoAllocate, tool.FailInternal, "Failed to assign allocation: "+err.Error())
		}
		return tool.Fail(actionAutoAllocate, tool.FailUpstream, err.Error())
	}

	t.deps.Audit.Record(ctx, activity(server, caller, "allocation_auto_allocated", map[string]any{
		"allocation_ip":   selected.IP,
		"allocation_port": selected.Port,
	}))
	t.deps.Audit.Emit("server.allocation_created", map[string]any{
		"user_uuid":     caller.UUID,
		"server_uuid":   server.UUID,
		"allocation_id": selected.ID,
	})

	return tool.Ok(actionAutoAllocate,
		fmt.Sprintf("Successfully assigned allocation %s:%d to server '%s'", selected.IP, selected.Port, server.Name),
		map[string]any{
			"allocation_id":   selected.ID,
			"allocation_ip":   selected.IP,
			"allocation_port": selected.Port,
			"server_name":     server.Name,
		})
}

// DeleteAllocation removes a non-primary allocation from a server. Refusing
// to delete the primary allocation is a domain invariant this tool enforces
// itself; neither the resolver nor the gate knows about it.
type DeleteAllocation struct {
	deps *Deps
}

// NewDeleteAllocation creates the delete_allocation tool.
func NewDeleteAllocation(deps *Deps) *DeleteAllocation {
	deps.defaults()
	return &DeleteAllocation{deps: deps}
}

func (t *DeleteAllocation) Name() string { return "delete_allocation" }

func (t *DeleteAllocation) Description() string {
	return "Delete an allocation from a server. Requires allocation ID. Cannot delete the primary allocation."
}

func (t *DeleteAllocation) Parameters() map[string]string {
	return map[string]string{
		"allocation_id": "Allocation ID to delete (required)",
		"server_uuid":   "Server UUID (optional, can use server_name instead)",
		"server_name":   "Server name (optional, can use server_uuid instead)",
	}
}

// Execute releases the allocation and best-effort syncs the node; a failed
// sync is logged, not surfaced, since the local release already happened and
// the daemon will catch up on its next sync.
func (t *DeleteAllocation) Execute(ctx context.Context, params tool.Params, caller tool.Caller, page tool.PageContext) tool.Result {
	allocationID := params.Int("allocation_id", 0)
	if allocationID == 0 {
		return tool.Fail(actionDeleteAllocation, tool.FailInvalidArgument, "Allocation ID is required")
	}

	server, fail := t.deps.resolveServer(ctx, params, caller, page, actionDeleteAllocation)
	if fail != nil {
		return *fail
	}

	alloc, ok, err := t.deps.Store.AllocationByID(ctx, allocationID)
	if err != nil {
		return tool.Fail(actionDeleteAllocation, tool.FailInternal, "failed to load allocation: "+err.Error())
	}
	if !ok {
		return tool.Fail(actionDeleteAllocation, tool.FailNotFound, "Allocation not found")
	}
	if alloc.ServerID != server.ID {
		return tool.Fail(actionDeleteAllocation, tool.FailInvalidArgument, "Allocation does not belong to this server")
	}
	if alloc.ID == server.AllocationID {
		return tool.Fail(actionDeleteAllocation, tool.FailInvalidArgument,
			"Cannot delete primary allocation. Set another allocation as primary first.")
	}

	if err := t.deps.Store.ReleaseAllocation(ctx, allocationID); err != nil {
		return tool.Fail(actionDeleteAllocation, tool.FailInternal, "Failed to delete allocation: "+err.Error())
	}

	if node, fail := t.deps.nodeFor(ctx, server, actionDeleteAllocation); fail == nil {
		dm := t.deps.Dial(node, 0)
		if msg, ok := remoteFailure(dm.SyncServer(ctx, server.UUID)); !ok {
			t.deps.Logger.Warn("failed to sync server after allocation deletion",
				"server", server.UUID,
				"error", msg,
			)
		}
	}

	t.deps.Audit.Record(ctx, activity(server, caller, "allocation_deleted", map[string]any{
		"allocation_ip":   alloc.IP,
		"allocation_port": alloc.Port,
	}))
	t.deps.Audit.Emit("server.allocation_deleted", map[string]any{
		"user_uuid":     caller.UUID,
		"server_uuid":   server.UUID,
		"allocation_id": alloc.ID,
	})

	return tool.Ok(actionDeleteAllocation,
		fmt.Sprintf("Allocation %s:%d removed successfully from server '%s'", alloc.IP, alloc.Port, server.Name),
		map[string]any{
			"allocation_id":   alloc.ID,
			"allocation_ip":   alloc.IP,
			"allocation_port": alloc.Port,
			"server_name":     server.Name,
		})
}
