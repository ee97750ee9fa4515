package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AllocationByID looks up an allocation.
func (s *DB) AllocationByID(ctx context.Context, id int64) (Allocation, bool, error) {
	var a Allocation
	err := s.db.QueryRowContext(ctx,
		"SELECT id, node_id, ip, port, server_id FROM allocations WHERE id = ?", id,
	).Scan(&a.ID, &a.NodeID, &a.IP, &a.Port, &a.ServerID)
	if errors.Is(err, sql.ErrNoRows) {
		return Allocation{}, false, nil
	}
	if err != nil {
		return Allocation{}, false, fmt.Errorf("store: allocation by id: %w", err)
	}
	return a, true, nil
}

// AllocationsByServer returns all allocations assigned to the server.
func (s *DB) AllocationsByServer(ctx context.Context, serverID int64) ([]Allocation, error) {
	return s.queryAllocations(ctx,
		"SELECT id, node_id, ip, port, server_id FROM allocations WHERE server_id = ? ORDER BY id", serverID)
}

// FreeAllocationsByNode returns up to limit unassigned allocations on the
// given node.
func (s *DB) FreeAllocationsByNode(ctx context.Context, nodeID int64, limit int) ([]Allocation, error) {
	return s.queryAllocations(ctx,
		"SELECT id, node_id, ip, port, server_id FROM allocations WHERE server_id = 0 AND node_id = ? ORDER BY id LIMIT ?",
		nodeID, limit)
}

// AssignAllocation assigns a free allocation to a server. Assigning an
// allocation that is already taken is a storage fault, not a silent no-op.
func (s *DB) AssignAllocation(ctx context.Context, allocationID, serverID int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE allocations SET server_id = ? WHERE id = ? AND server_id = 0",
		serverID, allocationID)
	if err != nil {
		return fmt.Errorf("store: assign allocation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: assign allocation rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("store: allocation %d is not free", allocationID)
	}
	return nil
}

// ReleaseAllocation unassigns an allocation from whatever server holds it.
func (s *DB) ReleaseAllocation(ctx context.Context, allocationID int64) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE allocations SET server_id = 0 WHERE id = ?", allocationID); err != nil {
		return fmt.Errorf("store: release allocation: %w", err)
	}
	return nil
}

func (s *DB) queryAllocations(ctx context.Context, query string, args ...any) ([]Allocation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query allocations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var allocs []Allocation
	for rows.Next() {
		var a Allocation
		if err := rows.Scan(&a.ID, &a.NodeID, &a.IP, &a.Port, &a.ServerID); err != nil {
			return nil, fmt.Errorf("store: scan allocation: %w", err)
		}
		allocs = append(allocs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: allocations rows: %w", err)
	}
	return allocs, nil
}
