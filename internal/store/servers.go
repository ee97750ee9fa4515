package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const serverColumns = `id, uuid, uuid_short, name, owner_id, node_id, allocation_id,
	backup_limit, database_limit, allocation_limit`

// ServerByUUID looks up a server by its full UUID.
func (s *DB) ServerByUUID(ctx context.Context, uuid string) (Server, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+serverColumns+" FROM servers WHERE uuid = ?", uuid)
	return scanServer(row)
}

// ServerByUUIDShort looks up a server by its short UUID.
func (s *DB) ServerByUUIDShort(ctx context.Context, short string) (Server, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+serverColumns+" FROM servers WHERE uuid_short = ?", short)
	return scanServer(row)
}

// SearchServers matches the query against server names, scoped to the owner.
func (s *DB) SearchServers(ctx context.Context, query string, limit int, ownerID int64) ([]Server, error) {
	if query == "" || limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+serverColumns+`
		FROM servers
		WHERE owner_id = ? AND name LIKE '%' || ? || '%'
		ORDER BY name
		LIMIT ?`,
		ownerID, query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: search servers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var servers []Server
	for rows.Next() {
		var sv Server
		if err := rows.Scan(
			&sv.ID, &sv.UUID, &sv.UUIDShort, &sv.Name, &sv.OwnerID, &sv.NodeID,
			&sv.AllocationID, &sv.BackupLimit, &sv.DatabaseLimit, &sv.AllocationLimit,
		); err != nil {
			return nil, fmt.Errorf("store: scan server: %w", err)
		}
		servers = append(servers, sv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: search servers rows: %w", err)
	}

	return servers, nil
}

// NodeByID looks up a node.
func (s *DB) NodeByID(ctx context.Context, id int64) (Node, bool, error) {
	var n Node
	err := s.db.QueryRowContext(ctx,
		"SELECT id, fqdn, port, scheme, token FROM nodes WHERE id = ?", id,
	).Scan(&n.ID, &n.FQDN, &n.Port, &n.Scheme, &n.Token)
	if errors.Is(err, sql.ErrNoRows) {
		return Node{}, false, nil
	}
	if err != nil {
		return Node{}, false, fmt.Errorf("store: node by id: %w", err)
	}
	return n, true, nil
}

// UserCanAccessServer reports whether the user owns the server or is a
// subuser of it.
func (s *DB) UserCanAccessServer(ctx context.Context, userID, serverID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM servers
		WHERE id = ?1 AND (
			owner_id = ?2
			OR EXISTS (SELECT 1 FROM subusers WHERE server_id = ?1 AND user_id = ?2)
		)`,
		serverID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: access check: %w", err)
	}
	return n > 0, nil
}

func scanServer(row *sql.Row) (Server, bool, error) {
	var sv Server
	err := row.Scan(
		&sv.ID, &sv.UUID, &sv.UUIDShort, &sv.Name, &sv.OwnerID, &sv.NodeID,
		&sv.AllocationID, &sv.BackupLimit, &sv.DatabaseLimit, &sv.AllocationLimit,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Server{}, false, nil
	}
	if err != nil {
		return Server{}, false, fmt.Errorf("store: scan server: %w", err)
	}
	return sv, true, nil
}
