package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DatabaseHosts returns all configured database hosts.
func (s *DB) DatabaseHosts(ctx context.Context) ([]DatabaseHost, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, host, port, username, password, type FROM database_hosts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("store: database hosts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hosts []DatabaseHost
	for rows.Next() {
		var h DatabaseHost
		if err := rows.Scan(&h.ID, &h.Name, &h.Host, &h.Port, &h.Username, &h.Password, &h.Type); err != nil {
			return nil, fmt.Errorf("store: scan database host: %w", err)
		}
		hosts = append(hosts, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: database hosts rows: %w", err)
	}
	return hosts, nil
}

// DatabaseHostByID looks up a database host.
func (s *DB) DatabaseHostByID(ctx context.Context, id int64) (DatabaseHost, bool, error) {
	var h DatabaseHost
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, host, port, username, password, type FROM database_hosts WHERE id = ?", id,
	).Scan(&h.ID, &h.Name, &h.Host, &h.Port, &h.Username, &h.Password, &h.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return DatabaseHost{}, false, nil
	}
	if err != nil {
		return DatabaseHost{}, false, fmt.Errorf("store: database host by id: %w", err)
	}
	return h, true, nil
}

// DatabasesByServer returns the server's provisioned databases.
func (s *DB) DatabasesByServer(ctx context.Context, serverID int64) ([]ServerDatabase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, server_id, database_host_id, database_name, username, password, remote, max_connections, created_at
		FROM server_databases WHERE server_id = ? ORDER BY id`, serverID)
	if err != nil {
		return nil, fmt.Errorf("store: databases by server: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var dbs []ServerDatabase
	for rows.Next() {
		var (
			d            ServerDatabase
			createdAtStr string
		)
		if err := rows.Scan(&d.ID, &d.ServerID, &d.HostID, &d.Database, &d.Username,
			&d.Password, &d.Remote, &d.MaxConnections, &createdAtStr); err != nil {
			return nil, fmt.Errorf("store: scan server database: %w", err)
		}
		if createdAtStr != "" {
			if t, err := time.Parse(time.RFC3339Nano, createdAtStr); err == nil {
				d.CreatedAt = t
			}
		}
		dbs = append(dbs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: server databases rows: %w", err)
	}
	return dbs, nil
}

// CreateServerDatabase inserts a server database row and returns its id.
func (s *DB) CreateServerDatabase(ctx context.Context, d ServerDatabase) (int64, error) {
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO server_databases (server_id, database_host_id, database_name, username, password, remote, max_connections, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ServerID, d.HostID, d.Database, d.Username, d.Password, d.Remote, d.MaxConnections,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("store: create server database: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: create server database id: %w", err)
	}
	return id, nil
}

// DeleteServerDatabase removes a server database row by id.
func (s *DB) DeleteServerDatabase(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM server_databases WHERE id = ?", id); err != nil {
		return fmt.Errorf("store: delete server database: %w", err)
	}
	return nil
}
