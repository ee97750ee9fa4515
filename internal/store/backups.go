package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const backupColumns = "id, server_id, uuid, name, ignored_files, disk, is_successful, is_locked, created_at"

// BackupsByServer returns all backup rows for the server, newest first.
func (s *DB) BackupsByServer(ctx context.Context, serverID int64) ([]Backup, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+backupColumns+" FROM backups WHERE server_id = ? ORDER BY id DESC", serverID)
	if err != nil {
		return nil, fmt.Errorf("store: backups by server: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var backups []Backup
	for rows.Next() {
		b, err := scanBackup(rows.Scan)
		if err != nil {
			return nil, err
		}
		backups = append(backups, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: backups rows: %w", err)
	}
	return backups, nil
}

// BackupByUUID looks up a backup by UUID, scoped to the server.
func (s *DB) BackupByUUID(ctx context.Context, serverID int64, uuid string) (Backup, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+backupColumns+" FROM backups WHERE server_id = ? AND uuid = ?", serverID, uuid)
	b, err := scanBackup(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Backup{}, false, nil
	}
	if err != nil {
		return Backup{}, false, err
	}
	return b, true, nil
}

// CreateBackup inserts a backup row and returns its id.
func (s *DB) CreateBackup(ctx context.Context, b Backup) (int64, error) {
	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO backups (server_id, uuid, name, ignored_files, disk, is_successful, is_locked, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ServerID, b.UUID, b.Name, b.IgnoredFiles, b.Disk,
		boolToInt(b.Successful), boolToInt(b.Locked),
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("store: create backup: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: create backup id: %w", err)
	}
	return id, nil
}

// DeleteBackup removes a backup row by id.
func (s *DB) DeleteBackup(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM backups WHERE id = ?", id); err != nil {
		return fmt.Errorf("store: delete backup: %w", err)
	}
	return nil
}

func scanBackup(scan func(...any) error) (Backup, error) {
	var (
		b            Backup
		successful   int
		locked       int
		createdAtStr string
	)
	err := scan(&b.ID, &b.ServerID, &b.UUID, &b.Name, &b.IgnoredFiles, &b.Disk,
		&successful, &locked, &createdAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Backup{}, err
		}
		return Backup{}, fmt.Errorf("store: scan backup: %w", err)
	}
	b.Successful = successful != 0
	b.Locked = locked != 0
	if createdAtStr != "" {
		if t, err := time.Parse(time.RFC3339Nano, createdAtStr); err == nil {
			b.CreatedAt = t
		}
	}
	return b, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
