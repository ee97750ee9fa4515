package store

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS nodes (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		fqdn   TEXT NOT NULL,
		port   INTEGER NOT NULL,
		scheme TEXT NOT NULL DEFAULT 'https',
		token  TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS servers (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid             TEXT NOT NULL UNIQUE,
		uuid_short       TEXT NOT NULL UNIQUE,
		name             TEXT NOT NULL,
		owner_id         INTEGER NOT NULL,
		node_id          INTEGER NOT NULL REFERENCES nodes(id),
		allocation_id    INTEGER NOT NULL DEFAULT 0,
		backup_limit     INTEGER NOT NULL DEFAULT 1,
		database_limit   INTEGER NOT NULL DEFAULT 1,
		allocation_limit INTEGER NOT NULL DEFAULT 100
	)`,

	`CREATE INDEX IF NOT EXISTS idx_servers_owner ON servers(owner_id)`,

	`CREATE TABLE IF NOT EXISTS subusers (
		user_id   INTEGER NOT NULL,
		server_id INTEGER NOT NULL REFERENCES servers(id) ON DELETE CASCADE,
		PRIMARY KEY (user_id, server_id)
	)`,

	`CREATE TABLE IF NOT EXISTS allocations (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		node_id   INTEGER NOT NULL REFERENCES nodes(id),
		ip        TEXT NOT NULL,
		port      INTEGER NOT NULL,
		server_id INTEGER NOT NULL DEFAULT 0,
		UNIQUE (node_id, ip, port)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_allocations_server ON allocations(server_id)`,

	`CREATE TABLE IF NOT EXISTS backups (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		server_id     INTEGER NOT NULL REFERENCES servers(id) ON DELETE CASCADE,
		uuid          TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL,
		ignored_files TEXT NOT NULL DEFAULT '[]',
		disk          TEXT NOT NULL DEFAULT 'wings',
		is_successful INTEGER NOT NULL DEFAULT 0,
		is_locked     INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,

	`CREATE TABLE IF NOT EXISTS database_hosts (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		name     TEXT NOT NULL,
		host     TEXT NOT NULL,
		port     INTEGER NOT NULL DEFAULT 3306,
		username TEXT NOT NULL,
		password TEXT NOT NULL,
		type     TEXT NOT NULL DEFAULT 'mysql'
	)`,

	`CREATE TABLE IF NOT EXISTS server_databases (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		server_id        INTEGER NOT NULL REFERENCES servers(id) ON DELETE CASCADE,
		database_host_id INTEGER NOT NULL REFERENCES database_hosts(id),
		database_name    TEXT NOT NULL,
		username         TEXT NOT NULL,
		password         TEXT NOT NULL,
		remote           TEXT NOT NULL DEFAULT '%',
		max_connections  INTEGER NOT NULL DEFAULT 0,
		created_at       TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,

	`CREATE TABLE IF NOT EXISTS schedules (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		server_id        INTEGER NOT NULL REFERENCES servers(id) ON DELETE CASCADE,
		name             TEXT NOT NULL,
		cron_minute      TEXT NOT NULL,
		cron_hour        TEXT NOT NULL,
		cron_day_of_month TEXT NOT NULL,
		cron_month       TEXT NOT NULL,
		cron_day_of_week TEXT NOT NULL,
		is_active        INTEGER NOT NULL DEFAULT 1,
		only_when_online INTEGER NOT NULL DEFAULT 0,
		next_run_at      TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		schedule_id         INTEGER NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
		sequence_id         INTEGER NOT NULL,
		action              TEXT NOT NULL,
		payload             TEXT NOT NULL DEFAULT '',
		time_offset         INTEGER NOT NULL DEFAULT 0,
		continue_on_failure INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE INDEX IF NOT EXISTS idx_tasks_schedule ON tasks(schedule_id, sequence_id)`,

	`CREATE TABLE IF NOT EXISTS activities (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		server_id  INTEGER NOT NULL,
		node_id    INTEGER NOT NULL DEFAULT 0,
		user_id    INTEGER NOT NULL,
		event      TEXT NOT NULL,
		metadata   TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,

	`CREATE INDEX IF NOT EXISTS idx_activities_server ON activities(server_id, id)`,
}

// migrate creates or updates the database schema to the latest version.
// All DDL uses IF NOT EXISTS, making migration idempotent.
func migrate(db *sql.DB) error {
	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("store: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("store: read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("store: record schema version: %w", err)
	}

	return nil
}
