// Package dbhost provisions databases and users on live SQL hosts. The tool
// core generates the database name, username, and password itself and never
// interpolates caller-controlled text into statements; identifiers are
// backtick-escaped as a second line of defense.
package dbhost

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver registration

	"github.com/perch-panel/perch/internal/store"
)

// connectTimeout bounds the handshake with the remote SQL host.
const connectTimeout = 10 * time.Second

// Provisioner creates and drops databases on a remote host. Implementations
// report ordinary remote failures as errors; callers classify them as
// upstream failures.
type Provisioner interface {
	CreateDatabase(ctx context.Context, host store.DatabaseHost, database, username, password string) error
	DropDatabase(ctx context.Context, host store.DatabaseHost, database, username string) error
}

// SQLProvisioner provisions over database/sql using the MySQL driver, which
// also speaks to MariaDB hosts.
type SQLProvisioner struct {
	// Open overrides sql.Open, for tests.
	Open func(driverName, dsn string) (*sql.DB, error)
}

var _ Provisioner = (*SQLProvisioner)(nil)

// CreateDatabase creates the database and a user granted full access to it.
func (p *SQLProvisioner) CreateDatabase(ctx context.Context, host store.DatabaseHost, database, username, password string) error {
	db, err := p.connect(host)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	stmts := []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", quoteIdent(database)),
		fmt.Sprintf("CREATE USER IF NOT EXISTS %s@'%%' IDENTIFIED BY '%s'", quoteIdent(username), escapeString(password)),
		fmt.Sprintf("GRANT ALL PRIVILEGES ON %s.* TO %s@'%%'", quoteIdent(database), quoteIdent(username)),
		"FLUSH PRIVILEGES",
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("dbhost: %s: %w", host.Host, err)
		}
	}
	return nil
}

// DropDatabase removes the database and its user. Used both for teardown and
// as the compensation step when the local record cannot be written.
func (p *SQLProvisioner) DropDatabase(ctx context.Context, host store.DatabaseHost, database, username string) error {
	db, err := p.connect(host)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	stmts := []string{
		fmt.Sprintf("DROP DATABASE IF EXISTS %s", quoteIdent(database)),
		fmt.Sprintf("DROP USER IF EXISTS %s@'%%'", quoteIdent(username)),
		"FLUSH PRIVILEGES",
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("dbhost: %s: %w", host.Host, err)
		}
	}
	return nil
}

func (p *SQLProvisioner) connect(host store.DatabaseHost) (*sql.DB, error) {
	open := p.Open
	if open == nil {
		open = sql.Open
	}

	var driver, dsn string
	switch host.Type {
	case "mysql", "mariadb":
		driver = "mysql"
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/?timeout=%s",
			host.Username, host.Password, host.Host, host.Port, connectTimeout)
	default:
		return nil, fmt.Errorf("dbhost: unsupported host type %q", host.Type)
	}

	db, err := open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("dbhost: connect %s: %w", host.Host, err)
	}
	return db, nil
}

// quoteIdent backtick-quotes a MySQL identifier.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// escapeString escapes a string literal for interpolation into a statement
// that cannot be parameterized (CREATE USER).
func escapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
