package dbhost

import (
	"context"
	"database/sql"
	"slices"
	"testing"

	"github.com/perch-panel/perch/internal/store"
)

func TestMySQLDriverRegistered(t *testing.T) {
	t.Parallel()

	// create_database provisions over sql.Open("mysql", ...); the binary is
	// dead in production if importing this package does not register the
	// driver.
	if !slices.Contains(sql.Drivers(), "mysql") {
		t.Fatalf("mysql driver not registered, have: %v", sql.Drivers())
	}
}

func TestConnect_BuildsMySQLDSN(t *testing.T) {
	t.Parallel()

	var gotDriver, gotDSN string
	p := &SQLProvisioner{Open: func(driverName, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driverName, dsn
		return sql.Open(driverName, dsn)
	}}

	host := store.DatabaseHost{
		Host: "db.example.com", Port: 3306,
		Username: "root", Password: "pw", Type: "mariadb",
	}
	db, err := p.connect(host)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if gotDriver != "mysql" {
		t.Errorf("driver = %q, want mysql for a mariadb host", gotDriver)
	}
	if gotDSN != "root:pw@tcp(db.example.com:3306)/?timeout=10s" {
		t.Errorf("dsn = %q", gotDSN)
	}
}

func TestConnect_UnsupportedHostType(t *testing.T) {
	t.Parallel()

	p := &SQLProvisioner{}
	err := p.CreateDatabase(context.Background(),
		store.DatabaseHost{Type: "postgres"}, "s1_db", "u1_x", "pw")
	if err == nil {
		t.Fatal("expected an error for an unsupported host type")
	}
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"s1_minecraft", "`s1_minecraft`"},
		{"weird`name", "`weird``name`"},
	}
	for _, tt := range tests {
		if got := quoteIdent(tt.in); got != tt.want {
			t.Errorf("quoteIdent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEscapeString(t *testing.T) {
	t.Parallel()

	if got := escapeString(`pa'ss\word`); got != `pa\'ss\\word` {
		t.Errorf("escapeString = %q", got)
	}
}
