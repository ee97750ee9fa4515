package tools

import (
	"context"
	"fmt"
	"regexp"

	"github.com/perch-panel/perch/internal/store"
	"github.com/perch-panel/perch/internal/tool"
)

const actionCreateDatabase = "create_database"

// databaseNamePattern restricts the caller-supplied base name to characters
// safe in a MySQL schema name.
var databaseNamePattern = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// CreateDatabase provisions a database on a live SQL host. The remote side is
// created first and the panel row second: if the row cannot be written, the
// remote database is dropped again so nothing usable exists that the panel
// does not know about.
type CreateDatabase struct {
	deps *Deps
}

// NewCreateDatabase creates the create_database tool.
func NewCreateDatabase(deps *Deps) *CreateDatabase {
	deps.defaults()
	return &CreateDatabase{deps: deps}
}

func (t *CreateDatabase) Name() string { return "create_database" }

func (t *CreateDatabase) Description() string {
	return "Create a database for a server on a database host, with generated credentials."
}

func (t *CreateDatabase) Parameters() map[string]string {
	return map[string]string{
		"database_name": "Base name for the database (optional, generated if not provided)",
		"host_id":       "Database host ID (optional, first available host is used)",
		"server_uuid":   "Server UUID (optional, can use server_name instead)",
		"server_name":   "Server name (optional, can use server_uuid instead)",
	}
}

func (t *CreateDatabase) Execute(ctx context.Context, params tool.Params, caller tool.Caller, page tool.PageContext) tool.Result {
	server, fail := t.deps.resolveServer(ctx, params, caller, page, actionCreateDatabase)
	if fail != nil {
		return *fail
	}

	existing, err := t.deps.Store.DatabasesByServer(ctx, server.ID)
	if err != nil {
		return tool.Fail(actionCreateDatabase, tool.FailInternal, "failed to count databases: "+err.Error())
	}

	limit := server.DatabaseLimit
	if limit <= 0 {
		limit = 1
	}
	if len(existing) >= limit {
		return tool.LimitReached(actionCreateDatabase,
			"Database limit reached for this server", len(existing), limit)
	}

	host, fail := t.pickHost(ctx, params)
	if fail != nil {
		return *fail
	}

	base := databaseNamePattern.ReplaceAllString(params.String("database_name"), "")
	if base == "" {
		base = "db" + t.deps.randString(6)
	}
	if len(base) > 24 {
		base = base[:24]
	}

	database := fmt.Sprintf("s%d_%s", server.ID, base)
	username := fmt.Sprintf("u%d_%s", server.ID, t.deps.randString(10))
	password := t.deps.randString(16)

	if err := t.deps.Provisioner.CreateDatabase(ctx, host, database, username, password); err != nil {
		return tool.Fail(actionCreateDatabase, tool.FailUpstream,
			"Failed to create database on host: "+err.Error())
	}

	id, err := t.deps.Store.CreateServerDatabase(ctx, store.ServerDatabase{
		ServerID:       server.ID,
		HostID:         host.ID,
		Database:       database,
		Username:       username,
		Password:       password,
		Remote:         "%",
		MaxConnections: 0,
	})
	if err != nil {
		if dropErr := t.deps.Provisioner.DropDatabase(ctx, host, database, username); dropErr != nil {
			t.deps.Logger.Warn("failed to drop database after record error, remote database may be orphaned",
				"host", host.Host,
				"database", database,
				"error", dropErr,
			)
		}
		return tool.Fail(actionCreateDatabase, tool.FailInternal,
			"Failed to save database record: "+err.Error())
	}

	t.deps.Audit.Record(ctx, activity(server, caller, "database_created", map[string]any{
		"database_name": database,
		"database_host": host.Name,
	}))
	t.deps.Audit.Emit("server.database_created", map[string]any{
		"user_uuid":   caller.UUID,
		"server_uuid": server.UUID,
		"database":    database,
	})

	return tool.Ok(actionCreateDatabase,
		fmt.Sprintf("Database '%s' created for server '%s'", database, server.Name),
		map[string]any{
			"database_id":   id,
			"database_name": database,
			"username":      username,
			"password":      password,
			"database_host": host.Host,
			"database_port": host.Port,
			"server_name":   server.Name,
		})
}

// pickHost selects the database host: the one named by host_id, or the first
// configured host when the parameter is absent.
func (t *CreateDatabase) pickHost(ctx context.Context, params tool.Params) (store.DatabaseHost, *tool.Result) {
	if hostID := params.Int("host_id", 0); hostID != 0 {
		host, ok, err := t.deps.Store.DatabaseHostByID(ctx, hostID)
		if err != nil {
			res := tool.Fail(actionCreateDatabase, tool.FailInternal, "failed to load database host: "+err.Error())
			return store.DatabaseHost{}, &res
		}
		if !ok {
			res := tool.Fail(actionCreateDatabase, tool.FailNotFound, "Database host not found")
			return store.DatabaseHost{}, &res
		}
		return host, nil
	}

	hosts, err := t.deps.Store.DatabaseHosts(ctx)
	if err != nil {
		res := tool.Fail(actionCreateDatabase, tool.FailInternal, "failed to list database hosts: "+err.Error())
		return store.DatabaseHost{}, &res
	}
	if len(hosts) == 0 {
		res := tool.Fail(actionCreateDatabase, tool.FailInvalidArgument,
			"No database hosts are configured")
		return store.DatabaseHost{}, &res
	}
	return hosts[0], nil
}
