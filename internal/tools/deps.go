// Package tools contains the concrete tool implementations in the
// assistant's capability catalog. Every tool follows the same shape:
// validate parameters, resolve the target server, authorize the caller,
// mutate (locally and/or on the node daemon, with rollback where two stores
// must stay consistent), record an audit trail, and report a structured
// result. Parameter validation comes first throughout — cheap checks precede
// lookups.
package tools

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/perch-panel/perch/internal/access"
	"github.com/perch-panel/perch/internal/audit"
	"github.com/perch-panel/perch/internal/daemon"
	"github.com/perch-panel/perch/internal/dbhost"
	"github.com/perch-panel/perch/internal/resolve"
	"github.com/perch-panel/perch/internal/store"
	"github.com/perch-panel/perch/internal/tool"
)

// Daemon is the slice of the node daemon's capabilities the tools use.
// daemon.Client satisfies it; tests substitute fakes.
type Daemon interface {
	PowerAction(ctx context.Context, serverUUID, action string) (*daemon.Response, error)
	SyncServer(ctx context.Context, serverUUID string) (*daemon.Response, error)
	CreateBackup(ctx context.Context, serverUUID, adapter, backupUUID, ignore string) (*daemon.Response, error)
	DeleteBackup(ctx context.Context, serverUUID, backupUUID string) (*daemon.Response, error)
	CompressFiles(ctx context.Context, serverUUID, root string, files []string, name, extension string) (*daemon.Response, error)
	WriteFile(ctx context.Context, serverUUID, path string, content []byte) (*daemon.Response, error)
	PullFile(ctx context.Context, serverUUID, url, root, fileName string, foreground bool) (*daemon.Response, error)
}

// DaemonDialer constructs a daemon client for a node. Clients are built per
// call: each tool invocation targets whichever node its server lives on.
type DaemonDialer func(node store.Node, timeout time.Duration) Daemon

// DialDaemon is the production dialer.
func DialDaemon(node store.Node, timeout time.Duration) Daemon {
	return daemon.NewClient(node, timeout)
}

// Deps bundles the collaborators every tool composes. One Deps value is
// shared by all tools in a registry.
type Deps struct {
	Store       store.Store
	Resolver    *resolve.Resolver
	Gate        access.Gate
	Audit       *audit.Recorder
	Dial        DaemonDialer
	Provisioner dbhost.Provisioner
	Logger      *slog.Logger

	// Now and IntN are injectable for tests.
	Now  func() time.Time
	IntN func(n int) int
}

func (d *Deps) defaults() {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Dial == nil {
		d.Dial = DialDaemon
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.IntN == nil {
		d.IntN = rand.IntN
	}
}

const serverNotFoundMsg = "Server not found. Please specify a server UUID or name, or ensure you are viewing a server page."

// resolveServer resolves and authorizes the target server. On failure it
// returns a non-nil Result for the caller to return as-is.
func (d *Deps) resolveServer(ctx context.Context, params tool.Params, caller tool.Caller, page tool.PageContext, action string) (store.Server, *tool.Result) {
	identifier := params.StringOr("server_uuid", params.String("server_name"))

	server, err := d.Resolver.Server(ctx, resolve.Request{
		Identifier:  identifier,
		OwnerID:     caller.ID,
		PageShortID: page.ServerShortID,
	})
	if err != nil {
		if errors.Is(err, resolve.ErrNotFound) {
			res := tool.Fail(action, tool.FailNotFound, serverNotFoundMsg)
			return store.Server{}, &res
		}
		res := tool.Fail(action, tool.FailInternal, "failed to resolve server: "+err.Error())
		return store.Server{}, &res
	}

	ok, err := d.Gate.CanAccess(ctx, caller.ID, server.ID)
	if err != nil {
		res := tool.Fail(action, tool.FailInternal, "failed to check server access: "+err.Error())
		return store.Server{}, &res
	}
	if !ok {
		res := tool.Fail(action, tool.FailForbidden, "Access denied to server")
		return store.Server{}, &res
	}

	return server, nil
}

// nodeFor looks up the server's node.
func (d *Deps) nodeFor(ctx context.Context, server store.Server, action string) (store.Node, *tool.Result) {
	node, ok, err := d.Store.NodeByID(ctx, server.NodeID)
	if err != nil {
		res := tool.Fail(action, tool.FailInternal, "failed to load node: "+err.Error())
		return store.Node{}, &res
	}
	if !ok {
		res := tool.Fail(action, tool.FailNotFound, "Node not found")
		return store.Node{}, &res
	}
	return node, nil
}

// remoteFailure normalizes a daemon call outcome into an error message.
// Transport faults and unsuccessful responses both count; ok is true when
// the call went through.
func remoteFailure(resp *daemon.Response, err error) (msg string, ok bool) {
	if err != nil {
		return err.Error(), false
	}
	if !resp.Successful {
		return resp.Error(), false
	}
	return "", true
}

// isLocalWrite reports whether a RunWithRollback error came from the local
// insert rather than the remote call.
func isLocalWrite(err error) bool {
	return errors.Is(err, tool.ErrLocalWrite)
}

// activity builds the audit record shared by all tools.
func activity(server store.Server, caller tool.Caller, event string, meta map[string]any) store.Activity {
	return store.Activity{
		ServerID: server.ID,
		NodeID:   server.NodeID,
		UserID:   caller.ID,
		Event:    event,
		Metadata: meta,
	}
}

// alnum is the alphabet for generated credentials.
const alnum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randString generates a random alphanumeric string of length n.
func (d *Deps) randString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alnum[d.IntN(len(alnum))]
	}
	return string(b)
}
