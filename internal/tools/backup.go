package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/perch-panel/perch/internal/store"
	"github.com/perch-panel/perch/internal/tool"
)

const (
	actionCreateBackup = "create_backup"
	actionDeleteBackup = "delete_backup"

	backupDisk = "wings"
)

// CreateBackup starts a backup of a server. The local row is inserted first,
// flagged locked and unsuccessful, then the daemon is asked to start the
// backup; if the daemon refuses, the row is deleted again. Success means the
// backup was *initiated* — it completes asynchronously on the node.
type CreateBackup struct {
	deps *Deps
}

// NewCreateBackup creates the create_backup tool.
func NewCreateBackup(deps *Deps) *CreateBackup {
	deps.defaults()
	return &CreateBackup{deps: deps}
}

func (t *CreateBackup) Name() string { return "create_backup" }

func (t *CreateBackup) Description() string {
	return "Create a backup of a server. The backup runs in the background on the node."
}

func (t *CreateBackup) Parameters() map[string]string {
	return map[string]string{
		"name":        "Backup name (optional, generated if not provided)",
		"ignore":      "Files to exclude from the backup (optional, list of paths)",
		"server_uuid": "Server UUID (optional, can use server_name instead)",
		"server_name": "Server name (optional, can use server_uuid instead)",
	}
}

func (t *CreateBackup) Execute(ctx context.Context, params tool.Params, caller tool.Caller, page tool.PageContext) tool.Result {
	server, fail := t.deps.resolveServer(ctx, params, caller, page, actionCreateBackup)
	if fail != nil {
		return *fail
	}

	existing, err := t.deps.Store.BackupsByServer(ctx, server.ID)
	if err != nil {
		return tool.Fail(actionCreateBackup, tool.FailInternal, "failed to count backups: "+err.Error())
	}

	limit := server.BackupLimit
	if limit <= 0 {
		limit = 1
	}
	if len(existing) >= limit {
		return tool.LimitReached(actionCreateBackup,
			"Backup limit reached for this server", len(existing), limit)
	}

	node, fail := t.deps.nodeFor(ctx, server, actionCreateBackup)
	if fail != nil {
		return *fail
	}

	backupUUID := uuid.NewString()
	name := params.String("name")
	if name == "" {
		name = "Backup at " + t.deps.Now().UTC().Format("2006-01-02 15:04:05")
	}

	ignored := "[]"
	if files := params.StringSlice("ignore"); len(files) > 0 {
		if data, err := json.Marshal(files); err == nil {
			ignored = string(data)
		}
	}

	backupID, err := tool.RunWithRollback(t.deps.Logger,
		func() (int64, error) {
			// Locked while in progress so nothing deletes it mid-backup.
			return t.deps.Store.CreateBackup(ctx, store.Backup{
				ServerID:     server.ID,
				UUID:         backupUUID,
				Name:         name,
				IgnoredFiles: ignored,
				Disk:         backupDisk,
				Successful:   false,
				Locked:       true,
			})
		},
		func(int64) error {
			dm := t.deps.Dial(node, 0)
			if msg, ok := remoteFailure(dm.CreateBackup(ctx, server.UUID, backupDisk, backupUUID, ignored)); !ok {
				return fmt.Errorf("failed to initiate backup: %s", msg)
			}
			return nil
		},
		func(id int64) error {
			return t.deps.Store.DeleteBackup(ctx, id)
		},
	)
	if err != nil {
		if isLocalWrite(err) {
			return tool.Fail(actionCreateBackup, tool.FailInternal, "Failed to create backup record: "+err.Error())
		}
		return tool.Fail(actionCreateBackup, tool.FailUpstream, err.Error())
	}

	t.deps.Audit.Record(ctx, activity(server, caller, "backup_created", map[string]any{
		"backup_uuid": backupUUID,
		"backup_name": name,
	}))
	t.deps.Audit.Emit("server.backup_created", map[string]any{
		"user_uuid":   caller.UUID,
		"server_uuid": server.UUID,
		"backup_uuid": backupUUID,
	})

	return tool.Ok(actionCreateBackup,
		fmt.Sprintf("Backup '%s' initiated for server '%s'", name, server.Name),
		map[string]any{
			"backup_id":   backupID,
			"backup_uuid": backupUUID,
			"backup_name": name,
			"server_name": server.Name,
		})
}

// DeleteBackup removes a backup: the archive on the node first, the local
// row second. If the daemon refuses, the row stays — a dangling archive on
// disk is recoverable, a row without an archive is a lie.
type DeleteBackup struct {
	deps *Deps
}

// NewDeleteBackup creates the delete_backup tool.
func NewDeleteBackup(deps *Deps) *DeleteBackup {
	deps.defaults()
	return &DeleteBackup{deps: deps}
}

func (t *DeleteBackup) Name() string { return "delete_backup" }

func (t *DeleteBackup) Description() string {
	return "Delete a server backup by its UUID."
}

func (t *DeleteBackup) Parameters() map[string]string {
	return map[string]string{
		"backup_uuid": "Backup UUID to delete (required)",
		"server_uuid": "Server UUID (optional, can use server_name instead)",
		"server_name": "Server name (optional, can use server_uuid instead)",
	}
}

func (t *DeleteBackup) Execute(ctx context.Context, params tool.Params, caller tool.Caller, page tool.PageContext) tool.Result {
	backupUUID := params.String("backup_uuid")
	if backupUUID == "" {
		return tool.Fail(actionDeleteBackup, tool.FailInvalidArgument, "Backup UUID is required")
	}

	server, fail := t.deps.resolveServer(ctx, params, caller, page, actionDeleteBackup)
	if fail != nil {
		return *fail
	}

	backup, ok, err := t.deps.Store.BackupByUUID(ctx, server.ID, backupUUID)
	if err != nil {
		return tool.Fail(actionDeleteBackup, tool.FailInternal, "failed to load backup: "+err.Error())
	}
	if !ok {
		return tool.Fail(actionDeleteBackup, tool.FailNotFound, "Backup not found")
	}
	if backup.Locked {
		return tool.Fail(actionDeleteBackup, tool.FailInvalidArgument, "Backup is locked and cannot be deleted")
	}

	node, fail := t.deps.nodeFor(ctx, server, actionDeleteBackup)
	if fail != nil {
		return *fail
	}

	dm := t.deps.Dial(node, 0)
	if msg, ok := remoteFailure(dm.DeleteBackup(ctx, server.UUID, backupUUID)); !ok {
		return tool.Fail(actionDeleteBackup, tool.FailUpstream, "Failed to delete backup: "+msg)
	}

	if err := t.deps.Store.DeleteBackup(ctx, backup.ID); err != nil {
		return tool.Fail(actionDeleteBackup, tool.FailInternal, "failed to delete backup record: "+err.Error())
	}

	t.deps.Audit.Record(ctx, activity(server, caller, "backup_deleted", map[string]any{
		"backup_uuid": backupUUID,
		"backup_name": backup.Name,
	}))
	t.deps.Audit.Emit("server.backup_deleted", map[string]any{
		"user_uuid":   caller.UUID,
		"server_uuid": server.UUID,
		"backup_uuid": backupUUID,
	})

	return tool.Ok(actionDeleteBackup,
		fmt.Sprintf("Backup '%s' deleted from server '%s'", backup.Name, server.Name),
		map[string]any{
			"backup_uuid": backupUUID,
			"backup_name": backup.Name,
			"server_name": server.Name,
		})
}
