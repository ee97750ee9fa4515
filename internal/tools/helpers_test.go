package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/perch-panel/perch/internal/access"
	"github.com/perch-panel/perch/internal/audit"
	"github.com/perch-panel/perch/internal/daemon"
	"github.com/perch-panel/perch/internal/resolve"
	"github.com/perch-panel/perch/internal/store"
	"github.com/perch-panel/perch/internal/tool"
)

// fakeStore is an in-memory store.Store with per-method error injection.
// Mutations are tracked so tests can assert what changed — and what didn't.
type fakeStore struct {
	servers     []store.Server
	nodes       []store.Node
	allocations []store.Allocation
	backups     []store.Backup
	hosts       []store.DatabaseHost
	databases   []store.ServerDatabase
	schedules   []store.Schedule
	tasks       []store.Task
	activities  []store.Activity

	serverLookups int
	nextID        int64

	failCreateBackup   error
	failCreateDatabase error
	failCreateSchedule error
}

var _ store.Store = (*fakeStore)(nil)

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID + 1000
}

func (f *fakeStore) ServerByUUID(_ context.Context, uuid string) (store.Server, bool, error) {
	f.serverLookups++
	for _, s := range f.servers {
		if s.UUID == uuid {
			return s, true, nil
		}
	}
	return store.Server{}, false, nil
}

func (f *fakeStore) ServerByUUIDShort(_ context.Context, short string) (store.Server, bool, error) {
	for _, s := range f.servers {
		if s.UUIDShort == short {
			return s, true, nil
		}
	}
	return store.Server{}, false, nil
}

func (f *fakeStore) SearchServers(_ context.Context, query string, limit int, ownerID int64) ([]store.Server, error) {
	var out []store.Server
	for _, s := range f.servers {
		if s.OwnerID == ownerID && strings.Contains(strings.ToLower(s.Name), strings.ToLower(query)) {
			out = append(out, s)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) NodeByID(_ context.Context, id int64) (store.Node, bool, error) {
	for _, n := range f.nodes {
		if n.ID == id {
			return n, true, nil
		}
	}
	return store.Node{}, false, nil
}

func (f *fakeStore) AllocationByID(_ context.Context, id int64) (store.Allocation, bool, error) {
	for _, a := range f.allocations {
		if a.ID == id {
			return a, true, nil
		}
	}
	return store.Allocation{}, false, nil
}

func (f *fakeStore) AllocationsByServer(_ context.Context, serverID int64) ([]store.Allocation, error) {
	var out []store.Allocation
	for _, a := range f.allocations {
		if a.ServerID == serverID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) FreeAllocationsByNode(_ context.Context, nodeID int64, limit int) ([]store.Allocation, error) {
	var out []store.Allocation
	for _, a := range f.allocations {
		if a.ServerID == 0 && a.NodeID == nodeID {
			out = append(out, a)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) AssignAllocation(_ context.Context, allocationID, serverID int64) error {
	for i, a := range f.allocations {
		if a.ID == allocationID {
			if a.ServerID != 0 {
				return fmt.Errorf("allocation %d is not free", allocationID)
			}
			f.allocations[i].ServerID = serverID
			return nil
		}
	}
	return fmt.Errorf("allocation %d is not free", allocationID)
}

func (f *fakeStore) ReleaseAllocation(_ context.Context, allocationID int64) error {
	for i, a := range f.allocations {
		if a.ID == allocationID {
			f.allocations[i].ServerID = 0
			return nil
		}
	}
	return nil
}

func (f *fakeStore) BackupsByServer(_ context.Context, serverID int64) ([]store.Backup, error) {
	var out []store.Backup
	for _, b := range f.backups {
		if b.ServerID == serverID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) BackupByUUID(_ context.Context, serverID int64, uuid string) (store.Backup, bool, error) {
	for _, b := range f.backups {
		if b.ServerID == serverID && b.UUID == uuid {
			return b, true, nil
		}
	}
	return store.Backup{}, false, nil
}

func (f *fakeStore) CreateBackup(_ context.Context, b store.Backup) (int64, error) {
	if f.failCreateBackup != nil {
		return 0, f.failCreateBackup
	}
	b.ID = f.id()
	f.backups = append(f.backups, b)
	return b.ID, nil
}

func (f *fakeStore) DeleteBackup(_ context.Context, id int64) error {
	for i, b := range f.backups {
		if b.ID == id {
			f.backups = append(f.backups[:i], f.backups[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStore) DatabaseHosts(_ context.Context) ([]store.DatabaseHost, error) {
	return f.hosts, nil
}

func (f *fakeStore) DatabaseHostByID(_ context.Context, id int64) (store.DatabaseHost, bool, error) {
	for _, h := range f.hosts {
		if h.ID == id {
			return h, true, nil
		}
	}
	return store.DatabaseHost{}, false, nil
}

func (f *fakeStore) DatabasesByServer(_ context.Context, serverID int64) ([]store.ServerDatabase, error) {
	var out []store.ServerDatabase
	for _, d := range f.databases {
		if d.ServerID == serverID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateServerDatabase(_ context.Context, d store.ServerDatabase) (int64, error) {
	if f.failCreateDatabase != nil {
		return 0, f.failCreateDatabase
	}
	d.ID = f.id()
	f.databases = append(f.databases, d)
	return d.ID, nil
}

func (f *fakeStore) DeleteServerDatabase(_ context.Context, id int64) error {
	for i, d := range f.databases {
		if d.ID == id {
			f.databases = append(f.databases[:i], f.databases[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStore) ScheduleByID(_ context.Context, id int64) (store.Schedule, bool, error) {
	for _, s := range f.schedules {
		if s.ID == id {
			return s, true, nil
		}
	}
	return store.Schedule{}, false, nil
}

func (f *fakeStore) SearchSchedules(_ context.Context, serverID int64, query string, limit int) ([]store.Schedule, error) {
	var out []store.Schedule
	for _, s := range f.schedules {
		if s.ServerID == serverID && strings.Contains(strings.ToLower(s.Name), strings.ToLower(query)) {
			out = append(out, s)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) CreateSchedule(_ context.Context, s store.Schedule) (int64, error) {
	if f.failCreateSchedule != nil {
		return 0, f.failCreateSchedule
	}
	s.ID = f.id()
	f.schedules = append(f.schedules, s)
	return s.ID, nil
}

func (f *fakeStore) NextSequenceID(_ context.Context, scheduleID int64) (int, error) {
	maxSeq := 0
	for _, t := range f.tasks {
		if t.ScheduleID == scheduleID && t.SequenceID > maxSeq {
			maxSeq = t.SequenceID
		}
	}
	return maxSeq + 1, nil
}

func (f *fakeStore) CreateTask(_ context.Context, t store.Task) (int64, error) {
	t.ID = f.id()
	f.tasks = append(f.tasks, t)
	return t.ID, nil
}

func (f *fakeStore) TasksBySchedule(_ context.Context, scheduleID int64) ([]store.Task, error) {
	var out []store.Task
	for _, t := range f.tasks {
		if t.ScheduleID == scheduleID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) AppendActivity(_ context.Context, a store.Activity) (int64, error) {
	a.ID = f.id()
	f.activities = append(f.activities, a)
	return a.ID, nil
}

func (f *fakeStore) UserCanAccessServer(_ context.Context, userID, serverID int64) (bool, error) {
	for _, s := range f.servers {
		if s.ID == serverID && s.OwnerID == userID {
			return true, nil
		}
	}
	return false, nil
}

// fakeDaemon records every call and answers from canned outcomes.
type fakeDaemon struct {
	calls []string

	// failOn maps a method name to the error message its Response carries.
	failOn map[string]string
}

var _ Daemon = (*fakeDaemon)(nil)

func (d *fakeDaemon) respond(method string) (*daemon.Response, error) {
	d.calls = append(d.calls, method)
	if msg, ok := d.failOn[method]; ok {
		return &daemon.Response{StatusCode: 500, Successful: false, Err: msg}, nil
	}
	return &daemon.Response{StatusCode: 204, Successful: true}, nil
}

func (d *fakeDaemon) PowerAction(_ context.Context, _, _ string) (*daemon.Response, error) {
	return d.respond("PowerAction")
}

func (d *fakeDaemon) SyncServer(_ context.Context, _ string) (*daemon.Response, error) {
	return d.respond("SyncServer")
}

func (d *fakeDaemon) CreateBackup(_ context.Context, _, _, _, _ string) (*daemon.Response, error) {
	return d.respond("CreateBackup")
}

func (d *fakeDaemon) DeleteBackup(_ context.Context, _, _ string) (*daemon.Response, error) {
	return d.respond("DeleteBackup")
}

func (d *fakeDaemon) CompressFiles(_ context.Context, _, _ string, _ []string, _, _ string) (*daemon.Response, error) {
	return d.respond("CompressFiles")
}

func (d *fakeDaemon) WriteFile(_ context.Context, _, _ string, _ []byte) (*daemon.Response, error) {
	return d.respond("WriteFile")
}

func (d *fakeDaemon) PullFile(_ context.Context, _, _, _, _ string, _ bool) (*daemon.Response, error) {
	return d.respond("PullFile")
}

// fakeProvisioner records database host operations.
type fakeProvisioner struct {
	created    []string
	dropped    []string
	failCreate error
}

func (p *fakeProvisioner) CreateDatabase(_ context.Context, _ store.DatabaseHost, database, _, _ string) error {
	if p.failCreate != nil {
		return p.failCreate
	}
	p.created = append(p.created, database)
	return nil
}

func (p *fakeProvisioner) DropDatabase(_ context.Context, _ store.DatabaseHost, database, _ string) error {
	p.dropped = append(p.dropped, database)
	return nil
}

// Fixed test fixtures. Owner 10 owns server 1 on node 5.
const (
	testServerUUID  = "aaaaaaaa-1111-2222-3333-444444444444"
	testServerShort = "aaaaaaaa"
)

var (
	testCaller   = tool.Caller{ID: 10, UUID: "caller-uuid-10"}
	testStranger = tool.Caller{ID: 66, UUID: "caller-uuid-66"}
)

func newFixtureStore() *fakeStore {
	return &fakeStore{
		servers: []store.Server{{
			ID:              1,
			UUID:            testServerUUID,
			UUIDShort:       testServerShort,
			Name:            "Survival World",
			OwnerID:         10,
			NodeID:          5,
			AllocationID:    100,
			BackupLimit:     2,
			DatabaseLimit:   2,
			AllocationLimit: 3,
		}},
		nodes: []store.Node{{ID: 5, FQDN: "node1.example.com", Port: 8080, Scheme: "https", Token: "secret"}},
		allocations: []store.Allocation{
			{ID: 100, NodeID: 5, IP: "10.0.0.1", Port: 25565, ServerID: 1},
			{ID: 101, NodeID: 5, IP: "10.0.0.1", Port: 25566, ServerID: 1},
			{ID: 102, NodeID: 5, IP: "10.0.0.1", Port: 25567},
		},
		hosts: []store.DatabaseHost{{ID: 3, Name: "primary", Host: "db.example.com", Port: 3306, Username: "root", Password: "pw", Type: "mysql"}},
	}
}

func newTestDeps(st *fakeStore, dm *fakeDaemon, prov *fakeProvisioner) *Deps {
	logger := slog.New(slog.DiscardHandler)
	if dm == nil {
		dm = &fakeDaemon{}
	}
	if prov == nil {
		prov = &fakeProvisioner{}
	}
	return &Deps{
		Store:       st,
		Resolver:    resolve.New(st),
		Gate:        access.NewStoreGate(st),
		Audit:       audit.NewRecorder(st, logger),
		Dial:        func(store.Node, time.Duration) Daemon { return dm },
		Provisioner: prov,
		Logger:      logger,
		Now:         func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
		IntN:        func(n int) int { return 0 },
	}
}
