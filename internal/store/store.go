// Package store defines the panel's persisted entities and the narrow
// interfaces the tool core uses to read and mutate them. Lookups report
// absence with a boolean, never an error; errors are reserved for storage
// faults.
package store

import (
	"context"
	"time"
)

// Server is a game server managed by the panel. UUID and UUIDShort are both
// unique; UUIDShort is the first segment of the full UUID and is what page
// contexts carry.
type Server struct {
	ID              int64
	UUID            string
	UUIDShort       string
	Name            string
	OwnerID         int64
	NodeID          int64
	AllocationID    int64 // primary allocation
	BackupLimit     int
	DatabaseLimit   int
	AllocationLimit int
}

// Node is the machine a server runs on, addressed by its daemon endpoint.
type Node struct {
	ID     int64
	FQDN   string
	Port   int
	Scheme string
	Token  string
}

// Allocation is an IP:port pair on a node. ServerID is zero while the
// allocation is free.
type Allocation struct {
	ID       int64
	NodeID   int64
	IP       string
	Port     int
	ServerID int64
}

// Backup is a server backup record. Rows are inserted locked and unsuccessful
// before the daemon is asked to start the backup; the daemon reports
// completion out of band.
type Backup struct {
	ID           int64
	ServerID     int64
	UUID         string
	Name         string
	IgnoredFiles string
	Disk         string
	Successful   bool
	Locked       bool
	CreatedAt    time.Time
}

// DatabaseHost is a live SQL server the panel can provision databases on.
type DatabaseHost struct {
	ID       int64
	Name     string
	Host     string
	Port     int
	Username string
	Password string
	Type     string // mysql or mariadb
}

// ServerDatabase is the panel's record of a database provisioned on a host.
type ServerDatabase struct {
	ID             int64
	ServerID       int64
	HostID         int64
	Database       string
	Username       string
	Password       string
	Remote         string
	MaxConnections int
	CreatedAt      time.Time
}

// Schedule is a cron-driven schedule attached to a server. The five cron
// fields are stored separately, matching how callers supply them.
type Schedule struct {
	ID             int64
	ServerID       int64
	Name           string
	Minute         string
	Hour           string
	DayOfMonth     string
	Month          string
	DayOfWeek      string
	Active         bool
	OnlyWhenOnline bool
	NextRunAt      time.Time
}

// Task is one step of a schedule, ordered by SequenceID.
type Task struct {
	ID                int64
	ScheduleID        int64
	SequenceID        int
	Action            string
	Payload           string
	TimeOffset        int
	ContinueOnFailure bool
}

// Activity is an append-only audit record tied to a server.
type Activity struct {
	ID        int64
	ServerID  int64
	NodeID    int64
	UserID    int64
	Event     string
	Metadata  map[string]any
	CreatedAt time.Time
}

// ServerStore resolves servers by identifier or free-text search.
type ServerStore interface {
	ServerByUUID(ctx context.Context, uuid string) (Server, bool, error)
	ServerByUUIDShort(ctx context.Context, short string) (Server, bool, error)

	// SearchServers matches the query against server names, scoped to the
	// given owner. Results are ordered by name; limit bounds the page size.
	SearchServers(ctx context.Context, query string, limit int, ownerID int64) ([]Server, error)
}

// NodeStore resolves nodes.
type NodeStore interface {
	NodeByID(ctx context.Context, id int64) (Node, bool, error)
}

// AllocationStore reads and reassigns network allocations.
type AllocationStore interface {
	AllocationByID(ctx context.Context, id int64) (Allocation, bool, error)
	AllocationsByServer(ctx context.Context, serverID int64) ([]Allocation, error)

	// FreeAllocationsByNode returns up to limit unassigned allocations on
	// one node. Allocations are node-bound: an IP:port on another machine
	// can never serve this server.
	FreeAllocationsByNode(ctx context.Context, nodeID int64, limit int) ([]Allocation, error)
	AssignAllocation(ctx context.Context, allocationID, serverID int64) error
	ReleaseAllocation(ctx context.Context, allocationID int64) error
}

// BackupStore reads and writes backup rows.
type BackupStore interface {
	BackupsByServer(ctx context.Context, serverID int64) ([]Backup, error)
	BackupByUUID(ctx context.Context, serverID int64, uuid string) (Backup, bool, error)
	CreateBackup(ctx context.Context, b Backup) (int64, error)
	DeleteBackup(ctx context.Context, id int64) error
}

// DatabaseStore reads database hosts and writes server database rows.
type DatabaseStore interface {
	DatabaseHosts(ctx context.Context) ([]DatabaseHost, error)
	DatabaseHostByID(ctx context.Context, id int64) (DatabaseHost, bool, error)
	DatabasesByServer(ctx context.Context, serverID int64) ([]ServerDatabase, error)
	CreateServerDatabase(ctx context.Context, d ServerDatabase) (int64, error)
	DeleteServerDatabase(ctx context.Context, id int64) error
}

// ScheduleStore reads and writes schedules and their tasks.
type ScheduleStore interface {
	ScheduleByID(ctx context.Context, id int64) (Schedule, bool, error)

	// SearchSchedules matches the query against schedule names, scoped to
	// one server. Results are ordered by name; limit bounds the page size.
	SearchSchedules(ctx context.Context, serverID int64, query string, limit int) ([]Schedule, error)

	CreateSchedule(ctx context.Context, s Schedule) (int64, error)
	NextSequenceID(ctx context.Context, scheduleID int64) (int, error)
	CreateTask(ctx context.Context, t Task) (int64, error)
	TasksBySchedule(ctx context.Context, scheduleID int64) ([]Task, error)
}

// ActivityStore appends audit records.
type ActivityStore interface {
	AppendActivity(ctx context.Context, a Activity) (int64, error)
}

// AccessStore answers ownership and subuser membership questions.
type AccessStore interface {
	// UserCanAccessServer reports whether the user owns the server or is a
	// subuser of it.
	UserCanAccessServer(ctx context.Context, userID, serverID int64) (bool, error)
}

// Store is the full persistence surface the tool core depends on.
type Store interface {
	ServerStore
	NodeStore
	AllocationStore
	BackupStore
	DatabaseStore
	ScheduleStore
	ActivityStore
	AccessStore
}
