package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// AppendActivity inserts an audit record and returns its id. Records are
// append-only; nothing in this package updates or deletes them.
func (s *DB) AppendActivity(ctx context.Context, a Activity) (int64, error) {
	metaJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return 0, fmt.Errorf("store: marshal activity metadata: %w", err)
	}

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (server_id, node_id, user_id, event, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ServerID, a.NodeID, a.UserID, a.Event, string(metaJSON),
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("store: append activity: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: append activity id: %w", err)
	}
	return id, nil
}
