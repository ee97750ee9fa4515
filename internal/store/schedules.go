package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ScheduleByID looks up a schedule.
func (s *DB) ScheduleByID(ctx context.Context, id int64) (Schedule, bool, error) {
	var (
		sc           Schedule
		active       int
		onlyOnline   int
		nextRunAtStr string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, server_id, name, cron_minute, cron_hour, cron_day_of_month, cron_month, cron_day_of_week,
		       is_active, only_when_online, next_run_at
		FROM schedules WHERE id = ?`, id,
	).Scan(&sc.ID, &sc.ServerID, &sc.Name, &sc.Minute, &sc.Hour, &sc.DayOfMonth, &sc.Month, &sc.DayOfWeek,
		&active, &onlyOnline, &nextRunAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return Schedule{}, false, nil
	}
	if err != nil {
		return Schedule{}, false, fmt.Errorf("store: schedule by id: %w", err)
	}
	sc.Active = active != 0
	sc.OnlyWhenOnline = onlyOnline != 0
	if nextRunAtStr != "" {
		if t, err := time.Parse(time.RFC3339Nano, nextRunAtStr); err == nil {
			sc.NextRunAt = t
		}
	}
	return sc, true, nil
}

// SearchSchedules matches the query against schedule names on one server,
// ordered by name.
func (s *DB) SearchSchedules(ctx context.Context, serverID int64, query string, limit int) ([]Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, server_id, name, cron_minute, cron_hour, cron_day_of_month, cron_month, cron_day_of_week,
		       is_active, only_when_online, next_run_at
		FROM schedules
		WHERE server_id = ? AND name LIKE ?
		ORDER BY name LIMIT ?`,
		serverID, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("store: search schedules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var schedules []Schedule
	for rows.Next() {
		var (
			sc           Schedule
			active       int
			onlyOnline   int
			nextRunAtStr string
		)
		if err := rows.Scan(&sc.ID, &sc.ServerID, &sc.Name, &sc.Minute, &sc.Hour, &sc.DayOfMonth, &sc.Month, &sc.DayOfWeek,
			&active, &onlyOnline, &nextRunAtStr); err != nil {
			return nil, fmt.Errorf("store: scan schedule: %w", err)
		}
		sc.Active = active != 0
		sc.OnlyWhenOnline = onlyOnline != 0
		if nextRunAtStr != "" {
			if t, err := time.Parse(time.RFC3339Nano, nextRunAtStr); err == nil {
				sc.NextRunAt = t
			}
		}
		schedules = append(schedules, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: schedules rows: %w", err)
	}
	return schedules, nil
}

// CreateSchedule inserts a schedule row and returns its id.
func (s *DB) CreateSchedule(ctx context.Context, sc Schedule) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO schedules (server_id, name, cron_minute, cron_hour, cron_day_of_month, cron_month, cron_day_of_week,
		                       is_active, only_when_online, next_run_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ServerID, sc.Name, sc.Minute, sc.Hour, sc.DayOfMonth, sc.Month, sc.DayOfWeek,
		boolToInt(sc.Active), boolToInt(sc.OnlyWhenOnline),
		sc.NextRunAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("store: create schedule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: create schedule id: %w", err)
	}
	return id, nil
}

// NextSequenceID returns the next free task sequence number for the schedule,
// starting at 1.
func (s *DB) NextSequenceID(ctx context.Context, scheduleID int64) (int, error) {
	var maxSeq int
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(sequence_id), 0) FROM tasks WHERE schedule_id = ?", scheduleID,
	).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("store: next sequence id: %w", err)
	}
	return maxSeq + 1, nil
}

// CreateTask inserts a task row and returns its id.
func (s *DB) CreateTask(ctx context.Context, t Task) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (schedule_id, sequence_id, action, payload, time_offset, continue_on_failure)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ScheduleID, t.SequenceID, t.Action, t.Payload, t.TimeOffset, boolToInt(t.ContinueOnFailure),
	)
	if err != nil {
		return 0, fmt.Errorf("store: create task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: create task id: %w", err)
	}
	return id, nil
}

// TasksBySchedule returns the schedule's tasks in sequence order.
func (s *DB) TasksBySchedule(ctx context.Context, scheduleID int64) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, schedule_id, sequence_id, action, payload, time_offset, continue_on_failure
		FROM tasks WHERE schedule_id = ? ORDER BY sequence_id`, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("store: tasks by schedule: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []Task
	for rows.Next() {
		var (
			t    Task
			cont int
		)
		if err := rows.Scan(&t.ID, &t.ScheduleID, &t.SequenceID, &t.Action, &t.Payload, &t.TimeOffset, &cont); err != nil {
			return nil, fmt.Errorf("store: scan task: %w", err)
		}
		t.ContinueOnFailure = cont != 0
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: tasks rows: %w", err)
	}
	return tasks, nil
}
