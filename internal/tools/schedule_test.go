package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/perch-panel/perch/internal/tool"
)

func cronDaily3am(extra tool.Params) tool.Params {
	params := tool.Params{
		"name":              "Nightly restart",
		"cron_minute":       "0",
		"cron_hour":         "3",
		"cron_day_of_month": "*",
		"cron_month":        "*",
		"cron_day_of_week":  "*",
		"server_uuid":       testServerUUID,
	}
	for k, v := range extra {
		params[k] = v
	}
	return params
}

func TestCreateSchedule_Success(t *testing.T) {
	t.Parallel()

	st := newFixtureStore()
	cs := NewCreateSchedule(newTestDeps(st, nil, nil))

	res := cs.Execute(context.Background(), cronDaily3am(nil), testCaller, tool.PageContext{})

	if !res.Success {
		t.Fatalf("expected success, got %s: %s", res.Failure, res.Message)
	}
	if len(st.schedules) != 1 {
		t.Fatalf("expected 1 schedule row, got %d", len(st.schedules))
	}
	s := st.schedules[0]
	if s.Name != "Nightly restart" || !s.Active || s.Hour != "3" {
		t.Errorf("schedule row = %+v", s)
	}
	// Now is pinned to 2024-06-01T12:00:00Z, so the 3am slot is tomorrow.
	if res.Fields["next_run_at"] != "2024-06-02T03:00:00Z" {
		t.Errorf("next_run_at = %v, want 2024-06-02T03:00:00Z", res.Fields["next_run_at"])
	}
	if res.Fields["cron_expression"] != "0 3 * * *" {
		t.Errorf("cron_expression = %v, want 0 3 * * *", res.Fields["cron_expression"])
	}
}

func TestCreateSchedule_MissingCronFieldFailsBeforeResolution(t *testing.T) {
	t.Parallel()

	st := newFixtureStore()
	cs := NewCreateSchedule(newTestDeps(st, nil, nil))

	params := cronDaily3am(nil)
	delete(params, "cron_hour")
	res := cs.Execute(context.Background(), params, testCaller, tool.PageContext{})

	if res.Success || res.Failure != tool.FailInvalidArgument {
		t.Fatalf("expected invalid_argument, got %+v", res)
	}
	if !strings.Contains(res.Message, "cron_hour") {
		t.Errorf("message %q should name the missing field", res.Message)
	}
	if st.serverLookups != 0 {
		t.Error("missing cron field must fail before resolution")
	}
}

func TestCreateSchedule_MissingName(t *testing.T) {
	t.Parallel()

	cs := NewCreateSchedule(newTestDeps(newFixtureStore(), nil, nil))
	params := cronDaily3am(nil)
	params["name"] = "  "
	res := cs.Execute(context.Background(), params, testCaller, tool.PageContext{})
	if res.Success || res.Failure != tool.FailInvalidArgument {
		t.Fatalf("expected invalid_argument, got %+v", res)
	}
}

func TestCreateSchedule_InvalidCron(t *testing.T) {
	t.Parallel()

	st := newFixtureStore()
	cs := NewCreateSchedule(newTestDeps(st, nil, nil))

	params := cronDaily3am(nil)
	params["cron_minute"] = "61"
	res := cs.Execute(context.Background(), params, testCaller, tool.PageContext{})

	if res.Success || res.Failure != tool.FailInvalidArgument {
		t.Fatalf("expected invalid_argument for minute 61, got %+v", res)
	}
	if len(st.schedules) != 0 {
		t.Error("no schedule row may exist for an invalid expression")
	}
}

func TestCreateSchedule_WithTaskList(t *testing.T) {
	t.Parallel()

	st := newFixtureStore()
	cs := NewCreateSchedule(newTestDeps(st, nil, nil))

	res := cs.Execute(context.Background(), cronDaily3am(tool.Params{
		"tasks": []any{
			map[string]any{"action": "backup"},
			map[string]any{"action": "power", "payload": "restart", "time_offset": float64(5)},
		},
	}), testCaller, tool.PageContext{})

	if !res.Success {
		t.Fatalf("expected success, got %s: %s", res.Failure, res.Message)
	}
	if res.Fields["tasks_created"] != 2 {
		t.Fatalf("tasks_created = %v, want 2", res.Fields["tasks_created"])
	}
	if len(st.tasks) != 2 {
		t.Fatalf("expected 2 task rows, got %d", len(st.tasks))
	}
	if st.tasks[0].SequenceID != 1 || st.tasks[1].SequenceID != 2 {
		t.Errorf("sequence ids = %d, %d, want 1, 2", st.tasks[0].SequenceID, st.tasks[1].SequenceID)
	}
	if st.tasks[1].TimeOffset != 5 {
		t.Errorf("time_offset = %d, want 5", st.tasks[1].TimeOffset)
	}
	if !strings.Contains(res.Message, "backup (sequence #1)") ||
		!strings.Contains(res.Message, "power (sequence #2)") {
		t.Errorf("message %q should list created tasks", res.Message)
	}
}

func TestCreateSchedule_BareCommandBecomesTask(t *testing.T) {
	t.Parallel()

	st := newFixtureStore()
	cs := NewCreateSchedule(newTestDeps(st, nil, nil))

	res := cs.Execute(context.Background(), cronDaily3am(tool.Params{
		"command": "say restarting in 5 minutes",
	}), testCaller, tool.PageContext{})

	if !res.Success {
		t.Fatalf("expected success, got %s: %s", res.Failure, res.Message)
	}
	if len(st.tasks) != 1 {
		t.Fatalf("expected 1 task row, got %d", len(st.tasks))
	}
	task := st.tasks[0]
	if task.Action != "command" || task.Payload != "say restarting in 5 minutes" {
		t.Errorf("task = %+v, want a command task with the given payload", task)
	}
}

func TestCreateSchedule_NoTasksWarns(t *testing.T) {
	t.Parallel()

	cs := NewCreateSchedule(newTestDeps(newFixtureStore(), nil, nil))
	res := cs.Execute(context.Background(), cronDaily3am(nil), testCaller, tool.PageContext{})

	if !res.Success {
		t.Fatalf("expected success, got %s: %s", res.Failure, res.Message)
	}
	if !strings.Contains(res.Message, "⚠️ Warning: No tasks were created") {
		t.Errorf("message %q should warn about the empty schedule", res.Message)
	}
	if res.Fields["tasks_created"] != 0 {
		t.Errorf("tasks_created = %v, want 0", res.Fields["tasks_created"])
	}
}

func TestCreateSchedule_BadTaskIsSoftError(t *testing.T) {
	t.Parallel()

	st := newFixtureStore()
	cs := NewCreateSchedule(newTestDeps(st, nil, nil))

	res := cs.Execute(context.Background(), cronDaily3am(tool.Params{
		"tasks": []any{
			map[string]any{"action": "teleport"},
			map[string]any{"action": "backup"},
		},
	}), testCaller, tool.PageContext{})

	// The schedule survives; the invalid task is reported, the valid one
	// still lands.
	if !res.Success {
		t.Fatalf("expected success, got %s: %s", res.Failure, res.Message)
	}
	if len(st.schedules) != 1 {
		t.Fatal("schedule must be kept despite a bad task")
	}
	if len(st.tasks) != 1 || st.tasks[0].Action != "backup" {
		t.Fatalf("tasks = %+v, want only the backup task", st.tasks)
	}
	if !strings.Contains(res.Message, "Error creating tasks: Invalid task action: teleport") {
		t.Errorf("message %q should carry the task error", res.Message)
	}
}

func TestCreateSchedule_PowerTaskNeedsPayload(t *testing.T) {
	t.Parallel()

	st := newFixtureStore()
	cs := NewCreateSchedule(newTestDeps(st, nil, nil))

	res := cs.Execute(context.Background(), cronDaily3am(tool.Params{
		"tasks": map[string]any{"action": "power"},
	}), testCaller, tool.PageContext{})

	if !res.Success {
		t.Fatalf("expected success, got %s: %s", res.Failure, res.Message)
	}
	if len(st.tasks) != 0 {
		t.Fatalf("tasks = %+v, want none", st.tasks)
	}
	if !strings.Contains(res.Message, "requires a payload") {
		t.Errorf("message %q should explain the missing payload", res.Message)
	}
}

func TestCreateSchedule_InactiveWhenRequested(t *testing.T) {
	t.Parallel()

	st := newFixtureStore()
	cs := NewCreateSchedule(newTestDeps(st, nil, nil))

	res := cs.Execute(context.Background(), cronDaily3am(tool.Params{
		"is_active": false,
	}), testCaller, tool.PageContext{})

	if !res.Success {
		t.Fatalf("expected success, got %s: %s", res.Failure, res.Message)
	}
	if st.schedules[0].Active {
		t.Error("schedule should be created inactive")
	}
	if res.Fields["is_active"] != false {
		t.Errorf("is_active field = %v, want false", res.Fields["is_active"])
	}
}
