package tools

import (
	"context"
	"testing"

	"github.com/perch-panel/perch/internal/store"
	"github.com/perch-panel/perch/internal/tool"
)

func fixtureSchedule(st *fakeStore) {
	st.schedules = []store.Schedule{{
		ID:       40,
		ServerID: 1,
		Name:     "Nightly restart",
		Minute:   "0", Hour: "3", DayOfMonth: "*", Month: "*", DayOfWeek: "*",
		Active: true,
	}}
}

func TestCreateTask_ByScheduleID(t *testing.T) {
	t.Parallel()

	st := newFixtureStore()
	fixtureSchedule(st)
	ct := NewCreateTask(newTestDeps(st, nil, nil))

	res := ct.Execute(context.Background(), tool.Params{
		"schedule_id": float64(40),
		"action":      "backup",
		"server_uuid": testServerUUID,
	}, testCaller, tool.PageContext{})

	if !res.Success {
		t.Fatalf("expected success, got %s: %s", res.Failure, res.Message)
	}
	if len(st.tasks) != 1 {
		t.Fatalf("expected 1 task row, got %d", len(st.tasks))
	}
	task := st.tasks[0]
	if task.ScheduleID != 40 || task.Action != "backup" || task.SequenceID != 1 {
		t.Errorf("task = %+v", task)
	}
	if res.Fields["schedule_name"] != "Nightly restart" {
		t.Errorf("schedule_name = %v", res.Fields["schedule_name"])
	}
}

func TestCreateTask_ByScheduleName(t *testing.T) {
	t.Parallel()

	st := newFixtureStore()
	fixtureSchedule(st)
	ct := NewCreateTask(newTestDeps(st, nil, nil))

	res := ct.Execute(context.Background(), tool.Params{
		"schedule_name": "nightly",
		"action":        "power",
		"payload":       "restart",
		"server_uuid":   testServerUUID,
	}, testCaller, tool.PageContext{})

	if !res.Success {
		t.Fatalf("expected success, got %s: %s", res.Failure, res.Message)
	}
	if len(st.tasks) != 1 || st.tasks[0].ScheduleID != 40 {
		t.Fatalf("tasks = %+v, want one on schedule 40", st.tasks)
	}
}

func TestCreateTask_SequenceIncrements(t *testing.T) {
	t.Parallel()

	st := newFixtureStore()
	fixtureSchedule(st)
	st.tasks = []store.Task{
		{ID: 1, ScheduleID: 40, SequenceID: 1, Action: "backup"},
		{ID: 2, ScheduleID: 40, SequenceID: 2, Action: "command", Payload: "save-all"},
	}
	ct := NewCreateTask(newTestDeps(st, nil, nil))

	res := ct.Execute(context.Background(), tool.Params{
		"schedule_id": float64(40),
		"action":      "kill",
		"server_uuid": testServerUUID,
	}, testCaller, tool.PageContext{})

	if !res.Success {
		t.Fatalf("expected success, got %s: %s", res.Failure, res.Message)
	}
	if res.Fields["sequence_id"] != 3 {
		t.Errorf("sequence_id = %v, want 3", res.Fields["sequence_id"])
	}
}

func TestCreateTask_InvalidActionRejectedBeforeResolution(t *testing.T) {
	t.Parallel()

	st := newFixtureStore()
	fixtureSchedule(st)
	ct := NewCreateTask(newTestDeps(st, nil, nil))

	res := ct.Execute(context.Background(), tool.Params{
		"schedule_id": float64(40),
		"action":      "teleport",
		"server_uuid": testServerUUID,
	}, testCaller, tool.PageContext{})

	if res.Success || res.Failure != tool.FailInvalidArgument {
		t.Fatalf("expected invalid_argument, got %+v", res)
	}
	if st.serverLookups != 0 {
		t.Error("invalid action must fail before resolution")
	}
}

func TestCreateTask_PayloadRequiredForCommand(t *testing.T) {
	t.Parallel()

	st := newFixtureStore()
	fixtureSchedule(st)
	ct := NewCreateTask(newTestDeps(st, nil, nil))

	res := ct.Execute(context.Background(), tool.Params{
		"schedule_id": float64(40),
		"action":      "command",
		"server_uuid": testServerUUID,
	}, testCaller, tool.PageContext{})

	if res.Success || res.Failure != tool.FailInvalidArgument {
		t.Fatalf("expected invalid_argument, got %+v", res)
	}
	if st.serverLookups != 0 {
		t.Error("missing payload must fail before resolution")
	}
}

func TestCreateTask_ScheduleOnOtherServer(t *testing.T) {
	t.Parallel()

	st := newFixtureStore()
	st.schedules = []store.Schedule{{ID: 41, ServerID: 99, Name: "Foreign"}}
	ct := NewCreateTask(newTestDeps(st, nil, nil))

	res := ct.Execute(context.Background(), tool.Params{
		"schedule_id": float64(41),
		"action":      "backup",
		"server_uuid": testServerUUID,
	}, testCaller, tool.PageContext{})

	if res.Success || res.Failure != tool.FailNotFound {
		t.Fatalf("expected not_found for a foreign schedule, got %+v", res)
	}
	if len(st.tasks) != 0 {
		t.Errorf("tasks = %+v, want none", st.tasks)
	}
}

func TestCreateTask_NoScheduleGiven(t *testing.T) {
	t.Parallel()

	st := newFixtureStore()
	fixtureSchedule(st)
	ct := NewCreateTask(newTestDeps(st, nil, nil))

	res := ct.Execute(context.Background(), tool.Params{
		"action":      "backup",
		"server_uuid": testServerUUID,
	}, testCaller, tool.PageContext{})

	if res.Success || res.Failure != tool.FailNotFound {
		t.Fatalf("expected not_found, got %+v", res)
	}
}
