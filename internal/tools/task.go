package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/perch-panel/perch/internal/store"
	"github.com/perch-panel/perch/internal/tool"
)

const (
	actionCreateTask = "create_task"

	scheduleSearchLimit = 10
)

// CreateTask appends a task to an existing schedule. The schedule may be
// named by id or by name; a name match is scoped to the resolved server so
// one user's "Nightly restart" never hits another server's schedule.
type CreateTask struct {
	deps *Deps
}

// NewCreateTask creates the create_task tool.
func NewCreateTask(deps *Deps) *CreateTask {
	deps.defaults()
	return &CreateTask{deps: deps}
}

func (t *CreateTask) Name() string { return "create_task" }

func (t *CreateTask) Description() string {
	return "Create a task for an existing schedule. Requires schedule ID or name, action, and optionally payload (required for power/command actions)."
}

func (t *CreateTask) Parameters() map[string]string {
	return map[string]string{
		"schedule_id":         "Schedule ID (required if schedule_name not provided)",
		"schedule_name":       "Schedule name (required if schedule_id not provided)",
		"action":              "Task action (required: " + taskActionList + ")",
		"payload":             "Task payload (required for power/command actions, optional for others)",
		"time_offset":         "Time offset in minutes (optional, default: 0)",
		"continue_on_failure": "Continue on failure (optional, boolean, default: false)",
		"server_uuid":         "Server UUID (optional, can use server_name instead)",
		"server_name":         "Server name (optional, can use server_uuid instead)",
	}
}

func (t *CreateTask) Execute(ctx context.Context, params tool.Params, caller tool.Caller, page tool.PageContext) tool.Result {
	action := strings.TrimSpace(params.String("action"))
	if action == "" {
		return tool.Fail(actionCreateTask, tool.FailInvalidArgument, "Task action is required")
	}
	if !taskActions[action] {
		return tool.Fail(actionCreateTask, tool.FailInvalidArgument,
			fmt.Sprintf("Invalid task action: %s. Valid actions are: %s", action, taskActionList))
	}

	payload := strings.TrimSpace(params.String("payload"))
	if (action == "power" || action == "command") && payload == "" {
		return tool.Fail(actionCreateTask, tool.FailInvalidArgument,
			fmt.Sprintf("Task action '%s' requires a payload", action))
	}

	server, fail := t.deps.resolveServer(ctx, params, caller, page, actionCreateTask)
	if fail != nil {
		return *fail
	}

	schedule, fail := t.findSchedule(ctx, params, server)
	if fail != nil {
		return *fail
	}

	seq, err := t.deps.Store.NextSequenceID(ctx, schedule.ID)
	if err != nil {
		return tool.Fail(actionCreateTask, tool.FailInternal, "failed to compute sequence id: "+err.Error())
	}

	taskID, err := t.deps.Store.CreateTask(ctx, store.Task{
		ScheduleID:        schedule.ID,
		SequenceID:        seq,
		Action:            action,
		Payload:           payload,
		TimeOffset:        int(params.Int("time_offset", 0)),
		ContinueOnFailure: params.Bool("continue_on_failure", false),
	})
	if err != nil {
		return tool.Fail(actionCreateTask, tool.FailInternal, "Failed to create task: "+err.Error())
	}

	t.deps.Audit.Record(ctx, activity(server, caller, "task_created", map[string]any{
		"schedule_id":   schedule.ID,
		"schedule_name": schedule.Name,
		"task_id":       taskID,
		"action":        action,
		"sequence_id":   seq,
	}))
	t.deps.Audit.Emit("server.task_created", map[string]any{
		"user_uuid":   caller.UUID,
		"server_uuid": server.UUID,
		"schedule_id": schedule.ID,
		"task_id":     taskID,
	})

	return tool.Ok(actionCreateTask,
		fmt.Sprintf("Task '%s' created successfully for schedule '%s' on server '%s'",
			action, schedule.Name, server.Name),
		map[string]any{
			"task_id":       taskID,
			"schedule_id":   schedule.ID,
			"schedule_name": schedule.Name,
			"action":        action,
			"sequence_id":   seq,
			"server_name":   server.Name,
		})
}

// findSchedule locates the target schedule by id or name and verifies it
// belongs to the server.
func (t *CreateTask) findSchedule(ctx context.Context, params tool.Params, server store.Server) (store.Schedule, *tool.Result) {
	if scheduleID := params.Int("schedule_id", 0); scheduleID != 0 {
		schedule, ok, err := t.deps.Store.ScheduleByID(ctx, scheduleID)
		if err != nil {
			res := tool.Fail(actionCreateTask, tool.FailInternal, "failed to load schedule: "+err.Error())
			return store.Schedule{}, &res
		}
		if !ok {
			res := tool.Fail(actionCreateTask, tool.FailNotFound, "Schedule not found. Please specify a schedule ID or name.")
			return store.Schedule{}, &res
		}
		if schedule.ServerID != server.ID {
			res := tool.Fail(actionCreateTask, tool.FailNotFound, "Schedule not found on this server")
			return store.Schedule{}, &res
		}
		return schedule, nil
	}

	if name := strings.TrimSpace(params.String("schedule_name")); name != "" {
		schedules, err := t.deps.Store.SearchSchedules(ctx, server.ID, name, scheduleSearchLimit)
		if err != nil {
			res := tool.Fail(actionCreateTask, tool.FailInternal, "failed to search schedules: "+err.Error())
			return store.Schedule{}, &res
		}
		if len(schedules) > 0 {
			return schedules[0], nil
		}
	}

	res := tool.Fail(actionCreateTask, tool.FailNotFound, "Schedule not found. Please specify a schedule ID or name.")
	return store.Schedule{}, &res
}
