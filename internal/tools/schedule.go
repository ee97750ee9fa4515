package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/perch-panel/perch/internal/cronspec"
	"github.com/perch-panel/perch/internal/store"
	"github.com/perch-panel/perch/internal/tool"
)

const actionCreateSchedule = "create_schedule"

// taskActions are the actions a schedule task may perform. The bare power
// verbs are accepted directly as well as through {"action": "power",
// "payload": "start"}.
var taskActions = map[string]bool{
	"power":   true,
	"backup":  true,
	"command": true,
	"restart": true,
	"kill":    true,
	"install": true,
	"update":  true,
	"start":   true,
	"stop":    true,
}

const taskActionList = "power, backup, command, restart, kill, install, update, start, stop"

// CreateSchedule creates a cron-driven schedule, optionally with its tasks in
// the same call. Task problems after the schedule row exists are soft
// failures: the schedule is kept and the problem is reported in the message,
// since a half-built schedule the user can finish beats a rolled-back one.
type CreateSchedule struct {
	deps *Deps
}

// NewCreateSchedule creates the create_schedule tool.
func NewCreateSchedule(deps *Deps) *CreateSchedule {
	deps.defaults()
	return &CreateSchedule{deps: deps}
}

func (t *CreateSchedule) Name() string { return "create_schedule" }

func (t *CreateSchedule) Description() string {
	return "Create a scheduled task for a server. Requires cron expression components (minute, hour, day of month, month, day of week) and a schedule name. Can optionally include tasks to execute."
}

func (t *CreateSchedule) Parameters() map[string]string {
	return map[string]string{
		"name":              "Schedule name (required)",
		"cron_minute":       "Cron minute (0-59 or *) (required)",
		"cron_hour":         "Cron hour (0-23 or *) (required)",
		"cron_day_of_month": "Cron day of month (1-31 or *) (required)",
		"cron_month":        "Cron month (1-12 or *) (required)",
		"cron_day_of_week":  "Cron day of week (0-7, where 0 and 7 are Sunday) (required)",
		"is_active":         "Whether the schedule is active (optional, default: true)",
		"only_when_online":  "Only run when the server is online (optional, default: false)",
		"command":           "Command to execute (optional, creates a command task automatically)",
		"tasks":             "Tasks to create (optional, single object or list). Each task has: action (required: " + taskActionList + "), payload (required for power/command), time_offset (optional minutes), continue_on_failure (optional boolean)",
		"server_uuid":       "Server UUID (optional, can use server_name instead)",
		"server_name":       "Server name (optional, can use server_uuid instead)",
	}
}

func (t *CreateSchedule) Execute(ctx context.Context, params tool.Params, caller tool.Caller, page tool.PageContext) tool.Result {
	name := strings.TrimSpace(params.String("name"))
	if name == "" {
		return tool.Fail(actionCreateSchedule, tool.FailInvalidArgument, "Missing required field: name")
	}

	expr := cronspec.Expression{
		Minute:     strings.TrimSpace(params.String("cron_minute")),
		Hour:       strings.TrimSpace(params.String("cron_hour")),
		DayOfMonth: strings.TrimSpace(params.String("cron_day_of_month")),
		Month:      strings.TrimSpace(params.String("cron_month")),
		DayOfWeek:  strings.TrimSpace(params.String("cron_day_of_week")),
	}
	for field, value := range map[string]string{
		"cron_minute":       expr.Minute,
		"cron_hour":         expr.Hour,
		"cron_day_of_month": expr.DayOfMonth,
		"cron_month":        expr.Month,
		"cron_day_of_week":  expr.DayOfWeek,
	} {
		if value == "" {
			return tool.Fail(actionCreateSchedule, tool.FailInvalidArgument, "Missing required field: "+field)
		}
	}
	if err := cronspec.Validate(expr); err != nil {
		return tool.Fail(actionCreateSchedule, tool.FailInvalidArgument,
			"Invalid cron expression. Please check your cron values.")
	}

	server, fail := t.deps.resolveServer(ctx, params, caller, page, actionCreateSchedule)
	if fail != nil {
		return *fail
	}

	nextRun, err := cronspec.NextRun(expr, t.deps.Now())
	if err != nil {
		return tool.Fail(actionCreateSchedule, tool.FailInvalidArgument,
			"Invalid cron expression. Please check your cron values.")
	}

	active := params.Bool("is_active", true)
	scheduleID, err := t.deps.Store.CreateSchedule(ctx, store.Schedule{
		ServerID:       server.ID,
		Name:           name,
		Minute:         expr.Minute,
		Hour:           expr.Hour,
		DayOfMonth:     expr.DayOfMonth,
		Month:          expr.Month,
		DayOfWeek:      expr.DayOfWeek,
		Active:         active,
		OnlyWhenOnline: params.Bool("only_when_online", false),
		NextRunAt:      nextRun,
	})
	if err != nil {
		return tool.Fail(actionCreateSchedule, tool.FailInternal, "Failed to create schedule: "+err.Error())
	}

	created, tasksErr := t.createTasks(ctx, scheduleID, params)

	t.deps.Audit.Record(ctx, activity(server, caller, "schedule_created", map[string]any{
		"schedule_id":   scheduleID,
		"schedule_name": name,
		"tasks_created": len(created),
	}))
	t.deps.Audit.Emit("server.schedule_created", map[string]any{
		"user_uuid":   caller.UUID,
		"server_uuid": server.UUID,
		"schedule_id": scheduleID,
	})

	msg := fmt.Sprintf("Schedule '%s' created successfully for server '%s'. Next run: %s",
		name, server.Name, nextRun.Format(time.RFC3339))
	if len(created) > 0 {
		labels := make([]string, len(created))
		for i, task := range created {
			labels[i] = fmt.Sprintf("%s (sequence #%d)", task.Action, task.SequenceID)
		}
		msg += fmt.Sprintf(". Created %d task(s): %s", len(created), strings.Join(labels, ", "))
	} else {
		msg += ". ⚠️ Warning: No tasks were created. The schedule will not execute anything until tasks are added."
	}
	if tasksErr != "" {
		msg += " Error creating tasks: " + tasksErr
	}

	return tool.Ok(actionCreateSchedule, msg, map[string]any{
		"schedule_id":     scheduleID,
		"schedule_name":   name,
		"cron_expression": expr.String(),
		"next_run_at":     nextRun.Format(time.RFC3339),
		"is_active":       active,
		"server_name":     server.Name,
		"tasks_created":   len(created),
	})
}

// createTasks builds the schedule's tasks from the tasks parameter, or from a
// bare command parameter when no tasks are given. The returned string is the
// last soft error encountered, empty when everything went through.
func (t *CreateSchedule) createTasks(ctx context.Context, scheduleID int64, params tool.Params) ([]store.Task, string) {
	var (
		created  []store.Task
		tasksErr string
	)

	specs := params.ObjectList("tasks")
	if len(specs) == 0 && !params.Has("tasks") {
		// "Create a schedule to run X" phrasing: a bare command parameter
		// becomes the schedule's single command task.
		if command := strings.TrimSpace(params.String("command")); command != "" {
			specs = []tool.Params{{"action": "command", "payload": command}}
		}
	}

	for _, spec := range specs {
		action := strings.TrimSpace(spec.String("action"))
		if action == "" {
			tasksErr = "Task action is required for each task"
			continue
		}
		if !taskActions[action] {
			tasksErr = fmt.Sprintf("Invalid task action: %s. Valid actions are: %s", action, taskActionList)
			continue
		}

		payload := strings.TrimSpace(spec.String("payload"))
		if action == "power" && payload == "" {
			tasksErr = "Task action 'power' requires a payload (start, stop, restart, or kill)"
			continue
		}
		if action == "command" && payload == "" {
			tasksErr = "Task action 'command' requires a payload (the command to execute)"
			continue
		}

		seq, err := t.deps.Store.NextSequenceID(ctx, scheduleID)
		if err != nil {
			tasksErr = "Failed to create task with action '" + action + "': " + err.Error()
			continue
		}

		task := store.Task{
			ScheduleID:        scheduleID,
			SequenceID:        seq,
			Action:            action,
			Payload:           payload,
			TimeOffset:        int(spec.Int("time_offset", 0)),
			ContinueOnFailure: spec.Bool("continue_on_failure", false),
		}
		if task.ID, err = t.deps.Store.CreateTask(ctx, task); err != nil {
			tasksErr = "Failed to create task with action '" + action + "': " + err.Error()
			continue
		}
		created = append(created, task)
	}

	return created, tasksErr
}
