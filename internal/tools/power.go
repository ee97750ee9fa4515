package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/perch-panel/perch/internal/tool"
)

const actionServerPower = "server_power"

// powerActions is the fixed set of accepted power signals.
var powerActions = map[string]bool{
	"start":   true,
	"stop":    true,
	"restart": true,
	"kill":    true,
}

// destructiveActions are tagged in the result so the UI can ask for
// confirmation before repeating them.
var destructiveActions = map[string]bool{
	"stop":    true,
	"restart": true,
	"kill":    true,
}

var powerPastTense = map[string]string{
	"start":   "started",
	"stop":    "stopped",
	"restart": "restarted",
	"kill":    "killed",
}

// PowerAction performs a server power action. It has no local mutation; the
// whole operation is one daemon call.
type PowerAction struct {
	deps *Deps
}

// NewPowerAction creates the server_power_action tool.
func NewPowerAction(deps *Deps) *PowerAction {
	deps.defaults()
	return &PowerAction{deps: deps}
}

func (t *PowerAction) Name() string { return "server_power_action" }

func (t *PowerAction) Description() string {
	return "Perform a power action on a server: start, stop, restart, or kill."
}

func (t *PowerAction) Parameters() map[string]string {
	return map[string]string{
		"action":      "Power action: start, stop, restart, or kill (required)",
		"server_uuid": "Server UUID (optional, can use server_name instead)",
		"server_name": "Server name (optional, can use server_uuid instead)",
	}
}

// Execute validates the action, resolves and authorizes the server, and
// sends the power signal to the node daemon.
func (t *PowerAction) Execute(ctx context.Context, params tool.Params, caller tool.Caller, page tool.PageContext) tool.Result {
	action := strings.ToLower(params.String("action"))
	if action == "" {
		return tool.Fail(actionServerPower, tool.FailInvalidArgument,
			"Action is required. Valid actions: start, stop, restart, kill")
	}
	if !powerActions[action] {
		return tool.Fail(actionServerPower, tool.FailInvalidArgument,
			"Invalid action. Valid actions: start, stop, restart, kill")
	}

	server, fail := t.deps.resolveServer(ctx, params, caller, page, actionServerPower)
	if fail != nil {
		return *fail
	}

	node, fail := t.deps.nodeFor(ctx, server, actionServerPower)
	if fail != nil {
		return *fail
	}

	dm := t.deps.Dial(node, 0)
	if msg, ok := remoteFailure(dm.PowerAction(ctx, server.UUID, action)); !ok {
		res := tool.Fail(actionServerPower, tool.FailUpstream,
			fmt.Sprintf("Failed to %s server: %s", action, msg))
		res.Fields = map[string]any{"is_destructive": destructiveActions[action]}
		return res
	}

	t.deps.Audit.Record(ctx, activity(server, caller, "server_"+action, map[string]any{
		"action": action,
	}))
	t.deps.Audit.Emit("server.power_action", map[string]any{
		"user_uuid":   caller.UUID,
		"server_uuid": server.UUID,
		"action":      action,
	})

	past := powerPastTense[action]
	return tool.Ok(actionServerPower,
		fmt.Sprintf("Server '%s' %s successfully", server.Name, past),
		map[string]any{
			"action":         action,
			"action_past":    past,
			"server_name":    server.Name,
			"is_destructive": destructiveActions[action],
		})
}
