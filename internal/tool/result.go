package tool

// FailureKind classifies a failed tool call. Every failure a tool reports
// carries exactly one of these.
type FailureKind string

// The failure taxonomy shared by all tools.
const (
	FailNotFound        FailureKind = "not_found"
	FailForbidden       FailureKind = "forbidden"
	FailInvalidArgument FailureKind = "invalid_argument"
	FailLimitReached    FailureKind = "limit_reached"
	FailUpstream        FailureKind = "upstream_error"
	FailInternal        FailureKind = "internal_error"
	FailUnknownTool     FailureKind = "unknown_tool"
)

// Result is the outcome of one tool invocation. It is created once, never
// mutated, and serialized immediately. Action names the result kind the
// formatter keys on (e.g. "create_backup"); Failure is set only when
// Success is false.
type Result struct {
	Success bool           `json:"success"`
	Action  string         `json:"action_type"`
	Failure FailureKind    `json:"failure,omitempty"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Ok builds a successful result.
func Ok(action, message string, fields map[string]any) Result {
	return Result{
		Success: true,
		Action:  action,
		Message: message,
		Fields:  fields,
	}
}

// Fail builds a failed result.
func Fail(action string, kind FailureKind, message string) Result {
	return Result{
		Success: false,
		Action:  action,
		Failure: kind,
		Message: message,
	}
}

// LimitReached builds the limit_reached refinement of invalid_argument. It
// carries the current count and the limit so callers can render a precise
// message instead of a generic one.
func LimitReached(action, message string, current, limit int) Result {
	return Result{
		Success: false,
		Action:  action,
		Failure: FailLimitReached,
		Message: message,
		Fields: map[string]any{
			"current_count": current,
			"limit":         limit,
		},
	}
}
