package tool

import "errors"

var (
	// ErrEmptyToolName is returned when registering a tool with an empty name.
	ErrEmptyToolName = errors.New("tool name must not be empty")

	// ErrDuplicateTool is returned when registering a tool with a name that
	// already exists in the registry.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrLocalWrite wraps failures of the local insert inside RunWithRollback,
	// distinguishing them from remote failures.
	ErrLocalWrite = errors.New("local write failed")
)
