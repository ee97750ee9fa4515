// Package tool defines the tool contract, the result model, the registry
// that dispatches invocations, and the compensating-mutation helper shared by
// tools that must keep the local store and a remote system consistent.
package tool

import "context"

// Caller is the already-authenticated identity a tool acts on behalf of.
// Authentication happens elsewhere; tools only authorize against this data.
type Caller struct {
	ID   int64  `json:"id"`
	UUID string `json:"uuid"`
}

// PageContext is the ambient hint supplied by the panel GUI: the short UUID
// of the server page the caller is currently viewing, if any.
type PageContext struct {
	ServerShortID string `json:"server_uuid_short"`
}

// Tool is one named, independently authorized operation in the assistant's
// capability catalog.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what the tool does.
	Description() string

	// Parameters maps parameter names to usage descriptions, for the
	// catalog shown to callers and language models.
	Parameters() map[string]string

	// Execute runs the tool. Ordinary failures come back as a failed
	// Result; a panic is a bug that the registry converts to an
	// internal_error envelope.
	Execute(ctx context.Context, params Params, caller Caller, page PageContext) Result
}
