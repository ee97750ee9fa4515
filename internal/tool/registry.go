package tool

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Envelope is the uniform dispatch result, serializable directly to JSON for
// any transport. Success reflects whether dispatch itself worked; a tool's
// own failure still arrives as a successful dispatch whose Data reports it.
type Envelope struct {
	Success bool    `json:"success"`
	Data    *Result `json:"data"`
	Error   string  `json:"error,omitempty"`
}

// Registry holds registered tools and executes them by name. It is
// instance-based (not global) for better testability.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger *slog.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

// Register adds a tool to the registry. It returns ErrEmptyToolName for a
// blank name and ErrDuplicateTool if the name is already taken.
func (r *Registry) Register(t Tool) error {
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return ErrEmptyToolName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}

	r.tools[name] = t
	return nil
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns all registered tools sorted by name.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	slices.SortFunc(tools, func(a, b Tool) int {
		return cmp.Compare(a.Name(), b.Name())
	})
	return tools
}

// Names returns all registered tool names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dispatch looks up a tool and executes it. It is the single point
// guaranteeing no invocation propagates an unhandled failure: unknown names
// become a typed unknown-tool envelope, and a panicking tool is recovered,
// logged with its name, and converted to an internal_error envelope.
func (r *Registry) Dispatch(ctx context.Context, name string, params Params, caller Caller, page PageContext) (env Envelope) {
	t, ok := r.Get(name)
	if !ok {
		msg := fmt.Sprintf("unknown tool: %s", name)
		res := Fail(name, FailUnknownTool, msg)
		return Envelope{Success: false, Data: &res, Error: msg}
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked",
				"tool", name,
				"panic", rec,
			)
			msg := fmt.Sprintf("internal error in tool %s", name)
			res := Fail(name, FailInternal, msg)
			env = Envelope{Success: false, Data: &res, Error: msg}
		}
	}()

	result := t.Execute(ctx, params, caller, page)
	if !result.Success {
		r.logger.Warn("tool reported failure",
			"tool", name,
			"failure", string(result.Failure),
			"message", result.Message,
		)
	}

	return Envelope{Success: true, Data: &result}
}
