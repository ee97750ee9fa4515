package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/perch-panel/perch/internal/tool"
	"github.com/perch-panel/perch/internal/toolcall"
)

// maxRequestBody bounds request bodies; chat messages and file contents fit
// comfortably under it.
const maxRequestBody = 4 << 20

// toolInfo is the catalog entry served by /api/tools.
type toolInfo struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters"`
}

// invokeRequest is the body of POST /api/tools/{name}.
type invokeRequest struct {
	Params tool.Params      `json:"params"`
	Caller tool.Caller      `json:"caller"`
	Page   tool.PageContext `json:"page_context"`
}

// chatRequest is the body of POST /api/chat.
type chatRequest struct {
	Message string           `json:"message"`
	Caller  tool.Caller      `json:"caller"`
	Page    tool.PageContext `json:"page_context"`
}

// chatToolResult is one executed invocation within a chat response.
type chatToolResult struct {
	Tool      string        `json:"tool"`
	Formatted string        `json:"formatted"`
	Envelope  tool.Envelope `json:"envelope"`
}

// chatResponse is the body returned by POST /api/chat. CleanMessage is the
// inbound text with command markers stripped for display.
type chatResponse struct {
	CleanMessage string           `json:"clean_message"`
	Results      []chatToolResult `json:"results"`
}

func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"uptime":      time.Since(g.startedAt).Round(time.Second).String(),
			"tools":       len(g.registry.Names()),
			"subscribers": g.events.Subscribers(),
		})
	}
}

func (g *Gateway) handleListTools() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tools := g.registry.Tools()
		infos := make([]toolInfo, 0, len(tools))
		for _, t := range tools {
			infos = append(infos, toolInfo{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			})
		}
		writeJSON(w, http.StatusOK, infos)
	}
}

func (g *Gateway) handleInvokeTool() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		var req invokeRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		env := g.dispatch(r, name, req.Params, req.Caller, req.Page)

		status := http.StatusOK
		if !env.Success && env.Data != nil && env.Data.Failure == tool.FailUnknownTool {
			status = http.StatusNotFound
		}
		writeJSON(w, status, env)
	}
}

func (g *Gateway) handleChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Message == "" {
			http.Error(w, "message is required", http.StatusBadRequest)
			return
		}

		g.metrics.RecordChatMessage()

		invocations := g.parser.Parse(req.Message)
		results := make([]chatToolResult, 0, len(invocations))
		for _, inv := range invocations {
			env := g.dispatch(r, inv.Tool, tool.Params(inv.Params), req.Caller, req.Page)
			results = append(results, chatToolResult{
				Tool:      inv.Tool,
				Formatted: g.formatter.Format(inv.Tool, env),
				Envelope:  env,
			})
		}

		writeJSON(w, http.StatusOK, chatResponse{
			CleanMessage: toolcall.Strip(req.Message),
			Results:      results,
		})
	}
}

// dispatch runs one tool through the registry and records metrics.
func (g *Gateway) dispatch(r *http.Request, name string, params tool.Params, caller tool.Caller, page tool.PageContext) tool.Envelope {
	start := time.Now()
	env := g.registry.Dispatch(r.Context(), name, params, caller, page)
	g.metrics.RecordDispatch(name, outcome(env), time.Since(start))
	return env
}

// outcome classifies an envelope for the dispatch counter.
func outcome(env tool.Envelope) string {
	if env.Data == nil {
		return "dispatch_error"
	}
	if env.Data.Success {
		return "ok"
	}
	if env.Data.Failure != "" {
		return string(env.Data.Failure)
	}
	return "dispatch_error"
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
