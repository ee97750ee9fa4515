// Package toolcall extracts structured tool invocations embedded in
// free-form assistant output. Commands have the shape
//
//	TOOL_CALL: tool_name {"param": "value"}
//
// and may appear anywhere in the text, interleaved with prose. The argument
// object is delimited by brace counting, so nested objects (task lists,
// payloads) are captured whole; a naive match to the first closing brace
// would truncate them.
package toolcall

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// Marker is the in-band token that introduces a command.
const Marker = "TOOL_CALL:"

// markerPattern matches the marker, the tool name, and the opening brace of
// the argument object.
var markerPattern = regexp.MustCompile(`TOOL_CALL:\s*(\w+)\s*\{`)

// stripPattern removes well-formed single-level commands for display. It is
// deliberately less strict than Parse — its only job is cosmetic.
var stripPattern = regexp.MustCompile(`TOOL_CALL:\s*\w+\s*\{[^}]*\}\n?`)

// Invocation is one parsed command awaiting execution. Params is always a
// valid mapping; Parse guarantees this or drops the invocation.
type Invocation struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

// Parser extracts invocations from text.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a Parser. A nil logger falls back to slog.Default.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse returns every well-formed embedded command, in order of appearance.
// Malformed commands are dropped, never guessed at: if the argument text is
// not a valid JSON object the invocation is skipped and logged, and if the
// braces never balance before the text ends the scan moves past the opening
// brace without emitting anything. Adversarial or truncated model output
// therefore yields fewer invocations, not wrong ones.
func (p *Parser) Parse(text string) []Invocation {
	var invocations []Invocation

	offset := 0
	for offset < len(text) {
		loc := markerPattern.FindStringSubmatchIndex(text[offset:])
		if loc == nil {
			break
		}

		toolName := text[offset+loc[2] : offset+loc[3]]
		bracePos := offset + loc[1] - 1 // index of the matched '{'

		end, ok := matchBraces(text, bracePos)
		if !ok {
			// Unbalanced braces: skip past the opening brace and keep
			// scanning. No partial or guessed boundary.
			offset = bracePos + 1
			continue
		}

		argText := text[bracePos:end]
		var params map[string]any
		if err := json.Unmarshal([]byte(argText), &params); err != nil {
			p.logger.Warn("dropping tool call with malformed arguments",
				"tool", toolName,
				"error", err,
				"args", truncate(argText, 200),
			)
			offset = end
			continue
		}

		invocations = append(invocations, Invocation{Tool: toolName, Params: params})
		offset = end
	}

	return invocations
}

// Strip removes well-formed embedded commands from the text for clean
// display to a human.
func Strip(text string) string {
	return strings.TrimSpace(stripPattern.ReplaceAllString(text, ""))
}

// matchBraces scans forward from the opening brace at start, tracking depth,
// and returns the index just past the matching close. ok is false if the
// braces never balance.
func matchBraces(text string, start int) (end int, ok bool) {
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
