package tool

import (
	"encoding/json"
	"strconv"
)

// Params is a tool invocation's argument mapping, as decoded from JSON.
// Accessors tolerate the loose typing language models produce: numbers
// arrive as float64, sometimes as digit strings, booleans sometimes as
// "true"/"false".
type Params map[string]any

// Has reports whether the key is present.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the string value for key, or "" when absent or not a string.
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// StringOr returns the string value for key, or def when absent or empty.
func (p Params) StringOr(key, def string) string {
	if s := p.String(key); s != "" {
		return s
	}
	return def
}

// Int returns the integer value for key, accepting JSON numbers and digit
// strings; def when absent or unparseable.
func (p Params) Int(key string, def int64) int64 {
	switch v := p[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

// Bool returns the boolean value for key, accepting JSON booleans and
// "true"/"false" strings; def when absent or unparseable.
func (p Params) Bool(key string, def bool) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// StringSlice returns the value for key as a slice of strings. A bare string
// becomes a one-element slice; non-string list members are skipped.
func (p Params) StringSlice(key string) []string {
	switch v := p[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	}
	return nil
}

// ObjectList returns the value for key normalized to a list of mappings.
// A single object becomes a one-element list, matching how callers may pass
// either one task or a list of tasks.
func (p Params) ObjectList(key string) []Params {
	switch v := p[key].(type) {
	case map[string]any:
		return []Params{Params(v)}
	case []any:
		out := make([]Params, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, Params(m))
			}
		}
		return out
	}
	return nil
}
