package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// varPattern matches ${NAME} and ${NAME:-fallback} references in raw YAML.
// Group 1 is the variable name; group 2, when present, the inline fallback.
var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads the YAML file at path into a Config. Environment references are
// substituted before parsing and defaults are applied after, so a minimal
// file with just the non-defaultable fields is enough.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, err := substituteVars(raw)
	if err != nil {
		return nil, fmt.Errorf("config: expanding variables in %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.Defaults()

	return &cfg, nil
}

// substituteVars resolves every ${NAME} reference against the environment,
// falling back to the inline default when one is given. A reference with
// neither is an error; all such errors are joined so one pass reports every
// unresolved variable.
func substituteVars(raw []byte) ([]byte, error) {
	var unresolved []error

	out := varPattern.ReplaceAllFunc(raw, func(ref []byte) []byte {
		groups := varPattern.FindSubmatch(ref)

		if value, ok := os.LookupEnv(string(groups[1])); ok {
			return []byte(value)
		}
		if fallback := groups[2]; fallback != nil {
			return fallback
		}

		unresolved = append(unresolved, fmt.Errorf("unresolved variable: %s", groups[1]))
		return ref
	})

	return out, errors.Join(unresolved...)
}
