package config

import (
	"fmt"
	"regexp"
	"strings"
)

// EnvVarSpec represents a parsed environment variable reference
type EnvVarSpec struct {
	// VarName is the environment variable name (e.g., "DATABASE_URL")
	VarName string

	HasDefault   bool
	DefaultValue string

	// IsLiteral indicates a plain value with no variable reference
	IsLiteral    bool
	LiteralValue string
}

// LookupFunc reports the value of an environment variable; os.LookupEnv satisfies it.
type LookupFunc func(name string) (string, bool)

// envVarPattern matches ${VAR} and ${VAR:default} syntax
var envVarPattern = regexp.MustCompile(`^\$\{([A-Z_][A-Z0-9_]*)(:[^}]*)?\}$`)

// ParseEnvVar parses a value that may reference an environment variable.
//
// Supported formats:
//   - ${VAR}         - required environment variable
//   - ${VAR:default} - environment variable with a default
//   - anything else  - literal value, including malformed references such as ${lower}
func ParseEnvVar(value string) *EnvVarSpec {
	matches := envVarPattern.FindStringSubmatch(value)
	if matches == nil {
		return &EnvVarSpec{IsLiteral: true, LiteralValue: value}
	}

	spec := &EnvVarSpec{
		VarName:    matches[1],
		HasDefault: matches[2] != "",
	}
	if spec.HasDefault {
		spec.DefaultValue = strings.TrimPrefix(matches[2], ":")
	}
	return spec
}

// Resolve returns the value the spec stands for.
func (s *EnvVarSpec) Resolve(lookup LookupFunc) (string, error) {
	if s.IsLiteral {
		return s.LiteralValue, nil
	}
	if value, ok := lookup(s.VarName); ok {
		return value, nil
	}
	if s.HasDefault {
		return s.DefaultValue, nil
	}
	return "", fmt.Errorf("environment variable %s is not set", s.VarName)
}

// ExpandArgs returns a copy of args in which every string value that references an
// environment variable is replaced by its value. Nested maps and lists are expanded too.
func ExpandArgs(args map[string]any, lookup LookupFunc) (map[string]any, error) {
	if args == nil {
		return nil, nil
	}
	expanded, err := expandValue(args, lookup, "")
	if err != nil {
		return nil, err
	}
	return expanded.(map[string]any), nil
}

func expandValue(value any, lookup LookupFunc, path string) (any, error) {
	switch v := value.(type) {
	case string:
		resolved, err := ParseEnvVar(v).Resolve(lookup)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return resolved, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			resolved, err := expandValue(item, lookup, joinPath(path, key))
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			resolved, err := expandValue(item, lookup, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return value, nil
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
