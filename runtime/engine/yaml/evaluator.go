package yaml

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/BDNK1/taskforge/runtime"
	"github.com/expr-lang/expr"
	"github.com/spf13/afero"
)

// Custom expression functions available in all onlyIf expressions
var exprFunctions = []expr.Option{
	expr.Function("base64_encode", func(params ...any) (any, error) {
		s, _ := params[0].(string)
		return base64.StdEncoding.EncodeToString([]byte(s)), nil
	}),
	expr.Function("base64_decode", func(params ...any) (any, error) {
		s, _ := params[0].(string)
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return "", err
		}
		return string(decoded), nil
	}),
}

// ExpressionEvaluator evaluates expressions using the expr-lang library.
type ExpressionEvaluator struct{}

func NewExpressionEvaluator() *ExpressionEvaluator {
	return &ExpressionEvaluator{}
}

func (e *ExpressionEvaluator) Eval(execution *runtime.Execution, expression string) (any, error) {
	env := execution.Values()
	return Eval(expression, env, execution.Task.FileSystem())
}

// Eval compiles and runs expression against env. fs backs the file_exists function.
func Eval(expression string, env map[string]any, fs afero.Fs) (any, error) {
	// Add null as alias for nil (JSON/YAML compatibility)
	env["null"] = nil

	// defined() checks if a dotted path exists in env (distinguishes missing from null)
	// Usage: defined("properties.release") returns true if the key exists, even if its value is null
	definedFn := expr.Function(
		"defined",
		func(params ...any) (any, error) {
			path, ok := params[0].(string)
			if !ok {
				return false, fmt.Errorf("defined() expects string path argument, got %T", params[0])
			}
			return lookup(env, path), nil
		},
		new(func(string) bool),
	)

	fileExistsFn := expr.Function(
		"file_exists",
		func(params ...any) (any, error) {
			path, ok := params[0].(string)
			if !ok {
				return false, fmt.Errorf("file_exists() expects string path argument, got %T", params[0])
			}
			if fs == nil {
				return false, nil
			}
			exists, err := afero.Exists(fs, path)
			if err != nil {
				return false, err
			}
			return exists, nil
		},
		new(func(string) bool),
	)

	// NOTE: expr.Env MUST come before AllowUndefinedVariables for it to work
	opts := []expr.Option{
		expr.Env(env),
		expr.AllowUndefinedVariables(), // Missing variables return nil instead of compile error
		definedFn,
		fileExistsFn,
	}
	opts = append(opts, exprFunctions...)

	program, err := expr.Compile(expression, opts...)
	if err != nil {
		return nil, err
	}
	return expr.Run(program, env)
}

func lookup(env map[string]any, path string) bool {
	var current any = env
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return false
		}
		if current, ok = m[key]; !ok {
			return false
		}
	}
	return true
}
