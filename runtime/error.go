package runtime

import (
	"fmt"
	"reflect"
	"strings"
)

// DefinitionError reports a task type whose declarations cannot be used.
// Creating or decorating a task of that type fails with it.
type DefinitionError struct {
	Type    reflect.Type
	Member  string
	Message string
}

func newDefinitionError(t reflect.Type, member, format string, args ...any) *DefinitionError {
	return &DefinitionError{Type: t, Member: member, Message: fmt.Sprintf(format, args...)}
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid task type %s: %s", e.Type, e.Message)
}

// TaskValidationError aggregates the validation messages that stopped a task before its actions ran.
type TaskValidationError struct {
	Task     string
	Messages ValidationMessages
}

func (e *TaskValidationError) Error() string {
	if len(e.Messages) == 1 {
		return fmt.Sprintf("task '%s' is invalid: %s", e.Task, e.Messages[0])
	}
	return fmt.Sprintf("task '%s' has %d problems:\n  - %s", e.Task, len(e.Messages), strings.Join(e.Messages, "\n  - "))
}

// TaskError wraps a failure of one task action with execution metadata
// such as the failing action, its position and the execution id.
type TaskError struct {
	Task     string
	Err      error
	Metadata map[string]any
}

func (e *TaskError) Error() string {
	if action, ok := e.Metadata["action"].(string); ok && action != "" {
		return fmt.Sprintf("task '%s' failed in action %s: %v", e.Task, action, e.Err)
	}
	return fmt.Sprintf("task '%s' failed: %v", e.Task, e.Err)
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *TaskError) Unwrap() error {
	return e.Err
}

// NewTaskError creates a new task error with the given underlying error
func NewTaskError(task string, err error) *TaskError {
	return &TaskError{
		Task:     task,
		Err:      err,
		Metadata: make(map[string]any),
	}
}

// WithMetadata adds metadata to the error
func (e *TaskError) WithMetadata(key string, value any) *TaskError {
	e.Metadata[key] = value
	return e
}

// Action returns the name of the failing action if known
func (e *TaskError) Action() string {
	if val, ok := e.Metadata["action"].(string); ok {
		return val
	}
	return ""
}
