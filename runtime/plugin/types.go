package plugin

import (
	"context"
	"log/slog"

	"github.com/BDNK1/taskforge/runtime"
)

type (
	Task        = runtime.Task
	DefaultTask = runtime.DefaultTask

	// Actions lists the action methods of the struct it appears in, in execution order.
	Actions = runtime.Actions
	// Cacheable marks a task type whose outputs may be cached.
	Cacheable = runtime.Cacheable

	InputChanges     = runtime.InputChanges
	InputFileDetails = runtime.InputFileDetails
	ChangeType       = runtime.ChangeType

	Paths          = runtime.Paths
	FileCollection = runtime.FileCollection
)

const (
	ChangeAdded    = runtime.ChangeAdded
	ChangeModified = runtime.ChangeModified
	ChangeRemoved  = runtime.ChangeRemoved
)

// LoggerFrom returns the logger of the running action, scoped to the task and action.
func LoggerFrom(ctx context.Context) *slog.Logger {
	return runtime.LoggerFrom(ctx)
}
