package runtime

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

var _ context.Context = &Execution{}

// Execution is one run of one task. It implements context.Context so that actions
// receive the execution's deadline and cancellation.
type Execution struct {
	ID         string
	Task       Task
	Properties map[string]any
	Changes    *InputChanges
	Started    time.Time
	ctx        context.Context // real context carrying deadline/cancellation
}

// context.Context implementation, delegating to the embedded ctx so that real
// timeouts and cancellations propagate to actions and slog calls.

func (e *Execution) Deadline() (deadline time.Time, ok bool) {
	return e.ctx.Deadline()
}

func (e *Execution) Done() <-chan struct{} {
	return e.ctx.Done()
}

func (e *Execution) Err() error {
	return e.ctx.Err()
}

func (e *Execution) Value(key any) any {
	return e.ctx.Value(key)
}

// WithContext returns a shallow copy of the Execution with a new embedded
// context. Mirrors the http.Request.WithContext pattern.
func (e *Execution) WithContext(ctx context.Context) *Execution {
	copy := *e
	copy.ctx = ctx
	return &copy
}

// WithScopedContext temporarily swaps the execution context while fn runs.
// Used to apply the task timeout to its actions only.
// Execution is single-threaded, so temporary ctx mutation is safe here.
func (e *Execution) WithScopedContext(ctx context.Context, fn func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	prev := e.ctx
	e.ctx = ctx
	defer func() {
		e.ctx = prev
	}()
	fn()
}

// Values returns the variables visible to onlyIf expressions:
// task (name, description), inputs (resolved input values), properties and env.
func (e *Execution) Values() map[string]any {
	inputs := make(map[string]any)
	for _, p := range e.Task.Inputs().ValueProperties() {
		inputs[p.Name] = p.Value()
	}

	env := make(map[string]any)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	properties := e.Properties
	if properties == nil {
		properties = map[string]any{}
	}

	return map[string]any{
		"task": map[string]any{
			"name":        e.Task.Name(),
			"description": e.Task.Description(),
		},
		"inputs":     inputs,
		"properties": properties,
		"env":        env,
	}
}

func NewExecution(ctx context.Context, task Task, properties map[string]any) *Execution {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Execution{
		ID:         uuid.New().String(),
		Task:       task,
		Properties: properties,
		Started:    time.Now(),
		ctx:        ctx,
	}
}
