package runtime

import "context"

// BuildLoader loads build definitions from files.
type BuildLoader interface {
	Extensions() []string
	Load(filePath string) (*Build, error)
}

// ExpressionEvaluator evaluates onlyIf expressions within a given execution.
// The *Execution carries both the variable namespace (via Values()) and the
// deadline/cancellation signal (it implements context.Context), so a single
// parameter covers both concerns.
type ExpressionEvaluator interface {
	Eval(execution *Execution, expression string) (any, error)
}

// HistoryStore persists the file fingerprints of previous task executions.
type HistoryStore interface {
	// Load returns the history of task, or nil if the task never ran.
	Load(ctx context.Context, task string) (*TaskHistory, error)
	Save(ctx context.Context, task string, history *TaskHistory) error
}

// TaskHistory is what a successful execution left behind.
type TaskHistory struct {
	Inputs  Fingerprints
	Outputs Fingerprints
	// Values holds the hashes of the value inputs.
	Values Fingerprints
}
