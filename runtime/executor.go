package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/BDNK1/taskforge/runtime"

// Outcome is the result of executing one task.
type Outcome string

const (
	OutcomeExecuted Outcome = "executed"
	OutcomeUpToDate Outcome = "up-to-date"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// Executor runs decorated tasks: onlyIf predicates, validation, up-to-date checks,
// then the task actions in order.
type Executor struct {
	l         *slog.Logger
	evaluator ExpressionEvaluator
	history   HistoryStore
	tracer    trace.Tracer
	runs      metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewExecutor creates an executor. history may be nil, in which case every execution is a full rebuild.
func NewExecutor(l *slog.Logger, evaluator ExpressionEvaluator, history HistoryStore) *Executor {
	if l == nil {
		l = slog.Default()
	}
	meter := otel.Meter(instrumentationName)
	runs, err := meter.Int64Counter("taskforge.task.executions",
		metric.WithDescription("Number of task executions by outcome"))
	if err != nil {
		l.Warn("Failed to create execution counter", "error", err)
	}
	duration, err := meter.Float64Histogram("taskforge.task.duration",
		metric.WithDescription("Duration of task executions"),
		metric.WithUnit("s"))
	if err != nil {
		l.Warn("Failed to create duration histogram", "error", err)
	}

	return &Executor{
		l:         l,
		evaluator: evaluator,
		history:   history,
		tracer:    otel.Tracer(instrumentationName),
		runs:      runs,
		duration:  duration,
	}
}

// Execute runs task once. properties are exposed to onlyIf expressions.
func (e *Executor) Execute(ctx context.Context, task Task, properties map[string]any) (Outcome, error) {
	ctx, span := e.tracer.Start(ctx, "task "+task.Name(), trace.WithAttributes(
		attribute.String("task.name", task.Name()),
	))
	defer span.End()

	execution := NewExecution(ctx, task, properties)
	logger := e.l.With("task", task.Name(), "execution_id", execution.ID)
	execution = execution.WithContext(WithLogger(ctx, logger))
	span.SetAttributes(attribute.String("execution.id", execution.ID))

	outcome, err := e.execute(execution, logger)

	span.SetAttributes(attribute.String("task.outcome", string(outcome)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	e.record(ctx, task, outcome, time.Since(execution.Started))
	return outcome, err
}

func (e *Executor) execute(execution *Execution, logger *slog.Logger) (Outcome, error) {
	task := execution.Task
	end := BeginPropertyPass(task)
	defer end()

	run, err := e.evaluateOnlyIf(execution, logger)
	if err != nil {
		return OutcomeFailed, err
	}
	if !run {
		return OutcomeSkipped, nil
	}

	if err := e.validate(task); err != nil {
		logger.ErrorContext(execution, "Task validation failed", "error", err)
		return OutcomeFailed, err
	}

	files, err := Fingerprint(task.FileSystem(), task.Inputs().Files())
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to fingerprint inputs of task '%s': %w", task.Name(), err)
	}
	current := &TaskHistory{Inputs: files, Values: FingerprintValues(task.Inputs().ValueProperties())}
	previous, err := e.loadHistory(execution, task, logger)
	if err != nil {
		return OutcomeFailed, err
	}

	if e.isUpToDate(task, previous, current) {
		logger.InfoContext(execution, "Task is up to date")
		return OutcomeUpToDate, nil
	}

	// A changed value input invalidates everything the previous execution produced.
	execution.Changes = NewInputChanges(nil, current.Inputs)
	if previous != nil && previous.Values.Equal(current.Values) && e.outputsIntact(task, previous) {
		execution.Changes = NewInputChanges(previous.Inputs, current.Inputs)
	}
	logger.InfoContext(execution, "Executing task",
		"actions", len(task.Actions()),
		"incremental", execution.Changes.IsIncremental(),
		"cacheable", task.Outputs().CachingEnabled(task))

	if err := e.runActions(execution, logger); err != nil {
		return OutcomeFailed, err
	}

	if err := e.saveHistory(execution, task, current); err != nil {
		logger.WarnContext(execution, "Failed to record task history", "error", err)
	}
	return OutcomeExecuted, nil
}

func (e *Executor) evaluateOnlyIf(execution *Execution, logger *slog.Logger) (bool, error) {
	for _, expression := range execution.Task.OnlyIf() {
		if e.evaluator == nil {
			return false, fmt.Errorf("task '%s' declares onlyIf but no expression evaluator is configured", execution.Task.Name())
		}
		result, err := e.evaluator.Eval(execution, expression)
		if err != nil {
			logger.ErrorContext(execution, "Error evaluating onlyIf", "expression", expression, "error", err)
			return false, fmt.Errorf("error evaluating onlyIf %s: %w", expression, err)
		}
		resultBool, ok := result.(bool)
		if !ok {
			return false, fmt.Errorf("onlyIf %s evaluated to %T, expected boolean", expression, result)
		}
		if !resultBool {
			logger.InfoContext(execution, "Skipping task, onlyIf not met", "expression", expression)
			return false, nil
		}
	}
	return true, nil
}

// validate runs every task validator and returns the aggregated messages as one error.
func (e *Executor) validate(task Task) error {
	var messages ValidationMessages
	for _, v := range task.Validators() {
		v.Validate(task, &messages)
	}
	if len(messages) > 0 {
		return &TaskValidationError{Task: task.Name(), Messages: messages}
	}
	return nil
}

func (e *Executor) loadHistory(execution *Execution, task Task, logger *slog.Logger) (*TaskHistory, error) {
	if e.history == nil {
		return nil, nil
	}
	previous, err := e.history.Load(execution, task.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to load history of task '%s': %w", task.Name(), err)
	}
	if previous == nil {
		logger.DebugContext(execution, "No previous execution recorded")
	}
	return previous, nil
}

// isUpToDate reports whether task may be skipped: it declares outputs, every UpToDateWhen
// predicate holds, and neither inputs nor outputs changed since the recorded execution.
func (e *Executor) isUpToDate(task Task, previous, current *TaskHistory) bool {
	outputs := task.Outputs()
	if previous == nil || !outputs.HasOutputs() || !outputs.UpToDateSpecsSatisfied(task) {
		return false
	}
	if !previous.Inputs.Equal(current.Inputs) || !previous.Values.Equal(current.Values) {
		return false
	}
	return e.outputsIntact(task, previous)
}

func (e *Executor) outputsIntact(task Task, previous *TaskHistory) bool {
	for _, path := range task.Outputs().Files() {
		if !exists(task.FileSystem(), path) {
			return false
		}
	}
	outputs, err := Fingerprint(task.FileSystem(), task.Outputs().Files())
	if err != nil {
		return false
	}
	return previous.Outputs.Equal(outputs)
}

func (e *Executor) runActions(execution *Execution, logger *slog.Logger) error {
	task := execution.Task
	ctx := execution.ctx
	var cancel context.CancelFunc = func() {}
	if timeout := task.Timeout(); timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	var runErr error
	execution.WithScopedContext(ctx, func() {
		for i, action := range task.Actions() {
			if err := execution.Err(); err != nil {
				runErr = NewTaskError(task.Name(), err).WithMetadata("action_index", i)
				return
			}

			var err error
			if incremental, ok := action.(IncrementalAction); ok {
				err = incremental.ExecuteIncremental(execution, task, execution.Changes)
			} else {
				err = action.Execute(execution, task)
			}
			if err != nil {
				taskErr := NewTaskError(task.Name(), err).
					WithMetadata("action_index", i).
					WithMetadata("execution_id", execution.ID)
				if named, ok := action.(interface{ Name() string }); ok {
					taskErr.WithMetadata("action", named.Name())
				}
				if errors.Is(err, context.DeadlineExceeded) {
					taskErr.WithMetadata("timeout", task.Timeout().String())
				}
				logger.ErrorContext(execution, "Task action failed", "action_index", i, "error", err)
				runErr = taskErr
				return
			}
		}
	})
	return runErr
}

func (e *Executor) saveHistory(execution *Execution, task Task, current *TaskHistory) error {
	if e.history == nil {
		return nil
	}
	outputs, err := Fingerprint(task.FileSystem(), task.Outputs().Files())
	if err != nil {
		return err
	}
	current.Outputs = outputs
	return e.history.Save(execution, task.Name(), current)
}

func (e *Executor) record(ctx context.Context, task Task, outcome Outcome, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("task.name", task.Name()),
		attribute.String("task.outcome", string(outcome)),
	)
	if e.runs != nil {
		e.runs.Add(ctx, 1, attrs)
	}
	if e.duration != nil {
		e.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}
