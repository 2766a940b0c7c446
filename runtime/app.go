package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
)

// App ties build loading, task creation and execution together.
type App struct {
	Container *Container
	Executor  *Executor
	loaders   []BuildLoader
	l         *slog.Logger
}

func NewApp(l *slog.Logger, container *Container, executor *Executor, loaders ...BuildLoader) *App {
	if l == nil {
		l = slog.Default()
	}
	return &App{
		Container: container,
		Executor:  executor,
		loaders:   loaders,
		l:         l,
	}
}

// LoadBuild reads a build file with the first loader whose extension pattern matches it.
func (a *App) LoadBuild(path string) (*Build, error) {
	base := filepath.Base(path)
	for _, loader := range a.loaders {
		for _, pattern := range loader.Extensions() {
			if ok, _ := filepath.Match(pattern, base); !ok {
				continue
			}
			build, err := loader.Load(path)
			if err != nil {
				return nil, err
			}
			build.Source = path
			if err := checkBuild(build); err != nil {
				return nil, fmt.Errorf("invalid build file %s: %w", path, err)
			}
			return build, nil
		}
	}
	return nil, fmt.Errorf("no loader for build file %s", path)
}

func checkBuild(build *Build) error {
	seen := make(map[string]bool)
	for i, spec := range build.Tasks {
		if spec.Name == "" {
			return fmt.Errorf("task #%d has no name", i)
		}
		if spec.Type == "" {
			return fmt.Errorf("task '%s' has no type", spec.Name)
		}
		if seen[spec.Name] {
			return fmt.Errorf("task '%s' is declared twice", spec.Name)
		}
		seen[spec.Name] = true
	}
	return nil
}

// CreateTasks creates, decorates and configures every task of build, keyed by name.
func (a *App) CreateTasks(build *Build) (map[string]Task, error) {
	tasks := make(map[string]Task, len(build.Tasks))
	for _, spec := range build.Tasks {
		task, err := a.CreateTask(spec)
		if err != nil {
			return nil, err
		}
		tasks[spec.Name] = task
	}
	return tasks, nil
}

// CreateTask creates one task from its spec.
func (a *App) CreateTask(spec TaskSpec) (Task, error) {
	task, err := a.Container.NewTask(spec.Name, spec.Type)
	if err != nil {
		return nil, err
	}
	if err := ConfigureTask(task, spec.Args); err != nil {
		return nil, err
	}

	b := task.base()
	b.SetDescription(spec.Description)
	b.SetDependsOn(spec.DependsOn...)
	for _, expression := range spec.OnlyIf {
		b.AddOnlyIf(expression)
	}
	if spec.Timeout != "" {
		timeout, err := time.ParseDuration(spec.Timeout)
		if err != nil {
			return nil, fmt.Errorf("task '%s': invalid timeout %q: %w", spec.Name, spec.Timeout, err)
		}
		b.SetTimeout(timeout)
	}

	a.l.Debug("Created task", "task", spec.Name, "type", spec.Type, "actions", len(task.Actions()))
	return task, nil
}

// Validate runs the validators of task without executing it.
func (a *App) Validate(task Task) ValidationMessages {
	var messages ValidationMessages
	for _, v := range task.Validators() {
		v.Validate(task, &messages)
	}
	return messages
}

// TaskResult records the outcome of one task in a run.
type TaskResult struct {
	Task     string
	Outcome  Outcome
	Duration time.Duration
	Err      error
}

// Run executes the named tasks in the given order and stops at the first failure.
func (a *App) Run(ctx context.Context, build *Build, tasks map[string]Task, order []string) ([]TaskResult, error) {
	results := make([]TaskResult, 0, len(order))
	for _, name := range order {
		task, ok := tasks[name]
		if !ok {
			return results, fmt.Errorf("task '%s' is not defined in %s", name, build.Source)
		}
		start := time.Now()
		outcome, err := a.Executor.Execute(ctx, task, build.Properties)
		results = append(results, TaskResult{Task: name, Outcome: outcome, Duration: time.Since(start), Err: err})
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
