package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"
)

// Action is a unit of work attached to a task.
type Action interface {
	Execute(ctx context.Context, task Task) error
}

// IncrementalAction is an action that consumes the change set computed by the executor.
// The executor calls ExecuteIncremental instead of Execute when an action implements it.
type IncrementalAction interface {
	Action
	ExecuteIncremental(ctx context.Context, task Task, changes *InputChanges) error
}

// ActionFunc adapts a plain function to the Action interface.
type ActionFunc func(ctx context.Context, task Task) error

func (f ActionFunc) Execute(ctx context.Context, task Task) error {
	return f(ctx, task)
}

// TaskValidator inspects a task before its actions run and records problems in messages.
type TaskValidator interface {
	Validate(task Task, messages *ValidationMessages)
}

// ValidationMessages collects human-readable validation problems.
// Validators only append to it.
type ValidationMessages []string

// Add appends a formatted message.
func (m *ValidationMessages) Add(format string, args ...any) {
	*m = append(*m, fmt.Sprintf(format, args...))
}

// Task is the object model every task type implements by embedding DefaultTask.
type Task interface {
	Name() string
	Description() string
	FileSystem() afero.Fs

	Actions() []Action
	PrependAction(action Action)
	AppendAction(action Action)

	AddValidator(validator TaskValidator)
	Validators() []TaskValidator

	Inputs() *TaskInputs
	Outputs() *TaskOutputs

	DependsOn() []string
	OnlyIf() []string
	Timeout() time.Duration

	base() *DefaultTask
}

// DefaultTask carries the state shared by all tasks. Task types embed it:
//
//	type Compile struct {
//	    runtime.DefaultTask
//	    _ runtime.Actions `actions:"Compile"`
//
//	    Sources []string `task:"input-files"`
//	    Out     string   `task:"output-directory"`
//	}
type DefaultTask struct {
	name        string
	description string
	fs          afero.Fs
	actions     []Action
	validators  []TaskValidator
	inputs      *TaskInputs
	outputs     *TaskOutputs
	dependsOn   []string
	onlyIf      []string
	timeout     time.Duration
	decorated   bool
	pass        *propertyPass
}

func (t *DefaultTask) base() *DefaultTask {
	return t
}

func (t *DefaultTask) init(name string, fs afero.Fs) {
	t.name = name
	t.fs = fs
}

func (t *DefaultTask) Name() string {
	return t.name
}

func (t *DefaultTask) Description() string {
	return t.description
}

func (t *DefaultTask) SetDescription(description string) {
	t.description = description
}

// FileSystem returns the file system the task reads and writes. Defaults to the OS file system.
func (t *DefaultTask) FileSystem() afero.Fs {
	if t.fs == nil {
		t.fs = afero.NewOsFs()
	}
	return t.fs
}

func (t *DefaultTask) Actions() []Action {
	return t.actions
}

func (t *DefaultTask) PrependAction(action Action) {
	t.actions = append([]Action{action}, t.actions...)
}

func (t *DefaultTask) AppendAction(action Action) {
	t.actions = append(t.actions, action)
}

func (t *DefaultTask) AddValidator(validator TaskValidator) {
	t.validators = append(t.validators, validator)
}

func (t *DefaultTask) Validators() []TaskValidator {
	return t.validators
}

func (t *DefaultTask) Inputs() *TaskInputs {
	if t.inputs == nil {
		t.inputs = newTaskInputs()
	}
	return t.inputs
}

func (t *DefaultTask) Outputs() *TaskOutputs {
	if t.outputs == nil {
		t.outputs = newTaskOutputs()
	}
	return t.outputs
}

func (t *DefaultTask) DependsOn() []string {
	return t.dependsOn
}

// SetDependsOn replaces the names of the tasks that must run before this one.
func (t *DefaultTask) SetDependsOn(names ...string) {
	t.dependsOn = names
}

func (t *DefaultTask) OnlyIf() []string {
	return t.onlyIf
}

// AddOnlyIf adds a boolean expression that must hold for the task to run.
func (t *DefaultTask) AddOnlyIf(expression string) {
	t.onlyIf = append(t.onlyIf, expression)
}

func (t *DefaultTask) Timeout() time.Duration {
	return t.timeout
}

func (t *DefaultTask) SetTimeout(timeout time.Duration) {
	t.timeout = timeout
}
