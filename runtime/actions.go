package runtime

import (
	"context"
	"fmt"
	"reflect"
)

var (
	contextType      = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType        = reflect.TypeOf((*error)(nil)).Elem()
	inputChangesType = reflect.TypeOf((*InputChanges)(nil))
)

// ActionDescriptor describes one executable step of a task type.
type ActionDescriptor struct {
	Name string
	// DeclaringType is the struct whose actions tag lists the step.
	DeclaringType reflect.Type
	Incremental   bool

	receiver     reflect.Type
	method       reflect.Method
	takesContext bool
	returnsError bool
}

// newAction creates the action attached to a task instance.
func (d *ActionDescriptor) newAction() Action {
	if d.Incremental {
		return &incrementalTaskAction{standardTaskAction{d}}
	}
	return &standardTaskAction{d}
}

type actionLevel struct {
	typ   reflect.Type
	names []string
}

// discoverActions collects the executable steps of taskType. The returned descriptors are in
// execution order: steps of embedded types before those of the embedding type, and declaration
// order within one type. A step name declared again by an embedding type replaces the embedded one.
func discoverActions(taskType reflect.Type) ([]*ActionDescriptor, bool, error) {
	var levels []actionLevel
	collectActionLevels(taskType, &levels)

	ptrType := reflect.PointerTo(taskType)
	seen := make(map[string]bool)
	kept := make([][]*ActionDescriptor, len(levels))
	var incremental *ActionDescriptor

	for i, level := range levels {
		for _, name := range level.names {
			if seen[name] {
				continue
			}
			seen[name] = true

			d, err := describeAction(taskType, ptrType, level.typ, name)
			if err != nil {
				return nil, false, err
			}
			if d.Incremental {
				if incremental != nil {
					return nil, false, newDefinitionError(taskType, name,
						"Cannot have multiple actions accepting an %s parameter.", inputChangesType)
				}
				incremental = d
			}
			kept[i] = append(kept[i], d)
		}
	}

	var actions []*ActionDescriptor
	for i := len(kept) - 1; i >= 0; i-- {
		actions = append(actions, kept[i]...)
	}
	return actions, incremental != nil, nil
}

// collectActionLevels lists t and its embedded types, most-derived first.
func collectActionLevels(t reflect.Type, levels *[]actionLevel) {
	level := actionLevel{typ: t}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Type == actionsType {
			level.names = append(level.names, parseActionsTag(f.Tag.Get(actionsTagKey))...)
		}
	}
	*levels = append(*levels, level)

	for i := 0; i < t.NumField(); i++ {
		if f := t.Field(i); isSupertypeField(f) {
			collectActionLevels(supertypeOf(f), levels)
		}
	}
}

func describeAction(taskType, ptrType, declaring reflect.Type, name string) (*ActionDescriptor, error) {
	method, ok := ptrType.MethodByName(name)
	if !ok {
		return nil, newDefinitionError(taskType, name,
			"Cannot use action %s.%s() as no exported method with that name is bound to the task.", declaring.Name(), name)
	}

	mt := method.Type
	params := make([]reflect.Type, 0, mt.NumIn())
	for i := 1; i < mt.NumIn(); i++ {
		params = append(params, mt.In(i))
	}

	d := &ActionDescriptor{
		Name:          name,
		DeclaringType: declaring,
		receiver:      ptrType,
		method:        method,
	}
	if len(params) > 0 && params[0] == contextType {
		d.takesContext = true
		params = params[1:]
	}
	if mt.IsVariadic() || len(params) > 1 {
		return nil, newDefinitionError(taskType, name,
			"Cannot use action %s.%s() as this method takes multiple parameters.", declaring.Name(), name)
	}
	if len(params) == 1 {
		if params[0] != inputChangesType {
			return nil, newDefinitionError(taskType, name,
				"Cannot use action %s.%s() because %s is not a valid parameter to an action method.", declaring.Name(), name, params[0])
		}
		d.Incremental = true
	}

	switch {
	case mt.NumOut() == 0:
	case mt.NumOut() == 1 && mt.Out(0) == errorType:
		d.returnsError = true
	default:
		return nil, newDefinitionError(taskType, name,
			"Cannot use action %s.%s() as it must return nothing or an error.", declaring.Name(), name)
	}
	return d, nil
}

type standardTaskAction struct {
	d *ActionDescriptor
}

func (a *standardTaskAction) Execute(ctx context.Context, task Task) error {
	return a.invoke(ctx, task, nil)
}

// invoke calls the step with a context whose logger is scoped to the declaring type.
func (a *standardTaskAction) invoke(ctx context.Context, task Task, changes *InputChanges) error {
	recv := reflect.ValueOf(task)
	if recv.Type() != a.d.receiver {
		return fmt.Errorf("action %s belongs to %s, not %s", a.d.Name, a.d.receiver, recv.Type())
	}

	ctx = WithLogger(ctx, LoggerFrom(ctx).With(
		"action", a.d.Name,
		"declaring_type", a.d.DeclaringType.String(),
	))

	args := []reflect.Value{recv}
	if a.d.takesContext {
		args = append(args, reflect.ValueOf(ctx))
	}
	if a.d.Incremental {
		args = append(args, reflect.ValueOf(changes))
	}

	out := a.d.method.Func.Call(args)
	if a.d.returnsError && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

// Name returns the step name, used in logs and errors.
func (a *standardTaskAction) Name() string {
	return a.d.Name
}

type incrementalTaskAction struct {
	standardTaskAction
}

// Execute runs the step without history: every input is reported as added.
func (a *incrementalTaskAction) Execute(ctx context.Context, task Task) error {
	changes, err := rebuildChanges(task)
	if err != nil {
		return err
	}
	return a.invoke(ctx, task, changes)
}

func (a *incrementalTaskAction) ExecuteIncremental(ctx context.Context, task Task, changes *InputChanges) error {
	if changes == nil {
		return a.Execute(ctx, task)
	}
	return a.invoke(ctx, task, changes)
}
