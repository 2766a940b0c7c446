package runtime

import (
	"fmt"
	"reflect"

	"github.com/spf13/afero"
)

// TaskFactory creates task instances.
type TaskFactory interface {
	Create(name string, taskType reflect.Type) (Task, error)
}

type defaultTaskFactory struct {
	fs afero.Fs
}

// NewTaskFactory returns a factory that allocates plain task instances backed by fs.
func NewTaskFactory(fs afero.Fs) TaskFactory {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &defaultTaskFactory{fs: fs}
}

func (f *defaultTaskFactory) Create(name string, taskType reflect.Type) (Task, error) {
	if taskType == nil || taskType.Kind() != reflect.Pointer || taskType.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot create task '%s': type %v is not a pointer to a struct", name, taskType)
	}
	task, ok := reflect.New(taskType.Elem()).Interface().(Task)
	if !ok {
		return nil, fmt.Errorf("cannot create task '%s': type %s does not embed runtime.DefaultTask", name, taskType)
	}
	task.base().init(name, f.fs)
	return task, nil
}

// AnnotationProcessingTaskFactory decorates the tasks created by its delegate with the actions,
// validation and input/output registrations declared by their struct tags.
type AnnotationProcessingTaskFactory struct {
	delegate TaskFactory
	store    *ClassInfoStore
}

// NewAnnotationProcessingTaskFactory wraps delegate. A nil store uses the process-wide store.
func NewAnnotationProcessingTaskFactory(delegate TaskFactory, store *ClassInfoStore) *AnnotationProcessingTaskFactory {
	if store == nil {
		store = defaultClassInfoStore
	}
	return &AnnotationProcessingTaskFactory{delegate: delegate, store: store}
}

func (f *AnnotationProcessingTaskFactory) Create(name string, taskType reflect.Type) (Task, error) {
	task, err := f.delegate.Create(name, taskType)
	if err != nil {
		return nil, err
	}
	if err := f.Decorate(task); err != nil {
		return nil, err
	}
	return task, nil
}

// ClassInfo returns the metadata of taskType.
func (f *AnnotationProcessingTaskFactory) ClassInfo(taskType reflect.Type) (*TaskClassInfo, error) {
	return f.store.Get(taskType)
}

// Decorate attaches the declared behaviour to task. Decorating the same instance again is a no-op.
func (f *AnnotationProcessingTaskFactory) Decorate(task Task) error {
	b := task.base()
	if b.decorated {
		return nil
	}

	info, err := f.store.Get(reflect.TypeOf(task))
	if err != nil {
		return err
	}

	if info.Incremental {
		task.Outputs().UpToDateWhen(func(Task) bool { return true })
	}
	if info.Cacheable {
		task.Outputs().CacheIf(func(Task) bool { return true })
	}

	for i := len(info.Actions) - 1; i >= 0; i-- {
		task.PrependAction(info.Actions[i].newAction())
	}

	if info.Validator != nil {
		task.PrependAction(info.Validator)
		info.Validator.addInputsAndOutputs(task)
	}

	b.decorated = true
	return nil
}

// CreateTask creates and decorates a task of type *T.
func CreateTask[T any, PT interface {
	*T
	Task
}](f TaskFactory, name string) (PT, error) {
	task, err := f.Create(name, reflect.TypeOf(PT(nil)))
	if err != nil {
		return nil, err
	}
	return task.(PT), nil
}
