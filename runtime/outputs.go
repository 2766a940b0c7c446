package runtime

import "sort"

// FileProperty is a file-valued property registered on a task's inputs or outputs.
// Value is evaluated lazily through the task's property cache.
type FileProperty struct {
	Name  string
	Kind  string
	Value func() any
}

// Paths resolves the property and returns its paths.
func (p *FileProperty) Paths() []string {
	if p.Value == nil {
		return nil
	}
	return toPaths(p.Value())
}

// ValueProperty is a non-file input whose value participates in up-to-date checks.
type ValueProperty struct {
	Name  string
	Value func() any
}

type propertyIndex[T any] struct {
	items []*T
	names map[string]int
}

// put registers item under name; registering a name again replaces the earlier entry in place.
func (i *propertyIndex[T]) put(name string, item *T) {
	if i.names == nil {
		i.names = make(map[string]int)
	}
	if idx, ok := i.names[name]; ok {
		i.items[idx] = item
		return
	}
	i.names[name] = len(i.items)
	i.items = append(i.items, item)
}

// TaskInputs holds the declared inputs of a task.
type TaskInputs struct {
	files      propertyIndex[FileProperty]
	properties propertyIndex[ValueProperty]
}

func newTaskInputs() *TaskInputs {
	return &TaskInputs{}
}

// File registers a file-valued input under name.
func (i *TaskInputs) File(name, kind string, value func() any) {
	i.files.put(name, &FileProperty{Name: name, Kind: kind, Value: value})
}

// Property registers a value input under name.
func (i *TaskInputs) Property(name string, value func() any) {
	i.properties.put(name, &ValueProperty{Name: name, Value: value})
}

func (i *TaskInputs) FileProperties() []*FileProperty {
	return i.files.items
}

func (i *TaskInputs) ValueProperties() []*ValueProperty {
	return i.properties.items
}

// Files resolves every file input and returns the distinct paths in sorted order.
func (i *TaskInputs) Files() []string {
	return collectPaths(i.files.items)
}

// HasInputs reports whether any input was declared.
func (i *TaskInputs) HasInputs() bool {
	return len(i.files.items) > 0 || len(i.properties.items) > 0
}

// Spec is a predicate evaluated against a task.
type Spec func(task Task) bool

// TaskOutputs holds the declared outputs of a task and its up-to-date and caching predicates.
type TaskOutputs struct {
	files        propertyIndex[FileProperty]
	upToDateWhen []Spec
	cacheIf      []Spec
}

func newTaskOutputs() *TaskOutputs {
	return &TaskOutputs{}
}

// File registers a file-valued output under name.
func (o *TaskOutputs) File(name, kind string, value func() any) {
	o.files.put(name, &FileProperty{Name: name, Kind: kind, Value: value})
}

func (o *TaskOutputs) FileProperties() []*FileProperty {
	return o.files.items
}

// Files resolves every file output and returns the distinct paths in sorted order.
func (o *TaskOutputs) Files() []string {
	return collectPaths(o.files.items)
}

// HasOutputs reports whether any output was declared. An UpToDateWhen predicate counts as one.
func (o *TaskOutputs) HasOutputs() bool {
	return len(o.files.items) > 0 || len(o.upToDateWhen) > 0
}

// UpToDateWhen adds a predicate that must hold for the task's outputs to be considered up to date.
func (o *TaskOutputs) UpToDateWhen(spec Spec) {
	o.upToDateWhen = append(o.upToDateWhen, spec)
}

// CacheIf adds a predicate that must hold for the task's outputs to be cached.
func (o *TaskOutputs) CacheIf(spec Spec) {
	o.cacheIf = append(o.cacheIf, spec)
}

// UpToDateSpecsSatisfied reports whether every UpToDateWhen predicate holds.
func (o *TaskOutputs) UpToDateSpecsSatisfied(task Task) bool {
	for _, spec := range o.upToDateWhen {
		if !spec(task) {
			return false
		}
	}
	return true
}

// CachingEnabled reports whether caching was requested and every CacheIf predicate holds.
func (o *TaskOutputs) CachingEnabled(task Task) bool {
	if len(o.cacheIf) == 0 {
		return false
	}
	for _, spec := range o.cacheIf {
		if !spec(task) {
			return false
		}
	}
	return true
}

func collectPaths(props []*FileProperty) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, p := range props {
		for _, path := range p.Paths() {
			if !seen[path] {
				seen[path] = true
				paths = append(paths, path)
			}
		}
	}
	sort.Strings(paths)
	return paths
}
