package runtime

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

var taskInterfaceType = reflect.TypeOf((*Task)(nil)).Elem()

// TaskClassInfo is the metadata derived once per task type.
type TaskClassInfo struct {
	// Actions lists the executable steps in execution order: steps of embedded types first.
	// This is the reverse of discovery order, which starts at the most-derived type.
	Actions []*ActionDescriptor
	// Validator is nil when the type declares no properties.
	Validator   *Validator
	Incremental bool
	Cacheable   bool
}

// ClassInfoStore memoizes TaskClassInfo per task type. Lookups of known types take no lock;
// building and inserting a new entry is serialized. Failed parses are not cached.
type ClassInfoStore struct {
	mu    sync.Mutex
	infos sync.Map
}

func NewClassInfoStore() *ClassInfoStore {
	return &ClassInfoStore{}
}

var defaultClassInfoStore = NewClassInfoStore()

// Get returns the metadata of taskType, a pointer to a struct embedding DefaultTask.
func (s *ClassInfoStore) Get(taskType reflect.Type) (*TaskClassInfo, error) {
	if info, ok := s.infos.Load(taskType); ok {
		return info.(*TaskClassInfo), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if info, ok := s.infos.Load(taskType); ok {
		return info.(*TaskClassInfo), nil
	}

	info, err := parseTaskType(taskType)
	if err != nil {
		return nil, err
	}
	s.infos.Store(taskType, info)
	slog.Debug("Parsed task type",
		"type", taskType.String(),
		"actions", len(info.Actions),
		"incremental", info.Incremental,
		"cacheable", info.Cacheable)
	return info, nil
}

func parseTaskType(taskType reflect.Type) (*TaskClassInfo, error) {
	if taskType.Kind() != reflect.Pointer || taskType.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("task type must be a pointer to a struct, got %s", taskType)
	}
	structType := taskType.Elem()
	if !taskType.Implements(taskInterfaceType) {
		if field, method, ok := shadowedMethod(structType); ok {
			return nil, newDefinitionError(structType, field,
				"Field %s.%s hides the %s() method of runtime.DefaultTask.", structType.Name(), field, method)
		}
		return nil, fmt.Errorf("task type %s does not embed runtime.DefaultTask", taskType)
	}

	info := &TaskClassInfo{Cacheable: isCacheable(structType)}

	actions, incremental, err := discoverActions(structType)
	if err != nil {
		return nil, err
	}
	info.Actions = actions
	info.Incremental = incremental

	properties, err := inspectProperties(structType)
	if err != nil {
		return nil, err
	}
	if len(properties) > 0 {
		info.Validator = newValidator()
		for _, p := range properties {
			info.Validator.add(p)
		}
	}
	return info, nil
}

// shadowedMethod finds a field whose name hides a method promoted from DefaultTask.
func shadowedMethod(structType reflect.Type) (field, method string, ok bool) {
	if embedded, found := structType.FieldByName("DefaultTask"); !found || !embedded.Anonymous {
		return "", "", false
	}
	for i := 0; i < taskInterfaceType.NumMethod(); i++ {
		m := taskInterfaceType.Method(i)
		if !m.IsExported() {
			continue
		}
		if f, found := structType.FieldByName(m.Name); found {
			return f.Name, m.Name, true
		}
	}
	return "", "", false
}

func isCacheable(structType reflect.Type) bool {
	for i := 0; i < structType.NumField(); i++ {
		if structType.Field(i).Type == cacheableType {
			return true
		}
	}
	return false
}
