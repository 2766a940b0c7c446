package runtime

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Interface type constants for plugin capabilities
const (
	InterfaceLifecycle = "Lifecycle"
)

// Container holds the registered task types and the plugin instances that contribute them.
type Container struct {
	factory            *AnnotationProcessingTaskFactory
	types              map[string]reflect.Type
	plugins            map[string]any   // Plugin instances (name -> plugin)
	pluginsByInterface map[string][]any // Interface name -> plugins implementing that interface
}

func NewContainer(factory *AnnotationProcessingTaskFactory) *Container {
	return &Container{
		factory:            factory,
		types:              make(map[string]reflect.Type),
		plugins:            make(map[string]any),
		pluginsByInterface: make(map[string][]any),
	}
}

// Factory returns the factory used to create tasks.
func (c *Container) Factory() *AnnotationProcessingTaskFactory {
	return c.factory
}

// RegisterTaskType registers a task type under name. prototype is a typed nil pointer,
// for example (*CopyTask)(nil). The type's declarations are checked eagerly.
func (c *Container) RegisterTaskType(name string, prototype Task) error {
	if _, exists := c.types[name]; exists {
		return fmt.Errorf("task type '%s' is already registered", name)
	}
	taskType := reflect.TypeOf(prototype)
	if taskType == nil {
		return fmt.Errorf("task type '%s' has no prototype", name)
	}
	if _, err := c.factory.ClassInfo(taskType); err != nil {
		return fmt.Errorf("task type '%s': %w", name, err)
	}
	c.types[name] = taskType
	return nil
}

// RegisterPlugin registers a plugin instance, its task types and its interfaces.
func (c *Container) RegisterPlugin(pluginName string, plugin any) error {
	if plugin == nil {
		return fmt.Errorf("plugin cannot be nil")
	}
	if _, exists := c.plugins[pluginName]; exists {
		return fmt.Errorf("plugin '%s' is already registered", pluginName)
	}

	c.plugins[pluginName] = plugin
	c.detectPluginInterfaces(plugin)

	provider, ok := plugin.(TaskTypeProvider)
	if !ok {
		return nil
	}

	types := provider.TaskTypes()
	keys := make([]string, 0, len(types))
	for key := range types {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		// Task type name: plugin_name.key (first letter lowercased)
		typeName := fmt.Sprintf("%s.%s", pluginName, toLowerFirst(key))
		if err := c.RegisterTaskType(typeName, types[key]); err != nil {
			return fmt.Errorf("plugin '%s': %w", pluginName, err)
		}
	}
	return nil
}

// detectPluginInterfaces detects which interfaces a plugin implements and registers them
func (c *Container) detectPluginInterfaces(plugin any) {
	if _, ok := plugin.(Lifecycle); ok {
		c.pluginsByInterface[InterfaceLifecycle] = append(
			c.pluginsByInterface[InterfaceLifecycle],
			plugin,
		)
	}
}

// GetPlugin returns a plugin instance by name
func (c *Container) GetPlugin(name string) any {
	return c.plugins[name]
}

// TaskType returns the type registered under name.
func (c *Container) TaskType(name string) (reflect.Type, bool) {
	t, ok := c.types[name]
	return t, ok
}

// TaskTypes returns the registered type names in sorted order.
func (c *Container) TaskTypes() []string {
	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewTask creates a decorated task of the registered type typeName and injects the
// plugins its `inject` tagged fields ask for.
func (c *Container) NewTask(name, typeName string) (Task, error) {
	taskType, ok := c.types[typeName]
	if !ok {
		return nil, fmt.Errorf("unknown task type '%s' for task '%s'", typeName, name)
	}
	task, err := c.factory.Create(name, taskType)
	if err != nil {
		return nil, err
	}
	if err := c.inject(task); err != nil {
		return nil, err
	}
	return task, nil
}

// inject sets exported fields tagged `inject:"<plugin>"` to the named plugin instance.
func (c *Container) inject(task Task) error {
	v := reflect.ValueOf(task).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		pluginName, ok := f.Tag.Lookup(injectTagKey)
		if !ok {
			continue
		}
		if !f.IsExported() {
			return fmt.Errorf("task '%s': field %s has an inject tag but is unexported", task.Name(), f.Name)
		}
		plugin, ok := c.plugins[pluginName]
		if !ok {
			return fmt.Errorf("task '%s': field %s requires plugin '%s' which is not registered", task.Name(), f.Name, pluginName)
		}
		pv := reflect.ValueOf(plugin)
		if !pv.Type().AssignableTo(f.Type) {
			return fmt.Errorf("task '%s': plugin '%s' of type %s cannot be assigned to field %s of type %s",
				task.Name(), pluginName, pv.Type(), f.Name, f.Type)
		}
		v.Field(i).Set(pv)
	}
	return nil
}

// Initialize calls Initialize on all plugins implementing Lifecycle, stopping at the first failure.
func (c *Container) Initialize(ctx context.Context) error {
	for i, plugin := range c.pluginsByInterface[InterfaceLifecycle] {
		lifecycle := plugin.(Lifecycle)
		if err := lifecycle.Initialize(ctx); err != nil {
			return fmt.Errorf("plugin #%d initialization failed: %w", i, err)
		}
	}
	return nil
}

// Shutdown calls Shutdown on all plugins implementing Lifecycle interface
// Plugins are shut down in reverse order of initialization
func (c *Container) Shutdown(ctx context.Context) error {
	lifecyclePlugins := c.pluginsByInterface[InterfaceLifecycle]

	var errors []error
	for i := len(lifecyclePlugins) - 1; i >= 0; i-- {
		lifecycle := lifecyclePlugins[i].(Lifecycle)
		if err := lifecycle.Shutdown(ctx); err != nil {
			errors = append(errors, fmt.Errorf("plugin #%d shutdown failed: %w", i, err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("shutdown errors: %v", errors)
	}

	return nil
}

// toLowerFirst converts first character of string to lowercase
func toLowerFirst(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToLower(s[:1]) + s[1:]
}
