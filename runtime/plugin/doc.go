// Package plugin is the surface plugin authors import to declare task types.
//
// A task type is a struct embedding DefaultTask. Its properties are tagged fields and its
// actions are exported methods listed in an Actions marker:
//
//	type CopyTask struct {
//	    plugin.DefaultTask
//	    plugin.Cacheable
//	    _ plugin.Actions `actions:"Copy"`
//
//	    From plugin.Paths `yaml:"from" task:"input-files"`
//	    Into string       `yaml:"into" task:"output-directory"`
//	}
//
//	func (t *CopyTask) Copy(ctx context.Context, changes *plugin.InputChanges) error {
//	    return changes.OutOfDate(func(d plugin.InputFileDetails) error {
//	        plugin.LoggerFrom(ctx).Info("Copying", "file", d.Path)
//	        ...
//	    })
//	}
//
// # Property kinds
//
// The `task` tag names exactly one kind, optionally followed by ",optional":
//
//	input-file, input-directory, input-files,
//	output-file, output-files, output-directory, output-directories,
//	input-value, nested-object
//
// Required properties must have a value before the task runs. File properties are checked
// against the file system, and output properties get their directories created before the
// first action. An input-value may carry a `validate` tag with go-playground/validator rules.
// Unexported fields need a Get<Field> (or Is<Field>) method on the task.
//
// # Actions
//
// An action method takes an optional context.Context followed by at most one *InputChanges,
// and returns nothing or an error. Only one action per task type may accept *InputChanges.
// Actions of embedded types run before those of the embedding type.
//
// # Plugins
//
// A plugin groups task types and shared resources. It returns its types from TaskTypes,
// keyed by name; the registered type name is "<plugin>.<name>". Task fields tagged
// `inject:"<plugin>"` receive the plugin instance. Plugins may implement Lifecycle:
//
//	type HTTPPlugin struct {
//	    Config Config
//	    client *resty.Client
//	}
//
//	func (p *HTTPPlugin) Initialize(ctx context.Context) error { ... }
//	func (p *HTTPPlugin) Shutdown(ctx context.Context) error   { ... }
//
//	func (p *HTTPPlugin) TaskTypes() map[string]plugin.Task {
//	    return map[string]plugin.Task{"download": (*DownloadTask)(nil)}
//	}
//
// Config structs use `yaml`, `default` and `validate` tags; the framework applies defaults,
// decodes the configured values and validates them before Initialize is called.
package plugin
