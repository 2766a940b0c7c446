package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BDNK1/taskforge/cli/internal/config"
	"github.com/BDNK1/taskforge/plugins/files"
	httpplugin "github.com/BDNK1/taskforge/plugins/http"
	"github.com/BDNK1/taskforge/plugins/postgres"
	"github.com/BDNK1/taskforge/runtime"
	hclengine "github.com/BDNK1/taskforge/runtime/engine/hcl"
	yamlengine "github.com/BDNK1/taskforge/runtime/engine/yaml"
	"github.com/spf13/afero"
)

// builtinPlugin is a plugin compiled into the CLI.
type builtinPlugin struct {
	name   string
	plugin any
	// config points at the plugin's Config field, nil for plugins without one
	config any
	// optional plugins are registered only when plugins.<name> is configured
	optional bool
}

var extraPlugins []builtinPlugin

// AddPlugin registers an additional plugin for custom builds of the CLI. cfg points at
// the plugin's Config field, or is nil; it is initialized from plugins.<name> in the settings.
// Call it before Execute.
func AddPlugin(name string, p any, cfg any) {
	extraPlugins = append(extraPlugins, builtinPlugin{name: name, plugin: p, config: cfg})
}

func builtinPlugins() []builtinPlugin {
	httpPlugin := &httpplugin.HTTPPlugin{}
	postgresPlugin := &postgres.PostgresPlugin{}
	return []builtinPlugin{
		{name: "files", plugin: &files.FilesPlugin{}},
		{name: "http", plugin: httpPlugin, config: &httpPlugin.Config},
		{name: "postgres", plugin: postgresPlugin, config: &postgresPlugin.Config, optional: true},
	}
}

// appOptions selects what newApp opens besides the container.
type appOptions struct {
	history bool
}

// newApp wires the container, executor and build loaders. cleanup releases the history database.
func newApp(s *config.Settings, l *slog.Logger, opts appOptions) (app *runtime.App, cleanup func() error, err error) {
	factory := runtime.NewAnnotationProcessingTaskFactory(
		runtime.NewTaskFactory(afero.NewOsFs()),
		runtime.NewClassInfoStore(),
	)
	container := runtime.NewContainer(factory)

	for _, p := range append(builtinPlugins(), extraPlugins...) {
		raw, err := s.PluginConfig(p.name)
		if err != nil {
			return nil, nil, err
		}
		if p.optional && raw == nil {
			l.Debug("Plugin not configured, skipping", "plugin", p.name)
			continue
		}
		if p.config != nil {
			if err := runtime.InitializeConfig(p.config, raw); err != nil {
				return nil, nil, fmt.Errorf("plugin '%s': %w", p.name, err)
			}
		}
		if err := container.RegisterPlugin(p.name, p.plugin); err != nil {
			return nil, nil, fmt.Errorf("failed to register plugin '%s': %w", p.name, err)
		}
	}

	cleanup = func() error { return nil }
	var history runtime.HistoryStore
	if opts.history {
		store, err := runtime.OpenHistory(s.State)
		if err != nil {
			return nil, nil, err
		}
		history = store
		cleanup = store.Close
	}

	executor := runtime.NewExecutor(l, yamlengine.NewExpressionEvaluator(), history)
	app = runtime.NewApp(l, container, executor, yamlengine.NewBuildLoader(), hclengine.NewBuildLoader())
	return app, cleanup, nil
}

// loadBuild reads the build file and expands ${VAR} references in task arguments.
func loadBuild(app *runtime.App, path string) (*runtime.Build, error) {
	build, err := app.LoadBuild(path)
	if err != nil {
		return nil, err
	}
	for i, spec := range build.Tasks {
		args, err := config.ExpandArgs(spec.Args, os.LookupEnv)
		if err != nil {
			return nil, fmt.Errorf("task '%s': %w", spec.Name, err)
		}
		build.Tasks[i].Args = args
	}
	return build, nil
}
