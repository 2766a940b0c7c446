package generator

const pluginTemplate = `// Package {{.Package}} provides the {{.Name}}.{{.TaskKey}} task type.
//
// Register it in a custom build of the CLI before executing the root command:
//
//	p := &{{.Package}}.{{.TypeName}}{}
//	cmd.AddPlugin("{{.Name}}", p, &p.Config)
package {{.Package}}

import (
	"context"
	"fmt"

	"{{.PluginModulePath}}"
	"github.com/spf13/afero"
)

type Config struct {
	Prefix string ` + "`" + `yaml:"prefix" default:""` + "`" + `
}

type {{.TypeName}} struct {
	Config Config
}

func (p *{{.TypeName}}) TaskTypes() map[string]plugin.Task {
	return map[string]plugin.Task{
		"{{.TaskKey}}": (*{{.TaskType}})(nil),
	}
}

// {{.TaskType}} writes Message, prefixed by the plugin's configured prefix, to Dest.
type {{.TaskType}} struct {
	plugin.DefaultTask
	_ plugin.Actions ` + "`" + `actions:"Run"` + "`" + `

	Plugin *{{.TypeName}} ` + "`" + `inject:"{{.Name}}"` + "`" + `

	Message string ` + "`" + `yaml:"message" task:"input-value"` + "`" + `
	Dest    string ` + "`" + `yaml:"dest" task:"output-file"` + "`" + `
}

func (t *{{.TaskType}}) Run(ctx context.Context) error {
	plugin.LoggerFrom(ctx).Info("Writing message", "dest", t.Dest)
	content := t.Plugin.Config.Prefix + t.Message
	if err := afero.WriteFile(t.FileSystem(), t.Dest, []byte(content), 0o644); err != nil {
		return fmt.Errorf("{{.Name}}.{{.TaskKey}}: %w", err)
	}
	return nil
}
`

const pluginTestTemplate = `package {{.Package}}

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"{{.RuntimeModulePath}}"
	"github.com/spf13/afero"
)

func Test{{.TaskType}}(t *testing.T) {
	fs := afero.NewMemMapFs()
	factory := runtime.NewAnnotationProcessingTaskFactory(runtime.NewTaskFactory(fs), runtime.NewClassInfoStore())
	container := runtime.NewContainer(factory)
	p := &{{.TypeName}}{}
	if err := runtime.InitializeConfig(&p.Config, map[string]any{"prefix": "> "}); err != nil {
		t.Fatalf("InitializeConfig failed: %v", err)
	}
	if err := container.RegisterPlugin("{{.Name}}", p); err != nil {
		t.Fatalf("RegisterPlugin failed: %v", err)
	}

	task, err := container.NewTask("greeting", "{{.Name}}.{{.TaskKey}}")
	if err != nil {
		t.Fatalf("NewTask failed: %v", err)
	}
	if err := runtime.ConfigureTask(task, map[string]any{"message": "hello", "dest": "/out/greeting.txt"}); err != nil {
		t.Fatalf("ConfigureTask failed: %v", err)
	}

	executor := runtime.NewExecutor(slog.New(slog.NewTextHandler(io.Discard, nil)), nil, nil)
	if _, err := executor.Execute(context.Background(), task, nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	data, err := afero.ReadFile(fs, "/out/greeting.txt")
	if err != nil {
		t.Fatalf("Expected output file: %v", err)
	}
	if string(data) != "> hello" {
		t.Errorf("Expected '> hello', got '%s'", data)
	}
}
`

const buildYAMLTemplate = `name: {{.Name}}

properties:
  release: false

tasks:
  - name: notes
    type: files.write
    description: Writes the release notes
    args:
      content: "Built by ${USER:taskforge}"
      dest: build/notes.txt

  - name: package
    type: files.copy
    description: Collects the build outputs
    dependsOn: [notes]
    args:
      from: [build/notes.txt]
      into: dist
`

const buildHCLTemplate = `name = "{{.Name}}"

properties = {
  release = false
}

task "notes" {
  type        = "files.write"
  description = "Writes the release notes"

  args = {
    content = "Built by $${USER:taskforge}"
    dest    = "build/notes.txt"
  }
}

task "package" {
  type        = "files.copy"
  description = "Collects the build outputs"
  depends_on  = ["notes"]

  args = {
    from = ["build/notes.txt"]
    into = "dist"
  }
}
`

const configTemplate = `build: {{.BuildFile}}
state: {{.StateFile}}

log:
  level: info
  format: text

plugins:
  http:
    timeout: 30s
    max_retries: 3
`
