package generator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BDNK1/taskforge/cli/internal/analyzer"
	"github.com/BDNK1/taskforge/cli/internal/config"
	"github.com/BDNK1/taskforge/runtime"
	hclengine "github.com/BDNK1/taskforge/runtime/engine/hcl"
	yamlengine "github.com/BDNK1/taskforge/runtime/engine/yaml"
)

func TestNewPluginGenerator(t *testing.T) {
	g, err := NewPluginGenerator("image-tools", "build-image")
	if err != nil {
		t.Fatalf("NewPluginGenerator failed: %v", err)
	}

	if g.Package != "imagetools" {
		t.Errorf("Expected package 'imagetools', got '%s'", g.Package)
	}
	if g.TypeName != "ImageToolsPlugin" {
		t.Errorf("Expected type 'ImageToolsPlugin', got '%s'", g.TypeName)
	}
	if g.TaskKey != "buildImage" {
		t.Errorf("Expected task key 'buildImage', got '%s'", g.TaskKey)
	}
	if g.TaskType != "BuildImageTask" {
		t.Errorf("Expected task type 'BuildImageTask', got '%s'", g.TaskType)
	}
}

func TestNewPluginGenerator_InvalidNames(t *testing.T) {
	tests := []struct {
		name    string
		plugin  string
		task    string
		wantErr string
	}{
		{"uppercase", "Images", "render", "invalid plugin name"},
		{"leading digit", "3d", "render", "invalid plugin name"},
		{"empty", "", "render", "invalid plugin name"},
		{"bad task", "images", "Render", "invalid task name"},
		{"keyword", "go", "render", "would clash with an import"},
		{"import clash", "plugin", "render", "would clash with an import"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPluginGenerator(tt.plugin, tt.task)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestPluginGenerator_Generate(t *testing.T) {
	g, err := NewPluginGenerator("image-tools", "render")
	if err != nil {
		t.Fatalf("NewPluginGenerator failed: %v", err)
	}
	files, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(files) != 2 || files[0].Path != "plugin.go" || files[1].Path != "plugin_test.go" {
		t.Fatalf("Unexpected files: %v", files)
	}

	source := string(files[0].Content)
	for _, want := range []string{
		"package imagetools",
		`"github.com/BDNK1/taskforge/runtime/plugin"`,
		`"render": (*RenderTask)(nil),`,
		"Plugin *ImageToolsPlugin `inject:\"image-tools\"`",
	} {
		if !strings.Contains(source, want) {
			t.Errorf("Expected plugin.go to contain %q", want)
		}
	}

	dir := filepath.Join(t.TempDir(), "imagetools")
	if err := WriteFiles(dir, files); err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}

	pkg, err := analyzer.AnalyzeDir(dir)
	if err != nil {
		t.Fatalf("AnalyzeDir failed: %v", err)
	}
	task := pkg.TaskType("RenderTask")
	if task == nil {
		t.Fatal("Expected RenderTask to be analyzed")
	}
	if len(task.Dependencies) != 1 || task.Dependencies[0].PluginName != "image-tools" {
		t.Errorf("Expected injection of image-tools, got %+v", task.Dependencies)
	}
	if findings := analyzer.Lint(pkg); len(findings) != 0 {
		t.Errorf("Expected generated plugin to lint clean, got %v", findings)
	}
}

func TestProjectGenerator(t *testing.T) {
	tests := []struct {
		format    string
		buildFile string
		parse     func(data []byte, path string) (*runtime.Build, error)
	}{
		{"yaml", "build.yaml", func(data []byte, _ string) (*runtime.Build, error) { return yamlengine.Parse(data) }},
		{"hcl", "build.hcl", hclengine.Parse},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			g, err := NewProjectGenerator("site", tt.format)
			if err != nil {
				t.Fatalf("NewProjectGenerator failed: %v", err)
			}
			files, err := g.Generate()
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if files[0].Path != tt.buildFile || files[1].Path != "taskforge.yaml" {
				t.Fatalf("Unexpected files: %s, %s", files[0].Path, files[1].Path)
			}

			build, err := tt.parse(files[0].Content, tt.buildFile)
			if err != nil {
				t.Fatalf("Generated build does not parse: %v", err)
			}
			if build.Name != "site" {
				t.Errorf("Expected build name 'site', got '%s'", build.Name)
			}
			if len(build.Tasks) != 2 {
				t.Fatalf("Expected 2 tasks, got %d", len(build.Tasks))
			}
			pkg, ok := build.Task("package")
			if !ok || len(pkg.DependsOn) != 1 || pkg.DependsOn[0] != "notes" {
				t.Errorf("Expected package to depend on notes, got %+v", pkg)
			}
			notes, _ := build.Task("notes")
			if notes.Args["content"] != "Built by ${USER:taskforge}" {
				t.Errorf("Expected environment reference in content, got %v", notes.Args["content"])
			}

			dir := t.TempDir()
			if err := WriteFiles(dir, files); err != nil {
				t.Fatalf("WriteFiles failed: %v", err)
			}
			settings, err := config.Load(config.New(), filepath.Join(dir, "taskforge.yaml"))
			if err != nil {
				t.Fatalf("Generated config does not load: %v", err)
			}
			if settings.Build != tt.buildFile {
				t.Errorf("Expected build '%s', got '%s'", tt.buildFile, settings.Build)
			}
		})
	}
}

func TestNewProjectGenerator_UnknownFormat(t *testing.T) {
	if _, err := NewProjectGenerator("site", "toml"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestWriteFiles_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "taskforge.yaml")
	if err := os.WriteFile(existing, []byte("log: {}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	err := WriteFiles(dir, []File{
		{Path: "build.yaml", Content: []byte("tasks: []\n")},
		{Path: "taskforge.yaml", Content: []byte("build: build.yaml\n")},
	})
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("Expected already exists error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "build.yaml")); !os.IsNotExist(err) {
		t.Error("Expected nothing to be written")
	}
	data, _ := os.ReadFile(existing)
	if string(data) != "log: {}\n" {
		t.Errorf("Expected existing file untouched, got %q", data)
	}
}
