package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

type memLoader map[string]*Build

func (l memLoader) Extensions() []string {
	return []string{"*.build"}
}

func (l memLoader) Load(path string) (*Build, error) {
	build, ok := l[path]
	if !ok {
		return nil, fmt.Errorf("no build at %s", path)
	}
	copied := *build
	return &copied, nil
}

func newTestApp(t *testing.T, fs afero.Fs, loader memLoader) *App {
	t.Helper()
	c, _ := newTestContainer(t, fs)
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewApp(l, c, newTestExecutor(t, staticEvaluator{"release": true}), loader)
}

func siteBuild() *Build {
	return &Build{
		Name:       "site",
		Properties: map[string]any{"release": true},
		Tasks: []TaskSpec{
			{
				Name: "greet",
				Type: "tools.greet",
				Args: map[string]any{"name": "world", "out": "/build/greeting.txt"},
			},
			{
				Name:        "bundle",
				Type:        "tools.concat",
				Description: "Concatenates the greeting",
				DependsOn:   []string{"greet"},
				OnlyIf:      []string{"release"},
				Timeout:     "30s",
				Args:        map[string]any{"sources": []any{"/build/greeting.txt"}, "dest": "/dist/site.txt"},
			},
		},
	}
}

func TestApp_LoadBuild(t *testing.T) {
	app := newTestApp(t, afero.NewMemMapFs(), memLoader{
		"site.build":     siteBuild(),
		"twice.build":    {Tasks: []TaskSpec{{Name: "a", Type: "tools.greet"}, {Name: "a", Type: "tools.greet"}}},
		"typeless.build": {Tasks: []TaskSpec{{Name: "a"}}},
	})

	build, err := app.LoadBuild("site.build")
	if err != nil {
		t.Fatalf("LoadBuild failed: %v", err)
	}
	if build.Source != "site.build" || len(build.Tasks) != 2 {
		t.Errorf("Unexpected build: %+v", build)
	}

	tests := map[string]string{
		"twice.build":    "declared twice",
		"typeless.build": "has no type",
		"site.yaml":      "no loader",
	}
	for path, want := range tests {
		if _, err := app.LoadBuild(path); err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("LoadBuild(%s): expected error containing '%s', got %v", path, want, err)
		}
	}
}

func TestApp_CreateTask(t *testing.T) {
	app := newTestApp(t, afero.NewMemMapFs(), nil)

	spec, _ := siteBuild().Task("bundle")
	task, err := app.CreateTask(spec)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	bundle := task.(*concatTask)
	if bundle.Description() != "Concatenates the greeting" {
		t.Errorf("Unexpected description '%s'", bundle.Description())
	}
	if strings.Join(bundle.DependsOn(), ",") != "greet" || strings.Join(bundle.OnlyIf(), ",") != "release" {
		t.Errorf("Unexpected dependsOn %v or onlyIf %v", bundle.DependsOn(), bundle.OnlyIf())
	}
	if bundle.Timeout() != 30*time.Second {
		t.Errorf("Expected timeout 30s, got %v", bundle.Timeout())
	}
	if bundle.Dest != "/dist/site.txt" || len(bundle.Sources) != 1 {
		t.Errorf("Expected arguments to be applied, got dest=%s sources=%v", bundle.Dest, bundle.Sources)
	}

	spec.Timeout = "soon"
	if _, err := app.CreateTask(spec); err == nil {
		t.Error("Expected error for an invalid timeout")
	}
}

func TestApp_ValidateAndRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	app := newTestApp(t, fs, nil)
	build := siteBuild()

	tasks, err := app.CreateTasks(build)
	if err != nil {
		t.Fatalf("CreateTasks failed: %v", err)
	}

	for name, task := range tasks {
		if messages := app.Validate(task); len(messages) != 0 {
			t.Errorf("Expected %s to be valid, got %q", name, messages)
		}
	}

	results, err := app.Run(context.Background(), build, tasks, []string{"greet", "bundle"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 2 || results[0].Outcome != OutcomeExecuted || results[1].Outcome != OutcomeExecuted {
		t.Fatalf("Expected both tasks executed, got %+v", results)
	}
	if data, _ := afero.ReadFile(fs, "/dist/site.txt"); string(data) != "hello, world" {
		t.Errorf("Expected 'hello, world', got '%s'", data)
	}

	results, err = app.Run(context.Background(), build, tasks, []string{"greet", "bundle"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for _, r := range results {
		if r.Outcome != OutcomeUpToDate {
			t.Errorf("Expected %s to be up to date on the second run, got %s", r.Task, r.Outcome)
		}
	}
}

func TestApp_RunStopsAtFirstFailure(t *testing.T) {
	app := newTestApp(t, afero.NewMemMapFs(), nil)
	build := siteBuild()
	build.Tasks[0].Args = map[string]any{"out": "/build/greeting.txt"}

	tasks, err := app.CreateTasks(build)
	if err != nil {
		t.Fatalf("CreateTasks failed: %v", err)
	}

	results, err := app.Run(context.Background(), build, tasks, []string{"greet", "bundle"})
	if err == nil {
		t.Fatal("Expected the invalid greet task to fail the run")
	}
	if len(results) != 1 || results[0].Outcome != OutcomeFailed {
		t.Errorf("Expected only greet to have run, got %+v", results)
	}

	if _, err := app.Run(context.Background(), build, tasks, []string{"deploy"}); err == nil {
		t.Error("Expected error for an undefined task")
	}
}
