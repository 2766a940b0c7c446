package runtime

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
)

type bundleTask struct {
	DefaultTask
	Cacheable
	_ Actions `actions:"Bundle"`

	Files Paths  `task:"input-files"`
	Dest  string `task:"output-file"`
}

func (t *bundleTask) Bundle(ctx context.Context, changes *InputChanges) error {
	return nil
}

func TestFactory_ActionOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/src", 0o755)

	task, err := CreateTask[javaCompile](newMemFactory(fs), "compileJava")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	task.Source = "/src"
	task.Out = "/build/classes"

	actions := task.Actions()
	if len(actions) != 5 {
		t.Fatalf("Expected mkdir, validator and 3 task actions, got %d", len(actions))
	}
	if _, ok := actions[0].(ActionFunc); !ok {
		t.Errorf("Expected directory creation first, got %T", actions[0])
	}
	if _, ok := actions[1].(*Validator); !ok {
		t.Errorf("Expected the validator second, got %T", actions[1])
	}

	var logs bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewJSONHandler(&logs, nil)))
	end := BeginPropertyPass(task)
	for i, action := range actions {
		if err := action.Execute(ctx, task); err != nil {
			t.Fatalf("Action %d failed: %v", i, err)
		}
	}
	end()

	if got := strings.Join(task.calls, ","); got != "base.Prepare,java.Compile,java.Link" {
		t.Errorf("Expected base.Prepare,java.Compile,java.Link, got %s", got)
	}
	if !isDir(fs, "/build/classes") {
		t.Error("Expected the output directory to be created before the task actions")
	}
	if !strings.Contains(logs.String(), `"action":"Link"`) || !strings.Contains(logs.String(), `"declaring_type":"runtime.javaCompile"`) {
		t.Errorf("Expected the action logger to be scoped, got %s", logs.String())
	}
}

func TestFactory_DecorateIsIdempotent(t *testing.T) {
	factory := newMemFactory(afero.NewMemMapFs())
	task, err := CreateTask[bundleTask](factory, "bundle")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	actions := len(task.Actions())
	if err := factory.Decorate(task); err != nil {
		t.Fatalf("Decorate failed: %v", err)
	}

	if len(task.Actions()) != actions {
		t.Errorf("Expected %d actions after decorating twice, got %d", actions, len(task.Actions()))
	}
	if len(task.Validators()) != 1 {
		t.Errorf("Expected 1 validator, got %d", len(task.Validators()))
	}
	if len(task.Inputs().FileProperties()) != 1 || len(task.Outputs().FileProperties()) != 1 {
		t.Errorf("Expected one input and one output registration, got %d and %d",
			len(task.Inputs().FileProperties()), len(task.Outputs().FileProperties()))
	}
	if len(task.Outputs().upToDateWhen) != 1 || len(task.Outputs().cacheIf) != 1 {
		t.Error("Expected the up-to-date and caching predicates to be registered once")
	}
}

func TestFactory_IncrementalAndCacheable(t *testing.T) {
	factory := newMemFactory(afero.NewMemMapFs())

	bundle, err := CreateTask[bundleTask](factory, "bundle")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if !bundle.Outputs().UpToDateSpecsSatisfied(bundle) || len(bundle.Outputs().upToDateWhen) != 1 {
		t.Error("Expected an incremental task to register an up-to-date predicate")
	}
	if !bundle.Outputs().CachingEnabled(bundle) {
		t.Error("Expected a cacheable task to enable caching")
	}

	compile, err := CreateTask[javaCompile](factory, "compile")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if len(compile.Outputs().upToDateWhen) != 0 {
		t.Error("Expected no up-to-date predicate on a non-incremental task")
	}
	if compile.Outputs().CachingEnabled(compile) {
		t.Error("Expected caching to stay disabled on a task without the Cacheable marker")
	}
}

func TestFactory_OutputsResolveLazily(t *testing.T) {
	task, err := CreateTask[bundleTask](newMemFactory(afero.NewMemMapFs()), "bundle")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if files := task.Outputs().Files(); len(files) != 0 {
		t.Errorf("Expected no outputs before configuration, got %v", files)
	}

	task.Dest = "/dist/bundle.js"
	task.Files = Paths{"/src/b.js", "/src/a.js", "/src/a.js"}

	if files := task.Outputs().Files(); len(files) != 1 || files[0] != "/dist/bundle.js" {
		t.Errorf("Expected [/dist/bundle.js], got %v", files)
	}
	if files := task.Inputs().Files(); strings.Join(files, ",") != "/src/a.js,/src/b.js" {
		t.Errorf("Expected sorted distinct inputs, got %v", files)
	}
}

func TestFactory_DefinitionErrorAbortsCreation(t *testing.T) {
	_, err := CreateTask[twoIncrementalTask](newMemFactory(afero.NewMemMapFs()), "broken")
	var defErr *DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("Expected *DefinitionError, got %v", err)
	}
}

func TestFactory_RejectsNonTaskTypes(t *testing.T) {
	factory := newMemFactory(afero.NewMemMapFs())
	if _, err := factory.Create("x", reflect.TypeOf(manifest{})); err == nil {
		t.Error("Expected error for a non-pointer type")
	}
	if _, err := factory.Create("x", reflect.TypeOf(&manifest{})); err == nil {
		t.Error("Expected error for a type without DefaultTask")
	}
}

func TestClassInfoStore_SharedAcrossCallers(t *testing.T) {
	store := NewClassInfoStore()
	taskType := reflect.TypeOf((*javaCompile)(nil))

	var wg sync.WaitGroup
	infos := make([]*TaskClassInfo, 16)
	for i := range infos {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := store.Get(taskType)
			if err != nil {
				t.Errorf("Get failed: %v", err)
				return
			}
			infos[i] = info
		}(i)
	}
	wg.Wait()

	for i, info := range infos {
		if info != infos[0] {
			t.Fatalf("Expected every caller to share one TaskClassInfo, caller %d got another", i)
		}
	}
	if infos[0].Validator == nil || len(infos[0].Validator.Properties()) != 2 {
		t.Error("Expected a validator with the two declared properties")
	}
}

func TestClassInfoStore_ErrorsAreNotCached(t *testing.T) {
	store := NewClassInfoStore()
	taskType := reflect.TypeOf((*badReturnTask)(nil))

	for i := 0; i < 2; i++ {
		if _, err := store.Get(taskType); err == nil {
			t.Fatalf("Expected attempt %d to fail", i+1)
		}
	}
	if _, ok := store.infos.Load(taskType); ok {
		t.Error("Expected the failed type not to be stored")
	}
}

func TestClassInfoStore_NoProperties(t *testing.T) {
	info, err := NewClassInfoStore().Get(reflect.TypeOf((*failingTask)(nil)))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if info.Validator != nil {
		t.Error("Expected no validator for a type without properties")
	}
	if info.Cacheable || info.Incremental {
		t.Error("Expected a plain type to be neither cacheable nor incremental")
	}
}

type labelledTask struct {
	DefaultTask
	_ Actions `actions:"Label"`

	Description string `task:"input-value"`
}

func (t *labelledTask) Label() {}

type plainStruct struct {
	Name string
}

func TestClassInfoStore_FieldHidesTaskMethod(t *testing.T) {
	_, err := NewClassInfoStore().Get(reflect.TypeOf((*labelledTask)(nil)))
	var defErr *DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("Expected *DefinitionError, got %v", err)
	}
	if defErr.Member != "Description" {
		t.Errorf("Expected member 'Description', got '%s'", defErr.Member)
	}
	if !strings.Contains(err.Error(), "Field labelledTask.Description hides the Description() method of runtime.DefaultTask.") {
		t.Errorf("Unexpected message: '%s'", err.Error())
	}

	_, err = NewClassInfoStore().Get(reflect.TypeOf((*plainStruct)(nil)))
	if err == nil || !strings.Contains(err.Error(), "does not embed runtime.DefaultTask") {
		t.Errorf("Expected a missing DefaultTask error, got %v", err)
	}
}
