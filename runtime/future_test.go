package runtime

import (
	"testing"

	"github.com/spf13/afero"
)

func TestPropertyPass_CachesWithinPass(t *testing.T) {
	task, err := CreateTask[packageTask](newMemFactory(afero.NewMemMapFs()), "package")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	var verbose *ValueProperty
	for _, p := range task.Inputs().ValueProperties() {
		if p.Name == "verbose" {
			verbose = p
		}
	}
	if verbose == nil {
		t.Fatal("Expected verbose to be registered as a value input")
	}

	end := BeginPropertyPass(task)
	task.Verbose = true
	first := verbose.Value()
	task.Verbose = false
	second := verbose.Value()
	end()

	if first != true || second != true {
		t.Errorf("Expected both reads in one pass to see true, got %v and %v", first, second)
	}
	if task.verboseReads != 1 {
		t.Errorf("Expected one accessor call in the pass, got %d", task.verboseReads)
	}

	if v := verbose.Value(); v != false {
		t.Errorf("Expected a fresh read outside the pass, got %v", v)
	}
}

func TestPropertyPass_DoesNotNest(t *testing.T) {
	task := &outTask{}
	end := BeginPropertyPass(task)
	pass := task.pass

	inner := BeginPropertyPass(task)
	if task.pass != pass {
		t.Error("Expected a nested pass to keep the active one")
	}
	inner()
	if task.pass != pass {
		t.Error("Expected ending a nested pass to keep the active one")
	}

	end()
	if task.pass != nil {
		t.Error("Expected the pass to end")
	}
}
