package graph

import (
	"errors"
	"strings"
	"testing"

	"github.com/BDNK1/taskforge/runtime"
)

func task(name string, dependsOn ...string) runtime.TaskSpec {
	return runtime.TaskSpec{Name: name, Type: "files.copy", DependsOn: dependsOn}
}

func assertOrder(t *testing.T, got, want []string) {
	t.Helper()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected order %v, got %v", want, got)
	}
}

func TestBuildGraph_NoDependencies(t *testing.T) {
	graph, err := BuildGraph([]runtime.TaskSpec{task("assets"), task("docs")})
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}

	if len(graph.Nodes()) != 2 {
		t.Errorf("Expected 2 nodes, got %d", len(graph.Nodes()))
	}
	if graph.HasCycle() {
		t.Error("Expected no cycle in graph")
	}

	order, err := graph.TopologicalSort()
	if err != nil {
		t.Fatalf("TopologicalSort failed: %v", err)
	}
	assertOrder(t, order, []string{"assets", "docs"})
}

func TestBuildGraph_LinearChain(t *testing.T) {
	// package → compile → generate
	graph, err := BuildGraph([]runtime.TaskSpec{
		task("package", "compile"),
		task("compile", "generate"),
		task("generate"),
	})
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}

	deps := graph.GetDependencies("package")
	if len(deps) != 1 || deps[0] != "compile" {
		t.Errorf("Expected package to depend on [compile], got %v", deps)
	}
	if deps := graph.GetDependencies("generate"); len(deps) != 0 {
		t.Errorf("Expected generate to have no dependencies, got %v", deps)
	}
	dependents := graph.GetDependents("generate")
	if len(dependents) != 1 || dependents[0] != "compile" {
		t.Errorf("Expected generate to be depended on by [compile], got %v", dependents)
	}

	order, err := graph.TopologicalSort()
	if err != nil {
		t.Fatalf("TopologicalSort failed: %v", err)
	}
	assertOrder(t, order, []string{"generate", "compile", "package"})
}

func TestTopologicalSort_DiamondDependency(t *testing.T) {
	// site depends on css and js, both depend on fetch
	graph, err := BuildGraph([]runtime.TaskSpec{
		task("site", "js", "css"),
		task("css", "fetch"),
		task("js", "fetch"),
		task("fetch"),
	})
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}

	order, err := graph.TopologicalSort()
	if err != nil {
		t.Fatalf("TopologicalSort failed: %v", err)
	}
	// css is declared before js, so it runs first even though site lists js first
	assertOrder(t, order, []string{"fetch", "css", "js", "site"})
}

func TestTopologicalSort_Deterministic(t *testing.T) {
	specs := []runtime.TaskSpec{
		task("e", "a"),
		task("d"),
		task("c", "d"),
		task("b"),
		task("a", "b", "d"),
	}

	var first []string
	for i := 0; i < 20; i++ {
		graph, err := BuildGraph(specs)
		if err != nil {
			t.Fatalf("BuildGraph failed: %v", err)
		}
		order, err := graph.TopologicalSort()
		if err != nil {
			t.Fatalf("TopologicalSort failed: %v", err)
		}
		if first == nil {
			first = order
			continue
		}
		assertOrder(t, order, first)
	}
	assertOrder(t, first, []string{"d", "c", "b", "a", "e"})
}

func TestSubgraph(t *testing.T) {
	graph, err := BuildGraph([]runtime.TaskSpec{
		task("fetch"),
		task("css", "fetch"),
		task("js", "fetch"),
		task("site", "css", "js"),
		task("docs"),
	})
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}

	tests := []struct {
		name    string
		targets []string
		want    []string
	}{
		{"leaf", []string{"fetch"}, []string{"fetch"}},
		{"one branch", []string{"css"}, []string{"fetch", "css"}},
		{"everything under site", []string{"site"}, []string{"fetch", "css", "js", "site"}},
		{"disjoint targets", []string{"docs", "js"}, []string{"fetch", "js", "docs"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := graph.Subgraph(tt.targets...)
			if err != nil {
				t.Fatalf("Subgraph failed: %v", err)
			}
			assertOrder(t, order, tt.want)
		})
	}
}

func TestSubgraph_UnknownTarget(t *testing.T) {
	graph, err := BuildGraph([]runtime.TaskSpec{task("fetch")})
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}

	_, err = graph.Subgraph("deploy")
	var graphErr *GraphError
	if !errors.As(err, &graphErr) {
		t.Fatalf("Expected GraphError, got %v", err)
	}
	if graphErr.Type != ErrorMissingDependency || graphErr.TaskName != "deploy" {
		t.Errorf("Unexpected error: %s %s", graphErr.Type, graphErr.TaskName)
	}
}

func TestBuildGraph_Cycles(t *testing.T) {
	tests := []struct {
		name  string
		specs []runtime.TaskSpec
		cycle string
	}{
		{"self", []runtime.TaskSpec{task("a", "a")}, "a → a"},
		{"simple", []runtime.TaskSpec{task("a", "b"), task("b", "a")}, "a → b → a"},
		{"complex", []runtime.TaskSpec{task("a", "b"), task("b", "c"), task("c", "a"), task("d")}, "a → b → c → a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildGraph(tt.specs)
			if err == nil {
				t.Fatal("Expected cycle error, got nil")
			}
			graphErr, ok := err.(*GraphError)
			if !ok {
				t.Fatalf("Expected GraphError, got %T", err)
			}
			if graphErr.Type != ErrorCircularDependency {
				t.Errorf("Expected CircularDependency, got %s", graphErr.Type)
			}
			if graphErr.Details["cycle"] != tt.cycle {
				t.Errorf("Expected cycle '%s', got '%s'", tt.cycle, graphErr.Details["cycle"])
			}
		})
	}
}

func TestBuildGraph_MissingDependency(t *testing.T) {
	_, err := BuildGraph([]runtime.TaskSpec{task("site", "assets")})
	if err == nil {
		t.Fatal("Expected missing dependency error, got nil")
	}
	graphErr, ok := err.(*GraphError)
	if !ok {
		t.Fatalf("Expected GraphError, got %T", err)
	}
	if graphErr.Type != ErrorMissingDependency {
		t.Errorf("Expected MissingDependency, got %s", graphErr.Type)
	}
	if graphErr.TaskName != "site" || graphErr.Details["dependency"] != "assets" {
		t.Errorf("Unexpected error details: %s %v", graphErr.TaskName, graphErr.Details)
	}
	if !strings.Contains(graphErr.Error(), "'assets', which is not defined") {
		t.Errorf("Unexpected message: %s", graphErr.Error())
	}
}

func TestBuildGraph_DuplicateTask(t *testing.T) {
	_, err := BuildGraph([]runtime.TaskSpec{task("site"), task("site")})
	graphErr, ok := err.(*GraphError)
	if !ok {
		t.Fatalf("Expected GraphError, got %v", err)
	}
	if graphErr.Type != ErrorInvalidGraph {
		t.Errorf("Expected InvalidGraph, got %s", graphErr.Type)
	}
}
