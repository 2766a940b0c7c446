// Package graph orders the tasks of a build by their dependsOn declarations.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BDNK1/taskforge/runtime"
)

// Graph represents the dependency graph between the tasks of a build
type Graph struct {
	// order holds task names in declaration order; it breaks ties deterministically
	order []string
	index map[string]int

	// edges maps task name to the tasks it depends on
	edges map[string][]string

	// reverseEdges maps task name to the tasks that depend on it
	reverseEdges map[string][]string
}

// BuildGraph constructs a dependency graph from the task specs of a build
func BuildGraph(specs []runtime.TaskSpec) (*Graph, error) {
	g := &Graph{
		index:        make(map[string]int),
		edges:        make(map[string][]string),
		reverseEdges: make(map[string][]string),
	}

	for _, spec := range specs {
		if _, exists := g.index[spec.Name]; exists {
			return nil, &GraphError{
				Type:     ErrorInvalidGraph,
				TaskName: spec.Name,
				Message:  fmt.Sprintf("task '%s' is declared twice", spec.Name),
			}
		}
		g.index[spec.Name] = len(g.order)
		g.order = append(g.order, spec.Name)
		g.edges[spec.Name] = []string{}
		g.reverseEdges[spec.Name] = []string{}
	}

	for _, spec := range specs {
		for _, dep := range spec.DependsOn {
			if _, exists := g.index[dep]; !exists {
				return nil, &GraphError{
					Type:     ErrorMissingDependency,
					TaskName: spec.Name,
					Message:  fmt.Sprintf("task '%s' depends on '%s', which is not defined", spec.Name, dep),
					Details:  map[string]string{"dependency": dep},
				}
			}
			g.edges[spec.Name] = append(g.edges[spec.Name], dep)
			g.reverseEdges[dep] = append(g.reverseEdges[dep], spec.Name)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, &GraphError{
			Type:     ErrorCircularDependency,
			TaskName: cycle[0],
			Message:  fmt.Sprintf("circular dependency detected: %s", strings.Join(cycle, " → ")),
			Details:  map[string]string{"cycle": strings.Join(cycle, " → ")},
		}
	}

	return g, nil
}

// TopologicalSort returns every task in execution order (dependencies first).
// Uses Kahn's algorithm; among ready tasks the one declared first runs first.
func (g *Graph) TopologicalSort() ([]string, error) {
	return g.sort(g.order)
}

// Subgraph returns the execution order of targets and everything they transitively depend on.
func (g *Graph) Subgraph(targets ...string) ([]string, error) {
	selected := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		if selected[name] {
			return
		}
		selected[name] = true
		for _, dep := range g.edges[name] {
			visit(dep)
		}
	}
	for _, target := range targets {
		if _, exists := g.index[target]; !exists {
			return nil, &GraphError{
				Type:     ErrorMissingDependency,
				TaskName: target,
				Message:  fmt.Sprintf("task '%s' is not defined", target),
			}
		}
		visit(target)
	}

	nodes := make([]string, 0, len(selected))
	for _, name := range g.order {
		if selected[name] {
			nodes = append(nodes, name)
		}
	}
	return g.sort(nodes)
}

func (g *Graph) sort(nodes []string) ([]string, error) {
	member := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		member[node] = true
	}

	inDegree := make(map[string]int, len(nodes))
	for _, node := range nodes {
		inDegree[node] = len(g.edges[node])
	}

	ready := []string{}
	for _, node := range nodes {
		if inDegree[node] == 0 {
			ready = append(ready, node)
		}
	}

	result := make([]string, 0, len(nodes))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		result = append(result, current)

		for _, dependent := range g.reverseEdges[current] {
			if !member[dependent] {
				continue
			}
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = g.insertReady(ready, dependent)
			}
		}
	}

	if len(result) != len(nodes) {
		cycle := g.findCycle()
		return nil, &GraphError{
			Type:     ErrorCircularDependency,
			TaskName: cycle[0],
			Message:  fmt.Sprintf("circular dependency prevents ordering: %s", strings.Join(cycle, " → ")),
			Details:  map[string]string{"cycle": strings.Join(cycle, " → ")},
		}
	}
	return result, nil
}

// insertReady keeps the ready queue sorted by declaration order.
func (g *Graph) insertReady(ready []string, name string) []string {
	i := sort.Search(len(ready), func(i int) bool { return g.index[ready[i]] > g.index[name] })
	ready = append(ready, "")
	copy(ready[i+1:], ready[i:])
	ready[i] = name
	return ready
}

// findCycle detects and returns a cycle in the graph, or nil if no cycle exists
// Uses DFS with recursion stack tracking
func (g *Graph) findCycle() []string {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	parent := make(map[string]string)

	var dfs func(node string) []string

	dfs = func(node string) []string {
		visited[node] = true
		recStack[node] = true

		for _, dep := range g.edges[node] {
			if !visited[dep] {
				parent[dep] = node
				if cycle := dfs(dep); cycle != nil {
					return cycle
				}
			} else if recStack[dep] {
				cycle := []string{node}
				for current := node; current != dep; {
					current = parent[current]
					cycle = append([]string{current}, cycle...)
				}
				cycle = append(cycle, dep)
				return cycle
			}
		}

		recStack[node] = false
		return nil
	}

	for _, node := range g.order {
		if !visited[node] {
			if cycle := dfs(node); cycle != nil {
				return cycle
			}
		}
	}

	return nil
}

// HasCycle returns true if the graph contains a circular dependency
func (g *Graph) HasCycle() bool {
	return g.findCycle() != nil
}

// GetDependencies returns the tasks the given task depends on
func (g *Graph) GetDependencies(taskName string) []string {
	return g.edges[taskName]
}

// GetDependents returns the tasks that depend on the given task
func (g *Graph) GetDependents(taskName string) []string {
	return g.reverseEdges[taskName]
}

// Nodes returns all task names in declaration order
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.order...)
}

// GraphError represents errors that occur during graph operations
type GraphError struct {
	Type     ErrorType
	TaskName string
	Message  string
	Details  map[string]string
}

func (e *GraphError) Error() string {
	return e.Message
}

// ErrorType represents different types of graph errors
type ErrorType int

const (
	ErrorMissingDependency ErrorType = iota
	ErrorCircularDependency
	ErrorInvalidGraph
)

func (t ErrorType) String() string {
	switch t {
	case ErrorMissingDependency:
		return "MissingDependency"
	case ErrorCircularDependency:
		return "CircularDependency"
	case ErrorInvalidGraph:
		return "InvalidGraph"
	default:
		return "Unknown"
	}
}
