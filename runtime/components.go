package runtime

// Build is a parsed build file.
type Build struct {
	Name       string         `yaml:"name"`
	Properties map[string]any `yaml:"properties"`
	Tasks      []TaskSpec     `yaml:"tasks"`
	// Source is the file the build was loaded from.
	Source string `yaml:"-"`
}

// TaskSpec declares one task instance in a build file.
type TaskSpec struct {
	Name        string         `yaml:"name"`
	Type        string         `yaml:"type"`
	Description string         `yaml:"description,omitempty"`
	DependsOn   []string       `yaml:"dependsOn,omitempty"`
	OnlyIf      []string       `yaml:"onlyIf,omitempty"`
	Timeout     string         `yaml:"timeout,omitempty"` // Go duration, e.g. "30s"
	Args        map[string]any `yaml:"args"`
}

// Task returns the spec named name.
func (b *Build) Task(name string) (TaskSpec, bool) {
	for _, spec := range b.Tasks {
		if spec.Name == name {
			return spec, true
		}
	}
	return TaskSpec{}, false
}
