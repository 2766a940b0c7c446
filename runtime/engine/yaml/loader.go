package yaml

import (
	"fmt"
	"os"

	"github.com/BDNK1/taskforge/runtime"
	goyaml "gopkg.in/yaml.v3"
)

// BuildLoader loads build definitions from YAML files.
type BuildLoader struct{}

func NewBuildLoader() *BuildLoader {
	return &BuildLoader{}
}

func (l *BuildLoader) Extensions() []string {
	return []string{"*.yaml", "*.yml"}
}

func (l *BuildLoader) Load(filePath string) (*runtime.Build, error) {
	yamlFile, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading YAML file: %w", err)
	}
	return Parse(yamlFile)
}

// Parse decodes a YAML build definition.
func Parse(data []byte) (*runtime.Build, error) {
	var build runtime.Build
	if err := goyaml.Unmarshal(data, &build); err != nil {
		return nil, fmt.Errorf("error unmarshalling YAML: %w", err)
	}
	return &build, nil
}
