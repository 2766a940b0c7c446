// Package generator scaffolds new TaskForge projects and plugin packages from templates.
package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"unicode"

	"github.com/BDNK1/taskforge/cli/internal/constants"
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// reservedPackages are the packages imported by the generated plugin and its test.
var reservedPackages = map[string]bool{
	"afero": true, "context": true, "fmt": true, "io": true, "plugin": true, "runtime": true, "slog": true, "testing": true,
}

// File is one generated file, relative to the output directory.
type File struct {
	Path    string
	Content []byte
}

// PluginGenerator generates a plugin package with one task type and its test.
type PluginGenerator struct {
	Name              string // registration name, e.g. "image-tools"
	Package           string // Go package name, e.g. "imagetools"
	TypeName          string // plugin struct, e.g. "ImageToolsPlugin"
	TaskKey           string // task type key, e.g. "render"
	TaskType          string // task struct, e.g. "RenderTask"
	RuntimeModulePath string
	PluginModulePath  string
}

// NewPluginGenerator derives the Go names of a plugin from its registration name and task key.
func NewPluginGenerator(name, taskKey string) (*PluginGenerator, error) {
	if !namePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid plugin name %q: use lowercase letters, digits and hyphens", name)
	}
	if !namePattern.MatchString(taskKey) {
		return nil, fmt.Errorf("invalid task name %q: use lowercase letters, digits and hyphens", taskKey)
	}
	pkg := sanitizeGoIdentifier(name)
	if token.IsKeyword(pkg) || reservedPackages[pkg] {
		return nil, fmt.Errorf("invalid plugin name %q: package %s would clash with an import", name, pkg)
	}
	return &PluginGenerator{
		Name:              name,
		Package:           pkg,
		TypeName:          exportedName(name) + "Plugin",
		TaskKey:           lowerFirst(exportedName(taskKey)),
		TaskType:          exportedName(taskKey) + "Task",
		RuntimeModulePath: constants.RuntimeModulePath,
		PluginModulePath:  constants.PluginModulePath,
	}, nil
}

// Generate renders plugin.go and plugin_test.go, gofmt-ed.
func (g *PluginGenerator) Generate() ([]File, error) {
	var files []File
	for _, t := range []struct{ path, text string }{
		{"plugin.go", pluginTemplate},
		{"plugin_test.go", pluginTestTemplate},
	} {
		content, err := render(t.path, t.text, g)
		if err != nil {
			return nil, err
		}
		formatted, err := format.Source(content)
		if err != nil {
			return nil, fmt.Errorf("generated %s is not valid Go: %w", t.path, err)
		}
		files = append(files, File{Path: t.path, Content: formatted})
	}
	return files, nil
}

// ProjectGenerator generates a starter build file and CLI config.
type ProjectGenerator struct {
	Name      string
	Format    string // yaml or hcl
	BuildFile string
	StateFile string
}

// NewProjectGenerator creates a project generator for the given build file format.
func NewProjectGenerator(name, buildFormat string) (*ProjectGenerator, error) {
	g := &ProjectGenerator{Name: name, Format: buildFormat, StateFile: constants.DefaultStateFile}
	switch buildFormat {
	case "yaml":
		g.BuildFile = constants.DefaultBuildFile
	case "hcl":
		g.BuildFile = "build.hcl"
	default:
		return nil, fmt.Errorf("unsupported build format %q: expected yaml or hcl", buildFormat)
	}
	if g.Name == "" {
		g.Name = "build"
	}
	return g, nil
}

// Generate renders the build file and taskforge.yaml.
func (g *ProjectGenerator) Generate() ([]File, error) {
	buildTemplate := buildYAMLTemplate
	if g.Format == "hcl" {
		buildTemplate = buildHCLTemplate
	}

	build, err := render(g.BuildFile, buildTemplate, g)
	if err != nil {
		return nil, err
	}
	cfg, err := render("config", configTemplate, g)
	if err != nil {
		return nil, err
	}
	return []File{
		{Path: g.BuildFile, Content: build},
		{Path: constants.DefaultConfigName + ".yaml", Content: cfg},
	}, nil
}

// WriteFiles writes files under dir. It refuses to overwrite anything and writes
// nothing when one of the files already exists.
func WriteFiles(dir string, files []File) error {
	for _, f := range files {
		path := filepath.Join(dir, f.Path)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	for _, f := range files {
		path := filepath.Join(dir, f.Path)
		if err := os.WriteFile(path, f.Content, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

func render(name, text string, data any) ([]byte, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute %s template: %w", name, err)
	}
	return buf.Bytes(), nil
}

// sanitizeGoIdentifier converts a plugin name to a package name: "image-tools" becomes "imagetools"
func sanitizeGoIdentifier(s string) string {
	return strings.ReplaceAll(s, "-", "")
}

// exportedName converts a hyphenated name to CamelCase: "image-tools" becomes "ImageTools"
func exportedName(s string) string {
	var sb strings.Builder
	for _, part := range strings.Split(s, "-") {
		if part == "" {
			continue
		}
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		sb.WriteString(string(runes))
	}
	return sb.String()
}

func lowerFirst(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
