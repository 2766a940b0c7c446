package analyzer

import (
	"fmt"
	"go/token"
)

// PackageMetadata is what AST analysis found in one package directory
type PackageMetadata struct {
	Dir  string
	Name string

	// TaskTypes are the structs declaring task properties or actions, in source order
	TaskTypes []*TaskTypeMetadata

	// Plugins are the exported structs whose name ends with "Plugin"
	Plugins []*PluginMetadata

	fset    *token.FileSet
	methods map[string]map[string]bool // receiver type -> method name -> exported
}

// TaskTypeMetadata describes a struct that takes part in task declarations
type TaskTypeMetadata struct {
	TypeName string
	Pos      token.Position

	// EmbedsDefaultTask is true when DefaultTask is embedded directly or through a local supertype
	EmbedsDefaultTask bool
	Cacheable         bool

	// Supertypes are the embedded structs of the same package
	Supertypes []string

	// Actions are the method names listed in the `actions` tag
	Actions    []string
	ActionsPos token.Position

	Properties   []PropertyMetadata
	Dependencies []Dependency
}

// PropertyMetadata is one field carrying a `task` tag
type PropertyMetadata struct {
	FieldName   string
	Type        string
	Tag         string
	ValidateTag string
	Exported    bool
	Pos         token.Position
}

// Dependency represents a plugin injected through an `inject` tag
type Dependency struct {
	FieldName string

	// PluginType is the full type including pointer (e.g., "*http.HTTPPlugin")
	PluginType string

	// PluginName is the registered plugin name from the inject tag
	PluginName string

	// IsExported indicates if the field is exported (required for injection)
	IsExported bool
	Pos        token.Position
}

// PluginMetadata describes a plugin struct and its Config
type PluginMetadata struct {
	TypeName string

	// HasConfig indicates if plugin has a Config field
	HasConfig bool

	// ConfigType contains metadata about the plugin's Config struct
	ConfigType *ConfigMetadata
}

// ConfigMetadata contains information about a plugin's Config struct
type ConfigMetadata struct {
	// TypeName is the config struct type name (always "Config")
	TypeName string

	// Fields are the configuration fields with their tags
	Fields []ConfigField
}

// ConfigField represents a single field in a Config struct
type ConfigField struct {
	Name        string
	Type        string
	YAMLTag     string
	DefaultTag  string
	ValidateTag string
	Pos         token.Position
}

// Finding is one problem reported by Lint
type Finding struct {
	Pos      token.Position
	TypeName string
	Member   string
	Message  string
}

func (f Finding) String() string {
	if f.Member == "" {
		return fmt.Sprintf("%s: %s: %s", f.Pos, f.TypeName, f.Message)
	}
	return fmt.Sprintf("%s: %s.%s: %s", f.Pos, f.TypeName, f.Member, f.Message)
}

// AnalysisError represents an error during package analysis
type AnalysisError struct {
	Dir     string
	Message string
	Cause   error
}

func (e *AnalysisError) Error() string {
	if e.Cause != nil {
		return e.Dir + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Dir + ": " + e.Message
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}
