package constants

// Module paths for TaskForge components
const (
	// BaseModulePath is the root path of the TaskForge module
	BaseModulePath = "github.com/BDNK1/taskforge"

	// RuntimeModulePath is the full path to the runtime package
	RuntimeModulePath = BaseModulePath + "/runtime"

	// PluginModulePath is the package plugins import task declarations from
	PluginModulePath = RuntimeModulePath + "/plugin"

	// PluginsBasePath is the base path for bundled plugins
	PluginsBasePath = BaseModulePath + "/plugins"
)

// Project file defaults
const (
	// DefaultBuildFile is the build file used when none is given
	DefaultBuildFile = "build.yaml"

	// DefaultConfigName is the CLI config file name, without extension
	DefaultConfigName = "taskforge"

	// DefaultStateFile is the task history database
	DefaultStateFile = ".taskforge/history.db"
)
