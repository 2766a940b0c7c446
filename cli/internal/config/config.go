// Package config loads the CLI settings from flags, TASKFORGE_* environment
// variables and an optional taskforge.yaml.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BDNK1/taskforge/cli/internal/constants"
	"github.com/spf13/viper"
)

// Settings holds everything the CLI needs besides the build file itself.
type Settings struct {
	Build     string                    `mapstructure:"build"` // build file path
	State     string                    `mapstructure:"state"` // task history database
	Log       LogSettings               `mapstructure:"log"`
	Telemetry TelemetrySettings         `mapstructure:"telemetry"`
	Serve     ServeSettings             `mapstructure:"serve"`
	Plugins   map[string]map[string]any `mapstructure:"plugins"` // per-plugin config, keyed by plugin name
}

type LogSettings struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

// TelemetrySettings enables OTLP export when Endpoint is set.
type TelemetrySettings struct {
	Endpoint    string `mapstructure:"endpoint"`
	Insecure    bool   `mapstructure:"insecure"`
	ServiceName string `mapstructure:"service_name"`
}

type ServeSettings struct {
	Addr string `mapstructure:"addr"`
	Root string `mapstructure:"root"` // build files served by /validate must live here
}

// New returns a viper instance with the CLI defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("build", constants.DefaultBuildFile)
	v.SetDefault("state", constants.DefaultStateFile)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("telemetry.service_name", "taskforge")
	v.SetDefault("serve.addr", ":8080")
	v.SetDefault("serve.root", ".")

	v.SetEnvPrefix("TASKFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configFile, or taskforge.yaml in the working directory when configFile is empty,
// and returns the merged settings. A missing default config file is not an error.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(constants.DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks the enumerated settings
func (s *Settings) Validate() error {
	if _, err := s.LogLevel(); err != nil {
		return err
	}
	switch s.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: expected text or json", s.Log.Format)
	}
	if s.Build == "" {
		return fmt.Errorf("build file path cannot be empty")
	}
	return nil
}

// LogLevel parses the configured log level.
func (s *Settings) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.Log.Level)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s.Log.Level, err)
	}
	return level, nil
}

// PluginConfig returns the raw config of plugin name with environment references expanded.
func (s *Settings) PluginConfig(name string) (map[string]any, error) {
	raw, ok := s.Plugins[name]
	if !ok {
		return nil, nil
	}
	expanded, err := ExpandArgs(raw, os.LookupEnv)
	if err != nil {
		return nil, fmt.Errorf("plugin '%s' config: %w", name, err)
	}
	return expanded, nil
}
