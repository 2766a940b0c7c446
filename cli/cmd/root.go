package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BDNK1/taskforge/cli/internal/config"
	"github.com/BDNK1/taskforge/cli/internal/constants"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	v        = config.New()
	settings *config.Settings
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "taskforge",
	Short: "TaskForge - incremental task runner",
	Long: `TaskForge runs the tasks declared in a build file (YAML or HCL).

Tasks declare their inputs and outputs; a task whose inputs and outputs are
unchanged since its last execution is reported up to date and skipped.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./taskforge.yaml)")
	flags.StringP("build", "b", constants.DefaultBuildFile, "build file (.yaml, .yml or .hcl)")
	flags.String("state", constants.DefaultStateFile, "task history database")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text, json")

	bindFlag("build", "build")
	bindFlag("state", "state")
	bindFlag("log.level", "log-level")
	bindFlag("log.format", "log-format")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(typesCmd)
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(serveCmd)
}

func bindFlag(key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag, err))
	}
}

func loadSettings(cmd *cobra.Command, _ []string) error {
	s, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	settings = s

	logger, err = newLogger(s, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// newLogger builds the console logger described by the log settings.
func newLogger(s *config.Settings, w io.Writer) (*slog.Logger, error) {
	level, err := s.LogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch s.Log.Format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), nil
}
