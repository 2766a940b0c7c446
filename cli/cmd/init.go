package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/BDNK1/taskforge/cli/internal/generator"
	"github.com/spf13/cobra"
)

var (
	initFormat string
	pluginTask string
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a starter build file and taskforge.yaml",
	Long: `Init writes a small build file and a taskforge.yaml into dir (default: the
current directory). Existing files are never overwritten.

Example:
  taskforge init
  taskforge init ./site --format hcl
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var newPluginCmd = &cobra.Command{
	Use:   "new-plugin <name> [dir]",
	Short: "Create a plugin package with one task type",
	Long: `New-plugin writes plugin.go and plugin_test.go for a plugin registered as
<name> into dir (default: ./plugins/<name>).

Example:
  taskforge new-plugin image-tools --task render
`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runNewPlugin,
}

func init() {
	initCmd.Flags().StringVar(&initFormat, "format", "yaml", "build file format: yaml, hcl")
	newPluginCmd.Flags().StringVar(&pluginTask, "task", "run", "name of the generated task type")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(newPluginCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory: %w", err)
	}

	g, err := generator.NewProjectGenerator(filepath.Base(absDir), initFormat)
	if err != nil {
		return err
	}
	files, err := g.Generate()
	if err != nil {
		return err
	}
	if err := generator.WriteFiles(absDir, files); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, f := range files {
		fmt.Fprintf(out, "%s Created %s\n", executedColor.Sprint("✓"), filepath.Join(dir, f.Path))
	}
	fmt.Fprintf(out, "\nRun with: taskforge run -b %s\n", filepath.Join(dir, g.BuildFile))
	return nil
}

func runNewPlugin(cmd *cobra.Command, args []string) error {
	name := args[0]
	g, err := generator.NewPluginGenerator(name, pluginTask)
	if err != nil {
		return err
	}

	dir := filepath.Join("plugins", g.Package)
	if len(args) > 1 {
		dir = args[1]
	}

	files, err := g.Generate()
	if err != nil {
		return err
	}
	if err := generator.WriteFiles(dir, files); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, f := range files {
		fmt.Fprintf(out, "%s Created %s\n", executedColor.Sprint("✓"), filepath.Join(dir, f.Path))
	}
	fmt.Fprintf(out, "\nTask type: %s.%s\n", g.Name, g.TaskKey)
	return nil
}
