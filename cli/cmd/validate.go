package cmd

import (
	"fmt"
	"io"

	"github.com/BDNK1/taskforge/cli/internal/graph"
	"github.com/BDNK1/taskforge/runtime"
	"github.com/spf13/cobra"
)

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the build file and every task's properties without running anything",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "print the result as JSON")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	app, _, err := newApp(settings, logger, appOptions{})
	if err != nil {
		return err
	}

	results, order, err := validateBuild(app, settings.Build)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if validateJSON {
		fmt.Fprintln(out, runtime.DescribeValidation(results).StringIndent("", "  "))
	} else {
		printValidation(out, results, order)
	}

	invalid := 0
	for _, messages := range results {
		if len(messages) > 0 {
			invalid++
		}
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d tasks are invalid", invalid, len(results))
	}
	return nil
}

// validateBuild checks the dependency graph and returns the validation messages of every task
// together with the execution order.
func validateBuild(app *runtime.App, path string) (map[string]runtime.ValidationMessages, []string, error) {
	build, err := loadBuild(app, path)
	if err != nil {
		return nil, nil, err
	}
	g, err := graph.BuildGraph(build.Tasks)
	if err != nil {
		return nil, nil, err
	}
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, nil, err
	}

	tasks, err := app.CreateTasks(build)
	if err != nil {
		return nil, nil, err
	}
	results := make(map[string]runtime.ValidationMessages, len(tasks))
	for name, task := range tasks {
		results[name] = app.Validate(task)
	}
	return results, order, nil
}

func printValidation(out io.Writer, results map[string]runtime.ValidationMessages, order []string) {
	for _, name := range order {
		messages := results[name]
		if len(messages) == 0 {
			fmt.Fprintf(out, "%s %s\n", executedColor.Sprint("✓"), name)
			continue
		}
		fmt.Fprintf(out, "%s %s\n", failedColor.Sprint("✗"), name)
		for _, msg := range messages {
			fmt.Fprintf(out, "    %s\n", msg)
		}
	}
}
