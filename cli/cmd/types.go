package cmd

import (
	"fmt"

	"github.com/BDNK1/taskforge/runtime"
	"github.com/spf13/cobra"
)

var typesCmd = &cobra.Command{
	Use:   "types [type]",
	Short: "List the registered task types, or describe one",
	Long: `Types lists every task type contributed by the configured plugins.
Given a type name it prints the type's actions and properties as JSON.

Example:
  taskforge types
  taskforge types files.copy
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTypes,
}

func runTypes(cmd *cobra.Command, args []string) error {
	app, _, err := newApp(settings, logger, appOptions{})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		for _, name := range app.Container.TaskTypes() {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	name := args[0]
	taskType, ok := app.Container.TaskType(name)
	if !ok {
		return fmt.Errorf("unknown task type '%s'", name)
	}
	info, err := app.Container.Factory().ClassInfo(taskType)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, runtime.DescribeTaskType(name, info).StringIndent("", "  "))
	return nil
}
