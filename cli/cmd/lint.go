package cmd

import (
	"fmt"

	"github.com/BDNK1/taskforge/cli/internal/analyzer"
	"github.com/spf13/cobra"
)

var lintCmd = &cobra.Command{
	Use:   "lint [package-dir...]",
	Short: "Check task and plugin declarations in Go source",
	Long: `Lint parses the Go packages in the given directories (default: the current
directory) and reports task tag mistakes, missing action methods and
accessors, and plugin injection problems without compiling anything.

Example:
  taskforge lint ./plugins/files ./plugins/http
`,
	RunE: runLint,
}

func runLint(cmd *cobra.Command, dirs []string) error {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	out := cmd.OutOrStdout()

	total := 0
	for _, dir := range dirs {
		pkg, err := analyzer.AnalyzeDir(dir)
		if err != nil {
			return err
		}
		findings := analyzer.Lint(pkg)
		for _, f := range findings {
			fmt.Fprintln(out, f.String())
		}
		logger.Debug("Linted package", "dir", dir, "package", pkg.Name,
			"task_types", len(pkg.TaskTypes), "plugins", len(pkg.Plugins), "findings", len(findings))
		total += len(findings)
	}

	if total > 0 {
		return fmt.Errorf("%d problems found", total)
	}
	fmt.Fprintf(out, "%s no problems found\n", executedColor.Sprint("✓"))
	return nil
}
