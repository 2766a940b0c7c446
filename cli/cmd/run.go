package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BDNK1/taskforge/cli/internal/graph"
	"github.com/BDNK1/taskforge/runtime"
	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const watchDebounce = 200 * time.Millisecond

var watch bool

var runCmd = &cobra.Command{
	Use:   "run [task...]",
	Short: "Run tasks and everything they depend on",
	Long: `Run executes the named tasks, or every task of the build when none is named,
after the tasks they depend on.

Example:
  taskforge run
  taskforge run site
  taskforge run -b build.hcl --watch assets
`,
	RunE: runTasks,
}

func init() {
	runCmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-run when the build file or task inputs change")
}

func runTasks(cmd *cobra.Command, targets []string) error {
	ctx := cmd.Context()

	l, shutdownTelemetry, err := setupTelemetry(ctx, settings.Telemetry, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			l.Warn("Failed to flush telemetry", "error", err)
		}
	}()

	app, cleanup, err := newApp(settings, l, appOptions{history: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(); err != nil {
			l.Warn("Failed to close task history", "error", err)
		}
	}()

	if err := app.Container.Initialize(ctx); err != nil {
		return err
	}
	defer func() {
		if err := app.Container.Shutdown(context.Background()); err != nil {
			l.Warn("Plugin shutdown failed", "error", err)
		}
	}()

	out := cmd.OutOrStdout()
	if !watch {
		_, err := runOnce(ctx, app, settings.Build, targets, out)
		return err
	}
	return watchBuild(ctx, app, targets, out)
}

// runOnce loads the build, runs the targets in dependency order and prints the results.
// It returns the paths worth watching: the build file and the inputs of the planned tasks.
func runOnce(ctx context.Context, app *runtime.App, buildPath string, targets []string, out io.Writer) ([]string, error) {
	watched := []string{buildPath}

	build, err := loadBuild(app, buildPath)
	if err != nil {
		return watched, err
	}
	g, err := graph.BuildGraph(build.Tasks)
	if err != nil {
		return watched, err
	}

	var order []string
	if len(targets) == 0 {
		order, err = g.TopologicalSort()
	} else {
		order, err = g.Subgraph(targets...)
	}
	if err != nil {
		return watched, err
	}

	tasks := make(map[string]runtime.Task, len(order))
	for _, name := range order {
		spec, _ := build.Task(name)
		task, err := app.CreateTask(spec)
		if err != nil {
			return watched, err
		}
		tasks[name] = task
		watched = append(watched, task.Inputs().Files()...)
	}

	results, err := app.Run(ctx, build, tasks, order)
	printResults(out, results)
	return watched, err
}

var (
	executedColor = color.New(color.FgGreen)
	upToDateColor = color.New(color.FgCyan)
	skippedColor  = color.New(color.FgYellow)
	failedColor   = color.New(color.FgRed, color.Bold)
)

func printResults(out io.Writer, results []runtime.TaskResult) {
	counts := make(map[runtime.Outcome]int)
	for _, r := range results {
		counts[r.Outcome]++

		var symbol string
		switch r.Outcome {
		case runtime.OutcomeExecuted:
			symbol = executedColor.Sprint("✓")
		case runtime.OutcomeUpToDate:
			symbol = upToDateColor.Sprint("=")
		case runtime.OutcomeSkipped:
			symbol = skippedColor.Sprint("-")
		default:
			symbol = failedColor.Sprint("✗")
		}
		fmt.Fprintf(out, "%s %-24s %-10s %s\n", symbol, r.Task, r.Outcome, r.Duration.Round(time.Millisecond))
	}

	fmt.Fprintf(out, "\n%d tasks: %d executed, %d up-to-date, %d skipped",
		len(results),
		counts[runtime.OutcomeExecuted],
		counts[runtime.OutcomeUpToDate],
		counts[runtime.OutcomeSkipped])
	if failed := counts[runtime.OutcomeFailed]; failed > 0 {
		fmt.Fprintf(out, ", %s", failedColor.Sprintf("%d failed", failed))
	}
	fmt.Fprintln(out)
}

// watchBuild runs the targets, then runs them again after every change to a watched path
// until ctx is cancelled. Failed runs are reported and watching continues.
func watchBuild(ctx context.Context, app *runtime.App, targets []string, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer watcher.Close()

	for {
		watched, err := runOnce(ctx, app, settings.Build, targets, out)
		if err != nil {
			fmt.Fprintf(out, "%s %v\n", failedColor.Sprint("error:"), err)
		}
		rewatch(watcher, watched)

		fmt.Fprintln(out, "Waiting for changes...")
		if err := waitForChange(ctx, watcher); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// rewatch replaces the watch list with the directories holding paths.
func rewatch(watcher *fsnotify.Watcher, paths []string) {
	for _, dir := range watcher.WatchList() {
		_ = watcher.Remove(dir)
	}
	for _, dir := range watchDirs(paths) {
		if err := watcher.Add(dir); err != nil {
			logger.Debug("Cannot watch directory", "dir", dir, "error", err)
		}
	}
}

// watchDirs returns the distinct directories to watch for paths: directories themselves,
// the parent directory of anything else.
func watchDirs(paths []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, path := range paths {
		dir := filepath.Dir(path)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			dir = path
		}
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// waitForChange blocks until a watched file changes and no further event arrives for watchDebounce.
func waitForChange(ctx context.Context, watcher *fsnotify.Watcher) error {
	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("file watcher closed")
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			logger.Debug("Change detected", "path", event.Name, "op", event.Op.String())
			settle = time.After(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("file watcher closed")
			}
			logger.Warn("File watcher error", "error", err)
		case <-settle:
			return nil
		}
	}
}
