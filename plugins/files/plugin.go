// Package files provides task types that copy and write files.
package files

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BDNK1/taskforge/runtime/plugin"
	"github.com/spf13/afero"
)

// FilesPlugin contributes the files.copy and files.write task types.
type FilesPlugin struct{}

func (p *FilesPlugin) TaskTypes() map[string]plugin.Task {
	return map[string]plugin.Task{
		"copy":  (*CopyTask)(nil),
		"write": (*WriteTask)(nil),
	}
}

// CopyTask copies files into a directory, keeping their base names.
// Only added or modified sources are copied again; copies of removed sources are deleted.
type CopyTask struct {
	plugin.DefaultTask
	plugin.Cacheable
	_ plugin.Actions `actions:"Copy"`

	From plugin.Paths `yaml:"from" task:"input-files"`
	Into string       `yaml:"into" task:"output-directory"`
	Mode uint32       `yaml:"mode" default:"420" task:"input-value"`
}

func (t *CopyTask) Copy(ctx context.Context, changes *plugin.InputChanges) error {
	logger := plugin.LoggerFrom(ctx)
	fs := t.FileSystem()

	if !changes.IsIncremental() {
		logger.Debug("Copying all sources", "into", t.Into)
	}

	copied := 0
	err := changes.OutOfDate(func(d plugin.InputFileDetails) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := copyFile(fs, d.Path, t.target(d.Path), os.FileMode(t.Mode)); err != nil {
			return err
		}
		copied++
		return nil
	})
	if err != nil {
		return err
	}

	removed := 0
	err = changes.Removed(func(d plugin.InputFileDetails) error {
		if err := fs.Remove(t.target(d.Path)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("files.copy: failed to remove stale copy of %s: %w", d.Path, err)
		}
		removed++
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Copied files", "copied", copied, "removed", removed, "into", t.Into)
	return nil
}

func (t *CopyTask) target(source string) string {
	return filepath.Join(t.Into, filepath.Base(source))
}

func copyFile(fs afero.Fs, from, to string, mode os.FileMode) error {
	data, err := afero.ReadFile(fs, from)
	if err != nil {
		return fmt.Errorf("files.copy: failed to read %s: %w", from, err)
	}
	if err := afero.WriteFile(fs, to, data, mode); err != nil {
		return fmt.Errorf("files.copy: failed to write %s: %w", to, err)
	}
	return nil
}

// WriteTask writes literal content to a file.
type WriteTask struct {
	plugin.DefaultTask
	_ plugin.Actions `actions:"Write"`

	Content string `yaml:"content" task:"input-value"`
	Dest    string `yaml:"dest" task:"output-file"`
}

func (t *WriteTask) Write() error {
	if err := afero.WriteFile(t.FileSystem(), t.Dest, []byte(t.Content), 0o644); err != nil {
		return fmt.Errorf("files.write: %w", err)
	}
	return nil
}
